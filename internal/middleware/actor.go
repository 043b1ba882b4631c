package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ariel1092/sistema-control-sub001/internal/model"
	"github.com/ariel1092/sistema-control-sub001/internal/service"
)

const actorKey = "actor"

// Actor resolves who is performing the request. Authentication itself lives
// in front of this service; here we only trust the already-verified
// X-Usuario-ID header the gateway injects. Absent or malformed ids fall back
// to the system actor — never to a magic user id.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := model.ActorSistema()
		if raw := c.GetHeader("X-Usuario-ID"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				actor = model.ActorAutenticado(id)
			}
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActor returns the actor resolved for this request.
func GetActor(c *gin.Context) model.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(model.Actor); ok {
			return a
		}
	}
	return model.ActorSistema()
}

// GetMeta captures request metadata for audit rows.
func GetMeta(c *gin.Context) service.MetaAuditoria {
	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	meta := service.MetaAuditoria{}
	if ip != "" {
		meta.IP = &ip
	}
	if ua != "" {
		meta.UserAgent = &ua
	}
	return meta
}
