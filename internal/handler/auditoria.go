package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/service"
)

type AuditoriaHandler struct{ svc service.AuditoriaService }

func NewAuditoriaHandler(svc service.AuditoriaService) *AuditoriaHandler {
	return &AuditoriaHandler{svc: svc}
}

// Listar devuelve los eventos de auditoría, filtrables por entidad y entidad_id.
func (h *AuditoriaHandler) Listar(c *gin.Context) {
	var filter dto.AuditoriaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	eventos, total, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  eventos,
		"total": total,
	})
}

// Verificar recalcula el digest de un evento y reporta si el registro
// permanece íntegro.
func (h *AuditoriaHandler) Verificar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.svc.Verificar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
