package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/service"
)

type FacturacionHandler struct{ svc service.FacturacionService }

func NewFacturacionHandler(svc service.FacturacionService) *FacturacionHandler {
	return &FacturacionHandler{svc: svc}
}

// ObtenerComprobante devuelve el comprobante emitido para una venta.
func (h *FacturacionHandler) ObtenerComprobante(c *gin.Context) {
	ventaID, err := uuid.Parse(c.Param("venta_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de venta invalido"))
		return
	}
	resp, err := h.svc.ObtenerComprobante(c.Request.Context(), ventaID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
