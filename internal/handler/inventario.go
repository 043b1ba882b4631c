package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/service"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// ListarMovimientos devuelve el ledger de stock, filtrable por producto y tipo.
func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoStockFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
