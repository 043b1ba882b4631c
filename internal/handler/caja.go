package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/middleware"
	"github.com/ariel1092/sistema-control-sub001/internal/service"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir abre la caja del día con un monto inicial. Una sola apertura por día
// comercial; el cierre es definitivo.
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor := middleware.GetActor(c)

	resp, err := h.svc.Abrir(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cerrar realiza el arqueo: compara el efectivo contado contra el esperado y
// clasifica la diferencia. El cierre nunca se bloquea por diferencias.
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor := middleware.GetActor(c)

	resp, err := h.svc.Cerrar(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resumen devuelve los totales derivados del ledger para el día pedido
// (query fecha=YYYY-MM-DD, default hoy). Solo lectura.
func (h *CajaHandler) Resumen(c *gin.Context) {
	dia := time.Now()
	if f := c.Query("fecha"); f != "" {
		parsed, err := time.Parse("2006-01-02", f)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("fecha invalida, formato esperado YYYY-MM-DD"))
			return
		}
		dia = parsed
	}
	resp, err := h.svc.Resumen(c.Request.Context(), dia)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimiento registra un ingreso o egreso manual contra la caja
// abierta del día.
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor := middleware.GetActor(c)

	if err := h.svc.RegistrarMovimientoManual(c.Request.Context(), actor, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}
