package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/model"
	"github.com/ariel1092/sistema-control-sub001/internal/repository"
)

// ── In-memory ComprobanteRepository ──────────────────────────────────────────

type memComprobanteRepo struct {
	comprobantes []model.Comprobante
	contadores   map[string]int64
}

func newMemComprobanteRepo() *memComprobanteRepo {
	return &memComprobanteRepo{contadores: make(map[string]int64)}
}

func (r *memComprobanteRepo) CreateTx(_ *gorm.DB, c *model.Comprobante) error {
	c.CreatedAt = time.Now()
	r.comprobantes = append(r.comprobantes, *c)
	return nil
}

func (r *memComprobanteRepo) FindByVentaID(_ context.Context, ventaID uuid.UUID) (*model.Comprobante, error) {
	for i := range r.comprobantes {
		if r.comprobantes[i].VentaID == ventaID {
			return &r.comprobantes[i], nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *memComprobanteRepo) ProximoNumeroTx(_ *gorm.DB, puntoVenta int, tipo, letra string) (int64, error) {
	clave := tipo + "|" + letra
	r.contadores[clave]++
	return r.contadores[clave], nil
}

var _ repository.ComprobanteRepository = (*memComprobanteRepo)(nil)

// ── Tests ────────────────────────────────────────────────────────────────────

func ventaParaComprobante(t *testing.T, tipo string) *model.Venta {
	t.Helper()
	items := []model.VentaItem{{ProductoID: uuid.New(), Cantidad: 1, PrecioUnitario: decimal.NewFromInt(100)}}
	pagos := []model.VentaPago{{Metodo: model.PagoEfectivo, Monto: decimal.NewFromInt(100)}}
	v, err := model.NuevaVenta(uuid.New(), time.Now(), items, pagos, decimal.Zero, tipo, false)
	require.NoError(t, err)
	v.ID = uuid.New()
	return v
}

func TestEmitirNumeracionMonotona(t *testing.T) {
	repo := newMemComprobanteRepo()
	svc := NewFacturacionService(repo, 3)

	for esperado := int64(1); esperado <= 5; esperado++ {
		comp, err := svc.EmitirTx(nil, ventaParaComprobante(t, model.ComprobanteTicket))
		require.NoError(t, err)
		assert.Equal(t, esperado, comp.Numero)
		assert.Equal(t, 3, comp.PuntoVenta)
		assert.Equal(t, "X", comp.Letra)
	}
}

func TestEmitirContadoresIndependientesPorTipo(t *testing.T) {
	repo := newMemComprobanteRepo()
	svc := NewFacturacionService(repo, 1)

	compA, err := svc.EmitirTx(nil, ventaParaComprobante(t, model.ComprobanteFacturaA))
	require.NoError(t, err)
	compB, err := svc.EmitirTx(nil, ventaParaComprobante(t, model.ComprobanteFacturaB))
	require.NoError(t, err)

	assert.Equal(t, "A", compA.Letra)
	assert.Equal(t, "B", compB.Letra)
	assert.Equal(t, int64(1), compA.Numero)
	assert.Equal(t, int64(1), compB.Numero, "cada (tipo, letra) lleva su propio contador")
}

func TestEmitirSeparaNetoDeRecargo(t *testing.T) {
	repo := newMemComprobanteRepo()
	svc := NewFacturacionService(repo, 1)

	recargo := decimal.NewFromInt(10)
	items := []model.VentaItem{{ProductoID: uuid.New(), Cantidad: 1, PrecioUnitario: decimal.NewFromInt(100)}}
	pagos := []model.VentaPago{{Metodo: model.PagoCredito, Monto: decimal.NewFromInt(110), RecargoPct: &recargo}}
	venta, err := model.NuevaVenta(uuid.New(), time.Now(), items, pagos, decimal.Zero, model.ComprobanteTicket, false)
	require.NoError(t, err)
	venta.ID = uuid.New()

	comp, err := svc.EmitirTx(nil, venta)
	require.NoError(t, err)
	assert.Equal(t, "100.00", comp.MontoNeto.StringFixed(2))
	assert.Equal(t, "110.00", comp.MontoTotal.StringFixed(2))
}

func TestObtenerComprobante(t *testing.T) {
	repo := newMemComprobanteRepo()
	svc := NewFacturacionService(repo, 1)

	venta := ventaParaComprobante(t, model.ComprobanteTicket)
	_, err := svc.EmitirTx(nil, venta)
	require.NoError(t, err)

	resp, err := svc.ObtenerComprobante(context.Background(), venta.ID)
	require.NoError(t, err)
	assert.Equal(t, venta.ID.String(), resp.VentaID)
	assert.Equal(t, int64(1), resp.Numero)
}

func TestObtenerComprobanteInexistente(t *testing.T) {
	svc := NewFacturacionService(newMemComprobanteRepo(), 1)

	_, err := svc.ObtenerComprobante(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apierror.CodigoPrecondicion, apierror.CodigoDe(err))
}
