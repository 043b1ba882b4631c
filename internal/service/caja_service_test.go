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
	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/model"
	"github.com/ariel1092/sistema-control-sub001/internal/money"
	"github.com/ariel1092/sistema-control-sub001/internal/repository"
)

// ── In-memory CajaRepository ─────────────────────────────────────────────────

type memCajaRepo struct {
	cajas       map[uuid.UUID]*model.CajaDiaria
	movimientos []model.MovimientoCaja
}

func newMemCajaRepo() *memCajaRepo {
	return &memCajaRepo{cajas: make(map[uuid.UUID]*model.CajaDiaria)}
}

func (r *memCajaRepo) CreateCaja(_ context.Context, c *model.CajaDiaria) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.cajas[c.ID] = c
	return nil
}

func (r *memCajaRepo) UpdateCaja(_ context.Context, c *model.CajaDiaria) error {
	r.cajas[c.ID] = c
	return nil
}

func (r *memCajaRepo) buscarPorDia(dia time.Time, soloAbierta bool) (*model.CajaDiaria, error) {
	for _, c := range r.cajas {
		if c.FechaDia.Equal(dia) && (!soloAbierta || c.Estado == model.CajaAbierta) {
			return c, nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *memCajaRepo) FindAbiertaPorDia(_ context.Context, dia time.Time) (*model.CajaDiaria, error) {
	return r.buscarPorDia(dia, true)
}

func (r *memCajaRepo) FindAbiertaPorDiaTx(_ *gorm.DB, dia time.Time) (*model.CajaDiaria, error) {
	return r.buscarPorDia(dia, true)
}

func (r *memCajaRepo) FindPorDia(_ context.Context, dia time.Time) (*model.CajaDiaria, error) {
	return r.buscarPorDia(dia, false)
}

func (r *memCajaRepo) FindUltimaAbierta(_ context.Context) (*model.CajaDiaria, error) {
	var ultima *model.CajaDiaria
	for _, c := range r.cajas {
		if c.Estado != model.CajaAbierta {
			continue
		}
		if ultima == nil || c.FechaDia.After(ultima.FechaDia) {
			ultima = c
		}
	}
	if ultima == nil {
		return nil, errors.New("record not found")
	}
	return ultima, nil
}

func (r *memCajaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CajaDiaria, error) {
	c, ok := r.cajas[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return c, nil
}

func (r *memCajaRepo) CreateMovimiento(_ context.Context, m *model.MovimientoCaja) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *memCajaRepo) CreateMovimientoTx(_ *gorm.DB, m *model.MovimientoCaja) error {
	return r.CreateMovimiento(context.Background(), m)
}

func (r *memCajaRepo) ListMovimientos(_ context.Context, cajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.CajaID == cajaID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memCajaRepo) MovimientosDeVentaTx(_ *gorm.DB, ventaID uuid.UUID, origen string) ([]model.MovimientoCaja, error) {
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.VentaID != nil && *m.VentaID == ventaID && m.Origen == origen {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ repository.CajaRepository = (*memCajaRepo)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

func locBA(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)
	return loc
}

func abrirCajaHoy(t *testing.T, svc CajaService, inicial int64) *dto.ResumenCajaResponse {
	t.Helper()
	resp, err := svc.Abrir(context.Background(), model.ActorAutenticado(uuid.New()), dto.AbrirCajaRequest{
		MontoInicial: decimal.NewFromInt(inicial),
	})
	require.NoError(t, err)
	return resp
}

// ventaConPagos arma una venta válida para los pagos dados: el precio del
// único item es la suma de pagos menos el componente de recargo, así el
// agregado cierra sin diferencia.
func ventaConPagos(t *testing.T, pagos []model.VentaPago) *model.Venta {
	t.Helper()
	precio := decimal.Zero
	for _, p := range pagos {
		if (p.Metodo == model.PagoDebito || p.Metodo == model.PagoCredito) &&
			p.RecargoPct != nil && !p.RecargoPct.IsZero() {
			precio = precio.Add(money.BaseSinRecargo(p.Monto, *p.RecargoPct))
			continue
		}
		precio = precio.Add(p.Monto)
	}
	items := []model.VentaItem{{ProductoID: uuid.New(), Cantidad: 1, PrecioUnitario: precio}}
	v, err := model.NuevaVenta(uuid.New(), time.Now(), items, pagos, decimal.Zero, model.ComprobanteTicket, false)
	require.NoError(t, err)
	v.ID = uuid.New()
	v.Numero = "V-TEST-000001"
	return v
}

// ── Apertura ─────────────────────────────────────────────────────────────────

func TestAbrirCajaUnaVezPorDia(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))

	resp := abrirCajaHoy(t, svc, 1000)
	assert.Equal(t, model.CajaAbierta, resp.Estado)
	assert.Equal(t, "1000.00", resp.MontoInicial.StringFixed(2))

	_, err := svc.Abrir(context.Background(), model.ActorSistema(), dto.AbrirCajaRequest{
		MontoInicial: decimal.NewFromInt(500),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.CodigoPrecondicion, apierror.CodigoDe(err))
}

func TestAbrirCajaMontoNegativo(t *testing.T) {
	svc := NewCajaService(newMemCajaRepo(), nil, locBA(t))

	_, err := svc.Abrir(context.Background(), model.ActorSistema(), dto.AbrirCajaRequest{
		MontoInicial: decimal.NewFromInt(-1),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.CodigoValidacion, apierror.CodigoDe(err))
}

func TestReabrirCajaCerradaEsDefinitivo(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))

	abrirCajaHoy(t, svc, 100)
	_, err := svc.Cerrar(context.Background(), model.ActorSistema(), dto.CerrarCajaRequest{
		EfectivoContado: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = svc.Abrir(context.Background(), model.ActorSistema(), dto.AbrirCajaRequest{
		MontoInicial: decimal.NewFromInt(100),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.CodigoPrecondicion, apierror.CodigoDe(err))
}

// ── Resumen (fold del ledger) ────────────────────────────────────────────────

func TestResumenVentaYReversionVuelveACero(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))
	actor := model.ActorAutenticado(uuid.New())

	abrirCajaHoy(t, svc, 0)

	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoEfectivo, Monto: decimal.NewFromInt(300)},
	})
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, actor))

	resumen, err := svc.Resumen(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "300.00", resumen.Efectivo.StringFixed(2))
	assert.Equal(t, 1, resumen.CantidadVentas)

	require.NoError(t, svc.RevertirMovimientosVentaTx(nil, venta, actor, "devolución"))

	resumen, err = svc.Resumen(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "0.00", resumen.Efectivo.StringFixed(2))
	assert.Equal(t, 0, resumen.CantidadVentas, "una venta revertida no cuenta")
}

func TestResumenAgrupaPorBucket(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))
	actor := model.ActorSistema()

	abrirCajaHoy(t, svc, 0)

	ref := "OP-77"
	banco := "galicia"
	recargo := decimal.NewFromInt(10)
	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoEfectivo, Monto: decimal.NewFromInt(100)},
		{Metodo: model.PagoCredito, Monto: decimal.NewFromInt(110), RecargoPct: &recargo},
		{Metodo: model.PagoTransferencia, Monto: decimal.NewFromInt(50), Referencia: &ref, Banco: &banco},
	})
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, actor))

	resumen, err := svc.Resumen(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "100.00", resumen.Efectivo.StringFixed(2))
	assert.Equal(t, "110.00", resumen.Tarjetas.StringFixed(2))
	assert.Equal(t, "50.00", resumen.Transferencias.StringFixed(2))
	assert.Equal(t, "50.00", resumen.PorBanco["galicia"].StringFixed(2))
	assert.Equal(t, "260.00", resumen.Total.StringFixed(2))
}

func TestResumenSinCaja(t *testing.T) {
	svc := NewCajaService(newMemCajaRepo(), nil, locBA(t))

	_, err := svc.Resumen(context.Background(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apierror.CodigoPrecondicion, apierror.CodigoDe(err))
}

// ── Registro de movimientos de venta ─────────────────────────────────────────

func TestRegistrarMovimientosAgrupaEfectivo(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))

	abrirCajaHoy(t, svc, 0)

	// Dos pagos en efectivo colapsan en una sola fila del ledger.
	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoEfectivo, Monto: decimal.NewFromInt(120)},
		{Metodo: model.PagoEfectivo, Monto: decimal.NewFromInt(80)},
	})
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, model.ActorSistema()))

	require.Len(t, repo.movimientos, 1)
	assert.Equal(t, "200.00", repo.movimientos[0].Monto.StringFixed(2))
	assert.Equal(t, model.OrigenVenta, repo.movimientos[0].Origen)
}

func TestRegistrarMovimientosReferenciaMultiple(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))

	abrirCajaHoy(t, svc, 0)

	ref1, ref2 := "TX-1", "TX-2"
	banco := "santander"
	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoTransferencia, Monto: decimal.NewFromInt(100), Referencia: &ref1, Banco: &banco},
		{Metodo: model.PagoTransferencia, Monto: decimal.NewFromInt(150), Referencia: &ref2, Banco: &banco},
	})
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, model.ActorSistema()))

	require.Len(t, repo.movimientos, 1)
	require.NotNil(t, repo.movimientos[0].Referencia)
	assert.Equal(t, model.ReferenciaMultiple, *repo.movimientos[0].Referencia)
	assert.Equal(t, "250.00", repo.movimientos[0].Monto.StringFixed(2))
}

func TestRegistrarMovimientosBancosDistintos(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))

	abrirCajaHoy(t, svc, 0)

	ref1, ref2 := "TX-1", "TX-2"
	b1, b2 := "galicia", "santander"
	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoTransferencia, Monto: decimal.NewFromInt(100), Referencia: &ref1, Banco: &b1},
		{Metodo: model.PagoTransferencia, Monto: decimal.NewFromInt(150), Referencia: &ref2, Banco: &b2},
	})
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, model.ActorSistema()))

	assert.Len(t, repo.movimientos, 2, "bancos distintos no se fusionan")
}

func TestRegistrarMovimientosSinCajaAbierta(t *testing.T) {
	svc := NewCajaService(newMemCajaRepo(), nil, locBA(t))

	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoEfectivo, Monto: decimal.NewFromInt(100)},
	})
	err := svc.RegistrarMovimientosVentaTx(nil, venta, model.ActorSistema())
	require.Error(t, err)
	assert.Equal(t, apierror.CodigoPrecondicion, apierror.CodigoDe(err))
}

func TestRegistrarMovimientosEsIdempotente(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))

	abrirCajaHoy(t, svc, 0)

	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoEfectivo, Monto: decimal.NewFromInt(100)},
	})
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, model.ActorSistema()))
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, model.ActorSistema()))

	assert.Len(t, repo.movimientos, 1)
}

func TestCuentaCorrienteNoTocaLaCaja(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))

	// Sin caja abierta a propósito: una venta 100% cuenta corriente no debe
	// necesitar caja.
	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoCuentaCorriente, Monto: decimal.NewFromInt(900)},
	})
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, model.ActorSistema()))
	assert.Empty(t, repo.movimientos)
}

func TestRevertirMovimientosEsIdempotente(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))
	actor := model.ActorSistema()

	abrirCajaHoy(t, svc, 0)

	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoEfectivo, Monto: decimal.NewFromInt(100)},
	})
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, actor))
	require.NoError(t, svc.RevertirMovimientosVentaTx(nil, venta, actor, "error de carga"))
	require.NoError(t, svc.RevertirMovimientosVentaTx(nil, venta, actor, "error de carga"))

	assert.Len(t, repo.movimientos, 2, "un ingreso y un solo egreso espejo")
}

// ── Cierre y arqueo ──────────────────────────────────────────────────────────

func TestCerrarCajaSinDiferencia(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))
	actor := model.ActorAutenticado(uuid.New())

	abrirCajaHoy(t, svc, 1000)

	venta := ventaConPagos(t, []model.VentaPago{
		{Metodo: model.PagoEfectivo, Monto: decimal.NewFromInt(500)},
	})
	require.NoError(t, svc.RegistrarMovimientosVentaTx(nil, venta, actor))

	cierre, err := svc.Cerrar(context.Background(), actor, dto.CerrarCajaRequest{
		EfectivoContado: decimal.NewFromInt(1500),
	})
	require.NoError(t, err)
	assert.Equal(t, "1500.00", cierre.EfectivoEsperado.StringFixed(2))
	assert.Equal(t, "0.00", cierre.Diferencia.StringFixed(2))
	assert.Equal(t, "normal", cierre.Clasificacion)
}

func TestCerrarCajaDejadaAbiertaDeAyer(t *testing.T) {
	repo := newMemCajaRepo()
	loc := locBA(t)
	svc := NewCajaService(repo, nil, loc)
	actor := model.ActorAutenticado(uuid.New())

	// Caja de ayer que quedó abierta: el cierre apunta a la última abierta,
	// no a la del día en curso.
	ayer := model.DiaComercial(time.Now(), loc).AddDate(0, 0, -1)
	_, err := svc.Abrir(context.Background(), actor, dto.AbrirCajaRequest{
		MontoInicial: decimal.NewFromInt(500),
		Fecha:        ayer.Format("2006-01-02"),
	})
	require.NoError(t, err)

	cierre, err := svc.Cerrar(context.Background(), actor, dto.CerrarCajaRequest{
		EfectivoContado: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.Equal(t, "normal", cierre.Clasificacion)

	caja, err := repo.FindPorDia(context.Background(), ayer)
	require.NoError(t, err)
	assert.Equal(t, model.CajaCerrada, caja.Estado)
}

func TestCerrarCajaConFaltanteNoBloquea(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))
	actor := model.ActorAutenticado(uuid.New())

	abrirCajaHoy(t, svc, 1000)

	// Faltan 100 sobre 1000 esperado (10%): crítico, pero el cierre procede.
	cierre, err := svc.Cerrar(context.Background(), actor, dto.CerrarCajaRequest{
		EfectivoContado: decimal.NewFromInt(900),
		Notas:           "faltante detectado",
	})
	require.NoError(t, err)
	assert.Equal(t, "-100.00", cierre.Diferencia.StringFixed(2))
	assert.Equal(t, "critico", cierre.Clasificacion)
	assert.Contains(t, cierre.Notas, "faltante detectado")
	assert.Contains(t, cierre.Notas, "diferencia de arqueo")
}

func TestClasificarDiferencia(t *testing.T) {
	esperado := decimal.NewFromInt(1000)

	assert.Equal(t, "normal", clasificarDiferencia(decimal.Zero, esperado))
	assert.Equal(t, "normal", clasificarDiferencia(decimal.NewFromInt(-10), esperado))
	assert.Equal(t, "advertencia", clasificarDiferencia(decimal.NewFromInt(30), esperado))
	assert.Equal(t, "critico", clasificarDiferencia(decimal.NewFromInt(-60), esperado))
	assert.Equal(t, "critico", clasificarDiferencia(decimal.NewFromInt(1), decimal.Zero))
}

func TestCerrarSinCajaAbierta(t *testing.T) {
	svc := NewCajaService(newMemCajaRepo(), nil, locBA(t))

	_, err := svc.Cerrar(context.Background(), model.ActorSistema(), dto.CerrarCajaRequest{
		EfectivoContado: decimal.Zero,
	})
	require.Error(t, err)
	assert.Equal(t, apierror.CodigoPrecondicion, apierror.CodigoDe(err))
}

func TestMovimientoManual(t *testing.T) {
	repo := newMemCajaRepo()
	svc := NewCajaService(repo, nil, locBA(t))
	actor := model.ActorAutenticado(uuid.New())

	abrirCajaHoy(t, svc, 500)

	require.NoError(t, svc.RegistrarMovimientoManual(context.Background(), actor, dto.MovimientoManualRequest{
		Tipo:        "egreso",
		Monto:       decimal.NewFromInt(200),
		Descripcion: "pago a proveedor",
	}))

	resumen, err := svc.Resumen(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "-200.00", resumen.Efectivo.StringFixed(2))
	assert.Equal(t, 0, resumen.CantidadVentas, "un egreso manual no cuenta como venta")
}
