package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/model"
	"github.com/ariel1092/sistema-control-sub001/internal/money"
	"github.com/ariel1092/sistema-control-sub001/internal/repository"
)

// CajaService drives the daily register lifecycle and its ledger. The
// register's totals are never stored as running fields: every read replays
// the movement rows (sum ingreso − egreso per bucket).
type CajaService interface {
	Abrir(ctx context.Context, actor model.Actor, req dto.AbrirCajaRequest) (*dto.ResumenCajaResponse, error)
	Cerrar(ctx context.Context, actor model.Actor, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error)
	Resumen(ctx context.Context, dia time.Time) (*dto.ResumenCajaResponse, error)
	RegistrarMovimientoManual(ctx context.Context, actor model.Actor, req dto.MovimientoManualRequest) error

	// Ledger writes for the sale orchestrator. Both run inside the caller's
	// transaction and both are idempotent under retried orchestrations.
	RegistrarMovimientosVentaTx(tx *gorm.DB, venta *model.Venta, actor model.Actor) error
	RevertirMovimientosVentaTx(tx *gorm.DB, venta *model.Venta, actor model.Actor, motivo string) error
}

type cajaService struct {
	repo   repository.CajaRepository
	locker *redislock.Client
	loc    *time.Location
}

// NewCajaService builds the service. locker may be nil (unit tests, redis
// disabled); the partial unique index on cajas_diarias remains the hard
// guarantee against a double open.
func NewCajaService(repo repository.CajaRepository, locker *redislock.Client, loc *time.Location) CajaService {
	return &cajaService{repo: repo, locker: locker, loc: loc}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, actor model.Actor, req dto.AbrirCajaRequest) (*dto.ResumenCajaResponse, error) {
	if req.MontoInicial.IsNegative() {
		return nil, apierror.Validacion("el monto inicial no puede ser negativo")
	}

	dia := model.DiaComercial(time.Now(), s.loc)
	if req.Fecha != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Fecha, s.loc)
		if err != nil {
			return nil, apierror.Validacion("fecha inválida, formato esperado YYYY-MM-DD")
		}
		dia = model.DiaComercial(parsed, s.loc)
	}

	// Advisory lock serializes concurrent opens for the same day; the partial
	// unique index (estado='abierta') is the second line of defense.
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, "caja:abrir:"+dia.Format("2006-01-02"), 5*time.Second, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, apierror.Precondicion("otra apertura de caja está en curso para este día")
			}
			return nil, err
		}
		defer func() { _ = lock.Release(ctx) }()
	}

	if existente, err := s.repo.FindPorDia(ctx, dia); err == nil && existente != nil {
		if existente.Estado == model.CajaAbierta {
			return nil, apierror.Precondicion("ya existe una caja abierta para este día")
		}
		return nil, apierror.Precondicion("la caja de este día ya fue cerrada; el cierre es definitivo")
	}

	caja := &model.CajaDiaria{
		FechaDia:     dia,
		Estado:       model.CajaAbierta,
		AbiertaPor:   actor.UsuarioID(),
		MontoInicial: money.Redondear(req.MontoInicial),
		AbiertaEn:    time.Now(),
	}
	if err := s.repo.CreateCaja(ctx, caja); err != nil {
		return nil, err
	}

	log.Info().Str("caja_id", caja.ID.String()).Str("dia", dia.Format("2006-01-02")).
		Str("actor", actor.Etiqueta()).Msg("caja abierta")

	resumen := foldMovimientos(caja, nil)
	return resumenToResponse(resumen), nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Recomputes totals by replaying the ledger, compares the counted cash against
// the recomputed cash bucket, records the signed difference, and flips the
// register to cerrada. A mismatch is data, not an error: the close succeeds.
// Targets the most recent open register rather than today's: a register left
// open overnight would otherwise be impossible to ever close.

func (s *cajaService) Cerrar(ctx context.Context, actor model.Actor, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	caja, err := s.repo.FindUltimaAbierta(ctx)
	if err != nil {
		return nil, apierror.Precondicion("no hay caja abierta para cerrar")
	}

	movs, err := s.repo.ListMovimientos(ctx, caja.ID)
	if err != nil {
		return nil, err
	}
	resumen := foldMovimientos(caja, movs)

	esperado := caja.MontoInicial.Add(resumen.Efectivo)
	contado := money.Redondear(req.EfectivoContado)
	diferencia := contado.Sub(esperado)
	clasificacion := clasificarDiferencia(diferencia, esperado)

	notas := req.Notas
	if notas != "" {
		notas += " | "
	}
	notas += fmt.Sprintf("diferencia de arqueo: %s", diferencia.StringFixed(2))

	if !diferencia.IsZero() {
		log.Warn().Str("caja_id", caja.ID.String()).
			Str("esperado", esperado.StringFixed(2)).
			Str("contado", contado.StringFixed(2)).
			Str("diferencia", diferencia.StringFixed(2)).
			Str("clasificacion", clasificacion).
			Msg("arqueo con diferencia")
	}

	ahora := time.Now()
	caja.Estado = model.CajaCerrada
	caja.CerradaPor = actor.UsuarioID()
	caja.CerradaEn = &ahora
	caja.EfectivoContado = &contado
	caja.EfectivoEsperado = &esperado
	caja.Diferencia = &diferencia
	caja.NotasCierre = &notas

	if err := s.repo.UpdateCaja(ctx, caja); err != nil {
		return nil, err
	}

	log.Info().Str("caja_id", caja.ID.String()).Str("actor", actor.Etiqueta()).Msg("caja cerrada")

	resumen.Estado = model.CajaCerrada
	return &dto.CierreCajaResponse{
		Resumen:          *resumenToResponse(resumen),
		EfectivoContado:  contado,
		EfectivoEsperado: esperado,
		Diferencia:       diferencia,
		Clasificacion:    clasificacion,
		Notas:            notas,
	}, nil
}

// ── Resumen ───────────────────────────────────────────────────────────────────
// Same pure fold as Cerrar. Never writes anything back: the stored monetary
// columns on the register row are advisory snapshots only.

func (s *cajaService) Resumen(ctx context.Context, dia time.Time) (*dto.ResumenCajaResponse, error) {
	diaNorm := model.DiaComercial(dia, s.loc)
	caja, err := s.repo.FindPorDia(ctx, diaNorm)
	if err != nil {
		return nil, apierror.Precondicion("no existe caja para el día solicitado")
	}
	movs, err := s.repo.ListMovimientos(ctx, caja.ID)
	if err != nil {
		return nil, err
	}
	return resumenToResponse(foldMovimientos(caja, movs)), nil
}

// ── RegistrarMovimientoManual ─────────────────────────────────────────────────

func (s *cajaService) RegistrarMovimientoManual(ctx context.Context, actor model.Actor, req dto.MovimientoManualRequest) error {
	dia := model.DiaComercial(time.Now(), s.loc)
	caja, err := s.repo.FindAbiertaPorDia(ctx, dia)
	if err != nil {
		return apierror.Precondicion("no hay caja abierta para registrar movimientos")
	}

	tipo := model.MovIngreso
	if req.Tipo == "egreso" {
		tipo = model.MovEgreso
	}
	metodo := model.PagoEfectivo
	mov := &model.MovimientoCaja{
		CajaID:      caja.ID,
		Tipo:        tipo,
		Origen:      model.OrigenManual,
		Monto:       money.Redondear(req.Monto),
		MetodoPago:  &metodo,
		Descripcion: req.Descripcion,
		UsuarioID:   actor.UsuarioID(),
	}
	return s.repo.CreateMovimiento(ctx, mov)
}

// ── RegistrarMovimientosVentaTx ───────────────────────────────────────────────
// One ledger row per distinct (metodo, banco) group. cuenta_corriente never
// reaches the register. Requires an OPEN register for the sale's business day;
// auto-opening here is forbidden.

func (s *cajaService) RegistrarMovimientosVentaTx(tx *gorm.DB, venta *model.Venta, actor model.Actor) error {
	grupos := agruparPagos(venta.Pagos)
	if len(grupos) == 0 {
		return nil // pure account-receivable sale
	}

	dia := model.DiaComercial(venta.Fecha, s.loc)
	caja, err := s.repo.FindAbiertaPorDiaTx(tx, dia)
	if err != nil {
		return apierror.Precondicion(fmt.Sprintf(
			"no hay caja abierta para el día %s: abra la caja antes de registrar ventas",
			dia.Format("2006-01-02")))
	}

	// Idempotency: a retried orchestration must not duplicate the inflows.
	existentes, err := s.repo.MovimientosDeVentaTx(tx, venta.ID, model.OrigenVenta)
	if err != nil {
		return err
	}
	if len(existentes) > 0 {
		return nil
	}

	ventaID := venta.ID
	numero := venta.Numero
	for _, g := range grupos {
		metodo := g.metodo
		mov := &model.MovimientoCaja{
			CajaID:      caja.ID,
			Tipo:        model.MovIngreso,
			Origen:      model.OrigenVenta,
			Monto:       g.monto,
			MetodoPago:  &metodo,
			Banco:       g.banco,
			Recargo:     g.recargo,
			VentaID:     &ventaID,
			VentaNumero: &numero,
			Referencia:  g.referencia,
			Descripcion: fmt.Sprintf("Venta %s", numero),
			UsuarioID:   actor.UsuarioID(),
		}
		if err := s.repo.CreateMovimientoTx(tx, mov); err != nil {
			return err
		}
	}
	return nil
}

// ── RevertirMovimientosVentaTx ────────────────────────────────────────────────
// One mirrored egreso per prior ingreso. Idempotent against duplicate reversal.

func (s *cajaService) RevertirMovimientosVentaTx(tx *gorm.DB, venta *model.Venta, actor model.Actor, motivo string) error {
	yaRevertidos, err := s.repo.MovimientosDeVentaTx(tx, venta.ID, model.OrigenReversionVenta)
	if err != nil {
		return err
	}
	if len(yaRevertidos) > 0 {
		return nil
	}

	ingresos, err := s.repo.MovimientosDeVentaTx(tx, venta.ID, model.OrigenVenta)
	if err != nil {
		return err
	}

	for _, ing := range ingresos {
		mov := &model.MovimientoCaja{
			CajaID:      ing.CajaID,
			Tipo:        model.MovEgreso,
			Origen:      model.OrigenReversionVenta,
			Monto:       ing.Monto,
			MetodoPago:  ing.MetodoPago,
			Banco:       ing.Banco,
			Recargo:     ing.Recargo,
			VentaID:     ing.VentaID,
			VentaNumero: ing.VentaNumero,
			Referencia:  ing.Referencia,
			Descripcion: fmt.Sprintf("Anulación venta %s — %s", venta.Numero, motivo),
			UsuarioID:   actor.UsuarioID(),
		}
		if err := s.repo.CreateMovimientoTx(tx, mov); err != nil {
			return err
		}
	}
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

type grupoPago struct {
	metodo     string
	banco      *string
	monto      decimal.Decimal
	recargo    *decimal.Decimal
	referencia *string
	// referencias vistas, para decidir si la fila fusionada lleva "multiple"
	refs map[string]bool
}

// agruparPagos collapses a sale's payments into one row per (metodo, banco)
// key. Two cash payments produce a single cash row; grouped entries with
// different references get the "multiple" sentinel.
func agruparPagos(pagos []model.VentaPago) []*grupoPago {
	var orden []string
	porClave := make(map[string]*grupoPago)

	for _, p := range pagos {
		if p.Metodo == model.PagoCuentaCorriente {
			continue
		}
		clave := p.Metodo
		if p.Metodo == model.PagoTransferencia && p.Banco != nil {
			clave += "|" + *p.Banco
		}

		g, existe := porClave[clave]
		if !existe {
			g = &grupoPago{metodo: p.Metodo, monto: decimal.Zero, refs: make(map[string]bool)}
			if p.Metodo == model.PagoTransferencia {
				g.banco = p.Banco
			}
			porClave[clave] = g
			orden = append(orden, clave)
		}

		g.monto = g.monto.Add(p.Monto)
		if p.Referencia != nil && *p.Referencia != "" {
			g.refs[*p.Referencia] = true
		}
		if (p.Metodo == model.PagoDebito || p.Metodo == model.PagoCredito) &&
			p.RecargoPct != nil && !p.RecargoPct.IsZero() {
			base := money.BaseSinRecargo(p.Monto, *p.RecargoPct)
			rec := p.Monto.Sub(base)
			if g.recargo == nil {
				zero := decimal.Zero
				g.recargo = &zero
			}
			suma := g.recargo.Add(rec)
			g.recargo = &suma
		}
	}

	out := make([]*grupoPago, 0, len(orden))
	for _, clave := range orden {
		g := porClave[clave]
		g.monto = money.Redondear(g.monto)
		switch len(g.refs) {
		case 0:
		case 1:
			for ref := range g.refs {
				r := ref
				g.referencia = &r
			}
		default:
			multiple := model.ReferenciaMultiple
			g.referencia = &multiple
		}
		out = append(out, g)
	}
	return out
}

// foldMovimientos is the materialized view: a pure fold over ledger rows.
// Buckets: efectivo / tarjetas (tarjeta+debito+credito) / transferencias with
// per-bank subtotals. cantidadVentas counts sales whose inflows were not
// reversed.
func foldMovimientos(caja *model.CajaDiaria, movs []model.MovimientoCaja) model.ResumenCaja {
	r := model.ResumenCaja{
		CajaID:       caja.ID,
		FechaDia:     caja.FechaDia,
		Estado:       caja.Estado,
		MontoInicial: caja.MontoInicial,
		Efectivo:     decimal.Zero,
		Tarjetas:     decimal.Zero,
		Transferencias: decimal.Zero,
		PorBanco:     make(map[string]decimal.Decimal),
		Total:        decimal.Zero,
	}

	ventas := make(map[string]bool)
	revertidas := make(map[string]bool)

	for _, m := range movs {
		signo := decimal.NewFromInt(1)
		if m.Tipo == model.MovEgreso {
			signo = decimal.NewFromInt(-1)
		}
		monto := m.Monto.Mul(signo)

		metodo := model.PagoEfectivo
		if m.MetodoPago != nil {
			metodo = *m.MetodoPago
		}
		switch metodo {
		case model.PagoEfectivo:
			r.Efectivo = r.Efectivo.Add(monto)
		case model.PagoTarjeta, model.PagoDebito, model.PagoCredito:
			r.Tarjetas = r.Tarjetas.Add(monto)
		case model.PagoTransferencia:
			r.Transferencias = r.Transferencias.Add(monto)
			if m.Banco != nil {
				r.PorBanco[*m.Banco] = r.PorBanco[*m.Banco].Add(monto)
			}
		}

		if m.VentaID != nil {
			switch m.Origen {
			case model.OrigenVenta:
				ventas[m.VentaID.String()] = true
			case model.OrigenReversionVenta:
				revertidas[m.VentaID.String()] = true
			}
		}
	}

	for id := range ventas {
		if !revertidas[id] {
			r.CantidadVentas++
		}
	}

	r.Efectivo = money.Redondear(r.Efectivo)
	r.Tarjetas = money.Redondear(r.Tarjetas)
	r.Transferencias = money.Redondear(r.Transferencias)
	r.Total = r.Efectivo.Add(r.Tarjetas).Add(r.Transferencias)
	return r
}

// clasificarDiferencia: "normal" ≤1% del esperado, "advertencia" ≤5%, "critico" >5%.
func clasificarDiferencia(diferencia, esperado decimal.Decimal) string {
	if diferencia.IsZero() {
		return "normal"
	}
	if esperado.IsZero() {
		return "critico"
	}
	pct := diferencia.Div(esperado).Mul(decimal.NewFromInt(100)).Abs()
	switch {
	case pct.LessThanOrEqual(decimal.NewFromInt(1)):
		return "normal"
	case pct.LessThanOrEqual(decimal.NewFromInt(5)):
		return "advertencia"
	default:
		return "critico"
	}
}

func resumenToResponse(r model.ResumenCaja) *dto.ResumenCajaResponse {
	return &dto.ResumenCajaResponse{
		CajaID:         r.CajaID.String(),
		FechaDia:       r.FechaDia.Format("2006-01-02"),
		Estado:         r.Estado,
		MontoInicial:   r.MontoInicial,
		Efectivo:       r.Efectivo,
		Tarjetas:       r.Tarjetas,
		Transferencias: r.Transferencias,
		PorBanco:       r.PorBanco,
		Total:          r.Total,
		CantidadVentas: r.CantidadVentas,
	}
}
