package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/model"
	"github.com/ariel1092/sistema-control-sub001/internal/money"
	"github.com/ariel1092/sistema-control-sub001/internal/repository"
)

// VentaService orchestrates the sale lifecycle. Every side-effecting step of
// a registration or cancellation runs inside ONE transaction: stock, cash
// ledger, fiscal number, account receivable and audit either all land or none
// do. Partial application is a bug, not a degraded state.
type VentaService interface {
	RegistrarVenta(ctx context.Context, actor model.Actor, meta MetaAuditoria, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	AnularVenta(ctx context.Context, actor model.Actor, meta MetaAuditoria, id uuid.UUID, motivo string) error
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo        repository.VentaRepository
	productos   repository.ProductoRepository
	ctacte      repository.CuentaCorrienteRepository
	inventario  InventarioService
	caja        CajaService
	facturacion FacturacionService
	auditoria   AuditoriaService
	loc         *time.Location
}

func NewVentaService(
	repo repository.VentaRepository,
	productos repository.ProductoRepository,
	ctacte repository.CuentaCorrienteRepository,
	inventario InventarioService,
	caja CajaService,
	facturacion FacturacionService,
	auditoria AuditoriaService,
	loc *time.Location,
) VentaService {
	return &ventaService{
		repo:        repo,
		productos:   productos,
		ctacte:      ctacte,
		inventario:  inventario,
		caja:        caja,
		facturacion: facturacion,
		auditoria:   auditoria,
		loc:         loc,
	}
}

// runTx executes fn inside a GORM transaction when db is available, or calls
// fn(nil) directly when db is nil (unit test mode with in-memory repos).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

const maxIntentosNumero = 5

const entidadVenta = "venta"

// ── RegistrarVenta ────────────────────────────────────────────────────────────
// 1. Resolve every product: must exist, be active, and have stock (pre-flight;
//    the guarded decrement inside the tx is the authoritative check).
// 2. Build the aggregate (all invariants enforced there).
// 3. Generate a collision-free human-readable number, bounded retries.
// 4. ONE transaction: persist sale, decrement stock, record cash movements,
//    issue fiscal number, append account-receivable charges, audit CREATE.

func (s *ventaService) RegistrarVenta(ctx context.Context, actor model.Actor, meta MetaAuditoria, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	ahora := time.Now()

	items, err := s.resolverItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	pagos := make([]model.VentaPago, 0, len(req.Pagos))
	montoCtaCte := decimal.Zero
	for _, p := range req.Pagos {
		pagos = append(pagos, model.VentaPago{
			Metodo:     p.Metodo,
			Monto:      money.Redondear(p.Monto),
			Referencia: p.Referencia,
			Banco:      p.Banco,
			RecargoPct: p.RecargoPct,
		})
		if p.Metodo == model.PagoCuentaCorriente {
			montoCtaCte = montoCtaCte.Add(p.Monto)
		}
	}

	esCtaCte := req.EsCuentaCorriente || montoCtaCte.IsPositive()
	if montoCtaCte.IsPositive() && (req.ClienteRef == nil || *req.ClienteRef == "") {
		return nil, apierror.Validacion("un pago en cuenta corriente requiere cliente_ref")
	}

	vendedorID := uuid.Nil
	if id := actor.UsuarioID(); id != nil {
		vendedorID = *id
	}

	tipoComprobante := req.TipoComprobante
	if tipoComprobante == "" {
		tipoComprobante = model.ComprobanteTicket
	}

	venta, err := model.NuevaVenta(vendedorID, ahora, items, pagos, req.DescuentoPct, tipoComprobante, esCtaCte)
	if err != nil {
		return nil, err
	}
	venta.ID = uuid.New()
	if req.Borrador {
		venta.MarcarBorrador()
	}

	numero, err := s.generarNumero(ctx, ahora)
	if err != nil {
		return nil, err
	}
	venta.Numero = numero

	lote := make([]ItemStock, 0, len(venta.Items))
	for _, it := range venta.Items {
		lote = append(lote, ItemStock{ProductoID: it.ProductoID, Cantidad: it.Cantidad})
	}

	var comprobante *model.Comprobante
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, venta); err != nil {
			return err
		}

		if !venta.EsBorrador() {
			if err := s.inventario.DescontarLoteTx(tx, lote, venta.ID, venta.Numero, actor); err != nil {
				return err
			}
			if err := s.caja.RegistrarMovimientosVentaTx(tx, venta, actor); err != nil {
				return err
			}

			var err error
			comprobante, err = s.facturacion.EmitirTx(tx, venta)
			if err != nil {
				return err
			}

			if montoCtaCte.IsPositive() {
				cargo := &model.MovimientoCtaCte{
					ClienteRef: *req.ClienteRef,
					VentaID:    venta.ID,
					Tipo:       model.CtaCteCargo,
					Monto:      money.Redondear(montoCtaCte),
					UsuarioID:  actor.UsuarioID(),
				}
				if err := s.ctacte.CreateTx(tx, cargo); err != nil {
					return err
				}
			}
		}

		_, err := s.auditoria.RegistrarTx(tx, entidadVenta, venta.ID, model.EventoCreacion, venta, actor, meta)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().Str("venta_id", venta.ID.String()).Str("numero", venta.Numero).
		Str("total", venta.CalcularTotal().StringFixed(2)).
		Str("actor", actor.Etiqueta()).Bool("borrador", venta.EsBorrador()).
		Msg("venta registrada")

	resp := s.ventaToResponse(venta)
	if comprobante != nil {
		resp.Comprobante = ComprobanteToResponse(comprobante)
	}
	return resp, nil
}

// ── AnularVenta ───────────────────────────────────────────────────────────────
// Only same-business-day sales may be cancelled: older sales are immutable for
// audit integrity. The pre-cancellation snapshot, stock reversal, cash
// reversal, account-receivable reversal and state flip share one transaction.

func (s *ventaService) AnularVenta(ctx context.Context, actor model.Actor, meta MetaAuditoria, id uuid.UUID, motivo string) error {
	venta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return apierror.Precondicion("venta no encontrada")
	}

	hoy := model.DiaComercial(time.Now(), s.loc)
	diaVenta := model.DiaComercial(venta.Fecha, s.loc)
	if !diaVenta.Equal(hoy) {
		return apierror.Precondicion(fmt.Sprintf(
			"la venta %s es del %s: solo se anulan ventas del día en curso",
			venta.Numero, diaVenta.Format("2006-01-02")))
	}

	// Snapshot of the pre-cancellation state; the flip happens afterwards and
	// only in memory until the tx commits.
	snapshot := *venta

	ahora := time.Now()
	if err := venta.Anular(actor, motivo, ahora); err != nil {
		return err
	}

	lote := make([]ItemStock, 0, len(venta.Items))
	for _, it := range venta.Items {
		lote = append(lote, ItemStock{ProductoID: it.ProductoID, Cantidad: it.Cantidad})
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if _, err := s.auditoria.RegistrarTx(tx, entidadVenta, venta.ID, model.EventoAnulacion, snapshot, actor, meta); err != nil {
			return err
		}

		if snapshot.Estado != model.VentaBorrador {
			if err := s.inventario.RevertirLoteTx(tx, lote, venta.ID, venta.Numero, actor, motivo); err != nil {
				return err
			}
			if err := s.caja.RevertirMovimientosVentaTx(tx, venta, actor, motivo); err != nil {
				return err
			}
			if err := s.revertirCtaCteTx(tx, venta, actor); err != nil {
				return err
			}
		}

		return s.repo.UpdateTx(tx, venta)
	})
	if txErr != nil {
		return txErr
	}

	log.Info().Str("venta_id", venta.ID.String()).Str("numero", venta.Numero).
		Str("actor", actor.Etiqueta()).Str("motivo", motivo).Msg("venta anulada")
	return nil
}

// revertirCtaCteTx mirrors every cargo with a reverso; idempotent against a
// duplicate cancellation.
func (s *ventaService) revertirCtaCteTx(tx *gorm.DB, venta *model.Venta, actor model.Actor) error {
	reversos, err := s.ctacte.MovimientosDeVentaTx(tx, venta.ID, model.CtaCteReverso)
	if err != nil {
		return err
	}
	if len(reversos) > 0 {
		return nil
	}

	cargos, err := s.ctacte.MovimientosDeVentaTx(tx, venta.ID, model.CtaCteCargo)
	if err != nil {
		return err
	}
	for _, c := range cargos {
		rev := &model.MovimientoCtaCte{
			ClienteRef: c.ClienteRef,
			VentaID:    c.VentaID,
			Tipo:       model.CtaCteReverso,
			Monto:      c.Monto,
			UsuarioID:  actor.UsuarioID(),
		}
		if err := s.ctacte.CreateTx(tx, rev); err != nil {
			return err
		}
	}
	return nil
}

// ── Lecturas ─────────────────────────────────────────────────────────────────

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	venta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.Precondicion("venta no encontrada")
	}
	return s.ventaToResponse(venta), nil
}

func (s *ventaService) ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}

	// The day filter is an instant range over the business day. Letting the
	// database truncate fecha to its own calendar day shifts evening sales
	// into tomorrow whenever the server runs in UTC.
	desde := model.DiaComercial(time.Now(), s.loc)
	if filter.Fecha != "" {
		parsed, err := time.ParseInLocation("2006-01-02", filter.Fecha, s.loc)
		if err != nil {
			return nil, apierror.Validacion("fecha inválida, formato esperado YYYY-MM-DD")
		}
		desde = parsed
	}

	ventas, total, err := s.repo.List(ctx, repository.VentaListFilter{
		Estado: filter.Estado,
		Desde:  desde,
		Hasta:  desde.AddDate(0, 0, 1),
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.VentaResponse, 0, len(ventas))
	for _, v := range ventas {
		items = append(items, *s.ventaToResponse(&v))
	}
	return &dto.VentaListResponse{Data: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// resolverItems snapshots price from the catalog at sale time and runs the
// pre-flight checks (exists, active, stock on hand).
func (s *ventaService) resolverItems(ctx context.Context, reqItems []dto.ItemVentaRequest) ([]model.VentaItem, error) {
	if len(reqItems) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(reqItems))
	requerido := make(map[uuid.UUID]int, len(reqItems))
	for _, it := range reqItems {
		pid, err := uuid.Parse(it.ProductoID)
		if err != nil {
			return nil, apierror.Validacion(fmt.Sprintf("producto_id inválido: %s", it.ProductoID))
		}
		if _, visto := requerido[pid]; !visto {
			ids = append(ids, pid)
		}
		requerido[pid] += it.Cantidad
	}

	productos, err := s.productos.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	porID := make(map[uuid.UUID]*model.Producto, len(productos))
	for i := range productos {
		porID[productos[i].ID] = &productos[i]
	}

	for _, id := range ids {
		p, ok := porID[id]
		if !ok {
			return nil, apierror.Precondicion(fmt.Sprintf("producto %s no encontrado", id))
		}
		if !p.Activo {
			return nil, apierror.Precondicion(fmt.Sprintf("el producto %s está inactivo y no puede venderse", p.Nombre))
		}
		if p.StockActual < requerido[id] {
			return nil, apierror.Precondicion(fmt.Sprintf(
				"stock insuficiente para %s: disponible %d, requerido %d",
				p.Nombre, p.StockActual, requerido[id]))
		}
	}

	items := make([]model.VentaItem, 0, len(reqItems))
	for _, it := range reqItems {
		pid, _ := uuid.Parse(it.ProductoID)
		p := porID[pid]
		items = append(items, model.VentaItem{
			ProductoID:     pid,
			Cantidad:       it.Cantidad,
			PrecioUnitario: p.PrecioVenta,
			DescuentoPct:   it.DescuentoPct,
			Producto:       p,
		})
	}
	return items, nil
}

// generarNumero: candidate → uniqueness check → fresh candidate, bounded.
// Exhausting the retries is a recoverable precondition, not a silent loop.
func (s *ventaService) generarNumero(ctx context.Context, fecha time.Time) (string, error) {
	for intento := 0; intento < maxIntentosNumero; intento++ {
		candidato := fmt.Sprintf("V-%s-%06d", fecha.In(s.loc).Format("20060102"), rand.Intn(1000000))
		existe, err := s.repo.ExisteNumero(ctx, candidato)
		if err != nil {
			return "", err
		}
		if !existe {
			return candidato, nil
		}
	}
	return "", apierror.Precondicion("no se pudo generar un número de venta único; reintente")
}

func (s *ventaService) ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.ItemVentaResponse, 0, len(v.Items))
	for _, it := range v.Items {
		nombre := ""
		if it.Producto != nil {
			nombre = it.Producto.Nombre
		}
		items = append(items, dto.ItemVentaResponse{
			ProductoID:     it.ProductoID.String(),
			Producto:       nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			DescuentoPct:   it.DescuentoPct,
			Subtotal:       it.Subtotal(),
		})
	}
	pagos := make([]dto.PagoResponse, 0, len(v.Pagos))
	for _, p := range v.Pagos {
		pagos = append(pagos, dto.PagoResponse{
			Metodo:     p.Metodo,
			Monto:      p.Monto,
			Referencia: p.Referencia,
			Banco:      p.Banco,
			RecargoPct: p.RecargoPct,
		})
	}
	return &dto.VentaResponse{
		ID:           v.ID.String(),
		Numero:       v.Numero,
		VendedorID:   v.VendedorID.String(),
		Fecha:        v.Fecha.Format(time.RFC3339),
		Items:        items,
		Pagos:        pagos,
		Subtotal:     v.SubtotalItems(),
		DescuentoPct: v.DescuentoPct,
		Recargo:      v.Recargo(),
		Total:        v.CalcularTotal(),
		Estado:       v.Estado,
	}
}
