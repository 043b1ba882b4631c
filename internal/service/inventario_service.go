package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/model"
	"github.com/ariel1092/sistema-control-sub001/internal/repository"
)

// ItemStock is one line of a batch decrement/restore.
type ItemStock struct {
	ProductoID uuid.UUID
	Cantidad   int
}

// InventarioService is the stock ledger: guarded decrements plus append-only
// movement records. The Tx methods must run inside the caller's transaction
// so a failed sale never leaves stock half-applied.
type InventarioService interface {
	DescontarLoteTx(tx *gorm.DB, items []ItemStock, ventaID uuid.UUID, ventaNumero string, actor model.Actor) error
	RevertirLoteTx(tx *gorm.DB, items []ItemStock, ventaID uuid.UUID, ventaNumero string, actor model.Actor, motivo string) error
	ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)
}

type inventarioService struct {
	productos   repository.ProductoRepository
	movimientos repository.MovimientoStockRepository
}

func NewInventarioService(productos repository.ProductoRepository, movimientos repository.MovimientoStockRepository) InventarioService {
	return &inventarioService{productos: productos, movimientos: movimientos}
}

// consolidar collapses repeated product ids into a single quantity per
// product, preserving first-seen order. N lines against the same product are
// equivalent to one decrement of the summed quantity.
func consolidar(items []ItemStock) []ItemStock {
	porProducto := make(map[uuid.UUID]int, len(items))
	orden := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if _, visto := porProducto[it.ProductoID]; !visto {
			orden = append(orden, it.ProductoID)
		}
		porProducto[it.ProductoID] += it.Cantidad
	}
	out := make([]ItemStock, 0, len(orden))
	for _, id := range orden {
		out = append(out, ItemStock{ProductoID: id, Cantidad: porProducto[id]})
	}
	return out
}

// ── DescontarLoteTx ──────────────────────────────────────────────────────────
// All-or-nothing: any product with insufficient stock fails the whole batch.
// The guarded UPDATE (stock_actual >= cantidad) is the authoritative check —
// a zero-row update means another sale took the stock first.

func (s *inventarioService) DescontarLoteTx(tx *gorm.DB, items []ItemStock, ventaID uuid.UUID, ventaNumero string, actor model.Actor) error {
	movs := make([]model.MovimientoStock, 0, len(items))
	ref := ventaID

	for _, it := range consolidar(items) {
		prod, err := s.productos.FindByIDTx(tx, it.ProductoID)
		if err != nil {
			return apierror.Precondicion(fmt.Sprintf("producto %s no encontrado", it.ProductoID))
		}

		afectadas, err := s.productos.DescontarStockTx(tx, it.ProductoID, it.Cantidad)
		if err != nil {
			return err
		}
		if afectadas == 0 {
			return apierror.Precondicion(fmt.Sprintf(
				"stock insuficiente para %s: disponible %d, requerido %d",
				prod.Nombre, prod.StockActual, it.Cantidad))
		}

		movs = append(movs, model.MovimientoStock{
			ProductoID:    it.ProductoID,
			Tipo:          model.StockVenta,
			Cantidad:      it.Cantidad,
			StockAnterior: prod.StockActual,
			StockNuevo:    prod.StockActual - it.Cantidad,
			Motivo:        fmt.Sprintf("Venta %s", ventaNumero),
			VentaID:       &ref,
			UsuarioID:     actor.UsuarioID(),
		})
	}

	return s.movimientos.CreateBatchTx(tx, movs)
}

// ── RevertirLoteTx ───────────────────────────────────────────────────────────
// Mirrors DescontarLoteTx. Idempotent: a second reversal for the same sale is
// a no-op, so a retried cancellation cannot double-restore stock.

func (s *inventarioService) RevertirLoteTx(tx *gorm.DB, items []ItemStock, ventaID uuid.UUID, ventaNumero string, actor model.Actor, motivo string) error {
	yaRevertida, err := s.movimientos.ExisteDeVentaTx(tx, ventaID, model.StockVentaRevertida)
	if err != nil {
		return err
	}
	if yaRevertida {
		return nil
	}

	movs := make([]model.MovimientoStock, 0, len(items))
	ref := ventaID

	for _, it := range consolidar(items) {
		prod, err := s.productos.FindByIDTx(tx, it.ProductoID)
		if err != nil {
			return apierror.Precondicion(fmt.Sprintf("producto %s no encontrado", it.ProductoID))
		}

		if err := s.productos.RestituirStockTx(tx, it.ProductoID, it.Cantidad); err != nil {
			return err
		}

		movs = append(movs, model.MovimientoStock{
			ProductoID:    it.ProductoID,
			Tipo:          model.StockVentaRevertida,
			Cantidad:      it.Cantidad,
			StockAnterior: prod.StockActual,
			StockNuevo:    prod.StockActual + it.Cantidad,
			Motivo:        fmt.Sprintf("Anulación venta %s — %s", ventaNumero, motivo),
			VentaID:       &ref,
			UsuarioID:     actor.UsuarioID(),
		})
	}

	return s.movimientos.CreateBatchTx(tx, movs)
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	repoFilter := repository.MovimientoStockFilter{
		Tipo:  filter.Tipo,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	if filter.ProductoID != "" {
		pid, err := uuid.Parse(filter.ProductoID)
		if err != nil {
			return nil, apierror.Validacion("producto_id inválido")
		}
		repoFilter.ProductoID = &pid
	}

	movs, total, err := s.movimientos.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	items := make([]dto.MovimientoStockResponse, 0, len(movs))
	for _, m := range movs {
		items = append(items, movimientoStockToResponse(&m))
	}
	page := repoFilter.Page
	if page < 1 {
		page = 1
	}
	limit := repoFilter.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return &dto.MovimientoStockListResponse{Data: items, Total: total, Page: page, Limit: limit}, nil
}

func movimientoStockToResponse(m *model.MovimientoStock) dto.MovimientoStockResponse {
	resp := dto.MovimientoStockResponse{
		ID:            m.ID.String(),
		ProductoID:    m.ProductoID.String(),
		Tipo:          m.Tipo,
		Cantidad:      m.Cantidad,
		StockAnterior: m.StockAnterior,
		StockNuevo:    m.StockNuevo,
		Motivo:        m.Motivo,
		CreatedAt:     m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if m.Producto != nil {
		resp.Producto = m.Producto.Nombre
	}
	if m.VentaID != nil {
		s := m.VentaID.String()
		resp.VentaID = &s
	}
	return resp
}
