package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/money"
)

// Estados de una venta. Transición one-way: completada → anulada, nunca al revés.
const (
	VentaBorrador   = "borrador"
	VentaCompletada = "completada"
	VentaAnulada    = "anulada"
)

// Métodos de pago.
const (
	PagoEfectivo        = "efectivo"
	PagoTarjeta         = "tarjeta"
	PagoTransferencia   = "transferencia"
	PagoDebito          = "debito"
	PagoCredito         = "credito"
	PagoCuentaCorriente = "cuenta_corriente"
)

var metodosValidos = map[string]bool{
	PagoEfectivo:        true,
	PagoTarjeta:         true,
	PagoTransferencia:   true,
	PagoDebito:          true,
	PagoCredito:         true,
	PagoCuentaCorriente: true,
}

// Venta is the sale aggregate. After NuevaVenta validates it, state only
// changes through Anular — never by writing fields directly.
type Venta struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero          string     `gorm:"uniqueIndex;not null"`
	VendedorID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Fecha           time.Time  `gorm:"not null;index"`
	DescuentoPct    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Estado          string     `gorm:"type:varchar(20);not null;default:'completada'"`
	TipoComprobante string     `gorm:"type:varchar(30);not null;default:'ticket_interno'"`
	// EsCuentaCorriente: the whole sale settles against the customer account
	// and never touches the cash register.
	EsCuentaCorriente bool `gorm:"not null;default:false"`

	AnuladaPor      *uuid.UUID `gorm:"type:uuid"`
	AnuladaEn       *time.Time
	MotivoAnulacion *string

	Items []VentaItem `gorm:"foreignKey:VentaID"`
	Pagos []VentaPago `gorm:"foreignKey:VentaID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VentaItem is immutable once created. PrecioUnitario is snapshotted from the
// catalog at sale time; later price changes never rewrite history.
type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	DescuentoPct   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// Subtotal = cantidad × precio × (1 − descuento/100).
func (i VentaItem) Subtotal() decimal.Decimal {
	bruto := i.PrecioUnitario.Mul(decimal.NewFromInt(int64(i.Cantidad)))
	if i.DescuentoPct.IsZero() {
		return money.Redondear(bruto)
	}
	return money.Redondear(bruto.Sub(money.Porcentaje(bruto, i.DescuentoPct)))
}

// VentaPago carries the final (customer-facing) amount. For debito/credito the
// surcharge is already inside Monto; RecargoPct lets the aggregate reconstruct
// the pre-surcharge base.
type VentaPago struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Metodo     string          `gorm:"type:varchar(20);not null"`
	Monto      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Referencia *string
	Banco      *string          `gorm:"type:varchar(50)"`
	RecargoPct *decimal.Decimal `gorm:"type:decimal(5,2)"`
}

// NuevaVenta builds and validates the aggregate. It does not touch stock,
// cash, or numbering — that is the orchestrator's job.
func NuevaVenta(vendedorID uuid.UUID, fecha time.Time, items []VentaItem, pagos []VentaPago,
	descuentoPct decimal.Decimal, tipoComprobante string, esCuentaCorriente bool) (*Venta, error) {

	if descuentoPct.IsNegative() || descuentoPct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, apierror.Validacion("el descuento general debe estar entre 0 y 100")
	}
	if len(pagos) == 0 {
		return nil, apierror.Validacion("la venta requiere al menos un método de pago")
	}
	for idx, it := range items {
		if it.Cantidad <= 0 {
			return nil, apierror.Validacion(fmt.Sprintf("item %d: la cantidad debe ser mayor a cero", idx))
		}
		if it.PrecioUnitario.IsNegative() {
			return nil, apierror.Validacion(fmt.Sprintf("item %d: el precio unitario no puede ser negativo", idx))
		}
		if it.DescuentoPct.IsNegative() || it.DescuentoPct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, apierror.Validacion(fmt.Sprintf("item %d: el descuento debe estar entre 0 y 100", idx))
		}
	}
	for idx, p := range pagos {
		if !metodosValidos[p.Metodo] {
			return nil, apierror.Validacion(fmt.Sprintf("pago %d: método %q desconocido", idx, p.Metodo))
		}
		if !p.Monto.IsPositive() {
			return nil, apierror.Validacion(fmt.Sprintf("pago %d: el monto debe ser mayor a cero", idx))
		}
		switch p.Metodo {
		case PagoTransferencia:
			if p.Referencia == nil || *p.Referencia == "" {
				return nil, apierror.Consistencia(fmt.Sprintf("pago %d: una transferencia requiere referencia", idx))
			}
			if p.Banco == nil || *p.Banco == "" {
				return nil, apierror.Consistencia(fmt.Sprintf("pago %d: una transferencia requiere cuenta bancaria", idx))
			}
		case PagoTarjeta:
			if p.Referencia == nil || *p.Referencia == "" {
				return nil, apierror.Consistencia(fmt.Sprintf("pago %d: un pago con tarjeta requiere referencia", idx))
			}
		case PagoDebito, PagoCredito:
			if p.RecargoPct != nil && (p.RecargoPct.IsNegative() || p.RecargoPct.GreaterThan(decimal.NewFromInt(100))) {
				return nil, apierror.Validacion(fmt.Sprintf("pago %d: el recargo debe estar entre 0 y 100", idx))
			}
		}
	}

	v := &Venta{
		VendedorID:        vendedorID,
		Fecha:             fecha,
		DescuentoPct:      descuentoPct,
		Estado:            VentaCompletada,
		TipoComprobante:   tipoComprobante,
		EsCuentaCorriente: esCuentaCorriente,
		Items:             items,
		Pagos:             pagos,
	}

	// Payment sum vs computed total, within a cent. For payment-only sales the
	// total IS the payment sum, so the check is vacuous there — kept as-is on
	// purpose (documented legacy behavior), not tightened.
	if len(items) > 0 {
		if !money.Iguales(v.TotalPagos(), v.CalcularTotal()) {
			return nil, apierror.Consistencia(fmt.Sprintf(
				"la suma de pagos (%s) no coincide con el total calculado (%s)",
				v.TotalPagos().StringFixed(2), v.CalcularTotal().StringFixed(2)))
		}
	}

	return v, nil
}

// MarcarBorrador downgrades a freshly built sale to a quote: no stock, cash
// or fiscal side effects until it is confirmed. Only valid before persistence.
func (v *Venta) MarcarBorrador() { v.Estado = VentaBorrador }

// EsBorrador reports whether the sale is a pure quote/draft.
func (v *Venta) EsBorrador() bool { return v.Estado == VentaBorrador }

// SubtotalItems suma los subtotales de línea sin descuento general ni recargos.
func (v *Venta) SubtotalItems() decimal.Decimal {
	sub := decimal.Zero
	for _, it := range v.Items {
		sub = sub.Add(it.Subtotal())
	}
	return sub
}

// Recargo reconstructs the surcharge component from debito/credito payments:
// each payment states its final amount and surcharge percentage, so
// base = final/(1+pct/100) and the surcharge is final − base.
func (v *Venta) Recargo() decimal.Decimal {
	recargo := decimal.Zero
	for _, p := range v.Pagos {
		if p.Metodo != PagoDebito && p.Metodo != PagoCredito {
			continue
		}
		if p.RecargoPct == nil || p.RecargoPct.IsZero() {
			continue
		}
		base := money.BaseSinRecargo(p.Monto, *p.RecargoPct)
		recargo = recargo.Add(p.Monto.Sub(base))
	}
	return money.Redondear(recargo)
}

// CalcularTotal = subtotal − descuento general + recargo. A sale without line
// items (pure account settlement) takes its total from the payment sum.
func (v *Venta) CalcularTotal() decimal.Decimal {
	if len(v.Items) == 0 {
		return money.Redondear(v.TotalPagos())
	}
	sub := v.SubtotalItems()
	total := sub.Sub(money.Porcentaje(sub, v.DescuentoPct)).Add(v.Recargo())
	return money.Redondear(total)
}

func (v *Venta) TotalPagos() decimal.Decimal {
	total := decimal.Zero
	for _, p := range v.Pagos {
		total = total.Add(p.Monto)
	}
	return money.Redondear(total)
}

// Anular flips the aggregate to its terminal state. Stock and cash reversal
// belong to the orchestrator, not here.
func (v *Venta) Anular(actor Actor, motivo string, cuando time.Time) error {
	if v.Estado == VentaAnulada {
		return apierror.Precondicion(fmt.Sprintf("la venta %s ya está anulada", v.Numero))
	}
	if motivo == "" {
		return apierror.Validacion("la anulación requiere un motivo")
	}
	v.Estado = VentaAnulada
	v.AnuladaPor = actor.UsuarioID()
	v.AnuladaEn = &cuando
	v.MotivoAnulacion = &motivo
	return nil
}
