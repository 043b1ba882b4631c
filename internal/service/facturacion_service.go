package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/model"
	"github.com/ariel1092/sistema-control-sub001/internal/money"
	"github.com/ariel1092/sistema-control-sub001/internal/repository"
)

// FacturacionService issues internally-numbered fiscal documents. Numbers come
// from an atomic per-key counter and must execute inside the caller's
// transaction; they are gap-tolerant but never repeat for a key. External
// authorization (AFIP) is out of scope: the document is internal.
type FacturacionService interface {
	EmitirTx(tx *gorm.DB, venta *model.Venta) (*model.Comprobante, error)
	ObtenerComprobante(ctx context.Context, ventaID uuid.UUID) (*dto.ComprobanteResponse, error)
}

type facturacionService struct {
	repo       repository.ComprobanteRepository
	puntoVenta int
}

func NewFacturacionService(repo repository.ComprobanteRepository, puntoVenta int) FacturacionService {
	return &facturacionService{repo: repo, puntoVenta: puntoVenta}
}

// letraDe maps the document type to its fiscal letter; internal tickets use X.
func letraDe(tipo string) string {
	switch tipo {
	case model.ComprobanteFacturaA:
		return "A"
	case model.ComprobanteFacturaB:
		return "B"
	case model.ComprobanteFacturaC:
		return "C"
	default:
		return "X"
	}
}

func (s *facturacionService) EmitirTx(tx *gorm.DB, venta *model.Venta) (*model.Comprobante, error) {
	tipo := venta.TipoComprobante
	if tipo == "" {
		tipo = model.ComprobanteTicket
	}
	letra := letraDe(tipo)

	numero, err := s.repo.ProximoNumeroTx(tx, s.puntoVenta, tipo, letra)
	if err != nil {
		return nil, err
	}

	total := venta.CalcularTotal()
	comp := &model.Comprobante{
		ID:         uuid.New(),
		VentaID:    venta.ID,
		PuntoVenta: s.puntoVenta,
		Tipo:       tipo,
		Letra:      letra,
		Numero:     numero,
		// Neto excludes the card surcharge component; total includes it.
		MontoNeto:  money.Redondear(total.Sub(venta.Recargo())),
		MontoTotal: total,
	}
	if err := s.repo.CreateTx(tx, comp); err != nil {
		return nil, err
	}
	return comp, nil
}

func (s *facturacionService) ObtenerComprobante(ctx context.Context, ventaID uuid.UUID) (*dto.ComprobanteResponse, error) {
	comp, err := s.repo.FindByVentaID(ctx, ventaID)
	if err != nil {
		return nil, apierror.Precondicion("no existe comprobante para la venta solicitada")
	}
	return ComprobanteToResponse(comp), nil
}

// ComprobanteToResponse is shared with the sale orchestrator's response builder.
func ComprobanteToResponse(c *model.Comprobante) *dto.ComprobanteResponse {
	return &dto.ComprobanteResponse{
		ID:         c.ID.String(),
		VentaID:    c.VentaID.String(),
		PuntoVenta: c.PuntoVenta,
		Tipo:       c.Tipo,
		Letra:      c.Letra,
		Numero:     c.Numero,
		MontoNeto:  c.MontoNeto,
		MontoTotal: c.MontoTotal,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
}
