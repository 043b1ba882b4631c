package router

import (
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/config"
	"github.com/ariel1092/sistema-control-sub001/internal/handler"
	"github.com/ariel1092/sistema-control-sub001/internal/middleware"
	"github.com/ariel1092/sistema-control-sub001/internal/repository"
	"github.com/ariel1092/sistema-control-sub001/internal/service"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, loc *time.Location) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP
	r.Use(middleware.Actor())

	// ── Infrastructure ───────────────────────────────────────────────────────
	var locker *redislock.Client
	if rdb != nil {
		locker = redislock.New(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	productoRepo := repository.NewProductoRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	comprobanteRepo := repository.NewComprobanteRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)
	auditoriaRepo := repository.NewAuditoriaRepository(db)
	ctacteRepo := repository.NewCuentaCorrienteRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	inventarioSvc := service.NewInventarioService(productoRepo, movimientoStockRepo)
	cajaSvc := service.NewCajaService(cajaRepo, locker, loc)
	facturacionSvc := service.NewFacturacionService(comprobanteRepo, cfg.PuntoDeVenta)
	auditoriaSvc := service.NewAuditoriaService(auditoriaRepo)
	ventaSvc := service.NewVentaService(ventaRepo, productoRepo, ctacteRepo, inventarioSvc, cajaSvc, facturacionSvc, auditoriaSvc, loc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	ventasH := handler.NewVentasHandler(ventaSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)
	facturacionH := handler.NewFacturacionHandler(facturacionSvc)
	auditoriaH := handler.NewAuditoriaHandler(auditoriaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	v1 := r.Group("/v1")
	{
		v1.POST("/ventas", ventasH.RegistrarVenta)
		v1.GET("/ventas", ventasH.ListarVentas)
		v1.GET("/ventas/:id", ventasH.ObtenerVenta)
		v1.DELETE("/ventas/:id", ventasH.AnularVenta)

		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", cajaH.Abrir)
			caja.POST("/cerrar", cajaH.Cerrar)
			caja.GET("/resumen", cajaH.Resumen)
			caja.POST("/movimiento", cajaH.RegistrarMovimiento)
		}

		v1.GET("/inventario/movimientos", inventarioH.ListarMovimientos)

		v1.GET("/facturacion/:venta_id", facturacionH.ObtenerComprobante)

		auditoria := v1.Group("/auditoria")
		{
			auditoria.GET("", auditoriaH.Listar)
			auditoria.GET("/:id/verificar", auditoriaH.Verificar)
		}
	}

	return r
}
