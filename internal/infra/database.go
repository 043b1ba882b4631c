package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/model"
)

// NewDatabase establishes a GORM connection backed by pgx, verifies that the
// store actually supports transactions, runs AutoMigrate, then applies the
// idempotent SQL patches that GORM cannot express (partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := verificarTransacciones(db); err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// verificarTransacciones runs an empty transaction at startup. Every write
// path of the ledger depends on atomic commit/rollback; a store that cannot
// open a transaction must abort boot with a message telling the operator
// what to fix, not fail later mid-venta.
func verificarTransacciones(db *gorm.DB) error {
	tx := db.Begin()
	if tx.Error != nil {
		return apierror.Infraestructura(fmt.Sprintf(
			"el almacén no soporta transacciones (%v): verifique que DATABASE_URL apunte a PostgreSQL y que el usuario tenga permisos de escritura", tx.Error))
	}
	if err := tx.Rollback().Error; err != nil {
		return apierror.Infraestructura(fmt.Sprintf("rollback de prueba falló: %v", err))
	}
	return nil
}

// RunMigrations creates/updates the schema. Also used by the integration suite
// against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Producto{},
		&model.Venta{},
		&model.VentaItem{},
		&model.VentaPago{},
		&model.CajaDiaria{},
		&model.MovimientoCaja{},
		&model.MovimientoStock{},
		&model.Comprobante{},
		&model.ContadorFiscal{},
		&model.EventoAuditoria{},
		&model.MovimientoCtaCte{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// One open register per business day, enforced at the store even if
		// the advisory lock in the service layer is bypassed.
		{"partial unique index cajas abiertas", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_caja_abierta_por_dia') THEN
    CREATE UNIQUE INDEX idx_caja_abierta_por_dia
        ON cajas_diarias (fecha_dia)
        WHERE estado = 'abierta';
  END IF;
END $$`},
		// One closed (or open) register per day full stop: reopening a closed
		// day is forbidden, so the day itself is unique.
		{"unique index cajas por dia", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_caja_fecha_dia') THEN
    CREATE UNIQUE INDEX idx_caja_fecha_dia ON cajas_diarias (fecha_dia);
  END IF;
END $$`},
		// Ledger queries walk movements per caja in insertion order.
		{"index movimientos_caja por caja", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_movimientos_caja_caja') THEN
    CREATE INDEX idx_movimientos_caja_caja ON movimientos_caja (caja_id, created_at);
  END IF;
END $$`},
		{"index movimientos_stock por producto", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_movimientos_stock_producto') THEN
    CREATE INDEX idx_movimientos_stock_producto ON movimientos_stock (producto_id, created_at);
  END IF;
END $$`},
		// Audit queries filter by entity.
		{"index eventos_auditoria por entidad", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_auditoria_entidad') THEN
    CREATE INDEX idx_auditoria_entidad ON eventos_auditoria (entidad, entidad_id);
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
