package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"auth-api/internal/config"
	"auth-api/internal/db"
	"auth-api/internal/migrations"
)

// Run ejecuta el arranque completo: rol → base → privilegios sobre la
// conexión administrativa y después el esquema sobre la conexión de la
// aplicación. Cualquier error es fatal; el servicio no debe aceptar
// tráfico si el bootstrap no terminó entero.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	adminPool, err := db.NewAdminPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: admin connection: %w", err)
	}
	// La conexión administrativa se descarta al terminar el bootstrap;
	// nunca sirve consultas de la aplicación.
	defer adminPool.Close()

	prov := NewProvisioner(adminPool, logger)

	steps := []struct {
		name string
		run  func(context.Context) ([]string, error)
	}{
		{"ensure role", func(ctx context.Context) ([]string, error) {
			return prov.EnsureRole(ctx, cfg.PGUser, cfg.PGPassword)
		}},
		{"ensure database", func(ctx context.Context) ([]string, error) {
			return prov.EnsureDatabase(ctx, cfg.PGDatabase)
		}},
		{"grant privileges", func(ctx context.Context) ([]string, error) {
			return prov.GrantAllPrivileges(ctx, cfg.PGDatabase, cfg.PGUser)
		}},
	}
	for _, step := range steps {
		msgs, err := step.run(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap: %s: %w", step.name, err)
		}
		for _, msg := range msgs {
			logger.Info("bootstrap", zap.String("step", step.name), zap.String("message", msg))
		}
	}

	if err := runMigrations(ctx, cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("bootstrap: migrations: %w", err)
	}
	logger.Info("bootstrap", zap.String("step", "migrations"), zap.String("message", "schema up to date"))
	return nil
}

// runMigrations aplica las migraciones embebidas sobre la conexión de la
// aplicación. goose es idempotente: correrlo de nuevo no tiene efectos.
func runMigrations(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, sqlDB, ".")
}
