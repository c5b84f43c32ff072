package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var (
	ErrRoleMissing     = errors.New("role missing")
	ErrDatabaseMissing = errors.New("database missing")
)

// Querier es el contrato mínimo que el aprovisionador necesita de la
// conexión administrativa. Lo satisface *pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Provisioner ejecuta el bootstrap idempotente de rol, base de datos y
// privilegios contra la conexión administrativa. Cada paso devuelve
// mensajes legibles sobre lo que hizo; la secuencia es solo hacia
// adelante, nunca se revierte un paso anterior.
type Provisioner struct {
	admin  Querier
	logger *zap.Logger
}

func NewProvisioner(admin Querier, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{admin: admin, logger: logger}
}

// EnsureRole garantiza que el rol exista, creándolo si hace falta. Si otro
// proceso lo crea en simultáneo, el conflicto se trata como ya-existe.
// La password jamás aparece en mensajes ni logs.
func (p *Provisioner) EnsureRole(ctx context.Context, name, password string) ([]string, error) {
	exists, err := p.roleExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ensure role %q: %w", name, err)
	}
	if exists {
		msg := fmt.Sprintf("role %q already exists", name)
		p.logger.Info("ensure role", zap.String("role", name), zap.String("outcome", "already-exists"))
		return []string{msg}, nil
	}

	stmt := fmt.Sprintf("CREATE ROLE %s WITH LOGIN PASSWORD %s",
		pgx.Identifier{name}.Sanitize(), quoteLiteral(password))
	if _, err := p.admin.Exec(ctx, stmt); err != nil {
		// 42710 duplicate_object: otro proceso ganó la carrera.
		if isSQLState(err, "42710") {
			msg := fmt.Sprintf("role %q already exists (created concurrently)", name)
			p.logger.Warn("ensure role", zap.String("role", name), zap.String("outcome", "benign-race"))
			return []string{msg}, nil
		}
		return nil, fmt.Errorf("ensure role %q: %w", name, err)
	}

	msg := fmt.Sprintf("role %q created", name)
	p.logger.Info("ensure role", zap.String("role", name), zap.String("outcome", "created"))
	return []string{msg}, nil
}

// EnsureDatabase garantiza que la base exista. CREATE DATABASE no puede
// correr dentro de un bloque transaccional, por eso se ejecuta como
// sentencia suelta en modo autocommit sobre la conexión administrativa.
func (p *Provisioner) EnsureDatabase(ctx context.Context, name string) ([]string, error) {
	exists, err := p.databaseExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ensure database %q: %w", name, err)
	}
	if exists {
		msg := fmt.Sprintf("database %q already exists", name)
		p.logger.Info("ensure database", zap.String("database", name), zap.String("outcome", "already-exists"))
		return []string{msg}, nil
	}

	stmt := "CREATE DATABASE " + pgx.Identifier{name}.Sanitize()
	if _, err := p.admin.Exec(ctx, stmt); err != nil {
		// 42P04 duplicate_database: carrera benigna con otro creador.
		if isSQLState(err, "42P04") {
			msg := fmt.Sprintf("database %q already exists (created concurrently)", name)
			p.logger.Warn("ensure database", zap.String("database", name), zap.String("outcome", "benign-race"))
			return []string{msg}, nil
		}
		return nil, fmt.Errorf("ensure database %q: %w", name, err)
	}

	msg := fmt.Sprintf("database %q created", name)
	p.logger.Info("ensure database", zap.String("database", name), zap.String("outcome", "created"))
	return []string{msg}, nil
}

// GrantAllPrivileges exige que rol y base ya existan; si alguno falta no
// emite ningún GRANT. Las sentencias corren en orden fijo y la primera
// falla aborta las restantes.
func (p *Provisioner) GrantAllPrivileges(ctx context.Context, dbName, roleName string) ([]string, error) {
	roleOK, err := p.roleExists(ctx, roleName)
	if err != nil {
		return nil, fmt.Errorf("grant privileges: %w", err)
	}
	if !roleOK {
		return nil, fmt.Errorf("grant privileges on %q: %w: %s", dbName, ErrRoleMissing, roleName)
	}
	dbOK, err := p.databaseExists(ctx, dbName)
	if err != nil {
		return nil, fmt.Errorf("grant privileges: %w", err)
	}
	if !dbOK {
		return nil, fmt.Errorf("grant privileges to %q: %w: %s", roleName, ErrDatabaseMissing, dbName)
	}

	db := pgx.Identifier{dbName}.Sanitize()
	role := pgx.Identifier{roleName}.Sanitize()
	statements := []string{
		fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", db, role),
		fmt.Sprintf("ALTER DATABASE %s OWNER TO %s", db, role),
		fmt.Sprintf("GRANT ALL ON SCHEMA public TO %s", role),
		fmt.Sprintf("GRANT ALL ON ALL TABLES IN SCHEMA public TO %s", role),
		fmt.Sprintf("GRANT ALL ON ALL SEQUENCES IN SCHEMA public TO %s", role),
		fmt.Sprintf("GRANT ALL ON ALL FUNCTIONS IN SCHEMA public TO %s", role),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT ALL ON TABLES TO %s", role),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT ALL ON SEQUENCES TO %s", role),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT ALL ON FUNCTIONS TO %s", role),
	}
	for _, stmt := range statements {
		if _, err := p.admin.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("grant privileges on %q to %q: %w", dbName, roleName, err)
		}
	}

	msg := fmt.Sprintf("granted all privileges on database %q to role %q", dbName, roleName)
	p.logger.Info("grant privileges",
		zap.String("database", dbName),
		zap.String("role", roleName),
		zap.String("outcome", "granted"),
	)
	return []string{msg}, nil
}

func (p *Provisioner) roleExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := p.admin.QueryRow(ctx, "SELECT 1 FROM pg_roles WHERE rolname = $1", name).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provisioner) databaseExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := p.admin.QueryRow(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", name).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func isSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// quoteLiteral escapa un literal SQL. CREATE ROLE no acepta parámetros de
// bind para la password, así que el literal se arma escapado a mano.
func quoteLiteral(s string) string {
	escaped := strings.ReplaceAll(s, `'`, `''`)
	if strings.Contains(escaped, `\`) {
		escaped = strings.ReplaceAll(escaped, `\`, `\\`)
		return ` E'` + escaped + `'`
	}
	return `'` + escaped + `'`
}
