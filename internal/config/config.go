package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`

	PGScheme   string `env:"PG_SCHEME" envDefault:"postgres"`
	PGUser     string `env:"PG_USER" envDefault:"default_user"`
	PGPassword string `env:"PG_PASSWORD" envDefault:"default_password"`
	PGHost     string `env:"PG_HOST" envDefault:"localhost"`
	PGPort     string `env:"PG_PORT" envDefault:"5432"`
	PGDatabase string `env:"PG_DB" envDefault:"default_db"`

	// Credenciales de superusuario, usadas solo durante el bootstrap.
	PGAdminUser     string `env:"PG_ADMIN_USER" envDefault:"postgres"`
	PGAdminPassword string `env:"PG_ADMIN_PASSWORD" envDefault:"postgres"`
	PGAdminDatabase string `env:"PG_ADMIN_DB" envDefault:"postgres"`

	SecretKey                string `env:"SECRET_KEY" envDefault:"default_secret"`
	Algorithm                string `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	RefreshTokenExpireDays   int    `env:"REFRESH_TOKEN_EXPIRE_DAYS" envDefault:"30"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseURL arma el DSN de la base de datos de la aplicación.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s",
		c.PGScheme, c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// AdminDatabaseURL arma el DSN administrativo contra la base de mantenimiento.
func (c *Config) AdminDatabaseURL() string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s",
		c.PGScheme, c.PGAdminUser, c.PGAdminPassword, c.PGHost, c.PGPort, c.PGAdminDatabase)
}
