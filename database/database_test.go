package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", User: "shop", Password: "secret", DBName: "users"}

	assert.Equal(t, "host=db user=shop password=secret dbname=users port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
