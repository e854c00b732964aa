package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quicksell/internal/config"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(&config.Config{
		DBHost:            "db",
		DBPort:            "5432",
		DBUser:            "quicksell",
		DBPassword:        "p@ss/word",
		DBName:            "market",
		DBSSLMode:         "disable",
		DBMaxOpenConns:    20,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: time.Minute,
	})

	assert.Equal(t, "host=db port=5432 user=quicksell password=p@ss/word dbname=market sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://quicksell:p%40ss%2Fword@db:5432/market?sslmode=disable", cfg.URL())
	assert.Equal(t, 20, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, time.Minute, cfg.ConnMaxLifetime)
}
