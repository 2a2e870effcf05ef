package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lms-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "lms", Password: "pw", Name: "lms", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=lms password=pw dbname=lms sslmode=disable", dsn)
}
