//go:build integration

package testdb

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"gorm.io/gorm"

	"github.com/cppla/audiencehub/config"
)

// MySQL starts a MySQL container and returns an open gorm handle and its
// connection string. The container is terminated when the test ends.
func MySQL(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	ctx := context.Background()

	myContainer, err := mysql.Run(ctx,
		"mysql:8.0.36",
		mysql.WithDatabase("audiencehub"),
		mysql.WithUsername("testuser"),
		mysql.WithPassword("testpass"),
	)
	if err != nil {
		t.Fatalf("failed to start MySQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := myContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := myContainer.ConnectionString(ctx, "charset=utf8mb4", "parseTime=True", "loc=UTC")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "mysql",
		DatabaseURI: connStr,
		LogLevel:    "silent",
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db, connStr
}

// Open starts a container for the given dialect.
func Open(t *testing.T, dialect string) *gorm.DB {
	t.Helper()
	switch dialect {
	case "mysql":
		db, _ := MySQL(t)
		return db
	default:
		db, _ := Postgres(t)
		return db
	}
}

// Dialects lists every dialect the integration suites run against.
var Dialects = []string{"postgres", "mysql"}
