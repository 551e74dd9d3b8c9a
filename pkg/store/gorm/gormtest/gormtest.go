// Package gormtest opens throwaway in-memory SQLite databases with the
// identity schema, for tests that need real constraints and transactions.
package gormtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cayopay/cayopay-identity/pkg/model"
)

// Models lists every table the identity service owns.
var Models = []any{
	&model.Actor{},
	&model.User{},
	&model.Wallet{},
	&model.Session{},
	&model.Invite{},
}

// Open returns a fresh database private to t. It is closed when t ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection: shared-cache sqlite reports table locks instead of waiting
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models...))

	return db
}

// FailCreatesOn makes every insert into table fail with err until the
// returned function is called.
func FailCreatesOn(t testing.TB, db *gorm.DB, table string, err error) (restore func()) {
	t.Helper()

	name := "gormtest:fail_" + table
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	}))
	return func() {
		_ = db.Callback().Create().Remove(name)
	}
}

// Count returns the number of rows in the table backing m.
func Count(t testing.TB, db *gorm.DB, m any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}
