package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/config"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/infrastructure/database"
)

func TestNewConnection_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", MaxOpenConns: 1}
	db, err := database.NewConnection(cfg, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db, true))
	assert.True(t, db.Migrator().HasTable("payment_sessions"))
	assert.True(t, db.Migrator().HasTable("payment_callback_records"))
	assert.True(t, db.Migrator().HasTable("orders"))

	assert.NoError(t, database.Close(db, zap.NewNop()))
}

func TestNewConnection_InvalidDriver(t *testing.T) {
	_, err := database.NewConnection(&config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())
	assert.Error(t, err)

	_, err = database.NewConnection(&config.DatabaseConfig{Driver: "sqlite"}, zap.NewNop())
	assert.Error(t, err)
}
