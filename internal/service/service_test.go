package service

import (
	"fmt"
	"testing"

	"poolledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testThreshold = 3

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库绑定单连接，避免连接池拿到空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Transaction{},
		&model.Block{},
		&model.Account{},
		&model.OutboxMessage{},
	))
	return db
}

func seedBlock(t *testing.T, db *gorm.DB, id, confirmations int64) {
	t.Helper()
	require.NoError(t, db.Create(&model.Block{
		ID:            id,
		Height:        200000 + id,
		Blockhash:     fmt.Sprintf("hash-%d", id),
		Confirmations: confirmations,
	}).Error)
}

func seedAccount(t *testing.T, db *gorm.DB, id int64, username string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Account{
		ID:       id,
		Username: username,
	}).Error)
}

func seedTx(t *testing.T, db *gorm.DB, accountID int64, amount, txType string, blockID *int64) *model.Transaction {
	t.Helper()
	trans := &model.Transaction{
		AccountID: accountID,
		Amount:    decimal.RequireFromString(amount),
		Type:      txType,
		BlockID:   blockID,
	}
	require.NoError(t, db.Create(trans).Error)
	return trans
}

func blockRef(id int64) *int64 {
	return &id
}

func requireDecimalEqual(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, actual.Equal(decimal.RequireFromString(expected)),
		"expected %s, got %s", expected, actual.String())
}
