package service

import (
	"context"
	"testing"
	"time"

	"poolledger/internal/infrastructure/cache"
	"poolledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTypesIncludesAnyOption(t *testing.T) {
	db := newTestDB(t)
	svc := NewQueryService(db, cache.NewMemoryStore(), testThreshold, time.Minute)
	ctx := context.Background()

	seedTx(t, db, 1, "1", model.TypeDebitMP, nil)
	seedTx(t, db, 1, "1", model.TypeCredit, nil)

	types, err := svc.GetTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"", model.TypeCredit, model.TypeDebitMP}, types)
}

func TestGetTransactionsPassesFilterAndPaging(t *testing.T) {
	db := newTestDB(t)
	svc := NewQueryService(db, cache.NewMemoryStore(), testThreshold, time.Minute)
	ctx := context.Background()

	seedAccount(t, db, 1, "miner1")
	for i := 0; i < 3; i++ {
		seedTx(t, db, 1, "1", model.TypeCredit, nil)
	}
	seedTx(t, db, 1, "5", model.TypeDebitMP, nil)

	rows, total, err := svc.GetTransactions(ctx, 0, map[string]string{"type": model.TypeCredit}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, model.TypeCredit, row.Type)
	}
}

func TestGetTransactionSummaryCachedWithinTTL(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := cache.NewMemoryStoreWithClock(clock)
	svc := NewQueryService(db, store, testThreshold, 60*time.Second)
	ctx := context.Background()

	seedBlock(t, db, 1, 5)
	seedTx(t, db, 1, "10", model.TypeCredit, blockRef(1))
	seedTx(t, db, 1, "2", model.TypeTXFee, nil)

	summary, err := svc.GetTransactionSummary(ctx, 1)
	require.NoError(t, err)
	requireDecimalEqual(t, "10", summary[model.TypeCredit])
	requireDecimalEqual(t, "2", summary[model.TypeTXFee])

	// TTL 窗口内新写入对汇总不可见
	seedTx(t, db, 1, "5", model.TypeCredit, blockRef(1))
	summary, err = svc.GetTransactionSummary(ctx, 1)
	require.NoError(t, err)
	requireDecimalEqual(t, "10", summary[model.TypeCredit])

	// 窗口过期后回源重算
	now = now.Add(61 * time.Second)
	summary, err = svc.GetTransactionSummary(ctx, 1)
	require.NoError(t, err)
	requireDecimalEqual(t, "15", summary[model.TypeCredit])
}

func TestGetTransactionSummaryExcludesOrphanRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewQueryService(db, cache.NewMemoryStore(), testThreshold, time.Minute)
	ctx := context.Background()

	seedBlock(t, db, 1, 5)
	seedBlock(t, db, 2, -1)
	seedTx(t, db, 1, "10", model.TypeCredit, blockRef(1))
	seedTx(t, db, 1, "99", model.TypeCredit, blockRef(2)) // 孤块不计入
	seedTx(t, db, 1, "3", model.TypeCredit, nil)

	summary, err := svc.GetTransactionSummary(ctx, 1)
	require.NoError(t, err)
	requireDecimalEqual(t, "13", summary[model.TypeCredit])
}

func TestGetTransactionSummaryScopedByAccount(t *testing.T) {
	db := newTestDB(t)
	svc := NewQueryService(db, cache.NewMemoryStore(), testThreshold, time.Minute)
	ctx := context.Background()

	seedTx(t, db, 1, "10", model.TypeCreditPPS, nil)
	seedTx(t, db, 2, "20", model.TypeCreditPPS, nil)

	mine, err := svc.GetTransactionSummary(ctx, 1)
	require.NoError(t, err)
	requireDecimalEqual(t, "10", mine[model.TypeCreditPPS])

	all, err := svc.GetTransactionSummary(ctx, 0)
	require.NoError(t, err)
	requireDecimalEqual(t, "30", all[model.TypeCreditPPS])
}

func TestGetDonationsAggregatesAndSorts(t *testing.T) {
	db := newTestDB(t)
	svc := NewQueryService(db, cache.NewMemoryStore(), testThreshold, time.Minute)
	ctx := context.Background()

	seedAccount(t, db, 1, "alice")
	seedAccount(t, db, 2, "bob")
	seedBlock(t, db, 1, 5)
	seedBlock(t, db, 2, 1)

	seedTx(t, db, 1, "3", model.TypeDonation, blockRef(1))
	seedTx(t, db, 1, "2", model.TypeDonationPPS, nil)
	seedTx(t, db, 2, "10", model.TypeDonation, blockRef(1))
	// 未达阈值的 Donation 不计入
	seedTx(t, db, 1, "100", model.TypeDonation, blockRef(2))

	entries, err := svc.GetDonations(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[0].Username)
	requireDecimalEqual(t, "10", entries[0].Donation)
	assert.Equal(t, "alice", entries[1].Username)
	requireDecimalEqual(t, "5", entries[1].Donation)
}
