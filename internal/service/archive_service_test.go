package service

import (
	"context"
	"testing"

	"poolledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func archivedCount(t *testing.T, db *gorm.DB, accountID int64) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.Transaction{}).
		Where("account_id = ? AND archived = ?", accountID, true).
		Count(&count).Error)
	return count
}

func TestSetArchivedIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewArchiveService(db, nil, testThreshold)
	ctx := context.Background()

	seedBlock(t, db, 1, 5)
	seedTx(t, db, 1, "10", model.TypeCredit, blockRef(1))
	seedTx(t, db, 1, "2", model.TypeDonation, blockRef(1))
	payout := seedTx(t, db, 1, "8", model.TypeDebitMP, nil)

	require.NoError(t, svc.SetArchived(ctx, 1, payout.ID))
	first := archivedCount(t, db, 1)
	assert.Equal(t, int64(3), first)

	// 同一 targetTxID 重复调用不产生新变更
	require.NoError(t, svc.SetArchived(ctx, 1, payout.ID))
	assert.Equal(t, first, archivedCount(t, db, 1))
}

func TestSetArchivedWatermarkSkipsDebitRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewArchiveService(db, nil, testThreshold)
	ctx := context.Background()

	seedBlock(t, db, 1, 5)

	// 第一个支付周期
	seedTx(t, db, 1, "10", model.TypeCredit, blockRef(1))
	firstPayout := seedTx(t, db, 1, "10", model.TypeDebitMP, nil)
	require.NoError(t, svc.SetArchived(ctx, 1, firstPayout.ID))

	// 第二个支付周期：水位线锚定在非借记行上，
	// 上一次的支付行不会挡住新区间的扫描
	credit := seedTx(t, db, 1, "20", model.TypeCredit, blockRef(1))
	secondPayout := seedTx(t, db, 1, "20", model.TypeDebitAP, nil)
	require.NoError(t, svc.SetArchived(ctx, 1, secondPayout.ID))

	for _, id := range []int64{credit.ID, secondPayout.ID} {
		var trans model.Transaction
		require.NoError(t, db.First(&trans, id).Error)
		assert.True(t, trans.Archived, "id=%d", id)
	}
	assert.Equal(t, int64(4), archivedCount(t, db, 1))
}

func TestSetArchivedLeavesUnsettledRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewArchiveService(db, nil, testThreshold)
	ctx := context.Background()

	seedBlock(t, db, 1, 1) // 未达阈值
	pending := seedTx(t, db, 1, "10", model.TypeCredit, blockRef(1))

	require.NoError(t, svc.SetArchived(ctx, 1, pending.ID))
	assert.Zero(t, archivedCount(t, db, 1))

	// 区块确认后重试同一目标点，此时可归档
	require.NoError(t, db.Model(&model.Block{}).Where("id = ?", 1).
		Update("confirmations", 5).Error)
	require.NoError(t, svc.SetArchived(ctx, 1, pending.ID))
	assert.Equal(t, int64(1), archivedCount(t, db, 1))
}

func TestSetArchivedSmallerTargetIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc := NewArchiveService(db, nil, testThreshold)
	ctx := context.Background()

	seedBlock(t, db, 1, 5)
	seedTx(t, db, 1, "10", model.TypeCredit, blockRef(1))
	seedTx(t, db, 1, "20", model.TypeCredit, blockRef(1))
	payout := seedTx(t, db, 1, "30", model.TypeDebitMP, nil)

	require.NoError(t, svc.SetArchived(ctx, 1, payout.ID))
	before := archivedCount(t, db, 1)

	// 回退的目标点不报错也不回滚
	require.NoError(t, svc.SetArchived(ctx, 1, 1))
	assert.Equal(t, before, archivedCount(t, db, 1))
}
