package repository

import (
	"context"
	"errors"
	"time"

	"poolledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("交易不存在")
)

// TransactionRepository 交易流水持久层
// 新流水的唯一写入方，也是 archived 标记的唯一修改方
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// ============================================================================
// 列表查询
// ============================================================================

// TransactionDetail 列表查询的联表投影，区块与账户信息仅作展示
type TransactionDetail struct {
	ID            int64           `json:"id"`
	Username      string          `json:"username"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	CoinAddress   *string         `json:"coin_address"`
	Timestamp     time.Time       `json:"timestamp"`
	Height        *int64          `json:"height"`
	Blockhash     *string         `json:"blockhash"`
	Confirmations *int64          `json:"confirmations"`
}

// List 过滤分页查询，按 id 倒序（新流水在前）
// 返回的总数是分页前命中过滤条件的精确行数
func (r *TransactionRepository) List(ctx context.Context, accountID int64, filter map[string]string, start, limit, threshold int) ([]*TransactionDetail, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Joins("LEFT JOIN blocks ON blocks.id = transactions.block_id").
		Joins("LEFT JOIN accounts ON accounts.id = transactions.account_id")

	if accountID > 0 {
		query = query.Where("transactions.account_id = ?", accountID)
	}
	query = applyFilter(query, filter, threshold)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*TransactionDetail
	err := query.
		Select(`transactions.id AS id,
			COALESCE(accounts.username, '') AS username,
			transactions.type AS type,
			transactions.amount AS amount,
			transactions.coin_address AS coin_address,
			transactions.timestamp AS timestamp,
			blocks.height AS height,
			blocks.blockhash AS blockhash,
			blocks.confirmations AS confirmations`).
		Order("transactions.id DESC").
		Offset(start).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// applyFilter 按识别的过滤键累加查询条件，空值与未识别的键直接忽略
func applyFilter(query *gorm.DB, filter map[string]string, threshold int) *gorm.DB {
	for key, value := range filter {
		if value == "" {
			continue
		}
		switch key {
		case "type":
			query = query.Where("transactions.type = ?", value)
		case "status":
			switch value {
			case "Confirmed":
				// 借记/PPS 类类型本身与确认数无关，
				// 按 type 过滤这些类型时跳过确认数条件
				if !model.IsConfirmationIndependent(filter["type"]) {
					query = query.Where("(blocks.confirmations >= ? OR blocks.confirmations IS NULL)", threshold)
				}
			case "Unconfirmed":
				query = query.Where("(blocks.confirmations < ? AND blocks.confirmations >= 0)", threshold)
			case "Orphan":
				query = query.Where("blocks.confirmations = ?", model.OrphanConfirmations)
			}
		case "account":
			query = query.Where("LOWER(accounts.username) = LOWER(?)", value)
		case "address":
			query = query.Where("transactions.coin_address = ?", value)
		}
	}
	return query
}

// ============================================================================
// 归档
// ============================================================================

// LastArchivedID 账户归档水位线：已归档流水的最大 id，排除借记类类型，
// 无记录时返回 0
func (r *TransactionRepository) LastArchivedID(ctx context.Context, accountID int64) (int64, error) {
	var lastID int64
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("COALESCE(MAX(id), 0)").
		Where("archived = ? AND account_id = ? AND type NOT IN ?", true, accountID, model.DebitTypes).
		Scan(&lastID).Error
	return lastID, err
}

// MarkArchived 将账户 (afterID, uptoID] 区间内已结算的流水标记为归档：
// 所关联区块确认数达到阈值，或未关联区块。返回受影响行数
func (r *TransactionRepository) MarkArchived(ctx context.Context, accountID, uptoID, afterID int64, threshold int) (int64, error) {
	settledBlocks := r.db.Model(&model.Block{}).
		Select("id").
		Where("confirmations >= ?", threshold)

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("archived = ? AND account_id = ? AND id <= ? AND id > ?", false, accountID, uptoID, afterID).
		Where("(block_id IS NULL OR block_id IN (?))", settledBlocks).
		Update("archived", true)
	return result.RowsAffected, result.Error
}

// ============================================================================
// 聚合行读取
// ============================================================================

// BalanceRow 余额计算所需的最小行投影
type BalanceRow struct {
	Type          string
	Amount        decimal.Decimal
	Confirmations *int64
}

// BalanceRows 未归档流水及其区块确认数，accountID 为 0 时取全账本
func (r *TransactionRepository) BalanceRows(ctx context.Context, accountID int64) ([]BalanceRow, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("transactions.type AS type, transactions.amount AS amount, blocks.confirmations AS confirmations").
		Joins("LEFT JOIN blocks ON blocks.id = transactions.block_id").
		Where("transactions.archived = ?", false)
	if accountID > 0 {
		query = query.Where("transactions.account_id = ?", accountID)
	}

	var rows []BalanceRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SummaryRows 分类型汇总的行基数：确认数大于 0 或未关联区块的流水
func (r *TransactionRepository) SummaryRows(ctx context.Context, accountID int64) ([]BalanceRow, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("transactions.type AS type, transactions.amount AS amount, blocks.confirmations AS confirmations").
		Joins("LEFT JOIN blocks ON blocks.id = transactions.block_id").
		Where("(blocks.confirmations > 0 OR blocks.id IS NULL)")
	if accountID > 0 {
		query = query.Where("transactions.account_id = ?", accountID)
	}

	var rows []BalanceRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DonationRow 捐赠榜聚合行
type DonationRow struct {
	Username      string
	IsAnonymous   bool
	DonatePercent float64
	Amount        decimal.Decimal
}

// DonationRows 达到确认阈值的 Donation 流水加全部 Donation_PPS 流水
func (r *TransactionRepository) DonationRows(ctx context.Context, threshold int) ([]DonationRow, error) {
	var rows []DonationRow
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select(`COALESCE(accounts.username, '') AS username,
			COALESCE(accounts.is_anonymous, false) AS is_anonymous,
			COALESCE(accounts.donate_percent, 0) AS donate_percent,
			transactions.amount AS amount`).
		Joins("LEFT JOIN accounts ON accounts.id = transactions.account_id").
		Joins("LEFT JOIN blocks ON blocks.id = transactions.block_id").
		Where("((transactions.type = ? AND blocks.confirmations >= ?) OR transactions.type = ?)",
			model.TypeDonation, threshold, model.TypeDonationPPS).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DistinctTypes 库中出现过的交易类型，去重排序
func (r *TransactionRepository) DistinctTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Distinct().
		Order("type").
		Pluck("type", &types).Error
	return types, err
}

// PayoutWatermark 账户最新未归档支付
type PayoutWatermark struct {
	AccountID int64
	MaxTxID   int64
}

// AccountsWithUnarchivedPayouts 存在未归档支付流水的账户及其最新支付 id，
// 归档扫描任务的输入
func (r *TransactionRepository) AccountsWithUnarchivedPayouts(ctx context.Context, limit int) ([]PayoutWatermark, error) {
	var rows []PayoutWatermark
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("account_id AS account_id, MAX(id) AS max_tx_id").
		Where("type IN ? AND archived = ?", model.PayoutTypes, false).
		Group("account_id").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
