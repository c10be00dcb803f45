package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"poolledger/internal/infrastructure/cache"
	"poolledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QueryService 交易列表、类型目录、分类型汇总与捐赠榜查询
type QueryService struct {
	transactionRepo *repository.TransactionRepository
	cache           cache.Store
	threshold       int
	summaryTTL      time.Duration
}

func NewQueryService(db *gorm.DB, store cache.Store, confirmationThreshold int, summaryTTL time.Duration) *QueryService {
	return &QueryService{
		transactionRepo: repository.NewTransactionRepository(db),
		cache:           store,
		threshold:       confirmationThreshold,
		summaryTTL:      summaryTTL,
	}
}

// GetTransactions 过滤分页查询，accountID 为 0 时不限账户
// 识别的过滤键：type / status / account / address，其余忽略
func (s *QueryService) GetTransactions(ctx context.Context, start int, filter map[string]string, limit int, accountID int64) ([]*repository.TransactionDetail, int64, error) {
	rows, total, err := s.transactionRepo.List(ctx, accountID, filter, start, limit, s.threshold)
	if err != nil {
		return nil, 0, fmt.Errorf("查询交易列表失败: %w", err)
	}
	return rows, total, nil
}

// GetTypes 库中出现过的交易类型，首位附带空的"任意"选项
func (s *QueryService) GetTypes(ctx context.Context) ([]string, error) {
	types, err := s.transactionRepo.DistinctTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询交易类型失败: %w", err)
	}
	return append([]string{""}, types...), nil
}

// GetTransactionSummary 分类型金额汇总，经缓存读取
// 行基数为确认数大于 0 或未关联区块的流水；大表上该聚合较慢，
// 结果缓存一个 TTL 窗口，调用方需容忍窗口内的陈旧数据，
// 实时余额决策走 GetBalance
func (s *QueryService) GetTransactionSummary(ctx context.Context, accountID int64) (map[string]decimal.Decimal, error) {
	key := summaryCacheKey(accountID)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var summary map[string]decimal.Decimal
		if err := json.Unmarshal([]byte(cached), &summary); err == nil {
			return summary, nil
		}
		// 缓存内容无法解析时回源重算
	}

	rows, err := s.transactionRepo.SummaryRows(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("查询交易汇总失败: %w", err)
	}

	summary := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		summary[row.Type] = summary[row.Type].Add(row.Amount)
	}

	if encoded, err := json.Marshal(summary); err == nil {
		s.cache.Set(ctx, key, string(encoded), s.summaryTTL)
	}
	return summary, nil
}

func summaryCacheKey(accountID int64) string {
	if accountID > 0 {
		return fmt.Sprintf("txsummary:%d", accountID)
	}
	return "txsummary:all"
}

// DonationEntry 捐赠榜条目
type DonationEntry struct {
	Username      string          `json:"username"`
	Donation      decimal.Decimal `json:"donation"`
	IsAnonymous   bool            `json:"is_anonymous"`
	DonatePercent float64         `json:"donate_percent"`
}

// GetDonations 按用户聚合捐赠总额，降序排列
// 统计达到确认阈值的 Donation 流水加全部 Donation_PPS 流水
func (s *QueryService) GetDonations(ctx context.Context) ([]*DonationEntry, error) {
	rows, err := s.transactionRepo.DonationRows(ctx, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("查询捐赠流水失败: %w", err)
	}

	byUser := make(map[string]*DonationEntry)
	for _, row := range rows {
		entry, ok := byUser[row.Username]
		if !ok {
			entry = &DonationEntry{
				Username:      row.Username,
				IsAnonymous:   row.IsAnonymous,
				DonatePercent: row.DonatePercent,
			}
			byUser[row.Username] = entry
		}
		entry.Donation = entry.Donation.Add(row.Amount)
	}

	entries := make([]*DonationEntry, 0, len(byUser))
	for _, entry := range byUser {
		entry.Donation = entry.Donation.Round(8)
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Donation.GreaterThan(entries[j].Donation)
	})
	return entries, nil
}
