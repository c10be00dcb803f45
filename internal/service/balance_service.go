package service

import (
	"context"
	"fmt"

	"poolledger/internal/model"
	"poolledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Balance 账户三档余额，各档四舍五入到 8 位小数
type Balance struct {
	Confirmed   decimal.Decimal `json:"confirmed"`
	Unconfirmed decimal.Decimal `json:"unconfirmed"`
	Orphaned    decimal.Decimal `json:"orphaned"`
}

// BalanceService 基于未归档流水实时推导余额，从不读缓存
//
// 各类型对三档余额的符号贡献：
//
//	Credit / Bonus                按区块结算档位 +
//	Credit_PPS                    恒为已确认 +
//	Debit_MP / Debit_AP           恒为已确认 -，支付一经发放即为最终状态
//	Donation / Fee                按区块结算档位 -
//	Donation_PPS / Fee_PPS / TXFee 恒为已确认 -
//	Orphan_*                      不参与，仅存档
//
// 未关联区块的流水视为已确认
type BalanceService struct {
	transactionRepo *repository.TransactionRepository
	threshold       int
}

func NewBalanceService(db *gorm.DB, confirmationThreshold int) *BalanceService {
	return &BalanceService{
		transactionRepo: repository.NewTransactionRepository(db),
		threshold:       confirmationThreshold,
	}
}

// GetBalance 计算账户三档余额，无流水时各档为 0
func (s *BalanceService) GetBalance(ctx context.Context, accountID int64) (*Balance, error) {
	rows, err := s.transactionRepo.BalanceRows(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("查询余额流水失败: %w", err)
	}

	balance := &Balance{}
	for _, row := range rows {
		s.apply(balance, row)
	}
	balance.Confirmed = balance.Confirmed.Round(8)
	balance.Unconfirmed = balance.Unconfirmed.Round(8)
	balance.Orphaned = balance.Orphaned.Round(8)
	return balance, nil
}

// GetLockedBalance 全账本已确认余额合计，用于钱包锁定资金报表
func (s *BalanceService) GetLockedBalance(ctx context.Context) (decimal.Decimal, error) {
	rows, err := s.transactionRepo.BalanceRows(ctx, 0)
	if err != nil {
		return decimal.Zero, fmt.Errorf("查询账本流水失败: %w", err)
	}

	balance := &Balance{}
	for _, row := range rows {
		s.apply(balance, row)
	}
	return balance.Confirmed.Round(8), nil
}

const (
	tierConfirmed = iota
	tierUnconfirmed
	tierOrphaned
)

// settlementTier 区块结算档位，未关联区块视为已确认
func settlementTier(confirmations *int64, threshold int) int {
	switch {
	case confirmations == nil:
		return tierConfirmed
	case *confirmations >= int64(threshold):
		return tierConfirmed
	case *confirmations >= 0:
		return tierUnconfirmed
	default:
		return tierOrphaned
	}
}

func (s *BalanceService) apply(balance *Balance, row repository.BalanceRow) {
	switch row.Type {
	case model.TypeCredit, model.TypeBonus:
		switch settlementTier(row.Confirmations, s.threshold) {
		case tierConfirmed:
			balance.Confirmed = balance.Confirmed.Add(row.Amount)
		case tierUnconfirmed:
			balance.Unconfirmed = balance.Unconfirmed.Add(row.Amount)
		case tierOrphaned:
			balance.Orphaned = balance.Orphaned.Add(row.Amount)
		}
	case model.TypeCreditPPS:
		balance.Confirmed = balance.Confirmed.Add(row.Amount)
	case model.TypeDebitMP, model.TypeDebitAP:
		balance.Confirmed = balance.Confirmed.Sub(row.Amount)
	case model.TypeDonation, model.TypeFee:
		switch settlementTier(row.Confirmations, s.threshold) {
		case tierConfirmed:
			balance.Confirmed = balance.Confirmed.Sub(row.Amount)
		case tierUnconfirmed:
			balance.Unconfirmed = balance.Unconfirmed.Sub(row.Amount)
		case tierOrphaned:
			balance.Orphaned = balance.Orphaned.Sub(row.Amount)
		}
	case model.TypeDonationPPS, model.TypeFeePPS, model.TypeTXFee:
		balance.Confirmed = balance.Confirmed.Sub(row.Amount)
	}
}
