package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 交易类型常量
// ============================================================================

const (
	TypeCredit         = "Credit"          // 挖矿收益入账
	TypeDebitAP        = "Debit_AP"        // 自动支付出账
	TypeDebitMP        = "Debit_MP"        // 手动支付出账
	TypeFee            = "Fee"             // 矿池手续费
	TypeDonation       = "Donation"        // 捐赠
	TypeBonus          = "Bonus"           // 奖励入账
	TypeTXFee          = "TXFee"           // 链上转账手续费
	TypeOrphanCredit   = "Orphan_Credit"   // 孤块收益（仅存档记录）
	TypeOrphanFee      = "Orphan_Fee"      // 孤块手续费（仅存档记录）
	TypeOrphanDonation = "Orphan_Donation" // 孤块捐赠（仅存档记录）
	TypeCreditPPS      = "Credit_PPS"      // PPS 收益，按约定与确认数无关
	TypeFeePPS         = "Fee_PPS"         // PPS 手续费
	TypeDonationPPS    = "Donation_PPS"    // PPS 捐赠
)

// DebitTypes 借记类类型，计算归档水位线时排除，
// 避免上一次支付行本身挡住扫描区间
var DebitTypes = []string{TypeDebitMP, TypeDebitAP, TypeTXFee}

// PayoutTypes 支付出账类型，归档扫描任务以账户最新支付为目标点
var PayoutTypes = []string{TypeDebitMP, TypeDebitAP}

// confirmationIndependentTypes Confirmed 状态过滤时跳过确认数条件的类型。
// 该集合沿用既有口径（Bonus 与 Orphan_* 不在其中），变更需要产品决策
var confirmationIndependentTypes = map[string]bool{
	TypeDebitAP:     true,
	TypeDebitMP:     true,
	TypeTXFee:       true,
	TypeCreditPPS:   true,
	TypeFeePPS:      true,
	TypeDonationPPS: true,
}

// IsConfirmationIndependent 该类型是否与区块确认数无关
func IsConfirmationIndependent(transactionType string) bool {
	return confirmationIndependentTypes[transactionType]
}

var knownTypes = map[string]bool{
	TypeCredit:         true,
	TypeDebitAP:        true,
	TypeDebitMP:        true,
	TypeFee:            true,
	TypeDonation:       true,
	TypeBonus:          true,
	TypeTXFee:          true,
	TypeOrphanCredit:   true,
	TypeOrphanFee:      true,
	TypeOrphanDonation: true,
	TypeCreditPPS:      true,
	TypeFeePPS:         true,
	TypeDonationPPS:    true,
}

// IsKnownType 校验交易类型是否在枚举内
func IsKnownType(transactionType string) bool {
	return knownTypes[transactionType]
}

// ============================================================================
// 交易流水实体
// ============================================================================

// Transaction 交易流水表
//
// 流水只追加不修改，唯一例外是 archived 标记：
// 由归档流程单向地从 false 置为 true，之后不再变化。
// archived 只影响余额扫描与报表范围，不影响金额本身
type Transaction struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID   int64           `gorm:"index;not null" json:"account_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(30,8);not null" json:"amount"`
	Type        string          `gorm:"type:varchar(20);index;not null" json:"type"`
	BlockID     *int64          `gorm:"index" json:"block_id"`           // 关联区块，PPS 与手续费类流水通常为空
	CoinAddress *string         `gorm:"type:varchar(128)" json:"coin_address"`
	Timestamp   time.Time       `gorm:"autoCreateTime" json:"timestamp"`
	Archived    bool            `gorm:"not null;default:false;index" json:"archived"`
}

func (Transaction) TableName() string {
	return "transactions"
}
