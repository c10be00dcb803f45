package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"poolledger/internal/model"
	"poolledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrUnknownType = errors.New("未知的交易类型")

// LedgerService 记账写入口
type LedgerService struct {
	db              *gorm.DB
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
	topic           string
}

func NewLedgerService(db *gorm.DB, transactionCreatedTopic string) *LedgerService {
	return &LedgerService{
		db:              db,
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		topic:           transactionCreatedTopic,
	}
}

// AddTransactionRequest 记账请求，BlockID 与 CoinAddress 可空
type AddTransactionRequest struct {
	AccountID   int64
	Amount      decimal.Decimal
	Type        string
	BlockID     *int64
	CoinAddress *string
}

// AddTransaction 写入一条交易流水，返回数据库生成的自增 id
// 流水与出站消息在同一数据库事务内写入，要么全部成功要么全部失败
func (s *LedgerService) AddTransaction(ctx context.Context, req *AddTransactionRequest) (int64, error) {
	if !model.IsKnownType(req.Type) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownType, req.Type)
	}

	trans := &model.Transaction{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Type:        req.Type,
		BlockID:     req.BlockID,
		CoinAddress: req.CoinAddress,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("写入交易失败: %w", err)
		}

		payload := map[string]interface{}{
			"id":         trans.ID,
			"account_id": trans.AccountID,
			"amount":     trans.Amount,
			"type":       trans.Type,
		}
		if req.BlockID != nil {
			payload["block_id"] = *req.BlockID
		}
		payloadBytes, _ := json.Marshal(payload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: strconv.FormatInt(trans.AccountID, 10),
			Topic:      s.topic,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入出站消息失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return trans.ID, nil
}

// GetTransaction 按 id 查询单条流水
func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, id)
}
