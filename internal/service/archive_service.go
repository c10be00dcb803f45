package service

import (
	"context"
	"fmt"
	"log"

	"poolledger/internal/repository"

	"gorm.io/gorm"
)

// ArchiveLocker 按账户串行化归档操作
// 归档写入本身幂等，锁只用来避免同账户并发归档的重复扫描
type ArchiveLocker interface {
	Acquire(ctx context.Context, accountID int64) (release func(), err error)
}

// ArchiveService 推进账户归档水位线，把已结算的历史流水移出余额扫描范围
type ArchiveService struct {
	transactionRepo *repository.TransactionRepository
	locker          ArchiveLocker
	threshold       int
}

func NewArchiveService(db *gorm.DB, locker ArchiveLocker, confirmationThreshold int) *ArchiveService {
	return &ArchiveService{
		transactionRepo: repository.NewTransactionRepository(db),
		locker:          locker,
		threshold:       confirmationThreshold,
	}
}

// SetArchived 将账户 targetTxID 之前（含）已结算的流水标记为归档
//
// 水位线算法：
//  1. 取该账户已归档流水的最大 id 作为水位线，排除借记类类型
//     （Debit_MP / Debit_AP / TXFee），这样水位线锚定在非借记的结算行上，
//     上一次支付行不会挡住扫描区间；无记录时取 0
//  2. 将 (水位线, targetTxID] 区间内区块确认数达到阈值或未关联区块的
//     流水标记为归档
//
// 同一 targetTxID 重复调用不产生新变更（水位线已前移）；
// targetTxID 小于水位线时区间为空，不做任何事也不报错。
// 任一步失败时水位线保持不变，可安全重试
func (s *ArchiveService) SetArchived(ctx context.Context, accountID, targetTxID int64) error {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, accountID)
		if err != nil {
			return fmt.Errorf("获取归档锁失败: %w", err)
		}
		defer release()
	}

	lastID, err := s.transactionRepo.LastArchivedID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("查询归档水位线失败: %w", err)
	}

	archived, err := s.transactionRepo.MarkArchived(ctx, accountID, targetTxID, lastID, s.threshold)
	if err != nil {
		return fmt.Errorf("标记归档失败: %w", err)
	}

	if archived > 0 {
		log.Printf("[Archive] 账户 %d 归档 %d 条流水, 区间 (%d, %d]", accountID, archived, lastID, targetTxID)
	}
	return nil
}
