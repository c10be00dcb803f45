package job

import (
	"context"
	"log"
	"time"

	"poolledger/internal/config"
	"poolledger/internal/repository"
	"poolledger/internal/service"

	"gorm.io/gorm"
)

// ArchiveSweeper 周期扫描产生了新支付的账户，
// 把各账户支付点之前已结算的流水推进归档
type ArchiveSweeper struct {
	db              *gorm.DB
	transactionRepo *repository.TransactionRepository
	archiveService  *service.ArchiveService
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
}

func NewArchiveSweeper(db *gorm.DB, archiveService *service.ArchiveService, cfg *config.Config) *ArchiveSweeper {
	interval := time.Duration(cfg.Ledger.ArchiveSweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	batchSize := cfg.Ledger.ArchiveSweepBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ArchiveSweeper{
		db:              db,
		transactionRepo: repository.NewTransactionRepository(db),
		archiveService:  archiveService,
		stopCh:          make(chan struct{}),
		interval:        interval,
		batchSize:       batchSize,
	}
}

func (j *ArchiveSweeper) Start(ctx context.Context) {
	log.Println("[ArchiveSweeper] 归档扫描任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ArchiveSweeper] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ArchiveSweeper] 任务停止")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *ArchiveSweeper) Stop() {
	close(j.stopCh)
}

func (j *ArchiveSweeper) sweep(ctx context.Context) {
	watermarks, err := j.transactionRepo.AccountsWithUnarchivedPayouts(ctx, j.batchSize)
	if err != nil {
		log.Printf("[ArchiveSweeper] 查询待归档账户失败: %v", err)
		return
	}

	if len(watermarks) == 0 {
		return
	}

	for _, w := range watermarks {
		if err := j.archiveService.SetArchived(ctx, w.AccountID, w.MaxTxID); err != nil {
			log.Printf("[ArchiveSweeper] 账户归档失败: accountID=%d, err=%v", w.AccountID, err)
		}
	}
}
