package handler

import (
	"errors"
	"strconv"
	"time"

	"poolledger/internal/config"
	"poolledger/internal/infrastructure/cache"
	"poolledger/internal/infrastructure/lock"
	"poolledger/internal/repository"
	"poolledger/internal/service"
	"poolledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	ledgerService  *service.LedgerService
	balanceService *service.BalanceService
	archiveService *service.ArchiveService
	queryService   *service.QueryService
	defaultLimit   int
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	store := cache.NewRedisStore(rdb)
	locker := lock.NewArchiveLocker(rdb)
	threshold := cfg.Ledger.ConfirmationThreshold
	summaryTTL := time.Duration(cfg.Ledger.SummaryCacheTTLSeconds) * time.Second

	defaultLimit := cfg.Ledger.DefaultPageSize
	if defaultLimit <= 0 {
		defaultLimit = 30
	}

	return &Handler{
		ledgerService:  service.NewLedgerService(db, cfg.Kafka.Topic.TransactionCreated),
		balanceService: service.NewBalanceService(db, threshold),
		archiveService: service.NewArchiveService(db, locker, threshold),
		queryService:   service.NewQueryService(db, store, threshold, summaryTTL),
		defaultLimit:   defaultLimit,
	}
}

// ============================================================
// 记账接口
// ============================================================

// AddTransactionRequest 记账请求
type AddTransactionRequest struct {
	AccountID   int64           `json:"account_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Type        string          `json:"type" binding:"required"`
	BlockID     *int64          `json:"block_id"`
	CoinAddress *string         `json:"coin_address"`
}

// AddTransaction 写入一条交易流水
// POST /api/v1/transaction/add
func (h *Handler) AddTransaction(c *gin.Context) {
	var req AddTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	id, err := h.ledgerService.AddTransaction(c.Request.Context(), &service.AddTransactionRequest{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Type:        req.Type,
		BlockID:     req.BlockID,
		CoinAddress: req.CoinAddress,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownType) {
			response.BusinessError(c, response.CodeUnknownType, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"id": id,
	})
}

// GetTransaction 按 id 查询单条流水
// GET /api/v1/transaction/get?id=xxx
func (h *Handler) GetTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return
	}

	trans, err := h.ledgerService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			response.BusinessError(c, response.CodeTransactionNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, trans)
}

// ArchiveRequest 归档请求
type ArchiveRequest struct {
	AccountID  int64 `json:"account_id" binding:"required"`
	TargetTxID int64 `json:"target_tx_id" binding:"required"`
}

// SetArchived 推进账户归档水位线
// POST /api/v1/transaction/archive
func (h *Handler) SetArchived(c *gin.Context) {
	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.archiveService.SetArchived(c.Request.Context(), req.AccountID, req.TargetTxID); err != nil {
		response.BusinessError(c, response.CodeArchiveFailed, err.Error())
		return
	}

	response.Success(c, gin.H{
		"message": "归档完成",
	})
}

// ============================================================
// 余额接口
// ============================================================

// GetBalance 查询账户三档余额
// GET /api/v1/account/balance?account_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Query("account_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "account_id 参数错误")
		return
	}

	balance, err := h.balanceService.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, balance)
}

// GetLockedBalance 查询全账本锁定资金
// GET /api/v1/ledger/locked
func (h *Handler) GetLockedBalance(c *gin.Context) {
	locked, err := h.balanceService.GetLockedBalance(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"locked": locked,
	})
}

// ============================================================
// 查询接口
// ============================================================

// GetTransactions 过滤分页查询交易
// GET /api/v1/transaction/list?start=0&limit=30&account_id=&type=&status=&account=&address=
func (h *Handler) GetTransactions(c *gin.Context) {
	start, _ := strconv.Atoi(c.DefaultQuery("start", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.defaultLimit)))
	if limit <= 0 {
		limit = h.defaultLimit
	}

	var accountID int64
	if raw := c.Query("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.ParamError(c, "account_id 参数错误")
			return
		}
		accountID = id
	}

	filter := map[string]string{
		"type":    c.Query("type"),
		"status":  c.Query("status"),
		"account": c.Query("account"),
		"address": c.Query("address"),
	}

	rows, total, err := h.queryService.GetTransactions(c.Request.Context(), start, filter, limit, accountID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":  rows,
		"total": total,
		"start": start,
		"limit": limit,
	})
}

// GetTypes 查询交易类型目录
// GET /api/v1/transaction/types
func (h *Handler) GetTypes(c *gin.Context) {
	types, err := h.queryService.GetTypes(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"types": types,
	})
}

// GetTransactionSummary 查询分类型金额汇总（缓存读）
// GET /api/v1/transaction/summary?account_id=xxx
func (h *Handler) GetTransactionSummary(c *gin.Context) {
	var accountID int64
	if raw := c.Query("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.ParamError(c, "account_id 参数错误")
			return
		}
		accountID = id
	}

	summary, err := h.queryService.GetTransactionSummary(c.Request.Context(), accountID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, summary)
}

// GetDonations 查询捐赠榜
// GET /api/v1/donation/list
func (h *Handler) GetDonations(c *gin.Context) {
	donations, err := h.queryService.GetDonations(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list": donations,
	})
}
