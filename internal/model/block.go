package model

// OrphanConfirmations 区块被链废弃时确认数记为 -1
const OrphanConfirmations = -1

// Block 区块只读投影
// 确认数由链同步程序维护，本服务只读：
// -1 孤块，0..阈值-1 未确认，>= 阈值 已确认
type Block struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	Height        int64  `gorm:"not null" json:"height"`
	Blockhash     string `gorm:"type:varchar(64)" json:"blockhash"`
	Confirmations int64  `gorm:"not null;default:0" json:"confirmations"`
}

func (Block) TableName() string {
	return "blocks"
}
