package model

// Account 账户只读投影，账户目录由用户系统维护，本服务仅按 id 引用
type Account struct {
	ID            int64   `gorm:"primaryKey" json:"id"`
	Username      string  `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	IsAnonymous   bool    `gorm:"not null;default:false" json:"is_anonymous"`
	DonatePercent float64 `gorm:"not null;default:0" json:"donate_percent"`
}

func (Account) TableName() string {
	return "accounts"
}
