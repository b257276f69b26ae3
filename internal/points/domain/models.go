package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	EntryTypeEarn   = "earn"
	EntryTypeRedeem = "redeem"
	EntryTypeAdjust = "adjust"
)

// PointsTransaction is one ledger row. Delta is positive for earns, negative
// for redemptions. The running balance lives on users.points; the ledger is
// the audit trail the balance is reconciled against.
type PointsTransaction struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	OrderID   string       `gorm:"index" json:"order_id,omitempty"`
	EntryType string       `gorm:"not null" json:"entry_type"`
	Delta     int64        `gorm:"not null" json:"delta"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (PointsTransaction) TableName() string { return "points_transactions" }

// Drift is a user whose ledger sum disagrees with the stored balance.
type Drift struct {
	UserID     snowflake.ID `json:"user_id"`
	Balance    int64        `json:"balance"`
	LedgerSum  int64        `json:"ledger_sum"`
	Difference int64        `json:"difference"`
}
