package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spending record owned by a user and optionally
// assigned to one of that user's categories.
type Expense struct {
	ID         int64           `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Note       *string         `json:"note"`
	SpentAt    time.Time       `json:"spent_at"`
	OwnerID    int64           `json:"owner_id"`
	CategoryID *int64          `json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
