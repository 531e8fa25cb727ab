package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// Account is keyed by wallet address (case-preserving) and created lazily by the
// first order that references it.
type Account struct {
	ID            int64           `json:"id" db:"id"`
	WalletAddress string          `json:"wallet_address" db:"wallet_address"`
	Email         *string         `json:"email,omitempty" db:"email"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	KYCStatus     KYCStatus       `json:"kyc_status" db:"kyc_status"`
	TotalVolume   decimal.Decimal `json:"total_volume" db:"total_volume"`
}
