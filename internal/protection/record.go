// Package protection manages the stop-loss/take-profit order pair attached
// to an open position, against an upstream protection provider or a local
// stand-in adapter.
package protection

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies which adapter owns a position's protection orders.
type Provider string

const (
	ProviderUpstream Provider = "upstream"
	ProviderLocal    Provider = "local"
	ProviderNone     Provider = "none"
)

// Status is the lifecycle state of one protected position.
// Transitions: pending -> active | failed, active -> cancelled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Record is the protection state of one position for its entire lifetime,
// keyed by position id and transitioned in place.
type Record struct {
	PositionID    string          `json:"positionId"`
	WalletAddress string          `json:"walletAddress"`
	Mint          string          `json:"mint"`
	Symbol        string          `json:"symbol,omitempty"`
	EntryPriceUsd decimal.Decimal `json:"entryPriceUsd"`
	Quantity      decimal.Decimal `json:"quantity"`
	TpPercent     float64         `json:"tpPercent"`
	SlPercent     float64         `json:"slPercent"`
	Status        Status          `json:"status"`
	TpOrderKey    string          `json:"tpOrderKey,omitempty"`
	SlOrderKey    string          `json:"slOrderKey,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	Provider      Provider        `json:"provider"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	CancelledAt   *time.Time      `json:"cancelledAt,omitempty"`
}

// ActivateInput is a request to protect one position.
type ActivateInput struct {
	PositionID    string          `json:"positionId"`
	WalletAddress string          `json:"walletAddress"`
	Mint          string          `json:"mint"`
	Symbol        string          `json:"symbol,omitempty"`
	EntryPriceUsd decimal.Decimal `json:"entryPriceUsd"`
	Quantity      decimal.Decimal `json:"quantity"`
	TpPercent     float64         `json:"tpPercent"`
	SlPercent     float64         `json:"slPercent"`
}

// Validate rejects malformed input before any provider I/O.
func (in ActivateInput) Validate() error {
	var problems []string
	if strings.TrimSpace(in.PositionID) == "" {
		problems = append(problems, "positionId is required")
	}
	if strings.TrimSpace(in.WalletAddress) == "" {
		problems = append(problems, "walletAddress is required")
	}
	if strings.TrimSpace(in.Mint) == "" {
		problems = append(problems, "mint is required")
	}
	if !in.EntryPriceUsd.IsPositive() {
		problems = append(problems, "entryPriceUsd must be > 0")
	}
	if !in.Quantity.IsPositive() {
		problems = append(problems, "quantity must be > 0")
	}
	if in.TpPercent <= 0 {
		problems = append(problems, "tpPercent must be > 0")
	}
	if in.SlPercent <= 0 {
		problems = append(problems, "slPercent must be > 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("protection: invalid activate input: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ErrNoRecord is returned when a position has no protection record.
var ErrNoRecord = errors.New("protection: no record for position")
