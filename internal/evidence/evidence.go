// Package evidence records per-trade outcome facts: what price we expected,
// what was executed, and how the route behaved. This is the ground truth
// production backtests are validated against.
package evidence

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the lifecycle state of one trade attempt.
type Outcome string

const (
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeConfirmed  Outcome = "confirmed"
	OutcomeFailed     Outcome = "failed"
)

// TradeEvidenceV2 is one trade attempt keyed by a caller-supplied tradeId
// that stays stable across retries. Created unresolved at decision time and
// upserted to confirmed/failed once the chain confirms.
type TradeEvidenceV2 struct {
	TradeID             string          `json:"tradeId"`
	Surface             string          `json:"surface"`
	StrategyID          string          `json:"strategyId"`
	DecisionTs          time.Time       `json:"decisionTs"`
	Route               string          `json:"route"`
	ExpectedPrice       decimal.Decimal `json:"expectedPrice"`
	ExecutedPrice       decimal.Decimal `json:"executedPrice"`
	SlippageBps         float64         `json:"slippageBps"`
	PriorityFeeLamports int64           `json:"priorityFeeLamports"`
	JitoUsed            bool            `json:"jitoUsed"`
	MevRiskTag          string          `json:"mevRiskTag"`
	DatasetRefs         []string        `json:"datasetRefs,omitempty"`
	Outcome             Outcome         `json:"outcome"`
	Metadata            map[string]any  `json:"metadata,omitempty"`
}

// Filter narrows a summary to one surface and/or strategy.
type Filter struct {
	Surface    string
	StrategyID string
}

// Summary aggregates matching evidence records.
type Summary struct {
	Count             int             `json:"count"`
	MedianSlippageBps float64         `json:"medianSlippageBps"`
	P95SlippageBps    float64         `json:"p95SlippageBps"`
	Outcomes          map[Outcome]int `json:"outcomes"`
}
