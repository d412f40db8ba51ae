package protection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const noProviderRemediation = "no protection provider configured: set provider.base_url for upstream mode or enable provider.local_mode for a local stand-in"

// providerCaller is the slice of Client the manager needs; swapped for a
// fake in tests.
type providerCaller interface {
	Do(ctx context.Context, action Action, payload any) (ProviderResponse, error)
}

// ManagerOptions wire the lifecycle manager.
type ManagerOptions struct {
	UpstreamConfigured bool
	LocalMode          bool
}

// Manager orchestrates TP/SL order activation, cancellation, and
// reconciliation, persisting lifecycle state per position.
type Manager struct {
	opts     ManagerOptions
	upstream providerCaller
	local    localAdapter
	store    *Store
	logger   zerolog.Logger
}

// NewManager constructs the lifecycle manager. upstream may be nil when no
// provider URL is configured.
func NewManager(opts ManagerOptions, upstream providerCaller, store *Store, logger zerolog.Logger) *Manager {
	return &Manager{
		opts:     opts,
		upstream: upstream,
		store:    store,
		logger:   logger.With().Str("component", "spot_protection").Logger(),
	}
}

// ActiveProvider resolves which adapter requests will go to: upstream when a
// provider URL is configured, local when local mode is enabled, none
// otherwise.
func (m *Manager) ActiveProvider() Provider {
	switch {
	case m.opts.UpstreamConfigured && m.upstream != nil:
		return ProviderUpstream
	case m.opts.LocalMode:
		return ProviderLocal
	default:
		return ProviderNone
	}
}

// PreflightResult reports whether protection orders can currently be placed.
type PreflightResult struct {
	Provider Provider `json:"provider"`
	OK       bool     `json:"ok"`
	Reason   string   `json:"reason,omitempty"`
}

// Preflight checks the resolved provider without touching any position.
func (m *Manager) Preflight(ctx context.Context) PreflightResult {
	provider := m.ActiveProvider()
	switch provider {
	case ProviderNone:
		return PreflightResult{Provider: provider, OK: false, Reason: noProviderRemediation}
	case ProviderLocal:
		return PreflightResult{Provider: provider, OK: true}
	default:
		resp, err := m.upstream.Do(ctx, ActionPreflight, nil)
		if err != nil {
			return PreflightResult{Provider: provider, OK: false, Reason: err.Error()}
		}
		return PreflightResult{Provider: provider, OK: resp.OK, Reason: resp.Reason}
	}
}

// Activate places the TP/SL pair for a position. Input violations fail
// before any provider I/O. Re-activating an already active record with both
// order keys returns it unchanged without contacting the provider, since
// duplicate activates are expected under retry. Upstream failure becomes a
// typed failed record, not an error.
func (m *Manager) Activate(ctx context.Context, input ActivateInput) (Record, error) {
	if err := input.Validate(); err != nil {
		return Record{}, err
	}

	if existing, ok := m.store.Get(input.PositionID); ok &&
		existing.Status == StatusActive && existing.TpOrderKey != "" && existing.SlOrderKey != "" {
		return existing, nil
	}

	provider := m.ActiveProvider()
	now := time.Now().UTC()
	record := Record{
		PositionID:    input.PositionID,
		WalletAddress: input.WalletAddress,
		Mint:          input.Mint,
		Symbol:        input.Symbol,
		EntryPriceUsd: input.EntryPriceUsd,
		Quantity:      input.Quantity,
		TpPercent:     input.TpPercent,
		SlPercent:     input.SlPercent,
		Status:        StatusPending,
		Provider:      provider,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch provider {
	case ProviderNone:
		record.Status = StatusFailed
		record.FailureReason = noProviderRemediation
	case ProviderLocal:
		record.TpOrderKey, record.SlOrderKey = m.local.synthesizeKeys(input.PositionID)
		record.Status = StatusActive
	default:
		resp, err := m.upstream.Do(ctx, ActionActivate, input)
		switch {
		case err != nil:
			record.Status = StatusFailed
			record.FailureReason = err.Error()
		case !resp.OK || resp.TpOrderKey == "" || resp.SlOrderKey == "":
			record.Status = StatusFailed
			record.FailureReason = resp.Reason
			if record.FailureReason == "" {
				record.FailureReason = "provider did not return both order keys"
			}
		default:
			record.TpOrderKey = resp.TpOrderKey
			record.SlOrderKey = resp.SlOrderKey
			record.Status = StatusActive
		}
	}

	if record.Status == StatusFailed {
		m.logger.Warn().Str("position", input.PositionID).Str("reason", record.FailureReason).
			Msg("protection activation failed")
	} else {
		m.logger.Info().Str("position", input.PositionID).Str("provider", string(provider)).
			Msg("protection activated")
	}

	if err := m.store.Put(record); err != nil {
		return Record{}, fmt.Errorf("persist protection record: %w", err)
	}
	return record, nil
}

// Cancel tears down a position's protection. Cancellation is always locally
// authoritative: a failed upstream cancel is absorbed into failureReason but
// the record still moves to cancelled, because a stuck active record is
// worse than an unconfirmed cancellation.
func (m *Manager) Cancel(ctx context.Context, positionID, reason string) (Record, error) {
	if positionID == "" {
		return Record{}, fmt.Errorf("protection: positionId is required")
	}

	existing, found := m.store.Get(positionID)
	provider := existing.Provider
	if !found {
		provider = m.ActiveProvider()
	}

	var upstreamFailure string
	if provider == ProviderUpstream && m.upstream != nil {
		resp, err := m.upstream.Do(ctx, ActionCancel, map[string]string{
			"positionId": positionID,
			"reason":     reason,
		})
		if err != nil {
			upstreamFailure = err.Error()
		} else if !resp.OK {
			upstreamFailure = resp.Reason
			if upstreamFailure == "" {
				upstreamFailure = "provider rejected cancel"
			}
		}
		if upstreamFailure != "" {
			m.logger.Warn().Str("position", positionID).Str("reason", upstreamFailure).
				Msg("upstream cancel failed; marking cancelled locally anyway")
		}
	}

	now := time.Now().UTC()
	return m.store.update(positionID, func(record Record, exists bool) Record {
		if !exists {
			record = Record{PositionID: positionID, Provider: provider, CreatedAt: now}
		}
		record.Status = StatusCancelled
		record.CancelledAt = &now
		record.UpdatedAt = now
		if upstreamFailure != "" {
			record.FailureReason = upstreamFailure
		}
		return record
	})
}

// Reconcile aligns local records with provider truth. Local mode returns
// current records unchanged; upstream merges the provider's status and order
// keys per position but never discards a local record the provider did not
// mention.
func (m *Manager) Reconcile(ctx context.Context, positionIDs []string) ([]Record, error) {
	provider := m.ActiveProvider()
	switch provider {
	case ProviderNone:
		return nil, fmt.Errorf("protection: nothing to reconcile against: %s", noProviderRemediation)
	case ProviderLocal:
		return m.selectRecords(positionIDs), nil
	}

	requested := positionIDs
	if len(requested) == 0 {
		for _, record := range m.store.All() {
			requested = append(requested, record.PositionID)
		}
	}

	resp, err := m.upstream.Do(ctx, ActionReconcile, map[string][]string{"positionIds": requested})
	if err != nil {
		return nil, fmt.Errorf("provider reconcile: %w", err)
	}

	now := time.Now().UTC()
	for _, remote := range resp.Records {
		if remote.PositionID == "" {
			continue
		}
		if _, err := m.store.update(remote.PositionID, func(record Record, exists bool) Record {
			if !exists {
				record = Record{PositionID: remote.PositionID, Provider: ProviderUpstream, CreatedAt: now}
			}
			if remote.Status != "" {
				record.Status = remote.Status
				if remote.Status == StatusCancelled && record.CancelledAt == nil {
					record.CancelledAt = &now
				}
			}
			if remote.TpOrderKey != "" {
				record.TpOrderKey = remote.TpOrderKey
			}
			if remote.SlOrderKey != "" {
				record.SlOrderKey = remote.SlOrderKey
			}
			if remote.FailureReason != "" {
				record.FailureReason = remote.FailureReason
			}
			record.UpdatedAt = now
			return record
		}); err != nil {
			return nil, err
		}
	}

	return m.selectRecords(positionIDs), nil
}

func (m *Manager) selectRecords(positionIDs []string) []Record {
	all := m.store.All()
	if len(positionIDs) == 0 {
		return all
	}
	wanted := make(map[string]bool, len(positionIDs))
	for _, id := range positionIDs {
		wanted[id] = true
	}
	filtered := make([]Record, 0, len(positionIDs))
	for _, record := range all {
		if wanted[record.PositionID] {
			filtered = append(filtered, record)
		}
	}
	return filtered
}
