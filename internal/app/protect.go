package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"trust-plane/internal/protection"
)

// ProtectionPreflight prints the preflight report for the active provider.
func (a *App) ProtectionPreflight(ctx context.Context) error {
	mgr, err := a.protectionManager()
	if err != nil {
		return err
	}
	return printJSON(mgr.Preflight(ctx))
}

// ActivateProtection installs take-profit and stop-loss protection for a
// position using the activation input read from a JSON file.
func (a *App) ActivateProtection(ctx context.Context, inputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read activation input: %w", err)
	}
	var input protection.ActivateInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("decode activation input: %w", err)
	}

	mgr, err := a.protectionManager()
	if err != nil {
		return err
	}
	record, err := mgr.Activate(ctx, input)
	if err != nil {
		return err
	}
	a.Logger.Info().
		Str("position_id", record.PositionID).
		Str("status", string(record.Status)).
		Str("provider", string(record.Provider)).
		Msg("protection activation finished")
	return printJSON(record)
}

// CancelProtection cancels protection for one position.
func (a *App) CancelProtection(ctx context.Context, positionID, reason string) error {
	mgr, err := a.protectionManager()
	if err != nil {
		return err
	}
	record, err := mgr.Cancel(ctx, positionID, reason)
	if err != nil {
		return err
	}
	return printJSON(record)
}

// ReconcileProtection refreshes local protection records against the
// provider and prints the merged records. An empty id list covers every
// known position.
func (a *App) ReconcileProtection(ctx context.Context, positionIDs []string) error {
	mgr, err := a.protectionManager()
	if err != nil {
		return err
	}
	records, err := mgr.Reconcile(ctx, positionIDs)
	if err != nil {
		return err
	}
	a.Logger.Info().Int("positions", len(records)).Msg("reconcile finished")
	return printJSON(records)
}
