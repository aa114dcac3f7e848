// Package handover passes a live broadcast from one DJ to another and
// confirms that the change is visible on the broadcast resource.
package handover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wildcastradio/radiolink/internal/model"
	"github.com/wildcastradio/radiolink/internal/reconcile"
)

// ErrInvalidRequest is returned before any write when the arguments are unusable.
var ErrInvalidRequest = errors.New("invalid handover request")

// UnconfirmedWarning is shown when the write succeeded but the new DJ did not
// appear on the broadcast in time.
const UnconfirmedWarning = "Handover was accepted but is not yet visible. The broadcast may take a moment to update."

// API is the subset of the REST client the flow needs.
type API interface {
	InitiateHandover(ctx context.Context, broadcastID int64, req model.HandoverRequest) (*model.Handover, error)
	GetBroadcast(ctx context.Context, broadcastID int64) (*model.Broadcast, error)
}

// Outcome is the result of a handover. A write that succeeded is never
// reported as an error; an unconfirmed read only sets Warning.
type Outcome struct {
	Handover  *model.Handover
	Confirmed bool
	Attempts  int

	// Broadcast is the last state read back, nil if every read failed.
	Broadcast *model.Broadcast

	Warning string

	// ReadErr is the final read's error when confirmation failed on it.
	ReadErr error
}

// Service runs handovers.
type Service struct {
	api    API
	runner *reconcile.Runner
	logger *slog.Logger
}

// NewService creates a Service. runner supplies the confirmation policy;
// nil uses reconcile.DefaultConfig.
func NewService(api API, runner *reconcile.Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = reconcile.NewRunner(reconcile.DefaultConfig(), reconcile.WithLogger(logger))
	}
	return &Service{
		api:    api,
		runner: runner,
		logger: logger.With("component", "handover"),
	}
}

// Handover initiates the handover and polls the broadcast until its current
// active DJ is newDJID. The returned error is only ever the write's error,
// already classified by the API client.
func (s *Service) Handover(ctx context.Context, broadcastID, newDJID int64, reason string) (Outcome, error) {
	if broadcastID <= 0 || newDJID <= 0 {
		return Outcome{}, fmt.Errorf("%w: broadcast %d, dj %d", ErrInvalidRequest, broadcastID, newDJID)
	}

	logger := s.logger.With("broadcast_id", broadcastID, "new_dj_id", newDJID)

	h, err := s.api.InitiateHandover(ctx, broadcastID, model.HandoverRequest{
		NewDJID: newDJID,
		Reason:  reason,
	})
	if err != nil {
		logger.Warn("handover rejected", "error", err)
		return Outcome{}, err
	}
	logger.Info("handover accepted", "handover_id", h.ID)

	res := reconcile.Run(ctx, s.runner, reconcile.Request[*model.Broadcast]{
		Operation: "handover",
		Fetch: func(ctx context.Context) (*model.Broadcast, error) {
			return s.api.GetBroadcast(ctx, broadcastID)
		},
		Predicate: func(b *model.Broadcast) bool {
			return b != nil && b.CurrentActiveDJ != nil && b.CurrentActiveDJ.ID == newDJID
		},
	})

	out := Outcome{
		Handover:  h,
		Confirmed: res.Settled,
		Attempts:  res.Attempts,
	}
	if res.HasState {
		out.Broadcast = res.LastState
	}
	if !res.Settled {
		out.Warning = UnconfirmedWarning
		out.ReadErr = res.Err
		logger.Warn("handover not confirmed",
			"attempts", res.Attempts,
			"observed_dj_id", observedDJ(out.Broadcast),
			"error", res.Err,
		)
		return out, nil
	}

	logger.Info("handover confirmed", "attempts", res.Attempts)
	return out, nil
}

func observedDJ(b *model.Broadcast) int64 {
	if b == nil {
		return 0
	}
	return b.ActiveDJID()
}
