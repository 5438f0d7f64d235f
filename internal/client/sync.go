package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrBadInterval    = errors.New("watch interval must be positive")
)

// Uploader is the server side of a sync.
type Uploader interface {
	UploadBatch(ctx context.Context, events []Event) (int, error)
	Health(ctx context.Context) error
}

// Result describes one sync attempt. Offline is set when the server could not
// take the batch; the events are still queued and Cause says why.
type Result struct {
	Synced  int
	Pending int
	Offline bool
	Cause   error
}

// Syncer sends the local queue to the server, one sync at a time.
type Syncer struct {
	queue   *Queue
	api     Uploader
	running atomic.Bool

	// OnSynced runs after a batch was accepted and removed from the queue.
	OnSynced func(Result)
}

func NewSyncer(queue *Queue, api Uploader) *Syncer {
	return &Syncer{
		queue: queue,
		api:   api,
	}
}

// Sync sends a snapshot of the queue as one batch. On success exactly the sent
// events are removed; on failure the queue is left as it was. A server or
// network failure is reported in the Result, not as an error. Errors are only
// returned for local storage problems and for ErrSyncInProgress.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, ErrSyncInProgress
	}
	defer s.running.Store(false)

	events, err := s.queue.Snapshot()
	if err != nil {
		return Result{}, err
	}
	if len(events) == 0 {
		return Result{}, nil
	}

	_, err = s.api.UploadBatch(ctx, events)
	if err != nil {
		pending, lenErr := s.queue.Len()
		if lenErr != nil {
			pending = len(events)
		}
		slog.Warn("sync failed, events kept locally", "pending", pending, "error", err)
		return Result{Pending: pending, Offline: true, Cause: err}, nil
	}

	ids := lo.Map(events, func(ev Event, _ int) string {
		return ev.ClientEventID
	})
	remaining, err := s.queue.Remove(ids)
	if err != nil {
		return Result{}, fmt.Errorf("failed to clear synced events: %w", err)
	}

	result := Result{Synced: len(events), Pending: remaining}
	slog.Info("events synced", "synced", result.Synced, "pending", result.Pending)

	if s.OnSynced != nil {
		s.OnSynced(result)
	}
	return result, nil
}

// Watch probes the server every interval and syncs whenever it comes back
// online, including the first probe after start. onResult, when set, sees every
// sync Watch triggers. Watch returns when ctx is done.
func (s *Syncer) Watch(ctx context.Context, interval time.Duration, onResult func(Result)) error {
	if interval <= 0 {
		return ErrBadInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	online := false
	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		err := s.api.Health(probeCtx)
		cancel()

		switch {
		case err != nil && online:
			slog.Info("server unreachable", "error", err)
			online = false
		case err == nil && !online:
			slog.Info("server reachable, syncing")
			online = true

			result, syncErr := s.Sync(ctx)
			if syncErr != nil && !errors.Is(syncErr, ErrSyncInProgress) {
				return syncErr
			}
			if result.Offline {
				online = false
			}
			if syncErr == nil && onResult != nil {
				onResult(result)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
