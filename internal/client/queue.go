package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

const QueueFileName = "doglog_event_queue_v1.json"

// Queue is the durable list of events not yet accepted by the server. It is a
// JSON array on disk, replaced atomically on every write so a crash never
// leaves a half-written file. Every read-modify-write holds an advisory lock
// on a sibling .lock file, so separate doglog processes can share one queue.
type Queue struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// OpenQueue uses QueueFileName inside dir, creating dir when missing.
func OpenQueue(dir string) (*Queue, error) {
	err := os.MkdirAll(dir, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	path := filepath.Join(dir, QueueFileName)
	return &Queue{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (q *Queue) Path() string {
	return q.path
}

// Append adds ev at the end of the queue and returns the new length.
func (q *Queue) Append(ev Event) (int, error) {
	unlock, err := q.acquire()
	if err != nil {
		return 0, err
	}
	defer unlock()

	events, err := q.load()
	if err != nil {
		return 0, err
	}

	events = append(events, ev)
	err = q.save(events)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// Snapshot returns the queued events in queue order.
func (q *Queue) Snapshot() ([]Event, error) {
	unlock, err := q.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	return q.load()
}

func (q *Queue) Len() (int, error) {
	events, err := q.Snapshot()
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// Remove drops the events with the given ids and returns how many remain.
// Events appended after the ids were read are kept.
func (q *Queue) Remove(ids []string) (int, error) {
	unlock, err := q.acquire()
	if err != nil {
		return 0, err
	}
	defer unlock()

	events, err := q.load()
	if err != nil {
		return 0, err
	}

	sent := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		sent[id] = struct{}{}
	}

	kept := events[:0]
	for _, ev := range events {
		if _, ok := sent[ev.ClientEventID]; !ok {
			kept = append(kept, ev)
		}
	}

	if len(kept) == len(events) {
		return len(kept), nil
	}

	err = q.save(kept)
	if err != nil {
		return 0, err
	}
	return len(kept), nil
}

// acquire locks the queue against other goroutines and other processes. The
// flock handle is not reentrant, so the mutex is taken first.
func (q *Queue) acquire() (func(), error) {
	q.mu.Lock()

	err := q.lock.Lock()
	if err != nil {
		q.mu.Unlock()
		return nil, fmt.Errorf("failed to lock queue: %w", err)
	}

	return func() {
		unlockErr := q.lock.Unlock()
		if unlockErr != nil {
			slog.Warn("failed to unlock queue", "path", q.path, "error", unlockErr)
		}
		q.mu.Unlock()
	}, nil
}

func (q *Queue) load() ([]Event, error) {
	raw, err := os.ReadFile(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return []Event{}, nil
	}

	var events []Event
	err = json.Unmarshal(raw, &events)
	if err != nil {
		// Keep the unreadable file for inspection and start over.
		aside := fmt.Sprintf("%s.corrupt-%d", q.path, time.Now().Unix())
		renameErr := os.Rename(q.path, aside)
		if renameErr != nil {
			return nil, fmt.Errorf("queue file is corrupt and could not be moved: %w", renameErr)
		}
		slog.Warn("queue file was corrupt, moved aside", "path", aside, "error", err)
		return []Event{}, nil
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

func (q *Queue) save(events []Event) error {
	raw, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}

	err = atomic.WriteFile(q.path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to write queue: %w", err)
	}
	return nil
}
