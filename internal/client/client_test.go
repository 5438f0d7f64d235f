package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, valence string) Event {
	t.Helper()

	ev, err := NewEvent(valence, 0, []string{" Walk ", "walk"}, "  pulled at the corner ")
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	return ev
}

func TestNewEvent(t *testing.T) {
	ev := mustEvent(t, "positive")

	if ev.ClientEventID == "" {
		t.Error("ClientEventID is empty")
	}
	if ev.Intensity != 3 {
		t.Errorf("Intensity = %d, want default 3", ev.Intensity)
	}
	if len(ev.Tags) != 1 || ev.Tags[0] != "walk" {
		t.Errorf("Tags = %v, want [walk]", ev.Tags)
	}
	if ev.Notes == nil || *ev.Notes != "pulled at the corner" {
		t.Errorf("Notes = %v", ev.Notes)
	}

	other := mustEvent(t, "positive")
	if other.ClientEventID == ev.ClientEventID {
		t.Error("two events share a ClientEventID")
	}

	_, err := NewEvent("meh", 3, nil, "")
	if err == nil {
		t.Error("NewEvent accepted an invalid valence")
	}
	_, err = NewEvent("negative", 9, nil, "")
	if err == nil {
		t.Error("NewEvent accepted intensity 9")
	}
}

func TestQueueAppendSnapshotRemove(t *testing.T) {
	dir := t.TempDir()
	q, err := OpenQueue(dir)
	if err != nil {
		t.Fatal(err)
	}

	a, b, c := mustEvent(t, "positive"), mustEvent(t, "negative"), mustEvent(t, "positive")
	for i, ev := range []Event{a, b, c} {
		n, err := q.Append(ev)
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if n != i+1 {
			t.Errorf("Append() len = %d, want %d", n, i+1)
		}
	}

	// A second handle on the same dir sees the persisted queue in order.
	reopened, err := OpenQueue(dir)
	if err != nil {
		t.Fatal(err)
	}
	events, err := reopened.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 || events[0].ClientEventID != a.ClientEventID || events[2].ClientEventID != c.ClientEventID {
		t.Fatalf("Snapshot() = %v", events)
	}

	remaining, err := q.Remove([]string{a.ClientEventID, c.ClientEventID, "unknown"})
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 1 {
		t.Errorf("Remove() remaining = %d, want 1", remaining)
	}

	events, _ = q.Snapshot()
	if len(events) != 1 || events[0].ClientEventID != b.ClientEventID {
		t.Errorf("after Remove queue = %v", events)
	}
}

func TestQueueCorruptFileMovedAside(t *testing.T) {
	dir := t.TempDir()
	q, err := OpenQueue(dir)
	if err != nil {
		t.Fatal(err)
	}

	err = os.WriteFile(q.Path(), []byte("{not json"), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	n, err := q.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, QueueFileName+".corrupt-*"))
	if len(matches) != 1 {
		t.Errorf("corrupt copies = %v, want 1", matches)
	}
}

func TestQueueSharedBetweenHandles(t *testing.T) {
	dir := t.TempDir()
	logger, err := OpenQueue(dir)
	if err != nil {
		t.Fatal(err)
	}
	syncer, err := OpenQueue(dir)
	if err != nil {
		t.Fatal(err)
	}

	seed := mustEvent(t, "negative")
	_, err = syncer.Append(seed)
	if err != nil {
		t.Fatal(err)
	}

	const total = 100
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_, _ = syncer.Remove([]string{seed.ClientEventID})
			_, _ = syncer.Append(seed)
		}
	}()

	want := make(map[string]bool, total)
	for i := 0; i < total; i++ {
		ev := mustEvent(t, "positive")
		want[ev.ClientEventID] = true
		_, err := logger.Append(ev)
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	close(done)
	wg.Wait()

	events, err := logger.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range events {
		delete(want, ev.ClientEventID)
	}
	if len(want) != 0 {
		t.Errorf("lost %d of %d queued events", len(want), total)
	}
}

// fakeServer records batches and can be switched offline.
type fakeServer struct {
	mu      sync.Mutex
	offline bool
	batches [][]Event
	// during runs inside the batch handler before it answers
	during func()
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		offline := f.offline
		f.mu.Unlock()
		if offline {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /events/batch", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		offline, during := f.offline, f.during
		f.mu.Unlock()

		if during != nil {
			during()
		}
		if offline {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"upstream down"}`))
			return
		}

		var req struct {
			Events []Event `json:"events"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		f.batches = append(f.batches, req.Events)
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]any{"saved_count": len(req.Events), "events": []any{}})
	})
	return mux
}

func (f *fakeServer) setOffline(v bool) {
	f.mu.Lock()
	f.offline = v
	f.mu.Unlock()
}

func (f *fakeServer) setDuring(fn func()) {
	f.mu.Lock()
	f.during = fn
	f.mu.Unlock()
}

func (f *fakeServer) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func newSyncFixture(t *testing.T) (*fakeServer, *Queue, *Syncer) {
	t.Helper()

	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	q, err := OpenQueue(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return fake, q, NewSyncer(q, NewAPI(srv.URL, time.Second))
}

func TestSyncSuccessClearsSentEvents(t *testing.T) {
	fake, q, s := newSyncFixture(t)
	q.Append(mustEvent(t, "positive"))
	q.Append(mustEvent(t, "negative"))

	var hooked Result
	s.OnSynced = func(r Result) { hooked = r }

	result, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.Synced != 2 || result.Pending != 0 || result.Offline {
		t.Errorf("Sync() = %+v", result)
	}
	if hooked.Synced != 2 {
		t.Errorf("OnSynced saw %+v", hooked)
	}
	fake.mu.Lock()
	if len(fake.batches) != 1 || len(fake.batches[0]) != 2 {
		t.Errorf("server got batches %v, want one batch of 2", fake.batches)
	}
	fake.mu.Unlock()

	// Nothing left to send.
	result, _ = s.Sync(context.Background())
	if result.Synced != 0 || fake.batchCount() != 1 {
		t.Errorf("empty sync sent a batch: %+v", result)
	}
}

func TestSyncFailureKeepsQueue(t *testing.T) {
	fake, q, s := newSyncFixture(t)
	fake.setOffline(true)
	q.Append(mustEvent(t, "positive"))

	result, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !result.Offline || result.Pending != 1 || result.Synced != 0 {
		t.Errorf("Sync() = %+v", result)
	}

	var apiErr *APIError
	if !errors.As(result.Cause, &apiErr) || apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream down" {
		t.Errorf("Cause = %v", result.Cause)
	}

	n, _ := q.Len()
	if n != 1 {
		t.Errorf("queue len = %d, want 1", n)
	}

	// The retry sends the same event again, keyed by the same id.
	fake.setOffline(false)
	result, _ = s.Sync(context.Background())
	if result.Synced != 1 {
		t.Errorf("retry = %+v", result)
	}
}

func TestSyncKeepsEventsQueuedMidFlight(t *testing.T) {
	fake, q, s := newSyncFixture(t)
	q.Append(mustEvent(t, "positive"))

	late := mustEvent(t, "negative")
	fake.setDuring(func() {
		_, err := q.Append(late)
		if err != nil {
			t.Errorf("Append during sync: %v", err)
		}
	})

	result, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Synced != 1 || result.Pending != 1 {
		t.Errorf("Sync() = %+v", result)
	}

	events, _ := q.Snapshot()
	if len(events) != 1 || events[0].ClientEventID != late.ClientEventID {
		t.Errorf("queue after sync = %v, want only the late event", events)
	}
}

func TestSyncSingleFlight(t *testing.T) {
	fake, q, s := newSyncFixture(t)
	q.Append(mustEvent(t, "positive"))

	entered := make(chan struct{})
	release := make(chan struct{})
	fake.setDuring(func() {
		close(entered)
		<-release
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Sync(context.Background())
	}()

	<-entered
	_, err := s.Sync(context.Background())
	if !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent Sync() error = %v, want ErrSyncInProgress", err)
	}
	close(release)
	<-done
}

func TestWatchSyncsWhenServerReturns(t *testing.T) {
	fake, q, s := newSyncFixture(t)
	fake.setOffline(true)
	q.Append(mustEvent(t, "positive"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results := make(chan Result, 4)
	go s.Watch(ctx, 20*time.Millisecond, func(r Result) { results <- r })

	time.Sleep(60 * time.Millisecond)
	if fake.batchCount() != 0 {
		t.Fatal("synced while offline")
	}

	fake.setOffline(false)
	select {
	case r := <-results:
		if r.Synced != 1 {
			t.Errorf("Watch result = %+v", r)
		}
	case <-ctx.Done():
		t.Fatal("Watch never synced after the server came back")
	}
	cancel()
}

func TestWatchRejectsNonPositiveInterval(t *testing.T) {
	_, _, s := newSyncFixture(t)

	for _, interval := range []time.Duration{0, -time.Second} {
		err := s.Watch(context.Background(), interval, nil)
		if !errors.Is(err, ErrBadInterval) {
			t.Errorf("Watch(%v) error = %v, want ErrBadInterval", interval, err)
		}
	}
}

func TestNoticeTakenOnce(t *testing.T) {
	dir := t.TempDir()

	n, err := TakeNotice(dir)
	if err != nil || n != nil {
		t.Fatalf("TakeNotice() on empty dir = %v, %v", n, err)
	}

	err = SaveNotice(dir, NoticeFor(&GenerationResult{GenerationMode: "cloud"}))
	if err != nil {
		t.Fatal(err)
	}

	n, err = TakeNotice(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n == nil || n.Mode != NoticeModeCloud || !strings.Contains(n.Notice, "AI steps ready") {
		t.Errorf("TakeNotice() = %+v", n)
	}

	n, _ = TakeNotice(dir)
	if n != nil {
		t.Errorf("second TakeNotice() = %+v, want nil", n)
	}
}
