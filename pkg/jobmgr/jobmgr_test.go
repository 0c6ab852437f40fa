package jobmgr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) report(s string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, s)
	r.mu.Unlock()
}

func (r *recorder) has(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m == s {
			return true
		}
	}
	return false
}

func blockUntilCancelled(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestStartAsyncRejectsDuplicates(t *testing.T) {
	m := NewManager(context.Background(), nil)
	if err := m.StartAsync("scheduler", blockUntilCancelled); err != nil {
		t.Fatal(err)
	}
	if err := m.StartAsync("scheduler", blockUntilCancelled); err == nil {
		t.Fatal("expected duplicate job error")
	}
	if got := m.Status(); got != "Running jobs: scheduler" {
		t.Fatalf("Status = %q", got)
	}
	if err := m.Stop("scheduler"); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop("scheduler"); err == nil {
		t.Fatal("stopping a stopped job should fail")
	}
}

func TestStopAllWaitsForJobs(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)
	for _, name := range []string{"a", "b"} {
		if err := m.StartAsync(name, blockUntilCancelled); err != nil {
			t.Fatal(err)
		}
	}
	m.StopAll()
	if len(m.List()) != 0 {
		t.Fatalf("jobs still listed: %v", m.List())
	}
	if !rec.has("done:a") || !rec.has("done:b") {
		t.Fatalf("missing done reports: %v", rec.msgs)
	}
}

func TestParentCancellationStopsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(ctx, nil)
	stopped := make(chan struct{})
	_ = m.StartAsync("http", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return nil
	})
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not observe parent cancellation")
	}
}

func TestErrorsAreReported(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)
	err := m.StartSync("once", func(context.Context) error { return errors.New("boom") })
	if err == nil || !rec.has("error:once:boom") {
		t.Fatalf("expected reported error, got %v / %v", err, rec.msgs)
	}
}
