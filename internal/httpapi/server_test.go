package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/keshon/accountability-bot/datastore"
	"github.com/keshon/accountability-bot/internal/channels"
	"github.com/keshon/accountability-bot/internal/engagement"
	"github.com/keshon/accountability-bot/internal/persona"
)

type fakeStore struct{}

func (fakeStore) Stats() datastore.Stats { return datastore.Stats{Keys: 3, Saved: true} }

type fakeSchedule []channels.DueState

func (f fakeSchedule) Schedule() []channels.DueState { return f }

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *engagement.Ledger) {
	t.Helper()
	ledger := engagement.NewLedger(func() time.Time { return testNow })
	reg := persona.Default()
	faith, _ := reg.Get("faith")
	health, _ := reg.Get("health")

	gatherer := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_hits_total", Help: "test"})
	gatherer.MustRegister(counter)
	counter.Inc()

	s := NewServer(Deps{
		Ledger:  ledger,
		Weights: engagement.DefaultWeights(),
		Scheduler: fakeSchedule{
			{Persona: faith, NextCheckAt: testNow.Add(90 * time.Minute)},
			{Persona: health, NextCheckAt: testNow.Add(-time.Minute)},
		},
		Gatherer: gatherer,
		Store:    fakeStore{},
	}, zerolog.Nop())
	s.now = func() time.Time { return testNow }
	return s, ledger
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body healthView
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Store == nil || body.Store.Keys != 3 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "test_hits_total 1") {
		t.Fatalf("unexpected metrics response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLeaderboard(t *testing.T) {
	s, ledger := newTestServer(t)
	ledger.RecordResponse("faith", "alice")   // 2*3 = 6
	ledger.RecordResponse("health", "bob")    // 2*2 = 4
	ledger.RecordCheck("daily-checkins", "c") // 1*1.5

	rec := get(t, s, "/api/leaderboard?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var board []engagement.LeaderboardEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &board); err != nil {
		t.Fatal(err)
	}
	if len(board) != 2 || board[0].UserID != "alice" || board[1].UserID != "bob" {
		t.Fatalf("unexpected board %+v", board)
	}
	if board[0].TotalScore != 6 {
		t.Fatalf("expected 6 points, got %v", board[0].TotalScore)
	}
}

func TestLeaderboardEmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/leaderboard")
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}
}

func TestLeaderboardRejectsBadLimit(t *testing.T) {
	s, _ := newTestServer(t)
	for _, q := range []string{"limit=abc", "limit=0", "limit=-3"} {
		if rec := get(t, s, "/api/leaderboard?"+q); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestChannelStats(t *testing.T) {
	s, ledger := newTestServer(t)
	ledger.RecordResponse("health", "a")
	ledger.RecordCheck("health", "b")

	rec := get(t, s, "/api/channels/stats")
	var stats []engagement.ChannelStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	st := stats[0]
	if st.Channel != "health" || st.TotalUsers != 2 || st.TotalResponses != 1 || st.TotalCheckins != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestPersonas(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/personas")
	var views []personaView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(views))
	}
	if views[0].Channel != "faith" || views[0].NextCheckIn != "1h30m0s" {
		t.Fatalf("unexpected first persona %+v", views[0])
	}
	if views[1].NextCheckIn != "0s" {
		t.Fatalf("overdue persona should report 0s, got %q", views[1].NextCheckIn)
	}
}
