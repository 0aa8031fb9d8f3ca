package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"portfolio-riskv1/internal/model"
)

// fakeEngine is a canned ExposureEngine for handler tests.
type fakeEngine struct {
	summary    *model.PortfolioSummary
	groups     []model.PortfolioGroup
	refreshErr error
	refreshes  int
}

func (f *fakeEngine) Snapshot() (*model.PortfolioSummary, []model.PortfolioGroup, bool) {
	if f.summary == nil {
		return nil, nil, false
	}
	return f.summary, f.groups, true
}

func (f *fakeEngine) Refresh(_ context.Context) (*model.PortfolioSummary, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.summary, nil
}

func testSummary() *model.PortfolioSummary {
	return &model.PortfolioSummary{
		NetMarketExposure:      5000,
		PortfolioBeta:          1.2,
		CashLikeValue:          1000,
		PortfolioEstimateValue: 6000,
		ComputedAt:             time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC),
	}
}

func testGroups() []model.PortfolioGroup {
	stock := &model.StockPosition{Ticker: "AAPL", Quantity: 100, Price: 150, Beta: 1.2}
	stock.Recompute()
	opt := model.OptionPosition{
		Symbol: "-AAPL250117C150", Underlying: "AAPL", Quantity: 1,
		Strike: 150, Expiry: time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC),
		Type: model.Call, UnderlyingPrice: 150, UnderlyingBeta: 1.2,
	}
	opt.RecomputeWithDelta(0.55)
	return []model.PortfolioGroup{{
		Underlying: "AAPL",
		Stock:      stock,
		Options:    []model.OptionPosition{opt},
	}}
}

func newTestServer(t *testing.T, deps Deps) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub()
	mux := http.NewServeMux()
	RegisterRoutes(mux, hub, deps)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hub
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestHandlers_SummaryAndGroups(t *testing.T) {
	eng := &fakeEngine{summary: testSummary(), groups: testGroups()}
	srv, _ := newTestServer(t, Deps{Engine: eng, Start: time.Now()})

	var summary model.PortfolioSummary
	resp := getJSON(t, srv.URL+"/api/summary", &summary)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status: %d", resp.StatusCode)
	}
	if summary.NetMarketExposure != 5000 || summary.PortfolioEstimateValue != 6000 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	var groups []model.PortfolioGroup
	getJSON(t, srv.URL+"/api/groups", &groups)
	if len(groups) != 1 || groups[0].Underlying != "AAPL" {
		t.Errorf("unexpected groups: %+v", groups)
	}
}

func TestHandlers_NoSnapshotIs503(t *testing.T) {
	srv, _ := newTestServer(t, Deps{Engine: &fakeEngine{}, Start: time.Now()})

	for _, path := range []string{"/api/summary", "/api/groups", "/api/positions"} {
		resp := getJSON(t, srv.URL+path, nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s before first refresh: expected 503, got %d", path, resp.StatusCode)
		}
	}
}

func TestHandlers_PositionsFlattened(t *testing.T) {
	eng := &fakeEngine{summary: testSummary(), groups: testGroups()}
	srv, _ := newTestServer(t, Deps{Engine: eng, Start: time.Now()})

	var positions []PositionOut
	getJSON(t, srv.URL+"/api/positions", &positions)
	if len(positions) != 2 {
		t.Fatalf("expected 2 rows (stock + option), got %d", len(positions))
	}
	if positions[0].Kind != "STOCK" || positions[0].Label != "AAPL" {
		t.Errorf("row 0: %+v", positions[0])
	}
	if positions[1].Kind != "OPTION" || !strings.Contains(positions[1].Label, "CALL") {
		t.Errorf("row 1: %+v", positions[1])
	}
	if positions[1].Delta != 0.55 {
		t.Errorf("option delta: %v", positions[1].Delta)
	}
}

func TestHandlers_RefreshPostOnly(t *testing.T) {
	eng := &fakeEngine{summary: testSummary()}
	srv, _ := newTestServer(t, Deps{Engine: eng, Start: time.Now()})

	resp := getJSON(t, srv.URL+"/api/refresh", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET refresh: expected 405, got %d", resp.StatusCode)
	}

	post, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST refresh: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusOK {
		t.Errorf("POST refresh: expected 200, got %d", post.StatusCode)
	}
	if eng.refreshes != 1 {
		t.Errorf("expected 1 refresh, got %d", eng.refreshes)
	}
}

func TestHandlers_RefreshFailureIs502(t *testing.T) {
	eng := &fakeEngine{summary: testSummary(), refreshErr: errors.New("market source down")}
	srv, _ := newTestServer(t, Deps{Engine: eng, Start: time.Now()})

	post, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST refresh: %v", err)
	}
	defer post.Body.Close()
	if post.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", post.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(post.Body).Decode(&body)
	if !strings.Contains(body["error"], "market source down") {
		t.Errorf("error body: %v", body)
	}
}

func TestHandlers_RatingsUnconfiguredIs503(t *testing.T) {
	srv, _ := newTestServer(t, Deps{Engine: &fakeEngine{summary: testSummary()}, Start: time.Now()})
	resp := getJSON(t, srv.URL+"/api/ratings", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without ratings store, got %d", resp.StatusCode)
	}
}

func TestHandlers_Health(t *testing.T) {
	srv, _ := newTestServer(t, Deps{Engine: &fakeEngine{summary: testSummary()}, Start: time.Now()})

	var health struct {
		Status      string `json:"status"`
		HasSnapshot bool   `json:"has_snapshot"`
		WSClients   int    `json:"ws_clients"`
	}
	resp := getJSON(t, srv.URL+"/health", &health)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status code: %d", resp.StatusCode)
	}
	if health.Status != "ok" || !health.HasSnapshot {
		t.Errorf("health: %+v", health)
	}
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	eng := &fakeEngine{summary: testSummary(), groups: testGroups()}
	srv, hub := newTestServer(t, Deps{Engine: eng, Start: time.Now()})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()

	// Give the hub a moment to register the client.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 ws client, got %d", hub.ClientCount())
	}

	hub.BroadcastSummary(eng.summary, eng.groups)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ws read: %v", err)
	}
	var env SummaryEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("envelope decode: %v\nraw: %s", err, msg)
	}
	if env.Type != "summary" || env.Summary == nil {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if env.Summary.NetMarketExposure != 5000 {
		t.Errorf("summary payload: %+v", env.Summary)
	}
}

func TestHub_LatestReplayedToNewClient(t *testing.T) {
	eng := &fakeEngine{summary: testSummary(), groups: testGroups()}
	srv, hub := newTestServer(t, Deps{Engine: eng, Start: time.Now()})

	// Broadcast before anyone connects.
	hub.BroadcastSummary(eng.summary, eng.groups)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ws read: %v", err)
	}
	var env SummaryEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("envelope decode: %v", err)
	}
	if env.Seq != 1 {
		t.Errorf("expected replayed seq 1, got %d", env.Seq)
	}
}
