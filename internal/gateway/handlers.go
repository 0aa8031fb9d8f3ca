package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"portfolio-riskv1/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// ExposureEngine is the slice of the portfolio engine the gateway needs.
type ExposureEngine interface {
	Snapshot() (*model.PortfolioSummary, []model.PortfolioGroup, bool)
	Refresh(ctx context.Context) (*model.PortfolioSummary, error)
}

// Advisor produces commentary for the current summary.
type Advisor interface {
	Commentary(ctx context.Context, summary *model.PortfolioSummary, groups []model.PortfolioGroup) (string, string, error)
}

// Deps bundles what the REST surface talks to. Ratings and Advisor may be
// nil; their endpoints then answer 503.
type Deps struct {
	Engine  ExposureEngine
	Ratings model.RatingStore
	Advisor Advisor
	Start   time.Time
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, deps Deps) {
	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		hub.HandleWSRequest(conn)
	})

	// REST: current portfolio summary
	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		summary, _, ok := snapshot(w, deps)
		if !ok {
			return
		}
		writeJSON(w, summary)
	})

	// REST: per-underlying groups
	mux.HandleFunc("/api/groups", func(w http.ResponseWriter, r *http.Request) {
		_, groups, ok := snapshot(w, deps)
		if !ok {
			return
		}
		writeJSON(w, groups)
	})

	// REST: flattened position table
	mux.HandleFunc("/api/positions", func(w http.ResponseWriter, r *http.Request) {
		_, groups, ok := snapshot(w, deps)
		if !ok {
			return
		}
		writeJSON(w, FlattenPositions(groups))
	})

	// REST: latest stock ratings
	mux.HandleFunc("/api/ratings", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if deps.Ratings == nil {
			writeError(w, http.StatusServiceUnavailable, "ratings store not configured")
			return
		}
		ratings, err := deps.Ratings.LatestRatings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if ratings == nil {
			ratings = []model.Rating{}
		}
		writeJSON(w, ratings)
	})

	// REST: trigger a full refresh. The new summary is broadcast to WS
	// clients and returned to the caller.
	mux.HandleFunc("/api/refresh", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}

		summary, err := deps.Engine.Refresh(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		_, groups, _ := deps.Engine.Snapshot()
		hub.BroadcastSummary(summary, groups)
		writeJSON(w, summary)
	})

	// REST: AI commentary on the current book
	mux.HandleFunc("/api/advisor", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		if deps.Advisor == nil {
			writeError(w, http.StatusServiceUnavailable, "advisor not configured")
			return
		}
		summary, groups, ok := snapshot(w, deps)
		if !ok {
			return
		}
		commentary, modelName, err := deps.Advisor.Commentary(r.Context(), summary, groups)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, AdvisorResponse{Commentary: commentary, Model: modelName})
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		_, _, hasSnapshot := deps.Engine.Snapshot()
		writeJSON(w, map[string]interface{}{
			"status":       "ok",
			"has_snapshot": hasSnapshot,
			"ws_clients":   hub.ClientCount(),
			"uptime_sec":   int64(time.Since(deps.Start).Seconds()),
			"ts":           time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// FlattenPositions turns groups back into one row per position for the
// dashboard table. Stocks come before their options, group order preserved.
func FlattenPositions(groups []model.PortfolioGroup) []PositionOut {
	var out []PositionOut
	for _, g := range groups {
		if g.Stock != nil {
			s := g.Stock
			out = append(out, PositionOut{
				Underlying:           g.Underlying,
				Kind:                 model.KindStock.String(),
				Label:                s.Ticker,
				Quantity:             s.Quantity,
				Price:                s.Price,
				Beta:                 s.Beta,
				Exposure:             s.MarketExposure,
				BetaAdjustedExposure: s.BetaAdjustedExposure,
				CashLike:             s.CashLike,
			})
		}
		for i := range g.Options {
			o := &g.Options[i]
			out = append(out, PositionOut{
				Underlying:           g.Underlying,
				Kind:                 model.KindOption.String(),
				Label:                o.ContractLabel(),
				Quantity:             o.Quantity,
				Price:                o.Price,
				Beta:                 o.UnderlyingBeta,
				Exposure:             o.DeltaExposure,
				BetaAdjustedExposure: o.BetaAdjustedExposure,
				Delta:                o.Delta,
				Notional:             o.NotionalValue,
				Expiry:               o.Expiry.Format("2006-01-02"),
			})
		}
	}
	return out
}

// snapshot writes a 503 and returns ok=false when no refresh has succeeded
// yet.
func snapshot(w http.ResponseWriter, deps Deps) (*model.PortfolioSummary, []model.PortfolioGroup, bool) {
	SetCORS(w)
	summary, groups, ok := deps.Engine.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no summary yet — refresh has not completed")
		return nil, nil, false
	}
	return summary, groups, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
