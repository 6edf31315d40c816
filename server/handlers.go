package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/onnwee/team-sync/team"
	"github.com/onnwee/team-sync/telemetry"
)

// Reconciler is the slice of the core the webhook path needs.
type Reconciler interface {
	Reconcile(ctx context.Context, memberID string, t *team.Team) error
}

// Handlers carries the dependencies of the HTTP endpoints.
type Handlers struct {
	reconciler Reconciler
	ready      func(ctx context.Context) error
}

// NewHandlers builds the endpoint set. ready reports whether the store and the
// Discord gateway are reachable; nil means always ready.
func NewHandlers(reconciler Reconciler, ready func(ctx context.Context) error) *Handlers {
	return &Handlers{reconciler: reconciler, ready: ready}
}

// accountTeamUpdate is the webhook payload: which account changed, and the
// team they are now on (null when they left their team).
type accountTeamUpdate struct {
	Account struct {
		ID int64 `json:"id"`
	} `json:"account"`
	Team *struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
}

// HandleAccountTeamUpdate processes one pushed membership change. The
// member-not-found case is an expected race and still answers 200; only
// processing failures surface as 500.
func (h *Handlers) HandleAccountTeamUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if telemetry.WebhookRequests != nil {
		telemetry.WebhookRequests.Inc()
	}

	var payload accountTeamUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	memberID := strconv.FormatInt(payload.Account.ID, 10)
	var t *team.Team
	if payload.Team != nil {
		t = &team.Team{ID: strconv.FormatInt(payload.Team.ID, 10), Name: payload.Team.Name}
	}

	log := telemetry.LoggerWithCorr(r.Context())
	if err := h.reconciler.Reconcile(r.Context(), memberID, t); err != nil {
		log.Error("webhook reconcile failed", slog.String("member", memberID), slog.Any("err", err), slog.String("component", "webhook"))
		http.Error(w, "reconcile failed", http.StatusInternalServerError)
		return
	}
	log.Info("webhook reconciled", slog.String("member", memberID), slog.Bool("has_team", t != nil), slog.String("component", "webhook"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests: ready once the store and
// the Discord gateway are reachable.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready", "error": err.Error()})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
