package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/onnwee/team-sync/store"
	"github.com/onnwee/team-sync/team"
	"github.com/onnwee/team-sync/testutil"
)

// newTestServer wires a real reconciler over a fake guild where member 42
// exists and already holds the "Team: Alpha" role.
func newTestServer(t *testing.T, secret string) (http.Handler, *testutil.FakeDirectory) {
	t.Helper()
	dir := testutil.NewFakeDirectory("guild-1")
	categoryID := dir.SeedChannel("TEAMS", "")
	announceID := dir.SeedChannel("team-spirit", "")
	mutedID := dir.SeedRole("Muted")
	alphaRole := dir.SeedRole("Team: Alpha")
	dir.SeedMember("42", "competitor", alphaRole)

	st, err := store.OpenFile(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatal(err)
	}
	rec := &team.Reconciler{
		Dir: dir,
		Prov: &team.Provisioner{
			Store:             st,
			Dir:               dir,
			AnnounceChannelID: announceID,
			CategoryID:        categoryID,
			MutedRoleID:       mutedID,
			CategoryLimit:     50,
		},
	}
	return NewMux(NewHandlers(rec, nil), secret), dir
}

func postCallback(handler http.Handler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, CallbackPath, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCallbackRejectsBadToken(t *testing.T) {
	handler, dir := newTestServer(t, "s3cr3t")

	for _, token := range []string{"", "wrong", "s3cr3t "} {
		w := postCallback(handler, token, `{"account": {"id": 42}, "team": null}`)
		if w.Code != http.StatusForbidden {
			t.Errorf("token %q: status = %d, want 403", token, w.Code)
		}
	}
	if len(dir.MutationLog()) != 0 {
		t.Errorf("rejected requests caused mutations: %v", dir.MutationLog())
	}
}

func TestCallbackRemovesTeamOnNullTeam(t *testing.T) {
	handler, dir := newTestServer(t, "s3cr3t")

	w := postCallback(handler, "s3cr3t", `{"account": {"id": 42}, "team": null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", w.Code, w.Body.String())
	}
	if held := dir.MemberRoles("42"); len(held) != 0 {
		t.Errorf("member still holds roles %v", held)
	}
	for _, m := range dir.MutationLog() {
		if strings.HasPrefix(m, "add-role") || strings.HasPrefix(m, "create-role") {
			t.Errorf("unexpected mutation %q", m)
		}
	}
}

func TestCallbackAssignsNewTeam(t *testing.T) {
	handler, dir := newTestServer(t, "s3cr3t")

	w := postCallback(handler, "s3cr3t", `{"account": {"id": 42}, "team": {"id": 7, "name": "Beta"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", w.Code, w.Body.String())
	}
	held := dir.MemberRoles("42")
	if len(held) != 1 {
		t.Fatalf("member holds %d roles, want 1", len(held))
	}
	role, err := dir.RoleByID(context.Background(), held[0])
	if err != nil {
		t.Fatal(err)
	}
	if role.Name != "Team: Beta" {
		t.Errorf("held role = %q", role.Name)
	}
}

func TestCallbackUnknownMemberStillOK(t *testing.T) {
	handler, dir := newTestServer(t, "s3cr3t")

	w := postCallback(handler, "s3cr3t", `{"account": {"id": 999}, "team": null}`)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for absent member", w.Code)
	}
	if len(dir.MutationLog()) != 0 {
		t.Errorf("absent member caused mutations: %v", dir.MutationLog())
	}
}

func TestCallbackBadPayload(t *testing.T) {
	handler, _ := newTestServer(t, "s3cr3t")
	w := postCallback(handler, "s3cr3t", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCallbackMethodNotAllowed(t *testing.T) {
	handler, _ := newTestServer(t, "s3cr3t")
	req := httptest.NewRequest(http.MethodGet, CallbackPath, nil)
	req.Header.Set("Authorization", "Bearer s3cr3t")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	handler, _ := newTestServer(t, "s3cr3t")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/healthz = %d, want 200", w.Code)
	}
	if corr := w.Header().Get("X-Correlation-ID"); corr == "" {
		t.Error("missing X-Correlation-ID header")
	}

	failing := NewMux(NewHandlers(nil, func(context.Context) error { return errors.New("gateway down") }), "s")
	w = httptest.NewRecorder()
	failing.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz = %d, want 503", w.Code)
	}
}
