package polympics_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/team-sync/polympics"
	"github.com/onnwee/team-sync/testutil"
)

func TestAccountWithTeam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer app:tok" {
			t.Errorf("auth header = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   42,
			"name": "competitor",
			"team": map[string]any{"id": 7, "name": "Alpha"},
		})
	}))
	defer srv.Close()

	c := &polympics.Client{BaseURL: srv.URL, APIUser: "app", APIToken: "tok"}
	acct, err := c.Account(context.Background(), "42")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acct.ID != 42 || acct.Team == nil || acct.Team.ID != 7 || acct.Team.Name != "Alpha" {
		t.Errorf("account = %+v (team %+v)", acct, acct.Team)
	}
}

func TestAccountWithoutTeam(t *testing.T) {
	mock := testutil.NewMockPolympicsServer(t)
	mock.MockAccountResponse("42", "solo", 0, "")

	c := &polympics.Client{BaseURL: mock.URL}
	acct, err := c.Account(context.Background(), "42")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acct.Team != nil {
		t.Errorf("expected nil team, got %+v", acct.Team)
	}
}

func TestAccountNotFound(t *testing.T) {
	// The mock answers 404 for any account it was not told about.
	mock := testutil.NewMockPolympicsServer(t)

	c := &polympics.Client{BaseURL: mock.URL}
	if _, err := c.Account(context.Background(), "42"); !errors.Is(err, polympics.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAccountRejectsNonNumericID(t *testing.T) {
	c := &polympics.Client{BaseURL: "http://unused"}
	if _, err := c.Account(context.Background(), "not-a-snowflake"); err == nil {
		t.Error("expected error for non-numeric member id")
	}
}

func TestCreateCallback(t *testing.T) {
	var got map[string]string
	mock := testutil.NewMockPolympicsServer(t)
	mock.MockCallbackRegistration(&got)

	c := &polympics.Client{BaseURL: mock.URL}
	err := c.CreateCallback(context.Background(), "account_team_update", "https://bot.example/callback/account_team_update", "s3cr3t")
	if err != nil {
		t.Fatalf("CreateCallback: %v", err)
	}
	if got["event"] != "account_team_update" || got["secret"] != "s3cr3t" {
		t.Errorf("payload = %v", got)
	}
}

func TestUpdateAccountErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &polympics.Client{BaseURL: srv.URL}
	if err := c.UpdateAccount(context.Background(), 42, "n", "0001", ""); err == nil {
		t.Error("expected error on 500 response")
	}
}
