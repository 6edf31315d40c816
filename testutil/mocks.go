package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockPolympicsServer creates a test server that mocks Polympics API responses
type MockPolympicsServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockPolympicsServer creates a new mock Polympics API server
func NewMockPolympicsServer(t *testing.T) *MockPolympicsServer {
	t.Helper()
	m := &MockPolympicsServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockAccountResponse adds a handler for /accounts/{id} returning an account,
// optionally on a team (teamID 0 means no team).
func (m *MockPolympicsServer) MockAccountResponse(accountID, name string, teamID int64, teamName string) {
	m.Handlers["/accounts/"+accountID] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"id":   json.Number(accountID),
			"name": name,
			"team": nil,
		}
		if teamID != 0 {
			response["team"] = map[string]interface{}{"id": teamID, "name": teamName}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockCallbackRegistration adds a handler for POST /callbacks/ that records
// the registration payload into dst.
func (m *MockPolympicsServer) MockCallbackRegistration(dst *map[string]string) {
	m.Handlers["/callbacks/"] = func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload) //nolint:errcheck // test mock request
		if dst != nil {
			*dst = payload
		}
		w.WriteHeader(http.StatusCreated)
	}
}
