package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FakeServer is an in-process nutrition server.
//
// It issues tokens on /api/mac, accepts meal documents on /api/comidas and
// revokes tokens on /api/logout_mac. Uploads with an unknown token get
// 401. Failures can be scripted per upload.
//
// Thread-safety: All methods are safe for concurrent use.
type FakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	tokens   map[string]bool
	issued   int
	uploads  [][]byte
	logouts  int
	failures []int
	tokenErr int
}

// NewFakeServer starts a server and closes it when the test ends.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()
	s := &FakeServer{tokens: map[string]bool{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mac", s.handleToken)
	mux.HandleFunc("/api/comidas", s.handleUpload)
	mux.HandleFunc("/api/logout_mac", s.handleLogout)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

// FailUploads makes the next uploads answer with the given statuses, in
// order. A zero status lets that upload through.
func (s *FakeServer) FailUploads(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// FailTokens makes token requests answer with status until reset with 0.
func (s *FakeServer) FailTokens(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenErr = status
}

// Uploads returns the accepted documents in arrival order.
func (s *FakeServer) Uploads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.uploads))
	copy(out, s.uploads)
	return out
}

// TokensIssued returns how many tokens were handed out.
func (s *FakeServer) TokensIssued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

// Logouts returns how many tokens were revoked.
func (s *FakeServer) Logouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts
}

func (s *FakeServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		MAC string `json:"mac"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MAC == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.tokenErr != 0 {
		status := s.tokenErr
		s.mu.Unlock()
		w.WriteHeader(status)
		return
	}
	s.issued++
	token := fmt.Sprintf("token-%d", s.issued)
	s.tokens[token] = true
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (s *FakeServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokens[bearer(r)] {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if len(s.failures) > 0 {
		status := s.failures[0]
		s.failures = s.failures[1:]
		if status != 0 {
			w.WriteHeader(status)
			return
		}
	}
	s.uploads = append(s.uploads, body)
	w.WriteHeader(http.StatusCreated)
}

func (s *FakeServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := bearer(r)
	if !s.tokens[token] {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	delete(s.tokens, token)
	s.logouts++
	w.WriteHeader(http.StatusOK)
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
