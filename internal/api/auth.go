package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/auth"
)

// Auth constants.
const (
	// ticketTTL is how long a WebSocket ticket is valid.
	ticketTTL = 60 * time.Second

	// ticketBytes is the number of random bytes used for WebSocket tickets.
	ticketBytes = 32

	// maxLoginFormMemory bounds the in-memory part of a multipart login form.
	maxLoginFormMemory = 64 << 10

	tokenTypeBearer = "bearer"
)

// tokenResponse is returned by login and password change.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Message     string `json:"message,omitempty"`
}

// handleLogin authenticates form credentials and returns a bearer token.
// The username field carries the email address.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := parseLoginForm(r); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "username and password are required")
		return
	}

	token, user, err := s.auth.Login(r.Context(), username, password)
	if err != nil {
		if isClientError(err) {
			s.logger.Info("login failed", "remote_addr", r.RemoteAddr, "request_id", requestIDFrom(r.Context()))
		}
		s.writeDomainError(w, r, err)
		return
	}

	r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		WorkshopID: user.WorkshopID,
	}))
	s.auditLog(r, audit.ActionLogin, "user", user.ID, 0, nil)

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: tokenTypeBearer})
}

// parseLoginForm accepts both urlencoded and multipart bodies.
func parseLoginForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxLoginFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// handleSignup registers a self-service manager account with no workshop.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	user, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, "user", user.ID, 0, map[string]any{"signup": true})
	writeJSON(w, http.StatusCreated, user)
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the JWT in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.tickets.issue(identityFrom(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// isClientError reports whether err maps to a 4xx response.
func isClientError(err error) bool {
	status, _ := classify(err)
	return status >= 400 && status < 500
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
	now     func() time.Time
}

type ticketEntry struct {
	expiresAt time.Time
	identity  auth.Identity
}

func newTicketStore() *ticketStore {
	return &ticketStore{
		tickets: make(map[string]ticketEntry),
		now:     time.Now,
	}
}

// issue stores a new ticket for id.
func (ts *ticketStore) issue(id auth.Identity) (string, error) {
	b := make([]byte, ticketBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	ticket := hex.EncodeToString(b)

	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{
		expiresAt: ts.now().Add(ticketTTL),
		identity:  id,
	}
	ts.mu.Unlock()

	return ticket, nil
}

// redeem consumes a ticket. A ticket works once, and only before it expires.
func (ts *ticketStore) redeem(ticket string) (auth.Identity, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return auth.Identity{}, false
	}
	delete(ts.tickets, ticket)

	if !ts.now().Before(entry.expiresAt) {
		return auth.Identity{}, false
	}
	return entry.identity, true
}

// sweep removes expired tickets.
func (ts *ticketStore) sweep() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

func (ts *ticketStore) len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.tickets)
}

// cleanTicketsLoop sweeps expired tickets periodically until the context
// is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickets.sweep()
		}
	}
}
