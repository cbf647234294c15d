package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/catalog"
	"github.com/nerrad567/taller-core/internal/customer"
	"github.com/nerrad567/taller-core/internal/events"
	"github.com/nerrad567/taller-core/internal/infrastructure/config"
	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	"github.com/nerrad567/taller-core/internal/infrastructure/database/dbtest"
	"github.com/nerrad567/taller-core/internal/infrastructure/logging"
	"github.com/nerrad567/taller-core/internal/inventory"
	"github.com/nerrad567/taller-core/internal/job"
	"github.com/nerrad567/taller-core/internal/worker"
	"github.com/nerrad567/taller-core/internal/workshop"
)

const (
	testSecret   = "test-secret-key-at-least-32-characters-long"
	testPassword = "correct-horse-battery"
)

// testEnv is a server wired to real repositories on a migrated database.
type testEnv struct {
	t       *testing.T
	srv     *Server
	db      *database.DB
	handler http.Handler
	bus     *events.Bus
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "text"}, "test")
}

// newTestServer wires a server to real repositories on db without
// starting anything.
func newTestServer(t *testing.T, db *database.DB, apiCfg config.APIConfig) (*Server, *events.Bus) {
	t.Helper()

	log := testLogger()
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{Secret: testSecret, TTL: 30 * time.Minute})
	if err != nil {
		t.Fatalf("NewTokenIssuer() error: %v", err)
	}
	users := auth.NewUserRepository(db)
	bus := events.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))

	srv, err := New(Deps{
		Config: apiCfg,
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:    log,
		Auth:      auth.NewService(users, issuer, log.Logger),
		Resolver:  auth.NewResolver(issuer, users),
		Users:     users,
		Workshops: workshop.NewRepository(db),
		Customers: customer.NewRepository(db),
		Catalog:   catalog.NewRepository(db),
		Workers:   worker.NewRepository(db),
		Inventory: inventory.NewRepository(db),
		Jobs:      job.NewRepository(db),
		Audit:     audit.NewRepository(db),
		Events:    bus,
		Health:    map[string]HealthChecker{"database": db},
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, bus
}

// newTestEnv builds a server, starts its background workers and stops
// them when the test ends.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.Open(t)
	srv, bus := newTestServer(t, db, config.APIConfig{Host: "127.0.0.1"})

	ctx, cancel := context.WithCancel(context.Background())
	srv.startBackground(ctx)
	t.Cleanup(func() {
		cancel()
		srv.bgDone.Wait()
	})

	return &testEnv{t: t, srv: srv, db: db, handler: srv.Handler(), bus: bus}
}

// do sends a JSON request. body may be nil, a string or any value to
// marshal.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(data))
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// login posts form credentials and returns the raw response.
func (e *testEnv) login(email, password string) *httptest.ResponseRecorder {
	e.t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// token logs in and returns the access token.
func (e *testEnv) token(email, password string) string {
	e.t.Helper()
	w := e.login(email, password)
	if w.Code != http.StatusOK {
		e.t.Fatalf("login %s: status %d: %s", email, w.Code, w.Body.String())
	}
	var resp tokenResponse
	decode(e.t, w, &resp)
	return resp.AccessToken
}

// signup registers a manager and returns a token for them.
func (e *testEnv) signup(email string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"first_name": "Test",
		"last_name":  "Manager",
		"email":      email,
		"password":   testPassword,
	})
	if w.Code != http.StatusCreated {
		e.t.Fatalf("signup %s: status %d: %s", email, w.Code, w.Body.String())
	}
	return e.token(email, testPassword)
}

// owner signs up a manager and creates their workshop. It returns the
// manager's token and the workshop id.
func (e *testEnv) owner(email, workshopName string) (string, int64) {
	e.t.Helper()
	token := e.signup(email)
	w := e.do(http.MethodPost, "/api/v1/workshops", token, map[string]string{"name": workshopName})
	if w.Code != http.StatusCreated {
		e.t.Fatalf("create workshop: status %d: %s", w.Code, w.Body.String())
	}
	var ws workshop.Workshop
	decode(e.t, w, &ws)
	return token, ws.ID
}

// admin creates an admin account directly and returns its token.
func (e *testEnv) admin() string {
	e.t.Helper()
	const email = "root@example.com"
	_, err := e.srv.auth.CreateUser(context.Background(), auth.NewUser{
		FirstName: "Root",
		LastName:  "Admin",
		Email:     email,
		Password:  testPassword,
		Role:      auth.RoleAdmin,
	})
	if err != nil {
		e.t.Fatalf("creating admin: %v", err)
	}
	return e.token(email, testPassword)
}

// identity resolves token the way authMiddleware does.
func (e *testEnv) identity(token string) auth.Identity {
	e.t.Helper()
	id, err := e.srv.resolver.Resolve(context.Background(), token)
	if err != nil {
		e.t.Fatalf("Resolve() error: %v", err)
	}
	return id
}

// create posts body and decodes the 201 response into out.
func (e *testEnv) create(path, token string, body, out any) {
	e.t.Helper()
	w := e.do(http.MethodPost, path, token, body)
	if w.Code != http.StatusCreated {
		e.t.Fatalf("POST %s: status %d: %s", path, w.Code, w.Body.String())
	}
	decode(e.t, w, out)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

// expectError checks status and error code of a failed response.
func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	var resp Error
	decode(t, w, &resp)
	if resp.Code != code {
		t.Errorf("code = %q, want %q", resp.Code, code)
	}
}

// eventRecorder collects bus deliveries.
type eventRecorder struct {
	ch chan events.Event
}

func (e *testEnv) recordEvents() *eventRecorder {
	rec := &eventRecorder{ch: make(chan events.Event, 64)}
	e.bus.Register("test", events.SinkFunc(func(_ context.Context, ev events.Event) error {
		rec.ch <- ev
		return nil
	}))
	return rec
}

func (r *eventRecorder) next(t *testing.T) events.Event {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

// waitForAudit polls until n entries of entityType reach the database.
// Audit writes are asynchronous.
func waitForAudit(t *testing.T, env *testEnv, entityType string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int
		err := env.db.GetContext(context.Background(), &count,
			env.db.Rebind("SELECT COUNT(*) FROM audit_logs WHERE entity_type = ?"), entityType)
		if err != nil {
			t.Fatalf("counting audit logs: %v", err)
		}
		if count >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("audit entries for %s = %d, want %d", entityType, count, n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
