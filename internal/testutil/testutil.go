package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/api"
	"github.com/farmercorner/motor-dashboard/internal/config"
	"github.com/farmercorner/motor-dashboard/internal/observability"
	"github.com/farmercorner/motor-dashboard/internal/repository"
	"github.com/farmercorner/motor-dashboard/internal/repository/memory"
	repoMongo "github.com/farmercorner/motor-dashboard/internal/repository/mongo"
	repoPostgres "github.com/farmercorner/motor-dashboard/internal/repository/postgres"
	"github.com/farmercorner/motor-dashboard/internal/service"
	"github.com/farmercorner/motor-dashboard/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcMongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_farmer_corner"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := repoPostgres.NewConnection(dsn, DiscardLogger())
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup closes the pool and terminates the container
func (tdb *TestDB) Cleanup() {
	if sqlDB, err := tdb.DB.DB(); err == nil {
		sqlDB.Close()
	}
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"phase_detections",
		"motor_activities",
		"sessions",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestMongo manages a testcontainers MongoDB instance
type TestMongo struct {
	Container *tcMongo.MongoDBContainer
	DB        *mongo.Database
}

// NewTestMongo starts MongoDB and returns a database with indexes in place
func NewTestMongo(t *testing.T) *TestMongo {
	t.Helper()

	ctx := context.Background()

	container, err := tcMongo.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongodb container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := repoMongo.NewConnection(ctx, uri, "test_farmer_corner")
	if err != nil {
		t.Fatalf("failed to connect to mongodb: %v", err)
	}

	tm := &TestMongo{Container: container, DB: db}
	t.Cleanup(func() {
		db.Client().Disconnect(context.Background())
		container.Terminate(context.Background())
	})
	return tm
}

// Truncate removes every document from the dashboard collections
func (tm *TestMongo) Truncate(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		repoMongo.CollectionUsers,
		repoMongo.CollectionSessions,
		repoMongo.CollectionMotorActivities,
		repoMongo.CollectionPhaseDetections,
	} {
		if _, err := tm.DB.Collection(name).DeleteMany(context.Background(), map[string]interface{}{}); err != nil {
			t.Logf("warning: failed to clear %s: %v", name, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:                   "0", // Random port
		Environment:            "test",
		StorageDriver:          config.DriverMemory,
		SessionSecret:          "test-session-secret-for-testing-only",
		SessionCookieName:      "farmer_sid",
		SessionTTL:             time.Hour,
		SessionCleanupInterval: 0,
		BcryptCost:             4, // Fast hashing for tests
		ActivityDefaultLimit:   5,
		ActivityMaxLimit:       100,
		RequestTimeout:         5 * time.Second,
		CORSAllowed:            "*",
		LogFormat:              "text",
		LogLevel:               "error",
	}
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	Store    *memory.Store
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Metrics  *observability.Metrics
	Config   *config.Config
}

// ServerOption adjusts the wiring before the server starts
type ServerOption func(*service.Deps)

// WithPhaseDetector replaces the random phase source
func WithPhaseDetector(d service.PhaseDetector) ServerOption {
	return func(deps *service.Deps) { deps.Detector = d }
}

// WithRepositories swaps the memory store for another backend
func WithRepositories(repos *repository.Repositories) ServerOption {
	return func(deps *service.Deps) { deps.Repos = repos }
}

// WithTrustedProxy makes the router take the client IP from proxy headers
func WithTrustedProxy() ServerOption {
	return func(deps *service.Deps) { deps.Config.TrustProxyHeaders = true }
}

// NewTestServer creates a complete memory-backed test server
func NewTestServer(t *testing.T, opts ...ServerOption) *TestServer {
	t.Helper()

	cfg := TestConfig()
	log := DiscardLogger()
	store := memory.NewStore()
	metrics := observability.NewMetrics()

	hub := websocket.NewHub(metrics, log)
	go hub.Run()

	deps := service.Deps{
		Repos:     store.Repositories(),
		Config:    cfg,
		Metrics:   metrics,
		Publisher: hub,
		Logger:    log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	services, err := service.NewServices(deps)
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}
	router := api.NewRouter(services, hub, metrics, cfg, log)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		Store:    store,
		Repos:    deps.Repos,
		Services: services,
		Hub:      hub,
		Metrics:  metrics,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api%s", ts.Server.URL, path)
}

// WebSocketURL returns the live feed URL
func (ts *TestServer) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/api/ws"
}

// NewClient returns an HTTP client with its own cookie jar, i.e. a fresh
// browser.
func (ts *TestServer) NewClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}
