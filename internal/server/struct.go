package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/courseai/courseai-go/internal/course"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// QueryTimeout bounds the agent round-trip for one POST /api/query call.
	// Defaults to 2 minutes.
	QueryTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry is where server metrics are registered. Defaults to
	// prometheus.DefaultRegisterer. Tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// querier is the interface handleQuery calls to answer a question.
// *agent.Agent satisfies it; tests inject a fake.
type querier interface {
	// Answer runs one query and returns the answer text and its sources.
	Answer(ctx context.Context, query, sessionID string) (string, []course.Source, error)
}

// catalog is the interface handleCourses calls to enumerate indexed courses.
// *rag.QdrantIndex satisfies it; tests inject a fake.
type catalog interface {
	// CourseTitles returns the titles of every indexed course.
	CourseTitles(ctx context.Context) ([]string, error)
}

// Server is the HTTP server that wraps the course assistant agent.
type Server struct {
	// querier answers POST /api/query requests.
	querier querier
	// catalog backs GET /api/courses.
	catalog catalog
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Query is the user's natural language question.
	Query string `json:"query"`
	// SessionID identifies the conversation thread. Optional; the server
	// mints a new one when absent.
	SessionID string `json:"session_id,omitempty"`
}

// queryResponse is the JSON response for POST /api/query.
type queryResponse struct {
	// Answer is the assistant's final answer text.
	Answer string `json:"answer"`
	// Sources lists the course material backing the answer. Empty when the
	// model answered without consulting the index.
	Sources []course.Source `json:"sources"`
	// SessionID echoes the conversation thread id, minted if the request
	// carried none.
	SessionID string `json:"session_id"`
}

// coursesResponse is the JSON response for GET /api/courses.
type coursesResponse struct {
	// CourseCount is the number of indexed courses.
	CourseCount int `json:"course_count"`
	// CourseTitles lists the indexed course titles in sorted order.
	CourseTitles []string `json:"course_titles"`
}
