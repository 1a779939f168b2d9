package models

import (
	"net/http"
	"time"
)

// Timing constants for fetch and refresh operations.
const (
	// DefaultRefreshInterval is the minimum time between manifest
	// refreshes triggered through RefreshIfNeeded.
	DefaultRefreshInterval = time.Hour

	// DefaultRequestTimeout is the default timeout for manifest requests.
	// Artifact transfers carry no timeout beyond the caller's context;
	// multi-gigabyte downloads can legitimately run for hours.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultLockTimeout is the default timeout for acquiring the
	// cross-process fetch lock for an artifact.
	DefaultLockTimeout = 30 * time.Second
)

// FetchOption configures a fetch operation.
type FetchOption func(*fetchConfig)

// fetchConfig holds configuration for a fetch operation.
type fetchConfig struct {
	// force causes re-download even if the model is already downloaded.
	force bool

	// progressFn is called with progress updates during the transfer.
	progressFn func(FetchProgress)
}

// WithForce forces re-download even if the model is already downloaded.
// This is the intended repair path for a file that is marked downloaded
// but suspected corrupt.
func WithForce() FetchOption {
	return func(c *fetchConfig) {
		c.force = true
	}
}

// WithProgress sets a callback for progress updates during a fetch.
// The callback is invoked from the transfer goroutine and must be
// thread-safe.
func WithProgress(fn func(FetchProgress)) FetchOption {
	return func(c *fetchConfig) {
		c.progressFn = fn
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

// managerConfig holds configuration for Manager construction.
type managerConfig struct {
	// httpClient is used for manifest and artifact requests.
	httpClient HTTPClient

	// logger receives diagnostic log messages.
	logger Logger

	// verify checks a downloaded file against an expected digest.
	verify VerifyFunc

	// refreshInterval is the minimum time between manifest refreshes.
	refreshInterval time.Duration

	// seed disables first-run catalog seeding when false.
	seed bool
}

// newManagerConfig returns a managerConfig with default values.
func newManagerConfig() *managerConfig {
	return &managerConfig{
		httpClient:      http.DefaultClient,
		verify:          verifyFileSHA256,
		refreshInterval: DefaultRefreshInterval,
		seed:            true,
	}
}

// WithHTTPClient sets a custom HTTP client for manifest and artifact
// requests. Useful for testing with mock servers or customizing
// timeouts. If not set, http.DefaultClient is used.
func WithHTTPClient(client HTTPClient) ManagerOption {
	return func(c *managerConfig) {
		c.httpClient = client
	}
}

// WithLogger sets a logger for diagnostic output.
// If not set, logging is disabled.
func WithLogger(logger Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

// WithVerifier replaces the checksum verification strategy.
// The default computes the SHA-256 digest of the file at path and
// compares it to the expected lowercase hex string.
func WithVerifier(fn VerifyFunc) ManagerOption {
	return func(c *managerConfig) {
		if fn != nil {
			c.verify = fn
		}
	}
}

// WithRefreshInterval overrides the minimum interval enforced by
// RefreshIfNeeded. Values below zero are treated as zero.
func WithRefreshInterval(d time.Duration) ManagerOption {
	return func(c *managerConfig) {
		if d < 0 {
			d = 0
		}
		c.refreshInterval = d
	}
}

// WithoutSeeding disables first-run seeding of the built-in catalog.
// Intended for tests and for hosts that manage their own seed set.
func WithoutSeeding() ManagerOption {
	return func(c *managerConfig) {
		c.seed = false
	}
}

// VerifyFunc checks the file at path against an expected lowercase hex
// SHA-256 digest, returning ErrIntegrity on mismatch.
type VerifyFunc func(path string, expectedHash string) error

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the interface for diagnostic logging.
// Compatible with slog, zap, logrus, and other structured loggers.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}
