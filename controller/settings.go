package controller

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

// DefaultTenant is used when no tenant is configured.
const DefaultTenant = "admin"

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 60 * time.Second

// DefaultRetries is the default number of retries for idempotent requests.
const DefaultRetries = 3

// HTTPClient is the client to use for communication.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Settings configure a controller session.
type Settings struct {
	// Controller address. A bare host is used with https.
	Controller string
	Username   string
	Password   string

	// Default scope for requests that do not set one.
	Tenant     string
	TenantUUID string

	// APIVersion is sent as X-Avi-Version. Empty uses the controller
	// default.
	APIVersion string

	// Timeout per request. If zero, DefaultTimeout is used.
	Timeout time.Duration

	// Insecure skips TLS certificate verification.
	Insecure bool

	// Retries is the number of times an idempotent request is retried on a
	// transport error. If zero, DefaultRetries is used; negative disables
	// retries.
	Retries int

	// HTTPClient overrides the client built from the settings.
	HTTPClient HTTPClient

	// Backoff algorithm used for retries. If not set, exponential backoff is
	// used.
	Backoff func() backoff.BackOff

	// Logger logs requests. If not set, logs are discarded.
	Logger *zap.Logger
}

func (s Settings) tenant() string {
	if s.Tenant == "" {
		return DefaultTenant
	}
	return s.Tenant
}

func (s Settings) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s Settings) retries() uint64 {
	switch {
	case s.Retries < 0:
		return 0
	case s.Retries == 0:
		return DefaultRetries
	}
	return uint64(s.Retries)
}

// Scope selects the tenant a request runs in. Empty fields fall back to the
// session settings.
type Scope struct {
	Tenant     string
	TenantUUID string
}
