package controller

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// A Session is an authenticated connection to a controller.
//
// A Session is safe for concurrent use. Requests that fail with 401 log in
// again once and are replayed.
type Session struct {
	settings Settings
	base     string
	http     HTTPClient
	logger   *zap.Logger

	mu      sync.RWMutex
	cookies map[string]*http.Cookie
	csrf    string
}

// Connect logs in to the controller. Fails with an AuthError if the
// credentials are rejected or the controller cannot be reached.
func Connect(ctx context.Context, settings Settings) (*Session, error) {
	if settings.Controller == "" {
		return nil, &Error{Kind: AuthError, Message: "controller address not set"}
	}
	s := &Session{
		settings: settings,
		base:     baseURL(settings.Controller),
		http:     settings.HTTPClient,
		logger:   settings.Logger,
	}
	if s.http == nil {
		s.http = newHTTPClient(settings)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("controller").With(zap.String("controller", s.base))
	if err := s.login(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func baseURL(addr string) string {
	addr = strings.TrimSuffix(addr, "/")
	if !strings.Contains(addr, "://") {
		addr = "https://" + addr
	}
	return addr
}

func newHTTPClient(s Settings) HTTPClient {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if s.Insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // nolint: gosec
	}
	return &http.Client{Transport: tr}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Session) login(ctx context.Context) error {
	s.logger.Debug("Login", zap.String("username", s.settings.Username))

	body, err := json.Marshal(credentials{
		Username: s.settings.Username,
		Password: s.settings.Password,
	})
	if err != nil {
		return errors.Wrap(err, "encode credentials")
	}

	var resp *http.Response
	var respBody []byte
	op := func() error {
		rctx, cancel := context.WithTimeout(ctx, s.settings.timeout())
		defer cancel()
		req, err := http.NewRequestWithContext(rctx, http.MethodPost, s.base+"/login", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Referer", s.base)
		r, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer r.Body.Close() // nolint: errcheck
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		resp, respBody = r, b
		return nil
	}
	if err := s.retry(ctx, op); err != nil {
		return &Error{Kind: AuthError, Err: errors.Wrap(err, "login")}
	}

	if resp.StatusCode >= 400 {
		return &Error{
			Kind:       AuthError,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, respBody),
		}
	}

	s.mu.Lock()
	s.cookies = make(map[string]*http.Cookie)
	s.mu.Unlock()
	s.storeCookies(resp)

	s.mu.RLock()
	ok := s.csrf != ""
	s.mu.RUnlock()
	if !ok {
		return &Error{Kind: AuthError, StatusCode: resp.StatusCode, Message: "login response did not set a csrftoken cookie"}
	}
	return nil
}

func (s *Session) storeCookies(resp *http.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range resp.Cookies() {
		if s.cookies == nil {
			s.cookies = make(map[string]*http.Cookie)
		}
		s.cookies[c.Name] = c
		if c.Name == "csrftoken" {
			s.csrf = c.Value
		}
	}
}

// retry runs op with exponential backoff until it succeeds, returns a
// permanent error or the retry budget is used.
func (s *Session) retry(ctx context.Context, op func() error) error {
	n := s.settings.retries()
	if n == 0 {
		err := op()
		if perm, ok := err.(*backoff.PermanentError); ok {
			return perm.Err
		}
		return err
	}
	algo := s.settings.Backoff
	if algo == nil {
		algo = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			return b
		}
	}
	notify := func(err error, dur time.Duration) {
		s.logger.Info("Retrying", zap.Error(err), zap.Duration("duration", dur))
	}
	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(algo(), n), ctx), notify)
}

// Logout ends the session on the controller.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.send(ctx, http.MethodPost, s.base+"/logout", nil, Scope{}, 0)
	if err != nil {
		return err
	}
	s.logger.Debug("Logout", zap.Int("status", resp.StatusCode))
	s.mu.Lock()
	s.cookies = nil
	s.csrf = ""
	s.mu.Unlock()
	return nil
}

type sessionKey struct {
	controller, username, tenant, tenantUUID string
	password                                 [sha256.Size]byte
}

// Sessions caches sessions so repeated connections with the same settings
// reuse one login. Sessions are keyed by credentials too, so a different
// password logs in again and fails if it is wrong. The zero value is ready
// to use.
type Sessions struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

// Get returns a cached session for the settings, connecting if necessary.
func (c *Sessions) Get(ctx context.Context, settings Settings) (*Session, error) {
	key := sessionKey{
		controller: baseURL(settings.Controller),
		username:   settings.Username,
		tenant:     settings.tenant(),
		tenantUUID: settings.TenantUUID,
		password:   sha256.Sum256([]byte(settings.Password)),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[key]; ok {
		return s, nil
	}
	s, err := Connect(ctx, settings)
	if err != nil {
		return nil, err
	}
	if c.sessions == nil {
		c.sessions = make(map[sessionKey]*Session)
	}
	c.sessions[key] = s
	return s, nil
}

// Close logs out all cached sessions.
func (c *Sessions) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs error
	for k, s := range c.sessions {
		errs = multierr.Append(errs, s.Logout(ctx))
		delete(c.sessions, k)
	}
	return errs
}
