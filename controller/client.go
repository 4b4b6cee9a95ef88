package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/func/avictl/object"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// A Request is a raw request to the controller REST API.
type Request struct {
	Method string
	// Path relative to /api/, for example pool or pool/pool-1234. A leading
	// /api/ is accepted.
	Path    string
	Params  url.Values
	Body    []byte // JSON body, nil for none.
	Scope   Scope
	Timeout time.Duration // Overrides Settings.Timeout when set.
}

// A Response is a raw controller response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Object decodes the response body as a JSON object. An empty body decodes
// to nil.
func (r *Response) Object() (*object.Object, error) {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil, nil
	}
	return object.ParseJSON(r.Body)
}

// Do sends a request and returns the raw response, whatever its status. The
// error is only set for transport failures and failed re-logins.
//
// GET requests are retried on transport errors.
func (s *Session) Do(ctx context.Context, req *Request) (*Response, error) {
	u := s.apiURL(req.Path, req.Params)
	resp, err := s.send(ctx, req.Method, u, req.Body, req.Scope, req.Timeout)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		s.logger.Debug("Session expired")
		if err := s.login(ctx); err != nil {
			return nil, err
		}
		return s.send(ctx, req.Method, u, req.Body, req.Scope, req.Timeout)
	}
	return resp, nil
}

func (s *Session) apiURL(path string, params url.Values) string {
	p := strings.TrimPrefix(path, "/")
	p = strings.TrimPrefix(p, "api/")
	u := s.base + "/api/" + p
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (s *Session) send(ctx context.Context, method, u string, body []byte, scope Scope, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = s.settings.timeout()
	}
	logger := s.logger.With(zap.String("method", method), zap.String("url", u))

	var resp *Response
	op := func() error {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(rctx, method, u, rd)
		if err != nil {
			return backoff.Permanent(err)
		}
		s.setHeaders(req, scope)
		r, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer r.Body.Close() // nolint: errcheck
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		s.storeCookies(r)
		resp = &Response{StatusCode: r.StatusCode, Body: b}
		return nil
	}

	var err error
	if method == http.MethodGet {
		err = s.retry(ctx, op)
	} else {
		err = op()
		if perm, ok := err.(*backoff.PermanentError); ok {
			err = perm.Err
		}
	}
	if err != nil {
		logger.Debug("Request failed", zap.Error(err))
		return nil, &Error{Kind: TransportError, Err: errors.Wrapf(err, "%s %s", method, u)}
	}
	logger.Debug("Response", zap.Int("status", resp.StatusCode))
	return resp, nil
}

func (s *Session) setHeaders(req *http.Request, scope Scope) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", s.base)
	if v := s.settings.APIVersion; v != "" {
		req.Header.Set("X-Avi-Version", v)
	}
	tenantUUID := scope.TenantUUID
	if tenantUUID == "" && scope.Tenant == "" {
		tenantUUID = s.settings.TenantUUID
	}
	if tenantUUID != "" {
		req.Header.Set("X-Avi-Tenant-UUID", tenantUUID)
	} else {
		tenant := scope.Tenant
		if tenant == "" {
			tenant = s.settings.tenant()
		}
		req.Header.Set("X-Avi-Tenant", tenant)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.csrf != "" {
		req.Header.Set("X-CSRFToken", s.csrf)
	}
	for _, c := range s.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}

// GetByName returns the object of a type with the given name. Fails with a
// NotFoundError if no object has the name.
func (s *Session) GetByName(ctx context.Context, typ, name string, scope Scope, params url.Values) (*object.Object, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("name", name)
	resp, err := s.Do(ctx, &Request{Method: http.MethodGet, Path: typ, Params: q, Scope: scope})
	if err != nil {
		return nil, err
	}
	if err := StatusError(resp); err != nil {
		return nil, err
	}

	var list struct {
		Count   int               `json:"count"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &list); err != nil {
		return nil, errors.Wrapf(err, "decode %s list", typ)
	}
	if len(list.Results) == 0 {
		return nil, &Error{
			Kind:       NotFoundError,
			StatusCode: http.StatusNotFound,
			Message:    typ + " " + name + " not found",
		}
	}
	obj, err := object.ParseJSON(list.Results[0])
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", typ)
	}
	return obj, nil
}

// Get returns the object at path, for example pool/pool-1234.
func (s *Session) Get(ctx context.Context, path string, scope Scope, params url.Values) (*object.Object, error) {
	resp, err := s.Do(ctx, &Request{Method: http.MethodGet, Path: path, Params: params, Scope: scope})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// Create creates an object of a type.
func (s *Session) Create(ctx context.Context, typ string, payload *object.Object, scope Scope) (*object.Object, error) {
	return s.write(ctx, http.MethodPost, typ, payload, scope)
}

// Update replaces the object of a type with the given uuid.
func (s *Session) Update(ctx context.Context, typ, uuid string, payload *object.Object, scope Scope) (*object.Object, error) {
	return s.write(ctx, http.MethodPut, typ+"/"+uuid, payload, scope)
}

func (s *Session) write(ctx context.Context, method, path string, payload *object.Object, scope Scope) (*object.Object, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}
	resp, err := s.Do(ctx, &Request{Method: method, Path: path, Body: body, Scope: scope})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// DeleteByName deletes the object of a type with the given name. Fails with
// a NotFoundError if no object has the name. Only a 204 confirms the delete,
// any other status is a ValidationError carrying the body.
func (s *Session) DeleteByName(ctx context.Context, typ, name string, scope Scope) (*Response, error) {
	obj, err := s.GetByName(ctx, typ, name, scope, nil)
	if err != nil {
		return nil, err
	}
	uuid, ok := obj.GetString("uuid")
	if !ok {
		return nil, errors.Errorf("%s %s has no uuid", typ, name)
	}
	resp, err := s.Do(ctx, &Request{Method: http.MethodDelete, Path: typ + "/" + uuid, Scope: scope})
	if err != nil {
		return nil, err
	}
	if err := StatusError(resp); err != nil {
		return resp, err
	}
	if resp.StatusCode != http.StatusNoContent {
		return resp, &Error{
			Kind:       ValidationError,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, resp.Body),
			Body:       resp.Body,
		}
	}
	return resp, nil
}

func decodeObject(resp *Response) (*object.Object, error) {
	if err := StatusError(resp); err != nil {
		return nil, err
	}
	obj, err := resp.Object()
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if obj == nil {
		obj = object.New()
	}
	return obj, nil
}

// StatusError converts an error status to an *Error holding the response
// body. Returns nil for statuses below 400.
//
//	401, 403  AuthError
//	404       NotFoundError
//	other     ValidationError
func StatusError(resp *Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	kind := ValidationError
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = AuthError
	case http.StatusNotFound:
		kind = NotFoundError
	}
	return &Error{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(resp.StatusCode, resp.Body),
		Body:       resp.Body,
	}
}

// errorMessage returns the "error" field of a JSON error body, or the body
// itself.
func errorMessage(status int, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}
