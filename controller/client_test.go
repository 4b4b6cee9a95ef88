package controller_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cenkalti/backoff"
	"github.com/func/avictl/controller"
	"github.com/func/avictl/object"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
)

// fakeController is a minimal controller that stores pools in memory.
type fakeController struct {
	mu           sync.Mutex
	logins       int
	expire       bool // Next authenticated request returns 401.
	failGets     int  // Number of GETs to fail by closing the connection.
	deleteStatus int  // Status for deletes that are accepted but not done.
	headers      http.Header
	pools        map[string]string // uuid -> json
}

func (f *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/login" {
		var creds struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error": "Invalid credentials"}`)
			return
		}
		f.logins++
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-token"})
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sess"})
		_, _ = io.WriteString(w, `{}`)
		return
	}

	f.headers = r.Header.Clone()
	if c, err := r.Cookie("sessionid"); err != nil || c.Value != "sess" || f.expire {
		f.expire = false
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.Method == http.MethodGet && f.failGets > 0 {
		f.failGets--
		hj, ok := w.(http.Hijacker)
		if !ok {
			panic("not a hijacker")
		}
		conn, _, _ := hj.Hijack()
		_ = conn.Close()
		return
	}

	switch {
	case r.URL.Path == "/api/pool" && r.Method == http.MethodGet:
		var results []json.RawMessage
		for _, p := range f.pools {
			var obj struct{ Name string }
			_ = json.Unmarshal([]byte(p), &obj)
			if obj.Name == r.URL.Query().Get("name") {
				results = append(results, json.RawMessage(p))
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"count": len(results), "results": results})
	case r.URL.Path == "/api/pool" && r.Method == http.MethodPost:
		b, _ := io.ReadAll(r.Body)
		if strings.Contains(string(b), "bad") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error": "Invalid data: {'name': 'bad'}"}`)
			return
		}
		f.pools["pool-1"] = strings.TrimSuffix(string(b), "}") + `,"uuid":"pool-1"}`
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, f.pools["pool-1"])
	case r.URL.Path == "/api/pool/pool-1" && r.Method == http.MethodDelete:
		if f.deleteStatus != 0 {
			w.WriteHeader(f.deleteStatus)
			_, _ = io.WriteString(w, `{"status":"queued"}`)
			return
		}
		delete(f.pools, "pool-1")
		w.WriteHeader(http.StatusNoContent)
	case strings.HasPrefix(r.URL.Path, "/api/pool/"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": "object not found"}`)
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "internal error")
	}
}

func connect(t *testing.T, fake *fakeController) *controller.Session {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := controller.Connect(context.Background(), controller.Settings{
		Controller: srv.URL,
		Username:   "admin",
		Password:   "secret",
		APIVersion: "18.2.6",
		Logger:     zaptest.NewLogger(t),
		Backoff:    func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})
	if err != nil {
		t.Fatalf("Connect() err = %v", err)
	}
	return s
}

func TestConnect_badCredentials(t *testing.T) {
	srv := httptest.NewServer(&fakeController{})
	defer srv.Close()
	_, err := controller.Connect(context.Background(), controller.Settings{
		Controller: srv.URL,
		Username:   "admin",
		Password:   "wrong",
	})
	if !controller.IsAuth(err) {
		t.Fatalf("Connect() err = %v, want auth error", err)
	}
	if err.Error() != "Invalid credentials" {
		t.Errorf("Message = %q", err.Error())
	}
}

func TestConnect_unreachable(t *testing.T) {
	srv := httptest.NewServer(&fakeController{})
	srv.Close()
	_, err := controller.Connect(context.Background(), controller.Settings{
		Controller: srv.URL,
		Password:   "secret",
		Retries:    -1,
	})
	if !controller.IsAuth(err) {
		t.Fatalf("Connect() err = %v, want auth error", err)
	}
}

func TestSession_lifecycle(t *testing.T) {
	ctx := context.Background()
	fake := &fakeController{pools: map[string]string{}}
	s := connect(t, fake)

	_, err := s.GetByName(ctx, "pool", "p1", controller.Scope{}, nil)
	if !controller.IsNotFound(err) {
		t.Fatalf("GetByName() err = %v, want not found", err)
	}

	payload := object.New().Set("name", object.StringValue("p1"))
	created, err := s.Create(ctx, "pool", payload, controller.Scope{Tenant: "t1"})
	if err != nil {
		t.Fatalf("Create() err = %v", err)
	}
	if uuid, _ := created.GetString("uuid"); uuid != "pool-1" {
		t.Errorf("uuid = %q", uuid)
	}
	if got := fake.headers.Get("X-Avi-Tenant"); got != "t1" {
		t.Errorf("X-Avi-Tenant = %q", got)
	}

	got, err := s.GetByName(ctx, "pool", "p1", controller.Scope{}, nil)
	if err != nil {
		t.Fatalf("GetByName() err = %v", err)
	}
	if !got.Equal(created) {
		t.Errorf("GetByName() = %v, want %v", got, created)
	}
	wantHeaders := map[string]string{
		"X-Csrftoken":   "csrf-token",
		"X-Avi-Tenant":  "admin",
		"X-Avi-Version": "18.2.6",
		"Content-Type":  "application/json",
	}
	for k, v := range wantHeaders {
		if got := fake.headers.Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}

	resp, err := s.DeleteByName(ctx, "pool", "p1", controller.Scope{})
	if err != nil {
		t.Fatalf("DeleteByName() err = %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if len(fake.pools) != 0 {
		t.Errorf("pools not deleted: %v", fake.pools)
	}
}

func TestSession_errors(t *testing.T) {
	ctx := context.Background()
	s := connect(t, &fakeController{pools: map[string]string{}})

	_, err := s.Create(ctx, "pool", object.New().Set("name", object.StringValue("bad")), controller.Scope{})
	if !controller.IsValidation(err) {
		t.Fatalf("Create() err = %v, want validation error", err)
	}
	if got, want := err.Error(), "Invalid data: {'name': 'bad'}"; got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}

	_, err = s.Get(ctx, "pool/pool-9", controller.Scope{}, nil)
	if !controller.IsNotFound(errors.Wrap(err, "wrapped")) {
		t.Errorf("Get() err = %v, want not found", err)
	}

	resp, err := s.Do(ctx, &controller.Request{Method: http.MethodGet, Path: "/api/other"})
	if err != nil {
		t.Fatalf("Do() err = %v", err)
	}
	err = controller.StatusError(resp)
	if !controller.IsValidation(err) || err.Error() != "internal error" {
		t.Errorf("StatusError() = %v", err)
	}
}

func TestSession_DeleteByName_unconfirmed(t *testing.T) {
	fake := &fakeController{
		pools:        map[string]string{"pool-1": `{"name":"p1","uuid":"pool-1"}`},
		deleteStatus: http.StatusAccepted,
	}
	s := connect(t, fake)

	resp, err := s.DeleteByName(context.Background(), "pool", "p1", controller.Scope{})
	if !controller.IsValidation(err) {
		t.Fatalf("DeleteByName() err = %v, want validation error", err)
	}
	if resp == nil || resp.StatusCode != http.StatusAccepted {
		t.Errorf("DeleteByName() resp = %v", resp)
	}
	var cerr *controller.Error
	if !errors.As(err, &cerr) || string(cerr.Body) != `{"status":"queued"}` || cerr.Error() != `{"status":"queued"}` {
		t.Errorf("DeleteByName() err = %#v", err)
	}
	if len(fake.pools) != 1 {
		t.Errorf("pools = %v", fake.pools)
	}
}

func TestSession_relogin(t *testing.T) {
	ctx := context.Background()
	fake := &fakeController{pools: map[string]string{}}
	s := connect(t, fake)

	fake.expire = true
	if _, err := s.GetByName(ctx, "pool", "p1", controller.Scope{}, nil); !controller.IsNotFound(err) {
		t.Fatalf("GetByName() err = %v, want not found", err)
	}
	if fake.logins != 2 {
		t.Errorf("logins = %d, want 2", fake.logins)
	}
}

func TestSession_retryGet(t *testing.T) {
	ctx := context.Background()
	fake := &fakeController{pools: map[string]string{}, failGets: 2}
	s := connect(t, fake)

	if _, err := s.GetByName(ctx, "pool", "p1", controller.Scope{}, nil); !controller.IsNotFound(err) {
		t.Fatalf("GetByName() err = %v, want not found", err)
	}

	fake.failGets = 10
	_, err := s.GetByName(ctx, "pool", "p1", controller.Scope{}, nil)
	if !controller.IsTransport(err) {
		t.Fatalf("GetByName() err = %v, want transport error", err)
	}
}

func TestSessions(t *testing.T) {
	srv := httptest.NewServer(&fakeController{})
	defer srv.Close()
	var cache controller.Sessions
	settings := controller.Settings{Controller: srv.URL, Password: "secret"}
	a, err := cache.Get(context.Background(), settings)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cache.Get(context.Background(), settings)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("session not reused")
	}
	settings.Tenant = "other"
	c, err := cache.Get(context.Background(), settings)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("session reused across tenants")
	}

	settings.Tenant = ""
	settings.Password = "wrong"
	if _, err := cache.Get(context.Background(), settings); !controller.IsAuth(err) {
		t.Errorf("Get() with wrong password err = %v, want auth error", err)
	}
	if err := cache.Close(context.Background()); err != nil {
		t.Errorf("Close() err = %v", err)
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   controller.Kind
		msg    string
	}{
		{401, "", controller.AuthError, "Unauthorized"},
		{403, `{"error":"forbidden"}`, controller.AuthError, "forbidden"},
		{404, `{"error":"no such pool"}`, controller.NotFoundError, "no such pool"},
		{409, `conflict`, controller.ValidationError, "conflict"},
		{502, `{"detail":"x"}`, controller.ValidationError, `{"detail":"x"}`},
		{400, `{"error":"Invalid field","obj_name":"p1"}`, controller.ValidationError, "Invalid field"},
	}
	for _, tc := range tests {
		err := controller.StatusError(&controller.Response{StatusCode: tc.status, Body: []byte(tc.body)})
		var cerr *controller.Error
		if !errors.As(err, &cerr) {
			t.Fatalf("%d: err = %v", tc.status, err)
		}
		got := []interface{}{cerr.Kind, cerr.StatusCode, cerr.Error(), string(cerr.Body)}
		want := []interface{}{tc.kind, tc.status, tc.msg, tc.body}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("%d (-got +want)\n%s", tc.status, diff)
		}
	}
	if err := controller.StatusError(&controller.Response{StatusCode: 204}); err != nil {
		t.Errorf("204 err = %v", err)
	}
}
