package reconciler_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/func/avictl/resource/reconciler"
	"github.com/google/go-cmp/cmp"
)

func (f *fixture) call(t *testing.T, req *reconciler.CallRequest) (*reconciler.CallOutcome, []string) {
	t.Helper()
	f.rec.Reset()
	out := f.r.Call(context.Background(), req)
	var writes []string
	for _, e := range f.rec.Events.Writes() {
		writes = append(writes, e.Target)
	}
	return out, writes
}

func TestCall(t *testing.T) {
	f := setup(t)

	// put on a missing object posts to the collection.
	out, writes := f.call(t, &reconciler.CallRequest{
		Method:   "PUT",
		Path:     "pool/pool-missing",
		DataJSON: `{"name": "p1", "servers": [{"ip": "10.0.0.1"}]}`,
	})
	if out.Err != nil {
		t.Fatalf("put err = %v", out.Err)
	}
	if !out.Changed || out.StatusCode != http.StatusCreated {
		t.Errorf("put: Changed = %t, StatusCode = %d", out.Changed, out.StatusCode)
	}
	if diff := cmp.Diff(writes, []string{"POST pool"}); diff != "" {
		t.Errorf("put writes (-got +want)\n%s", diff)
	}
	uuid, _ := out.Object.GetString("uuid")
	path := "pool/" + uuid

	// put with the same data does not write.
	out, writes = f.call(t, &reconciler.CallRequest{
		Method:   "put",
		Path:     path,
		DataJSON: `{"name": "p1", "servers": [{"ip": "10.0.0.1"}]}`,
	})
	if out.Err != nil || out.Changed {
		t.Errorf("put same: Changed = %t, Err = %v", out.Changed, out.Err)
	}
	if len(writes) != 0 {
		t.Errorf("put same writes = %v", writes)
	}

	out, writes = f.call(t, &reconciler.CallRequest{
		Method:   "put",
		Path:     path,
		DataJSON: `{"name": "p1", "servers": [{"ip": "10.0.0.2"}]}`,
	})
	if out.Err != nil || !out.Changed {
		t.Errorf("put changed: Changed = %t, Err = %v", out.Changed, out.Err)
	}
	if diff := cmp.Diff(writes, []string{"PUT " + path}); diff != "" {
		t.Errorf("put writes (-got +want)\n%s", diff)
	}

	// get never changes.
	out, _ = f.call(t, &reconciler.CallRequest{Method: "get", Path: path})
	if out.Err != nil || out.Changed || out.StatusCode != http.StatusOK {
		t.Errorf("get: Changed = %t, StatusCode = %d, Err = %v", out.Changed, out.StatusCode, out.Err)
	}

	// patch compares before and after.
	patch := &reconciler.CallRequest{Method: "patch", Path: path, DataJSON: `{"add": {"servers": [{"ip": "10.0.0.3"}]}}`}
	out, _ = f.call(t, patch)
	if out.Err != nil || !out.Changed {
		t.Errorf("patch: Changed = %t, Err = %v", out.Changed, out.Err)
	}
	if servers, _ := out.Object.Get("servers"); len(servers.Elems()) != 2 {
		t.Errorf("patched servers = %v", servers)
	}
	out, _ = f.call(t, patch)
	if out.Err != nil || out.Changed {
		t.Errorf("patch again: Changed = %t, Err = %v", out.Changed, out.Err)
	}

	// Errors carry the body.
	out, _ = f.call(t, &reconciler.CallRequest{Method: "post", Path: "pool", DataJSON: `{"name": "p1"}`})
	if out.Err == nil || out.StatusCode != http.StatusConflict || !strings.Contains(out.Err.Error(), "already exists") {
		t.Errorf("post duplicate: StatusCode = %d, Err = %v", out.StatusCode, out.Err)
	}
	if want := `{"error":"Object of type pool with name p1 already exists"}`; strings.TrimSpace(string(out.Body)) != want {
		t.Errorf("post duplicate: Body = %s, want %s", out.Body, want)
	}

	out, _ = f.call(t, &reconciler.CallRequest{Method: "delete", Path: path})
	if out.Err != nil || !out.Changed || out.StatusCode != http.StatusNoContent {
		t.Errorf("delete: Changed = %t, StatusCode = %d, Err = %v", out.Changed, out.StatusCode, out.Err)
	}

	// Deleting a missing object is not a change.
	out, _ = f.call(t, &reconciler.CallRequest{Method: "delete", Path: path})
	if out.Err != nil || out.Changed || out.StatusCode != http.StatusOK {
		t.Errorf("delete missing: Changed = %t, StatusCode = %d, Err = %v", out.Changed, out.StatusCode, out.Err)
	}
}

func TestCall_putAbsentField(t *testing.T) {
	f := setup(t)
	out, _ := f.call(t, &reconciler.CallRequest{Method: "post", Path: "pool", DataJSON: `{"name": "p1", "description": "x"}`})
	if out.Err != nil {
		t.Fatalf("post err = %v", out.Err)
	}
	uuid, _ := out.Object.GetString("uuid")
	path := "pool/" + uuid
	put := &reconciler.CallRequest{
		Method:   "put",
		Path:     path,
		DataJSON: `{"name": "p1", "description": {"state": "absent"}}`,
	}

	out, writes := f.call(t, put)
	if out.Err != nil || !out.Changed {
		t.Fatalf("put: Changed = %t, Err = %v", out.Changed, out.Err)
	}
	if diff := cmp.Diff(writes, []string{"PUT " + path}); diff != "" {
		t.Errorf("put writes (-got +want)\n%s", diff)
	}
	if out.Object.Has("description") {
		t.Errorf("description still set: %v", out.Object)
	}

	out, writes = f.call(t, put)
	if out.Err != nil || out.Changed {
		t.Errorf("put again: Changed = %t, Err = %v", out.Changed, out.Err)
	}
	if len(writes) != 0 {
		t.Errorf("put again writes = %v", writes)
	}

	// A put that falls back to a post does not send the marker either.
	out, _ = f.call(t, &reconciler.CallRequest{
		Method:   "put",
		Path:     "pool/pool-missing",
		DataJSON: `{"name": "p2", "description": {"state": "absent"}}`,
	})
	if out.Err != nil || !out.Changed || out.Object.Has("description") {
		t.Errorf("put missing: Changed = %t, Err = %v, Object = %v", out.Changed, out.Err, out.Object)
	}
}

func TestCall_patchSettle(t *testing.T) {
	f := setup(t)
	out, _ := f.call(t, &reconciler.CallRequest{Method: "post", Path: "pool", DataJSON: `{"name": "p1"}`})
	if out.Err != nil {
		t.Fatalf("post err = %v", out.Err)
	}
	uuid, _ := out.Object.GetString("uuid")
	path := "pool/" + uuid
	patch := &reconciler.CallRequest{Method: "patch", Path: path, DataJSON: `{"add": {"servers": [{"ip": "10.0.0.1"}]}}`}

	// The policy sees the path after the patch and before the read back.
	var settled []string
	f.r.Settle = func(p string) time.Duration {
		settled = append(settled, fmt.Sprintf("%s after %v", p, f.rec.Events.Methods()))
		return time.Millisecond
	}
	out, _ = f.call(t, patch)
	if out.Err != nil || !out.Changed {
		t.Fatalf("patch: Changed = %t, Err = %v", out.Changed, out.Err)
	}
	if diff := cmp.Diff(settled, []string{path + " after [Do Do]"}); diff != "" {
		t.Errorf("settle calls (-got +want)\n%s", diff)
	}
	if got := len(f.rec.Events); got != 3 {
		t.Errorf("events = %v, want read, patch and read back", f.rec.Events)
	}

	// Cancelling while settling stops before the read back.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.r.Settle = func(string) time.Duration {
		cancel()
		return time.Hour
	}
	f.rec.Reset()
	out = f.r.Call(ctx, patch)
	if out.Err != context.Canceled {
		t.Errorf("patch canceled: Err = %v, want %v", out.Err, context.Canceled)
	}
	if out.StatusCode != http.StatusOK {
		t.Errorf("patch canceled: StatusCode = %d", out.StatusCode)
	}
	if got := len(f.rec.Events); got != 2 {
		t.Errorf("events = %v, want no read back", f.rec.Events)
	}
}

func TestCall_invalid(t *testing.T) {
	f := setup(t)
	tests := []struct {
		req     *reconciler.CallRequest
		wantErr string
	}{
		{&reconciler.CallRequest{Method: "head", Path: "pool"}, `unsupported method "head"`},
		{&reconciler.CallRequest{Method: "post", Path: "pool", DataJSON: `[1]`}, "parse data"},
	}
	for _, tc := range tests {
		out, writes := f.call(t, tc.req)
		if out.Err == nil || !strings.Contains(out.Err.Error(), tc.wantErr) {
			t.Errorf("%s: Err = %v, want %q", tc.req.Method, out.Err, tc.wantErr)
		}
		if len(writes) > 0 {
			t.Errorf("%s: writes = %v", tc.req.Method, writes)
		}
	}
}

func TestCall_dryRun(t *testing.T) {
	f := setup(t)
	f.r.DryRun = true
	for _, m := range []string{"post", "put", "patch"} {
		out, writes := f.call(t, &reconciler.CallRequest{Method: m, Path: "pool", DataJSON: `{"name": "p"}`})
		if out.Err != nil || !out.Changed {
			t.Errorf("%s: Changed = %t, Err = %v", m, out.Changed, out.Err)
		}
		if len(writes) > 0 {
			t.Errorf("%s: writes = %v", m, writes)
		}
	}
	out, writes := f.call(t, &reconciler.CallRequest{Method: "delete", Path: "pool/pool-missing"})
	if out.Err != nil || out.Changed {
		t.Errorf("delete: Changed = %t, Err = %v", out.Changed, out.Err)
	}
	if len(writes) > 0 {
		t.Errorf("delete: writes = %v", writes)
	}
}

func TestDefaultSettle(t *testing.T) {
	tests := map[string]time.Duration{
		"pool/pool-1":        time.Second,
		"/poolgroup":         time.Second,
		"virtualservice/vs1": 0,
		"":                   0,
	}
	for path, want := range tests {
		if got := reconciler.DefaultSettle(path); got != want {
			t.Errorf("DefaultSettle(%q) = %v, want %v", path, got, want)
		}
	}
}
