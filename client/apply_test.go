package client_test

import (
	"context"
	"io/ioutil"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/func/avictl/client"
	"github.com/func/avictl/controller"
	"github.com/func/avictl/controller/emulator"
	"github.com/func/avictl/provider/avi"
	"github.com/func/avictl/resource"
	"github.com/func/avictl/resource/reconciler"
	"github.com/func/avictl/storage"
	"github.com/func/avictl/storage/kvbackend"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	srv := httptest.NewServer(emulator.New(emulator.Config{
		Store:    &storage.KV{Backend: &kvbackend.Memory{}},
		Username: "admin",
		Password: "secret",
	}))
	t.Cleanup(srv.Close)
	sess, err := controller.Connect(context.Background(), controller.Settings{
		Controller: srv.URL,
		Username:   "admin",
		Password:   "secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	reg := &resource.Registry{}
	avi.Register(reg)
	return &client.Client{
		Reconciler: &reconciler.Reconciler{
			Controller: sess,
			Registry:   reg,
			Settle:     func(string) time.Duration { return 0 },
		},
		Logger:      zaptest.NewLogger(t),
		Concurrency: 2,
	}
}

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func actions(results []client.Result) []string {
	var out []string
	for _, r := range results {
		out = append(out, r.Resource.Type+"/"+r.Resource.Name+" "+r.Outcome.Action.String())
	}
	sort.Strings(out)
	return out
}

const lbConfig = `
resource "poolgroup" "pg" {
  members = [
    { pool_ref = "/api/pool?name=web1", ratio = 1 },
    { pool_ref = "/api/pool?name=web2", ratio = 1 },
  ]
}

resource "pool" "web1" {
  servers = [{ ip = { addr = "10.0.0.1", type = "V4" } }]
}

resource "pool" "web2" {
  servers = [{ ip = { addr = "10.0.0.2", type = "V4" } }]
}

resource "wafpolicy" "pol" {
  mode            = "WAF_MODE_DETECTION_ONLY"
  waf_profile_ref = "/api/wafprofile?name=prof"
}

resource "wafprofile" "prof" {
  config = { paranoia_mode = false }
}
`

func TestClient_Apply(t *testing.T) {
	cli := newClient(t)
	dir := t.TempDir()
	writeFile(t, dir, "lb.hcl", lbConfig)
	ctx := context.Background()

	results, err := cli.Apply(ctx, dir)
	if err != nil {
		t.Fatalf("Apply() err = %v", err)
	}
	want := []string{
		"pool/web1 create",
		"pool/web2 create",
		"poolgroup/pg create",
		"wafpolicy/pol create",
		"wafprofile/prof create",
	}
	if diff := cmp.Diff(actions(results), want); diff != "" {
		t.Errorf("first apply (-got +want)\n%s", diff)
	}

	// Applying again is a no-op.
	results, err = cli.Apply(ctx, dir)
	if err != nil {
		t.Fatalf("Apply() again err = %v", err)
	}
	for _, r := range results {
		if r.Outcome.Changed {
			t.Errorf("%s %s changed on second apply: %s", r.Resource.Type, r.Resource.Name, r.Outcome.Diff)
		}
	}

	// The poolgroup drops its reference before the pool is deleted.
	writeFile(t, dir, "lb.hcl", `
resource "poolgroup" "pg" {
  members = [{ pool_ref = "/api/pool?name=web1", ratio = 1 }]
}
resource "pool" "web2" {
  state = "absent"
}
`)
	results, err = cli.Apply(ctx, dir)
	if err != nil {
		t.Fatalf("Apply() removal err = %v", err)
	}
	want = []string{"pool/web2 delete", "poolgroup/pg update"}
	if diff := cmp.Diff(actions(results), want); diff != "" {
		t.Errorf("removal (-got +want)\n%s", diff)
	}
	if results[0].Resource.Name != "pg" {
		t.Errorf("first result = %s, want the poolgroup update before the delete", results[0].Resource.Name)
	}
}

func TestClient_Apply_failure(t *testing.T) {
	cli := newClient(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", `
resources:
  - type: pool
    name: p
    health_monitor_refs: ["/api/healthmonitor?name=missing"]
  - type: pool
    name: ok
  - type: virtualservice
    name: vs
    pool_ref: "/api/pool?name=p"
`)
	results, err := cli.Apply(context.Background(), dir)
	aerr, ok := err.(*client.ApplyError)
	if !ok {
		t.Fatalf("err = %v, want *ApplyError", err)
	}
	if len(aerr.Failed) != 1 || aerr.Failed[0].Resource.Name != "p" {
		t.Errorf("Failed = %v", aerr.Failed)
	}
	if len(aerr.Skipped) != 1 || aerr.Skipped[0].Name != "vs" {
		t.Errorf("Skipped = %v", aerr.Skipped)
	}
	// The independent pool in the same wave is still created.
	want := []string{"pool/ok create", "pool/p none"}
	if diff := cmp.Diff(actions(results), want); diff != "" {
		t.Errorf("results (-got +want)\n%s", diff)
	}
}

func TestClient_Apply_diagnostics(t *testing.T) {
	cli := newClient(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `resource "pool" "p" { state = "maybe" }`)

	_, err := cli.Apply(context.Background(), dir)
	if _, ok := err.(*client.DiagnosticsError); !ok {
		t.Fatalf("err = %v, want *DiagnosticsError", err)
	}
}

func TestClient_Apply_canceled(t *testing.T) {
	cli := newClient(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", lbConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cli.Apply(ctx, dir)
	if err == nil {
		t.Fatal("Apply() with canceled context did not fail")
	}
}
