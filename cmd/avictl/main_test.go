package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/func/avictl/client"
	"github.com/func/avictl/compare"
	"github.com/func/avictl/config"
	"github.com/func/avictl/controller/emulator"
	"github.com/func/avictl/object"
	"github.com/func/avictl/resource/reconciler"
	"github.com/func/avictl/storage"
	"github.com/func/avictl/storage/kvbackend"
	"github.com/google/go-cmp/cmp"
)

func TestRun(t *testing.T) {
	srv := httptest.NewServer(emulator.New(emulator.Config{
		Store:    &storage.KV{Backend: &kvbackend.Memory{}},
		Username: "admin",
		Password: "secret",
	}))
	defer srv.Close()

	dir := t.TempDir()
	file := filepath.Join(dir, "pool.yaml")
	if err := ioutil.WriteFile(file, []byte("resources:\n  - {type: pool, name: web}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	conn := []string{"--controller", srv.URL, "--username", "admin", "--password", "secret"}
	metrics := filepath.Join(dir, "metrics.prom")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"Apply", append([]string{"apply", file, "--metrics-file", metrics}, conn...), 0},
		{"ApplyJSON", append([]string{"apply", file, "-o", "json"}, conn...), 0},
		{"Call", append([]string{"call", "get", "pool", "-p", "name=web"}, conn...), 0},
		{"CallMissing", append([]string{"call", "get", "pool/pool-missing"}, conn...), 1},
		{"CallArgs", []string{"call", "get"}, 2},
		{"BadFlag", []string{"apply", "--nope"}, 2},
		{"BadOutput", append([]string{"apply", file, "-o", "xml"}, conn...), 2},
		{"UnknownCommand", []string{"destroy"}, 2},
		{"Types", []string{"types"}, 0},
		{"TypeFields", []string{"types", "wafpolicy"}, 0},
		{"TypeMissing", []string{"types", "wafpolcy"}, 1},
		{"Version", []string{"version"}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd.SetArgs(tc.args)
			if got := run(); got != tc.want {
				t.Errorf("run(%v) = %d, want %d", tc.args, got, tc.want)
			}
		})
	}

	b, err := ioutil.ReadFile(metrics)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "avictl_reconcile_total") {
		t.Errorf("metrics file:\n%s", b)
	}
}

func testResults() []client.Result {
	return []client.Result{
		{
			Resource: config.Resource{Type: "pool", Name: "a", Tenant: "dev"},
			Outcome:  &reconciler.Outcome{Changed: true, Action: reconciler.Create},
		},
		{
			Resource: config.Resource{Type: "pool", Name: "b"},
			Outcome: &reconciler.Outcome{Changed: true, Action: reconciler.Update, Diff: compare.Result{
				Diffs: []compare.Diff{{Path: object.Path{"lb_algorithm"}, Reason: "value differs"}},
			}},
		},
		{
			Resource: config.Resource{Type: "pool", Name: "c"},
			Outcome:  &reconciler.Outcome{Err: errors.New("Cannot find object")},
		},
		{
			Resource: config.Resource{Type: "pool", Name: "d"},
			Outcome:  &reconciler.Outcome{Diff: compare.Result{Equal: true}},
		},
	}
}

func TestWriteTextResults(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	writeTextResults(&buf, testResults(), true)
	want := `+ pool a (dev)
~ pool b
    lb_algorithm: value differs
! pool c: Cannot find object
  pool d
1 created, 1 updated, 0 deleted, 1 failed (dry run)
`
	if diff := cmp.Diff(buf.String(), want); diff != "" {
		t.Errorf("output (-got +want)\n%s", diff)
	}
}

func TestWriteJSONResults(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSONResults(&buf, testResults()); err != nil {
		t.Fatal(err)
	}
	var got []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d results", len(got))
	}
	if got[1]["action"] != "update" || got[1]["diff"].([]interface{})[0] != "lb_algorithm" {
		t.Errorf("update result = %v", got[1])
	}
	if got[2]["error"] != "Cannot find object" {
		t.Errorf("failed result = %v", got[2])
	}
}

func TestCallResult(t *testing.T) {
	body := `{"error":"Invalid field","obj_name":"p1"}`
	got := callResult(&reconciler.CallOutcome{
		StatusCode: 400,
		Body:       []byte(body),
		Err:        errors.New("Invalid field"),
	})
	want := callJSON{StatusCode: 400, Msg: body}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("callResult() (-got +want)\n%s", diff)
	}

	got = callResult(&reconciler.CallOutcome{Err: errors.New("dial tcp: connection refused")})
	if got.Msg != "dial tcp: connection refused" {
		t.Errorf("transport failure Msg = %q", got.Msg)
	}
}
