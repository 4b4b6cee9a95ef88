package resource_test

import (
	"strings"
	"testing"

	"github.com/func/avictl/object"
	"github.com/func/avictl/resource"
	"github.com/google/go-cmp/cmp"
)

func TestRegistry_New(t *testing.T) {
	r := &resource.Registry{}

	_, err := r.New("pool")
	if _, ok := err.(resource.NotSupportedError); !ok {
		t.Fatalf("Get unregistered resource; got %v, want %T", err, resource.NotSupportedError{})
	}
	if !strings.Contains(err.Error(), "pool") {
		t.Errorf("Not supported error does not contain name of requested type\nGot %v", err)
	}

	r.Register(&pool{})

	def, err := r.New("pool")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := def.(*pool); !ok {
		t.Errorf("New() returned %T, want *pool", def)
	}
	if s := r.Schema("pool"); s == nil || !s.Fields["name"].Required {
		t.Errorf("Schema() = %+v, want required name", s)
	}
	if r.Schema("other") != nil {
		t.Error("Schema() of unregistered type must be nil")
	}
}

func TestRegistry_Register_notStrPtr(t *testing.T) {
	defer func() {
		if err := recover(); err == nil {
			t.Fatal("Expected panic")
		}
	}()

	r := &resource.Registry{}
	r.Register(notptr{})
}

func TestRegistry_SuggestType(t *testing.T) {
	r := resource.RegistryFromDefinitions(
		&pool{},
		&named{typename: "poolgroup"},
		&named{typename: "wafpolicy"},
		&named{typename: "wafprofile"},
	)

	if diff := cmp.Diff(r.Types(), []string{"pool", "poolgroup", "wafpolicy", "wafprofile"}); diff != "" {
		t.Errorf("Types() (-got +want)\n%s", diff)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Exact", "wafpolicy", "wafpolicy"},
		{"Close", "waf_policy", "wafpolicy"},
		{"Truncated", "poolgrou", "poolgroup"},
		{"NoMatch", "virtualservice", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.SuggestType(tt.input)
			if got != tt.want {
				t.Errorf("SuggestType() got = %q, want = %q", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	mtu := 1500
	def := &pool{
		Name:    "p1",
		Mtu:     &mtu,
		Servers: []server{{IP: "10.0.0.1", Port: 80}, {IP: "10.0.0.2"}},
		Labels:  map[string]interface{}{"env": "prod"},
	}
	got, err := resource.Describe(def)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	want, err := object.ParseJSON([]byte(`{
		"name": "p1",
		"mtu": 1500,
		"servers": [{"ip": "10.0.0.1", "port": 80}, {"ip": "10.0.0.2", "port": 0}],
		"labels": {"env": "prod"}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Describe() (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(got.Keys(), []string{"name", "mtu", "servers", "labels"}); diff != "" {
		t.Errorf("Keys() not in declaration order (-got +want)\n%s", diff)
	}
}

type server struct {
	IP   string `name:"ip"`
	Port int
}

type pool struct {
	Name        string `avi:"required"`
	Description *string
	Mtu         *int
	Servers     []server
	Labels      map[string]interface{}
}

func (*pool) Type() string { return "pool" }

type named struct {
	typename string
}

func (n *named) Type() string { return n.typename }

type notptr struct{}

func (r notptr) Type() string { return "" }
