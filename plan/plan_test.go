package plan_test

import (
	"strings"
	"testing"

	"github.com/func/avictl/config"
	"github.com/func/avictl/object"
	"github.com/func/avictl/plan"
	"github.com/google/go-cmp/cmp"
)

func res(typ, name string, fields map[string]interface{}) config.Resource {
	return config.Resource{Type: typ, Name: name, Fields: object.MustFromMap(fields)}
}

func names(waves [][]config.Resource) [][]string {
	out := make([][]string, len(waves))
	for i, w := range waves {
		for _, r := range w {
			name := r.Type + "/" + r.Name
			if r.Absent() {
				name = "-" + name
			}
			out[i] = append(out[i], name)
		}
	}
	return out
}

func TestNew(t *testing.T) {
	absent := func(r config.Resource) config.Resource {
		r.State = "absent"
		return r
	}
	tests := []struct {
		name      string
		resources []config.Resource
		want      [][]string
	}{
		{
			name: "Empty",
			want: [][]string{},
		},
		{
			name: "Independent",
			resources: []config.Resource{
				res("pool", "a", nil),
				res("pool", "b", map[string]interface{}{"health_monitor_refs": []interface{}{"/api/healthmonitor?name=external"}}),
			},
			want: [][]string{{"pool/a", "pool/b"}},
		},
		{
			name: "Chain",
			resources: []config.Resource{
				res("virtualservice", "vs", map[string]interface{}{
					"pool_group_ref": "/api/poolgroup?name=pg",
					"vip":            []interface{}{map[string]interface{}{"ip_address": "10.0.0.1"}},
				}),
				res("poolgroup", "pg", map[string]interface{}{
					"members": []interface{}{
						map[string]interface{}{"pool_ref": "/api/pool?name=p1"},
						map[string]interface{}{"pool_ref": "/api/pool/pool-1234#p2"},
					},
				}),
				res("pool", "p1", nil),
				res("pool", "p2", nil),
				res("wafpolicy", "w", nil),
			},
			want: [][]string{
				{"pool/p1", "pool/p2", "wafpolicy/w"},
				{"poolgroup/pg"},
				{"virtualservice/vs"},
			},
		},
		{
			name: "Absent",
			resources: []config.Resource{
				absent(res("pool", "old", nil)),
				absent(res("poolgroup", "oldpg", map[string]interface{}{"members": []interface{}{map[string]interface{}{"pool_ref": "/api/pool?name=old"}}})),
				res("pool", "new", nil),
			},
			want: [][]string{
				{"pool/new"},
				{"-poolgroup/oldpg"},
				{"-pool/old"},
			},
		},
		{
			name: "SelfReference",
			resources: []config.Resource{
				res("cloud", "c", map[string]interface{}{"ipam_provider_ref": "/api/cloud?name=c"}),
			},
			want: [][]string{{"cloud/c"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := plan.New(tc.resources)
			if err != nil {
				t.Fatal(err)
			}
			if p.Len() != len(tc.resources) {
				t.Errorf("Len() = %d, want %d", p.Len(), len(tc.resources))
			}
			if diff := cmp.Diff(names(p.Waves()), tc.want); diff != "" {
				t.Errorf("Waves() (-got +want)\n%s", diff)
			}
		})
	}
}

func TestNew_tenants(t *testing.T) {
	vs := res("virtualservice", "vs", map[string]interface{}{"pool_ref": "/api/pool?name=p"})
	vs.Tenant = "dev"
	other := res("pool", "p", nil)
	other.Tenant = "prod"
	same := res("pool", "p", nil)
	same.Tenant = "dev"

	p, err := plan.New([]config.Resource{vs, other})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Waves()) != 1 {
		t.Errorf("reference across tenants ordered: %v", names(p.Waves()))
	}

	p, err = plan.New([]config.Resource{vs, other, same})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"pool/p", "pool/p"}, {"virtualservice/vs"}}
	if diff := cmp.Diff(names(p.Waves()), want); diff != "" {
		t.Errorf("Waves() (-got +want)\n%s", diff)
	}
	deps := p.Dependencies(vs)
	if len(deps) != 1 || deps[0].Tenant != "dev" {
		t.Errorf("Dependencies() = %v", deps)
	}
}

func TestNew_cycle(t *testing.T) {
	_, err := plan.New([]config.Resource{
		res("pool", "a", map[string]interface{}{"pool_refs": []interface{}{"/api/pool?name=b"}}),
		res("pool", "b", map[string]interface{}{"nested": map[string]interface{}{"pool_ref": "/api/pool?name=a"}}),
		res("pool", "c", nil),
	})
	cerr, ok := err.(*plan.CycleError)
	if !ok {
		t.Fatalf("err = %v, want *CycleError", err)
	}
	if diff := cmp.Diff(cerr.Cycles, [][]string{{"pool/a", "pool/b"}}); diff != "" {
		t.Errorf("Cycles (-got +want)\n%s", diff)
	}
	if !strings.Contains(err.Error(), "pool/a -> pool/b") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNew_duplicate(t *testing.T) {
	_, err := plan.New([]config.Resource{res("pool", "a", nil), res("pool", "a", nil)})
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("err = %v", err)
	}
}
