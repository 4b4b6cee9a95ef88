package kvbackend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/func/avictl/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func backends(t *testing.T) map[string]storage.KVBackend {
	t.Helper()
	db, err := NewBoltWithFile(filepath.Join(t.TempDir(), "nested", "emulator.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return map[string]storage.KVBackend{
		"Memory": &Memory{},
		"Bolt":   db,
	}
}

func TestBackend_objects(t *testing.T) {
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			puts := map[string]string{
				"admin/pool/pool-1":       `{"name":"web"}`,
				"admin/pool/pool-2":       `{"name":"api"}`,
				"admin/poolgroup/pg-1":    `{"name":"all"}`,
				"tenant-5a1f/pool/pool-3": `{"name":"web"}`,
				"admin/pool/sub/pool-9":   `{}`,
			}
			for k, v := range puts {
				if err := be.Put(ctx, k, []byte(v)); err != nil {
					t.Fatalf("Put(%s) err = %v", k, err)
				}
			}

			got, err := be.Get(ctx, "tenant-5a1f/pool/pool-3")
			if err != nil {
				t.Fatalf("Get() err = %v", err)
			}
			if string(got) != `{"name":"web"}` {
				t.Errorf("Get() = %s", got)
			}

			// A replaced value is returned on the next read.
			if err := be.Put(ctx, "admin/pool/pool-2", []byte(`{"name":"api","enabled":false}`)); err != nil {
				t.Fatal(err)
			}

			tests := []struct {
				prefix string
				want   map[string]string
			}{
				{"admin/pool", map[string]string{
					"admin/pool/pool-1": `{"name":"web"}`,
					"admin/pool/pool-2": `{"name":"api","enabled":false}`,
				}},
				{"admin/poolgroup", map[string]string{"admin/poolgroup/pg-1": `{"name":"all"}`}},
				{"tenant-5a1f/pool", map[string]string{"tenant-5a1f/pool/pool-3": `{"name":"web"}`}},
				{"tenant-5a1f/cloud", map[string]string{}},
				{"other/pool", map[string]string{}},
			}
			for _, tc := range tests {
				vals, err := be.Scan(ctx, tc.prefix)
				if err != nil {
					t.Fatalf("Scan(%s) err = %v", tc.prefix, err)
				}
				got := make(map[string]string, len(vals))
				for k, v := range vals {
					got[k] = string(v)
				}
				if diff := cmp.Diff(got, tc.want); diff != "" {
					t.Errorf("Scan(%s) (-got +want)\n%s", tc.prefix, diff)
				}
			}
		})
	}
}

func TestBackend_notFound(t *testing.T) {
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := be.Get(ctx, "admin/pool/pool-1"); errors.Cause(err) != storage.ErrNotFound {
				t.Errorf("Get() missing err = %v, want %v", err, storage.ErrNotFound)
			}
			if err := be.Delete(ctx, "admin/pool/pool-1"); errors.Cause(err) != storage.ErrNotFound {
				t.Errorf("Delete() missing err = %v, want %v", err, storage.ErrNotFound)
			}

			if err := be.Put(ctx, "admin/pool/pool-1", []byte(`{}`)); err != nil {
				t.Fatal(err)
			}
			// Same uuid in another tenant is a different object.
			if _, err := be.Get(ctx, "tenant-5a1f/pool/pool-1"); errors.Cause(err) != storage.ErrNotFound {
				t.Errorf("Get() other tenant err = %v, want %v", err, storage.ErrNotFound)
			}
			if err := be.Delete(ctx, "admin/pool/pool-1"); err != nil {
				t.Fatalf("Delete() err = %v", err)
			}
			if _, err := be.Get(ctx, "admin/pool/pool-1"); errors.Cause(err) != storage.ErrNotFound {
				t.Errorf("Get() deleted err = %v, want %v", err, storage.ErrNotFound)
			}
		})
	}
}

func TestBackend_copies(t *testing.T) {
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			val := []byte(`{"name":"web"}`)
			if err := be.Put(ctx, "admin/pool/pool-1", val); err != nil {
				t.Fatal(err)
			}
			val[2] = 'X'
			got, err := be.Get(ctx, "admin/pool/pool-1")
			if err != nil {
				t.Fatal(err)
			}
			got[2] = 'Y'
			again, _ := be.Get(ctx, "admin/pool/pool-1")
			if string(again) != `{"name":"web"}` {
				t.Errorf("stored value changed: %s", again)
			}
		})
	}
}
