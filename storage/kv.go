// Package storage persists controller objects for the local emulator.
package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/func/avictl/object"
	"github.com/pkg/errors"
)

// The KVBackend is used for persisting key-value data.
type KVBackend interface {
	// Put creates or updates a key.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the given key. Returns ErrNotFound if the given key does not
	// exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete deletes a key. Returns ErrNotFound if the given key does not exist.
	Delete(ctx context.Context, key string) error

	// Scan returns a key-value map of all keys matching the given prefix.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

// KV stores controller objects in a key-value backend. Objects are keyed
// <tenant>/<type>/<uuid>.
type KV struct {
	Backend KVBackend // Backend to use for persisting data.

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// A Record is a stored object.
type Record struct {
	Tenant   string
	Type     string
	UUID     string
	Object   *object.Object
	Modified time.Time
}

// an envelope wraps the data and is used when marshalling to json.
type envelope struct {
	Object   *object.Object `json:"obj"`
	Modified int64          `json:"mod"`
}

func key(tenant, typ, uuid string) string {
	return tenant + "/" + typ + "/" + uuid
}

func (kv *KV) now() time.Time {
	if kv.Now != nil {
		return kv.Now()
	}
	return time.Now()
}

// Put stores an object and returns the record with its modification time.
func (kv *KV) Put(ctx context.Context, tenant, typ, uuid string, obj *object.Object) (*Record, error) {
	if strings.Contains(tenant, "/") || strings.Contains(typ, "/") || strings.Contains(uuid, "/") {
		return nil, errors.Errorf("invalid key %s", key(tenant, typ, uuid))
	}
	mod := kv.now()
	j, err := json.Marshal(envelope{Object: obj, Modified: mod.UnixNano()})
	if err != nil {
		return nil, errors.Wrap(err, "marshal envelope")
	}
	if err := kv.Backend.Put(ctx, key(tenant, typ, uuid), j); err != nil {
		return nil, errors.Wrap(err, "store")
	}
	return &Record{Tenant: tenant, Type: typ, UUID: uuid, Object: obj, Modified: mod}, nil
}

// Get returns a single object. Returns ErrNotFound if the object does not
// exist.
func (kv *KV) Get(ctx context.Context, tenant, typ, uuid string) (*Record, error) {
	data, err := kv.Backend.Get(ctx, key(tenant, typ, uuid))
	if err != nil {
		return nil, err
	}
	return decode(tenant, typ, uuid, data)
}

// Delete deletes a single object. Returns ErrNotFound if the object does not
// exist.
func (kv *KV) Delete(ctx context.Context, tenant, typ, uuid string) error {
	return kv.Backend.Delete(ctx, key(tenant, typ, uuid))
}

// List lists all objects of a type in a tenant, ordered by uuid.
func (kv *KV) List(ctx context.Context, tenant, typ string) ([]*Record, error) {
	values, err := kv.Backend.Scan(ctx, tenant+"/"+typ)
	if err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	ret := make([]*Record, 0, len(values))
	for k, v := range values {
		uuid := k[strings.LastIndex(k, "/")+1:]
		if k != key(tenant, typ, uuid) {
			// Prefix match on a longer type name.
			continue
		}
		rec, err := decode(tenant, typ, uuid, v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, rec)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].UUID < ret[j].UUID })
	return ret, nil
}

func decode(tenant, typ, uuid string, data []byte) (*Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrapf(err, "unmarshal stored %s", key(tenant, typ, uuid))
	}
	if env.Object == nil {
		env.Object = object.New()
	}
	return &Record{
		Tenant:   tenant,
		Type:     typ,
		UUID:     uuid,
		Object:   env.Object,
		Modified: time.Unix(0, env.Modified),
	}, nil
}
