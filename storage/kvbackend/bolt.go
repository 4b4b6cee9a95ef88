package kvbackend

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/func/avictl/storage"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Bolt stores key-value pairs in a bbolt database. Every segment of a key but
// the last names a nested bucket, so admin/pool/pool-1 is stored as pool-1 in
// bucket pool inside bucket admin.
type Bolt struct {
	db *bolt.DB
}

// DefaultBoltFile returns the default emulator database location,
// ~/.avictl/emulator.db.
func DefaultBoltFile() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", errors.Wrap(err, "get user")
	}
	return filepath.Join(u.HomeDir, ".avictl", "emulator.db"), nil
}

// NewBolt opens the database at DefaultBoltFile.
func NewBolt() (*Bolt, error) {
	file, err := DefaultBoltFile()
	if err != nil {
		return nil, err
	}
	return NewBoltWithFile(file)
}

// NewBoltWithFile opens the database at file, creating it and its directory
// when missing.
func NewBoltWithFile(file string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return nil, errors.Wrapf(err, "create dir %s", filepath.Dir(file))
	}
	db, err := bolt.Open(file, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", file)
	}
	return &Bolt{db: db}, nil
}

// Close releases the database file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Put creates or updates a value.
func (b *Bolt) Put(ctx context.Context, key string, value []byte) error {
	buckets, k, err := splitKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(buckets[0])
		for _, name := range buckets[1:] {
			if err != nil {
				break
			}
			bkt, err = bkt.CreateBucketIfNotExists(name)
		}
		if err != nil {
			return errors.Wrapf(err, "create bucket for %s", key)
		}
		return bkt.Put(k, value)
	})
}

// Get returns a copy of a single value.
func (b *Bolt) Get(ctx context.Context, key string) ([]byte, error) {
	buckets, k, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err = b.db.View(func(tx *bolt.Tx) error {
		bkt := lookup(tx, buckets)
		if bkt == nil {
			return storage.ErrNotFound
		}
		v := bkt.Get(k)
		if v == nil {
			return storage.ErrNotFound
		}
		out = clone(v)
		return nil
	})
	return out, err
}

// Delete deletes a key. Empty buckets are kept.
func (b *Bolt) Delete(ctx context.Context, key string) error {
	buckets, k, err := splitKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := lookup(tx, buckets)
		if bkt == nil || bkt.Get(k) == nil {
			return storage.ErrNotFound
		}
		return errors.Wrapf(bkt.Delete(k), "delete %s", key)
	})
}

// Scan returns the values stored directly under prefix. Nested buckets are
// not descended into.
func (b *Bolt) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	if prefix == "" || strings.HasPrefix(prefix, "/") || strings.HasSuffix(prefix, "/") {
		return nil, errors.Errorf("invalid prefix %q", prefix)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string][]byte)
	err := b.db.View(func(tx *bolt.Tx) error {
		var names [][]byte
		for _, s := range strings.Split(prefix, "/") {
			names = append(names, []byte(s))
		}
		bkt := lookup(tx, names)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, v []byte) error {
			if v != nil {
				out[prefix+"/"+string(k)] = clone(v)
			}
			return nil
		})
	})
	return out, err
}

func lookup(tx *bolt.Tx, names [][]byte) *bolt.Bucket {
	bkt := tx.Bucket(names[0])
	for _, name := range names[1:] {
		if bkt == nil {
			return nil
		}
		bkt = bkt.Bucket(name)
	}
	return bkt
}

// splitKey splits a key into its bucket path and the key within the innermost
// bucket.
//
//	admin/pool/pool-1 -> [admin pool], pool-1
//
// Keys need at least one bucket and no empty segments.
func splitKey(key string) (buckets [][]byte, k []byte, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 2 {
		return nil, nil, errors.Errorf("key %q has no bucket", key)
	}
	for _, p := range parts {
		if p == "" {
			return nil, nil, errors.Errorf("key %q has an empty segment", key)
		}
	}
	for _, p := range parts[:len(parts)-1] {
		buckets = append(buckets, []byte(p))
	}
	return buckets, []byte(parts[len(parts)-1]), nil
}
