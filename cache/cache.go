// Package cache is a read-through cache whose entries are grouped by tag.
//
// Every entry key embeds the current generation of each of its tags.
// Invalidating a tag bumps its generation, so all entries carrying it miss
// from then on and expire by TTL.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"gallery/logging"
	"gallery/metrics"
)

type Tag string

const (
	TagAlbums Tag = "albums"
	TagPhotos Tag = "photos"
	TagRoles  Tag = "roles"
)

const (
	ViewTTL   = 60 * time.Second  // album tree and album pages
	LookupTTL = 300 * time.Second // provider lookup on the delivery path

	keyPrefix = "gallery:"
)

// Store is the storage behind the cache. Counter returns 0 for unknown keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
}

var store Store = NewMemoryStore()

// SetStore replaces the process wide store
func SetStore(s Store) {
	store = s
}

// Cached returns the value stored under key, or calls loader and stores its
// result. Values are JSON encoded; the loader's result is returned decoded
// from that encoding too, so a miss and a hit return identical values.
// Store failures only cost a call to loader.
func Cached[T any](ctx context.Context, key string, ttl time.Duration, tags []Tag, loader func() (T, error)) (T, error) {
	fullKey, err := versionedKey(ctx, key, tags)
	if err == nil {
		data, ok, err := store.Get(ctx, fullKey)
		if err == nil && ok {
			var value T
			if err = json.Unmarshal(data, &value); err == nil {
				metrics.RecordCacheLookup("hit")
				return value, nil
			}
		}
		if err != nil {
			logging.Warn("Cache read failed", logging.String("key", key), logging.Err(err))
			metrics.RecordCacheLookup("error")
		} else {
			metrics.RecordCacheLookup("miss")
		}
	} else {
		logging.Warn("Cache tag lookup failed", logging.String("key", key), logging.Err(err))
		metrics.RecordCacheLookup("error")
	}

	value, err := loader()
	if err != nil {
		return value, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return value, err
	}
	if fullKey != "" {
		if err := store.Set(ctx, fullKey, data, ttl); err != nil {
			logging.Warn("Cache write failed", logging.String("key", key), logging.Err(err))
		}
	}
	var decoded T
	if err = json.Unmarshal(data, &decoded); err != nil {
		return value, err
	}
	return decoded, nil
}

// Invalidate makes every entry tagged with any of tags miss
func Invalidate(ctx context.Context, tags ...Tag) error {
	for _, tag := range tags {
		if _, err := store.Incr(ctx, tagKey(tag)); err != nil {
			return err
		}
		metrics.RecordCacheInvalidation(string(tag))
	}
	return nil
}

func tagKey(tag Tag) string {
	return keyPrefix + "tag:" + string(tag)
}

func versionedKey(ctx context.Context, key string, tags []Tag) (string, error) {
	sorted := append([]Tag{}, tags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(key)
	for _, tag := range sorted {
		gen, err := store.Counter(ctx, tagKey(tag))
		if err != nil {
			return "", err
		}
		b.WriteString("|")
		b.WriteString(string(tag))
		b.WriteString("=")
		b.WriteString(strconv.FormatInt(gen, 10))
	}
	return b.String(), nil
}
