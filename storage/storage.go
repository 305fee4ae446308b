package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gallery/config"
	"gallery/logging"
)

// Provider is persisted on every photo row and selects the backend holding its bytes
type Provider string

const (
	ProviderR2     Provider = "r2"     // private bucket, signed URLs or proxied delivery
	ProviderOracle Provider = "oracle" // public bucket, direct anonymous reads
)

var ErrNotFound = errors.New("object not found")

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderR2, ProviderOracle:
		return p, nil
	case "":
		return ProviderR2, nil
	}
	return "", fmt.Errorf("unknown storage provider %q", s)
}

type Object struct {
	Key  string
	Size int64
}

// Backend is one physical bucket
type Backend interface {
	Provider() Provider
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns ErrNotFound for missing keys
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List walks every object, page by page, until fn fails or the listing is exhausted
	List(ctx context.Context, fn func(Object) error) error
	TotalStoredBytes(ctx context.Context) (int64, error)
}

// UploadSigner issues a short-lived URL the client can PUT the object to
type UploadSigner interface {
	UploadURL(ctx context.Context, key, contentType string) (string, error)
}

// DownloadSigner issues a short-lived read URL for a private object
type DownloadSigner interface {
	DownloadURL(ctx context.Context, key string) (string, error)
}

// PublicURLer is implemented by anonymously readable backends
type PublicURLer interface {
	PublicURL(key string) string
}

var (
	backends   = map[Provider]Backend{}
	backendsMu sync.RWMutex
)

func Init() {
	if config.R2_ENDPOINT != "" {
		r2, err := NewR2Storage(S3Config{
			Endpoint:        config.R2_ENDPOINT,
			Region:          config.R2_REGION,
			AccessKeyID:     config.R2_ACCESS_KEY_ID,
			SecretAccessKey: config.R2_SECRET_ACCESS_KEY,
			Bucket:          config.R2_BUCKET_NAME,
		}, config.UPLOAD_URL_TTL, config.DOWNLOAD_URL_TTL)
		if err != nil {
			panic(err)
		}
		Register(r2)
	} else {
		dir := filepath.Join(config.LOCAL_STORAGE_DIR, string(ProviderR2))
		logging.Warn("R2 is not configured, using local disk for private storage", logging.String("dir", dir))
		Register(NewDiskStorage(ProviderR2, dir, ""))
	}
	if config.ORACLE_ENDPOINT != "" {
		public, err := NewPublicStorage(S3Config{
			Endpoint:        config.ORACLE_ENDPOINT,
			Region:          config.ORACLE_REGION,
			AccessKeyID:     config.ORACLE_ACCESS_KEY_ID,
			SecretAccessKey: config.ORACLE_SECRET_ACCESS_KEY,
			Bucket:          config.ORACLE_BUCKET_NAME,
		})
		if err != nil {
			panic(err)
		}
		Register(public)
	} else {
		dir := filepath.Join(config.LOCAL_STORAGE_DIR, string(ProviderOracle))
		logging.Warn("Oracle is not configured, using local disk for public storage", logging.String("dir", dir))
		Register(NewDiskStorage(ProviderOracle, dir, config.LOCAL_PUBLIC_URL))
	}
}

// Register installs (or replaces) the backend for its provider
func Register(b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[b.Provider()] = b
}

// For returns the backend recorded on a photo row. Rows predating the
// provider column carry no value and live in the private bucket.
func For(p Provider) Backend {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	if b, ok := backends[p]; ok {
		return b
	}
	return backends[ProviderR2]
}

// BuildKey lays out `<slug>/<slug>/.../<unix-millis>-<filename>`
func BuildKey(slugs []string, at time.Time, filename string) string {
	parts := make([]string, 0, len(slugs)+1)
	parts = append(parts, slugs...)
	parts = append(parts, fmt.Sprintf("%d-%s", at.UnixMilli(), SanitizeFilename(filename)))
	return path.Join(parts...)
}

// SanitizeFilename restricts the characters allowed in object keys
func SanitizeFilename(filename string) string {
	var name strings.Builder
	for i, c := range filename {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
			(c == '.' && i > 0) || (c == '-') || (c == '_') {

			name.WriteRune(c)
		} else {
			// Replace all other characters with '_' (underscore)
			name.WriteString("_")
		}
	}
	if name.Len() == 0 {
		return "file"
	}
	return name.String()
}

func sumSizes(ctx context.Context, b Backend) (int64, error) {
	var total int64
	err := b.List(ctx, func(o Object) error {
		total += o.Size
		return nil
	})
	return total, err
}
