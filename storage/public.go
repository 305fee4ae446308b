package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"gallery/metrics"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PublicStorage is the anonymously readable bucket. It accepts proxied writes
// only as the bucket has no CORS for browser uploads.
type PublicStorage struct {
	bucket  string
	baseURL string
	client  *minio.Client
}

func NewPublicStorage(cfg S3Config) (*PublicStorage, error) {
	endpoint := cfg.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid public bucket endpoint %q: %w", cfg.Endpoint, err)
	}
	client, err := minio.New(u.Host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       u.Scheme == "https",
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, err
	}
	return &PublicStorage{
		bucket:  cfg.Bucket,
		baseURL: u.Scheme + "://" + u.Host,
		client:  client,
	}, nil
}

func (s *PublicStorage) Provider() Provider {
	return ProviderOracle
}

// PublicURL is `<endpoint>/<bucket>/<key>` (path style)
func (s *PublicStorage) PublicURL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + escapeKey(key)
}

func (s *PublicStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	done := metrics.StorageTimer(string(ProviderOracle), "put")
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	done(err)
	return err
}

func (s *PublicStorage) Get(ctx context.Context, key string) ([]byte, error) {
	done := metrics.StorageTimer(string(ProviderOracle), "get")
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		done(err)
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		done(nil)
		return nil, ErrNotFound
	}
	done(err)
	return data, err
}

func (s *PublicStorage) Delete(ctx context.Context, key string) error {
	done := metrics.StorageTimer(string(ProviderOracle), "delete")
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	done(err)
	return err
}

func (s *PublicStorage) List(ctx context.Context, fn func(Object) error) error {
	done := metrics.StorageTimer(string(ProviderOracle), "list")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			done(info.Err)
			return info.Err
		}
		if err := fn(Object{Key: info.Key, Size: info.Size}); err != nil {
			done(nil)
			return err
		}
	}
	done(nil)
	return nil
}

func (s *PublicStorage) TotalStoredBytes(ctx context.Context) (int64, error) {
	return sumSizes(ctx, s)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
