package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"gallery/metrics"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

var (
	_ UploadSigner   = (*R2Storage)(nil)
	_ DownloadSigner = (*R2Storage)(nil)
	_ PublicURLer    = (*PublicStorage)(nil)
	_ PublicURLer    = (*DiskStorage)(nil)
)

// R2Storage is the private bucket. Objects are never readable anonymously.
type R2Storage struct {
	bucket      string
	client      *s3.S3
	uploader    *s3manager.Uploader
	uploadTTL   time.Duration
	downloadTTL time.Duration
}

func NewR2Storage(cfg S3Config, uploadTTL, downloadTTL time.Duration) (*R2Storage, error) {
	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	client := s3.New(sess)
	return &R2Storage{
		bucket:      cfg.Bucket,
		client:      client,
		uploader:    s3manager.NewUploaderWithClient(client),
		uploadTTL:   uploadTTL,
		downloadTTL: downloadTTL,
	}, nil
}

func (s *R2Storage) Provider() Provider {
	return ProviderR2
}

func (s *R2Storage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	done := metrics.StorageTimer(string(ProviderR2), "put")
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      &s.bucket,
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(data),
	})
	done(err)
	return err
}

func (s *R2Storage) Get(ctx context.Context, key string) ([]byte, error) {
	done := metrics.StorageTimer(string(ProviderR2), "get")
	resp, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			done(nil)
			return nil, ErrNotFound
		}
		done(err)
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	done(err)
	return data, err
}

func (s *R2Storage) Delete(ctx context.Context, key string) error {
	done := metrics.StorageTimer(string(ProviderR2), "delete")
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
	})
	done(err)
	return err
}

func (s *R2Storage) List(ctx context.Context, fn func(Object) error) error {
	done := metrics.StorageTimer(string(ProviderR2), "list")
	var fnErr error
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket},
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				if fnErr = fn(Object{Key: aws.StringValue(obj.Key), Size: aws.Int64Value(obj.Size)}); fnErr != nil {
					return false
				}
			}
			return true
		})
	done(err)
	if fnErr != nil {
		return fnErr
	}
	return err
}

func (s *R2Storage) TotalStoredBytes(ctx context.Context) (int64, error) {
	return sumSizes(ctx, s)
}

func (s *R2Storage) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	req, _ := s.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	req.SetContext(ctx)
	return req.Presign(s.uploadTTL)
}

func (s *R2Storage) DownloadURL(ctx context.Context, key string) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
	})
	req.SetContext(ctx)
	return req.Presign(s.downloadTTL)
}
