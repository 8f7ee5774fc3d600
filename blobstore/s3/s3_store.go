// Package s3 implements blobstore.Store against Amazon S3.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/timboudreau/primal/blobstore"
)

// Store implements blobstore.Store against an S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewStore returns a Store rooted under rootPrefix within bucket.
func NewStore(client *s3.Client, bucket, rootPrefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: rootPrefix}
}

// NewStoreFromEnv loads the default AWS credential chain (environment,
// shared config, EC2/ECS role) and returns a Store built from it.
func NewStoreFromEnv(ctx context.Context, bucket, rootPrefix string) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3: loading default config: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

func (s *Store) key(name string) string { return path.Join(s.prefix, name) }

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		var nsk *types.NoSuchKey
		if errors.As(err, &nf) || errors.As(err, &nsk) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return &blob{body: obj.Body, size: *head.ContentLength}, nil
}

func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	key := s.key(name)
	pr, pw := io.Pipe()

	wb := &writableBlob{pw: pw, done: make(chan error, 1)}
	uploader := manager.NewUploader(s.client)
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		wb.done <- err
	}()
	return wb, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.key(prefix)
	var names []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: listing %s: %w", fullPrefix, err)
		}
		for _, obj := range page.Contents {
			rel := *obj.Key
			if len(s.prefix) > 0 && len(rel) > len(s.prefix) && rel[:len(s.prefix)] == s.prefix {
				rel = rel[len(s.prefix):]
				if len(rel) > 0 && rel[0] == '/' {
					rel = rel[1:]
				}
			}
			names = append(names, rel)
		}
	}
	sort.Strings(names)
	return names, nil
}

type blob struct {
	body io.ReadCloser
	size int64
}

func (b *blob) Read(p []byte) (int, error) { return b.body.Read(p) }
func (b *blob) Close() error               { return b.body.Close() }
func (b *blob) Size() int64                { return b.size }

type writableBlob struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *writableBlob) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *writableBlob) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}
