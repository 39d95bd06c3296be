package vfs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketConfig addresses an S3 compatible object store.
type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Bucket serves assets stored under a prefix of an object store bucket.
type Bucket struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioClient(cfg BucketConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if nil != err {
		return nil, fmt.Errorf("unable to create object store client: %w", err)
	}
	return client, nil
}

func NewBucket(client *minio.Client, bucket, prefix string) *Bucket {
	return &Bucket{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// ParseObjectURL splits s3://bucket/dir/chart.bms into bucket, directory
// prefix and object name.
func ParseObjectURL(raw string) (bucket, dir, name string, err error) {
	u, err := url.Parse(raw)
	if nil != err {
		return "", "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", "", fmt.Errorf("not an s3 url: %q", raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	dir, name = path.Split(key)
	return u.Host, strings.TrimSuffix(dir, "/"), name, nil
}

type objectEntry struct {
	b    *Bucket
	name string
	key  string
}

func (e *objectEntry) Name() string     { return e.name }
func (e *objectEntry) IsReal() bool     { return false }
func (e *objectEntry) FullPath() string { return "s3://" + e.b.bucket + "/" + e.key }

func (e *objectEntry) ReadAllBytes(ctx context.Context) ([]byte, error) {
	obj, err := e.b.client.GetObject(ctx, e.b.bucket, e.key, minio.GetObjectOptions{})
	if nil != err {
		return nil, fmt.Errorf("unable to get %s: %w", e.FullPath(), err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if nil != err {
		return nil, fmt.Errorf("unable to read %s: %w", e.FullPath(), err)
	}
	return data, nil
}

func (b *Bucket) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return b.prefix + "/" + name
}

func (b *Bucket) Open(ctx context.Context, name string) (Entry, error) {
	if err := checkName(name); nil != err {
		return nil, err
	}
	for _, c := range Candidates(name) {
		key := b.key(c)
		_, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
		if nil == err {
			return &objectEntry{b: b, name: name, key: key}, nil
		}
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			return nil, fmt.Errorf("unable to stat %s: %w", key, err)
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotExist)
}

func (b *Bucket) Close() error {
	return nil
}
