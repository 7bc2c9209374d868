package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"bckt-go/internal/bckt"
	"bckt-go/internal/config"
)

const (
	// deleteBatchSize is the DeleteObjects limit per request.
	deleteBatchSize = 1000
	// maxPartSize bounds the memory the uploader buffers per part.
	maxPartSize = 64 * 1024 * 1024
)

// S3API is the subset of the S3 client the vault uses.
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Vault stores archives as objects in an S3 (or S3-compatible) bucket.
// A configured prefix is prepended on write and stripped on list, so keys
// seen by callers are always "<target>/<file>".
type S3Vault struct {
	name         string
	bucket       string
	prefix       string
	storageClass types.StorageClass
	client       S3API
	uploader     *manager.Uploader
}

// NewS3Vault builds a client from the default AWS credential chain, overridden
// by static keys, region and endpoint when the config sets them.
func NewS3Vault(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3VaultWithClient(cfg, client), nil
}

// NewS3VaultWithClient wraps an existing client.
func NewS3VaultWithClient(cfg config.VaultConfig, client S3API) *S3Vault {
	name := cfg.Name
	if name == "" {
		name = cfg.S3Bucket
	}

	partSize := cfg.MultipartThreshold * 1024 * 1024
	if partSize < manager.MinUploadPartSize {
		partSize = manager.MinUploadPartSize
	}
	if partSize > maxPartSize {
		partSize = maxPartSize
	}

	return &S3Vault{
		name:         name,
		bucket:       cfg.S3Bucket,
		prefix:       normalizePrefix(cfg.S3Prefix),
		storageClass: types.StorageClass(cfg.S3StorageClass),
		client:       client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = partSize
			u.Concurrency = 2
		}),
	}
}

// normalizePrefix returns "" or a prefix ending in exactly one slash.
func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// Name returns the vault name.
func (v *S3Vault) Name() string {
	return v.name
}

// List pages through every object under the vault prefix plus prefix.
func (v *S3Vault) List(ctx context.Context, prefix string) ([]bckt.RemoteObject, error) {
	p := s3.NewListObjectsV2Paginator(v.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(v.bucket),
		Prefix: aws.String(v.prefix + prefix),
	})

	var objs []bckt.RemoteObject
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", v.bucket, v.prefix+prefix, err)
		}
		for _, o := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(o.Key), v.prefix)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			objs = append(objs, bckt.RemoteObject{
				Key:          key,
				LastModified: aws.ToTime(o.LastModified).UTC(),
				Size:         aws.ToInt64(o.Size),
			})
		}
	}
	return objs, nil
}

// Put uploads r, switching to multipart for large bodies.
func (v *S3Vault) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.prefix + key),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if v.storageClass != "" {
		input.StorageClass = v.storageClass
	}

	if _, err := v.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", v.bucket, v.prefix+key, err)
	}
	return nil
}

// Delete removes keys in batches of up to 1000 per request.
func (v *S3Vault) Delete(ctx context.Context, keys []string) ([]bckt.DeleteResult, error) {
	results := make([]bckt.DeleteResult, 0, len(keys))
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		batch := keys[start:end]

		ids := make([]types.ObjectIdentifier, 0, len(batch))
		for _, k := range batch {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(v.prefix + k)})
		}

		out, err := v.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(v.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			for _, k := range batch {
				results = append(results, bckt.DeleteResult{Key: k, Err: err})
			}
			continue
		}

		failed := make(map[string]error, len(out.Errors))
		for _, e := range out.Errors {
			k := strings.TrimPrefix(aws.ToString(e.Key), v.prefix)
			failed[k] = fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message))
		}
		for _, k := range batch {
			results = append(results, bckt.DeleteResult{Key: k, Err: failed[k]})
		}
	}
	return results, nil
}

// ValidateSetup checks the bucket exists and the credentials can reach it.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if v.bucket == "" {
		return errors.New("s3 vault requires s3_bucket to be set")
	}
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

var _ bckt.Vault = (*S3Vault)(nil)
