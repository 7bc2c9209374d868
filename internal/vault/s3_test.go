package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"bckt-go/internal/config"
)

// fakeS3 serves a single bucket from memory, paging listings two keys at a time.
type fakeS3 struct {
	mu          sync.Mutex
	objects     map[string][]byte
	modified    time.Time
	storage     map[string]types.StorageClass
	deleteCalls int
	failKeys    map[string]bool
	headErr     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:  make(map[string][]byte),
		storage:  make(map[string]types.StorageClass),
		failKeys: make(map[string]bool),
		modified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.storage[aws.ToString(in.Key)] = in.StorageClass
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		for i, k := range keys {
			if k == tok {
				start = i
			}
		}
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			LastModified: aws.Time(f.modified),
			Size:         aws.Int64(int64(len(f.objects[k]))),
		})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++

	out := &s3.DeleteObjectsOutput{}
	for _, id := range in.Delete.Objects {
		k := aws.ToString(id.Key)
		if f.failKeys[k] {
			out.Errors = append(out.Errors, types.Error{Key: id.Key, Code: aws.String("AccessDenied"), Message: aws.String("denied")})
			continue
		}
		delete(f.objects, k)
	}
	return out, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func newTestS3Vault(prefix string) (*S3Vault, *fakeS3) {
	fake := newFakeS3()
	v := NewS3VaultWithClient(config.VaultConfig{
		Type:           "s3",
		S3Bucket:       "backups",
		S3Prefix:       prefix,
		S3StorageClass: "GLACIER_IR",
	}, fake)
	return v, fake
}

func TestS3Vault_Name(t *testing.T) {
	v, _ := newTestS3Vault("")
	if v.Name() != "backups" {
		t.Errorf("Name() = %q, want bucket name when unset", v.Name())
	}
}

func TestS3Vault_PutAndList(t *testing.T) {
	ctx := context.Background()
	v, fake := newTestS3Vault("/host-a/")

	keys := []string{"docs/docs_1.tar.gz", "docs/docs_2.tar.gz", "docs/docs_3.tar.gz", "photos/photos_1.tar.gz"}
	for _, k := range keys {
		if err := v.Put(ctx, k, strings.NewReader("payload"), -1); err != nil {
			t.Fatalf("Put(%q) error = %v", k, err)
		}
	}

	if _, ok := fake.objects["host-a/docs/docs_1.tar.gz"]; !ok {
		t.Errorf("object not stored under prefix: %v", fake.objects)
	}
	if got := fake.storage["host-a/docs/docs_1.tar.gz"]; got != types.StorageClassGlacierIr {
		t.Errorf("StorageClass = %q, want GLACIER_IR", got)
	}

	objs, err := v.List(ctx, "docs/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objs) != 3 {
		t.Fatalf("List(docs/) returned %d objects across pages, want 3", len(objs))
	}
	for _, o := range objs {
		if !strings.HasPrefix(o.Key, "docs/") {
			t.Errorf("key %q not stripped of vault prefix", o.Key)
		}
		if o.Size != int64(len("payload")) {
			t.Errorf("Size = %d", o.Size)
		}
		if !o.LastModified.Equal(fake.modified) {
			t.Errorf("LastModified = %v", o.LastModified)
		}
	}
}

func TestS3Vault_Delete(t *testing.T) {
	ctx := context.Background()
	v, fake := newTestS3Vault("")
	fake.objects["docs/a.tar.gz"] = []byte("a")
	fake.objects["docs/b.tar.gz"] = []byte("b")
	fake.failKeys["docs/b.tar.gz"] = true

	results, err := v.Delete(ctx, []string{"docs/a.tar.gz", "docs/b.tar.gz"})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Delete() returned %d results, want 2", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("Delete(a) error = %v", results[0].Err)
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), "AccessDenied") {
		t.Errorf("Delete(b) error = %v, want AccessDenied", results[1].Err)
	}
	if _, ok := fake.objects["docs/a.tar.gz"]; ok {
		t.Error("docs/a.tar.gz not deleted")
	}
}

func TestS3Vault_DeleteBatches(t *testing.T) {
	ctx := context.Background()
	v, fake := newTestS3Vault("")

	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("docs/docs_%04d.tar.gz", i)
	}
	results, err := v.Delete(ctx, keys)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(results) != len(keys) {
		t.Errorf("Delete() returned %d results, want %d", len(results), len(keys))
	}
	if fake.deleteCalls != 3 {
		t.Errorf("DeleteObjects called %d times, want 3", fake.deleteCalls)
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	ctx := context.Background()
	v, fake := newTestS3Vault("")

	if err := v.ValidateSetup(ctx); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	fake.headErr = errors.New("forbidden")
	if err := v.ValidateSetup(ctx); err == nil {
		t.Error("ValidateSetup() expected error when bucket unreachable")
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"/", ""},
		{"host", "host/"},
		{"/host/a/", "host/a/"},
	}
	for _, tt := range tests {
		if got := normalizePrefix(tt.in); got != tt.want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
