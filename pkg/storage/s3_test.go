package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.types[*in.Key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for k := range f.objects {
		key, ok := strings.CutPrefix(k, *in.Bucket+"/")
		if ok && strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := &S3Store{Client: fake, Bucket: "traces", Prefix: "graphstep"}

	require.NoError(t, s.Put(ctx, "demo/b.json", []byte("[]")))
	require.NoError(t, s.Put(ctx, "demo/a.json", []byte(`[{"kind":"wait"}]`)))
	require.NoError(t, s.Put(ctx, "flow/a.yaml", []byte("- kind: wait\n")))

	assert.Contains(t, fake.objects, "traces/graphstep/demo/a.json")
	assert.Equal(t, "application/json", fake.types["graphstep/demo/a.json"])
	assert.Equal(t, "application/yaml", fake.types["graphstep/flow/a.yaml"])

	data, err := s.Get(ctx, "demo/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"wait"}]`, string(data))

	keys, err := s.List(ctx, "demo/")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/a.json", "demo/b.json"}, keys)

	_, err = s.Get(ctx, "demo/missing.json")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestS3Store_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := &S3Store{Client: fake, Bucket: "traces"}

	assert.ErrorIs(t, s.Put(ctx, "../x.json", nil), ErrBadKey)

	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "no write"}
	fake.failPut = denied
	err := s.Put(ctx, "demo/a.json", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied: no write")
	var api smithy.APIError
	assert.True(t, errors.As(err, &api))
}

func TestParseS3(t *testing.T) {
	bucket, prefix, ok := ParseS3("s3://traces/team/graphstep/")
	assert.True(t, ok)
	assert.Equal(t, "traces", bucket)
	assert.Equal(t, "team/graphstep", prefix)

	bucket, prefix, ok = ParseS3("s3://traces")
	assert.True(t, ok)
	assert.Equal(t, "traces", bucket)
	assert.Empty(t, prefix)

	_, _, ok = ParseS3("s3:///nobucket")
	assert.False(t, ok)
	_, _, ok = ParseS3("./traces")
	assert.False(t, ok)
}

func TestOpen_Local(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, NewLocalStore(dir), st)

	_, err = Open(context.Background(), "s3://")
	assert.Error(t, err)
}
