package ranking

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "models", "estimator.json"))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)

	want := testArtifact(t, nil)
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, got.Verify())
	assert.Equal(t, want.Fingerprint, got.Fingerprint)
	assert.Equal(t, want.Kept, got.Kept)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estimator.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrArtifactMismatch)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := NewS3Store(client, "models", "ranking/estimator.json")

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)

	want := testArtifact(t, nil)
	require.NoError(t, store.Save(ctx, want))
	require.Len(t, client.puts, 1)
	assert.Equal(t, "application/json", aws.ToString(client.puts[0].ContentType))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NoError(t, got.Verify())
	assert.Equal(t, want.RunID, got.RunID)
}

func TestS3Store_SaveError(t *testing.T) {
	client := newFakeS3()
	client.putErr = errors.New("access denied")

	err := NewS3Store(client, "b", "k").Save(context.Background(), testArtifact(t, nil))
	assert.ErrorContains(t, err, "access denied")
}
