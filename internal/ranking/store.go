package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

// ArtifactStore persists ranking artifacts. Load returns an error wrapping
// domain.ErrArtifactMissing when nothing has been saved yet.
type ArtifactStore interface {
	Load(ctx context.Context) (*Artifact, error)
	Save(ctx context.Context, artifact *Artifact) error
}

func decodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %v", domain.ErrArtifactMismatch, err)
	}
	return &a, nil
}

// FileStore keeps the artifact in a single file on local disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the artifact file.
func (s *FileStore) Load(_ context.Context) (*Artifact, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactMissing, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	return decodeArtifact(f)
}

// Save writes the artifact to a temporary file and renames it into place
// so readers never see a partial write.
func (s *FileStore) Save(_ context.Context, artifact *Artifact) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(artifact); err != nil {
		tmp.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}
	return nil
}

// S3API is the subset of the S3 client the artifact store uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps the artifact as one object in an S3-compatible bucket.
type S3Store struct {
	client S3API
	bucket string
	key    string
}

// NewS3Store creates a store for bucket/key.
func NewS3Store(client S3API, bucket, key string) *S3Store {
	return &S3Store{client: client, bucket: bucket, key: key}
}

// Load downloads and decodes the artifact object.
func (s *S3Store) Load(ctx context.Context) (*Artifact, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", domain.ErrArtifactMissing, s.bucket, s.key)
		}
		return nil, fmt.Errorf("get artifact object: %w", err)
	}
	defer out.Body.Close()
	return decodeArtifact(out.Body)
}

// Save uploads the artifact as a single object.
func (s *S3Store) Save(ctx context.Context, artifact *Artifact) error {
	body, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put artifact object: %w", err)
	}
	return nil
}
