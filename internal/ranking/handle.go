package ranking

import (
	"context"
	"fmt"
	"sync/atomic"
)

// ArtifactHandle holds the artifact the engine serves with. Reload swaps
// it atomically; callers that already read Current keep using the
// artifact they got.
type ArtifactHandle struct {
	store   ArtifactStore
	current atomic.Pointer[Artifact]
}

// NewArtifactHandle loads and verifies the stored artifact. A missing or
// mismatched artifact is returned as an error.
func NewArtifactHandle(ctx context.Context, store ArtifactStore) (*ArtifactHandle, error) {
	h := &ArtifactHandle{store: store}
	if err := h.Reload(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// NewStaticHandle wraps an already verified artifact with no backing
// store. Reload on it fails.
func NewStaticHandle(artifact *Artifact) (*ArtifactHandle, error) {
	if err := artifact.Verify(); err != nil {
		return nil, err
	}
	h := &ArtifactHandle{}
	h.current.Store(artifact)
	return h, nil
}

// Current returns the artifact in service.
func (h *ArtifactHandle) Current() *Artifact {
	return h.current.Load()
}

// Reload loads and verifies the stored artifact and swaps it in. On error
// the previous artifact stays in service.
func (h *ArtifactHandle) Reload(ctx context.Context) error {
	if h.store == nil {
		return fmt.Errorf("reload: handle has no artifact store")
	}
	artifact, err := h.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load artifact: %w", err)
	}
	if err := artifact.Verify(); err != nil {
		return err
	}
	h.current.Store(artifact)
	return nil
}
