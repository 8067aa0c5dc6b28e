package ranking

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// ArtifactVersion is the current artifact layout version.
const ArtifactVersion = 1

// Artifact is a trained classifier persisted together with the scaler it
// was fit with. Kept lists the indices into Features the model consumes,
// after leakage pruning.
type Artifact struct {
	Version     int            `json:"version"`
	RunID       string         `json:"run_id"`
	TrainedAt   time.Time      `json:"trained_at"`
	Features    []string       `json:"features"`
	Kept        []int          `json:"kept"`
	Scaler      *Scaler        `json:"scaler"`
	Model       *LogisticModel `json:"model"`
	Fingerprint string         `json:"fingerprint"`
}

// ComputeFingerprint hashes the feature layout, the scaler and the model.
func (a *Artifact) ComputeFingerprint() string {
	h := sha256.New()
	var buf [8]byte
	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	writeInt := func(i int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		h.Write(buf[:])
	}

	writeInt(a.Version)
	for _, f := range a.Features {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	for _, k := range a.Kept {
		writeInt(k)
	}
	if a.Scaler != nil {
		writeInt(len(a.Scaler.Mean))
		for _, v := range a.Scaler.Mean {
			writeFloat(v)
		}
		for _, v := range a.Scaler.Std {
			writeFloat(v)
		}
	}
	if a.Model != nil {
		writeInt(len(a.Model.Weights))
		for _, w := range a.Model.Weights {
			writeFloat(w)
		}
		writeFloat(a.Model.Bias)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Seal stamps the fingerprint.
func (a *Artifact) Seal() {
	a.Fingerprint = a.ComputeFingerprint()
}

// Verify checks that the scaler and model belong together and match the
// feature layout the corpus reader produces. Every failure wraps
// domain.ErrArtifactMismatch.
func (a *Artifact) Verify() error {
	mismatch := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", domain.ErrArtifactMismatch, fmt.Sprintf(format, args...))
	}

	if a.Version != ArtifactVersion {
		return mismatch("version %d, want %d", a.Version, ArtifactVersion)
	}
	if a.Scaler == nil || a.Model == nil {
		return mismatch("scaler or model missing")
	}
	if !slices.Equal(a.Features, repository.FeatureNames) {
		return mismatch("feature layout %v differs from %v", a.Features, repository.FeatureNames)
	}
	if len(a.Kept) == 0 {
		return mismatch("no kept features")
	}
	for _, k := range a.Kept {
		if k < 0 || k >= len(a.Features) {
			return mismatch("kept index %d out of range", k)
		}
	}
	if len(a.Scaler.Mean) != len(a.Kept) || len(a.Scaler.Std) != len(a.Kept) {
		return mismatch("scaler width %d, kept %d", len(a.Scaler.Mean), len(a.Kept))
	}
	if len(a.Model.Weights) != len(a.Kept) {
		return mismatch("model width %d, kept %d", len(a.Model.Weights), len(a.Kept))
	}
	if a.Fingerprint != a.ComputeFingerprint() {
		return mismatch("fingerprint does not match scaler and model")
	}
	return nil
}

// Predict selects the kept features of each row, scales them and returns
// impact probabilities.
func (a *Artifact) Predict(rows [][]float64) ([]float64, error) {
	selected := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(a.Features) {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), len(a.Features))
		}
		selected[i] = selectColumns(row, a.Kept)
	}
	scaled, err := a.Scaler.Transform(selected)
	if err != nil {
		return nil, err
	}
	return a.Model.PredictProba(scaled)
}

func selectColumns(row []float64, kept []int) []float64 {
	out := make([]float64, len(kept))
	for i, k := range kept {
		out[i] = row[k]
	}
	return out
}
