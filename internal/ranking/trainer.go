package ranking

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/bibliometrics-service/internal/observability"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// TrainConfig controls estimator training.
type TrainConfig struct {
	// LabelPercentile marks papers whose influential citation count reaches
	// this percentile of the corpus as high impact.
	LabelPercentile float64
	// LeakageThreshold drops features whose absolute Pearson correlation
	// with the label exceeds it.
	LeakageThreshold float64
	// Seed makes oversampling reproducible.
	Seed uint64
	Fit  FitConfig
}

// DefaultTrainConfig returns the 90th percentile label, 0.95 leakage
// threshold and gradient descent settings that converge on standardized
// features.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		LabelPercentile:  0.9,
		LeakageThreshold: 0.95,
		Seed:             42,
		Fit:              FitConfig{LearningRate: 0.1, Epochs: 500, L2: 0.01},
	}
}

// Trainer fits the impact classifier on the full corpus and persists it.
type Trainer struct {
	reader  repository.CorpusReader
	store   ArtifactStore
	cfg     TrainConfig
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewTrainer creates a trainer. metrics may be nil.
func NewTrainer(reader repository.CorpusReader, store ArtifactStore, cfg TrainConfig, metrics *observability.Metrics, logger zerolog.Logger) *Trainer {
	return &Trainer{
		reader:  reader,
		store:   store,
		cfg:     cfg,
		logger:  logger.With().Str("component", "trainer").Logger(),
		metrics: metrics,
		now:     time.Now,
	}
}

// Train loads the corpus, fits scaler and model, and saves them together
// as one artifact.
func (t *Trainer) Train(ctx context.Context) (*Artifact, error) {
	artifact, err := t.train(ctx)
	if err != nil {
		t.metrics.RecordTraining("failed")
		return nil, err
	}
	t.metrics.RecordTraining("completed")
	return artifact, nil
}

func (t *Trainer) train(ctx context.Context) (*Artifact, error) {
	rows, err := t.reader.LoadRankingRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("train: need at least 2 papers, have %d", len(rows))
	}

	features := make([][]float64, len(rows))
	influential := make([]float64, len(rows))
	for i, r := range rows {
		features[i] = r.Features
		influential[i] = float64(r.InfluentialCitations)
	}

	labels, threshold, positives := impactLabels(influential, t.cfg.LabelPercentile)
	if positives == 0 || positives == len(rows) {
		return nil, fmt.Errorf("train: labels are single-class (%d of %d positive)", positives, len(rows))
	}

	kept := keptFeatures(features, labels, t.cfg.LeakageThreshold)
	if len(kept) == 0 {
		return nil, fmt.Errorf("train: every feature exceeds the leakage threshold")
	}
	selected := make([][]float64, len(features))
	for i, row := range features {
		selected[i] = selectColumns(row, kept)
	}

	scaler, err := FitScaler(selected)
	if err != nil {
		return nil, err
	}
	scaled, err := scaler.Transform(selected)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(t.cfg.Seed, t.cfg.Seed))
	trainX, trainY := oversample(scaled, labels, rng)

	model, err := FitLogistic(trainX, trainY, t.cfg.Fit)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Version:   ArtifactVersion,
		RunID:     uuid.NewString(),
		TrainedAt: t.now().UTC(),
		Features:  slices.Clone(repository.FeatureNames),
		Kept:      kept,
		Scaler:    scaler,
		Model:     model,
	}
	artifact.Seal()

	if err := t.store.Save(ctx, artifact); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	t.logger.Info().
		Str("run_id", artifact.RunID).
		Int("papers", len(rows)).
		Int("positives", positives).
		Int("training_rows", len(trainX)).
		Ints("kept", kept).
		Float64("label_threshold", threshold).
		Msg("estimator trained")
	return artifact, nil
}

// impactLabels marks papers whose influential count reaches the p-th
// percentile. When the percentile falls on the corpus minimum, as it does
// when most papers have no influential citations, a paper must exceed it.
func impactLabels(influential []float64, p float64) (labels []float64, threshold float64, positives int) {
	threshold = percentile(influential, p)
	strict := threshold <= slices.Min(influential)
	labels = make([]float64, len(influential))
	for i, v := range influential {
		if v > threshold || (!strict && v == threshold) {
			labels[i] = 1
			positives++
		}
	}
	return labels, threshold, positives
}

// percentile returns the nearest-rank percentile p (0..1) of values.
func percentile(values []float64, p float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

// keptFeatures returns the column indices whose absolute correlation with
// labels is at most threshold.
func keptFeatures(rows [][]float64, labels []float64, threshold float64) []int {
	width := len(rows[0])
	var kept []int
	column := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			column[i] = row[j]
		}
		if math.Abs(pearson(column, labels)) <= threshold {
			kept = append(kept, j)
		}
	}
	return kept
}

// pearson returns the correlation of x and y, or 0 when either is constant.
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// oversample draws minority rows with replacement until both classes have
// the same count.
func oversample(rows [][]float64, labels []float64, rng *rand.Rand) ([][]float64, []float64) {
	var pos, neg []int
	for i, l := range labels {
		if l == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	minority, majority := pos, neg
	if len(pos) > len(neg) {
		minority, majority = neg, pos
	}

	outX := slices.Clone(rows)
	outY := slices.Clone(labels)
	for extra := len(majority) - len(minority); extra > 0; extra-- {
		i := minority[rng.IntN(len(minority))]
		outX = append(outX, rows[i])
		outY = append(outY, labels[i])
	}
	return outX, outY
}
