package ingestion

import (
	"fmt"
	"time"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

// Report counts per-record outcomes of one ingestion run.
type Report struct {
	Source            domain.SourceType
	Inserted          int
	Updated           int
	SkippedNoIdentity int
	SkippedError      int
	// Citations is the number of citation edges appended.
	Citations int
	Duration  time.Duration
}

// Total returns the number of records seen.
func (r *Report) Total() int {
	return r.Inserted + r.Updated + r.SkippedNoIdentity + r.SkippedError
}

// Count returns the number of records with the given outcome.
func (r *Report) Count(outcome domain.Outcome) int {
	switch outcome {
	case domain.OutcomeInserted:
		return r.Inserted
	case domain.OutcomeUpdated:
		return r.Updated
	case domain.OutcomeSkippedNoIdentity:
		return r.SkippedNoIdentity
	case domain.OutcomeSkippedError:
		return r.SkippedError
	default:
		return 0
	}
}

func (r *Report) add(outcome domain.Outcome) {
	switch outcome {
	case domain.OutcomeInserted:
		r.Inserted++
	case domain.OutcomeUpdated:
		r.Updated++
	case domain.OutcomeSkippedNoIdentity:
		r.SkippedNoIdentity++
	case domain.OutcomeSkippedError:
		r.SkippedError++
	}
}

// String renders the report as a single summary line.
func (r *Report) String() string {
	return fmt.Sprintf("%s: %d records (%d inserted, %d updated, %d skipped-no-identity, %d skipped-error), %d citations in %s",
		r.Source, r.Total(), r.Inserted, r.Updated, r.SkippedNoIdentity, r.SkippedError, r.Citations, r.Duration.Round(time.Millisecond))
}
