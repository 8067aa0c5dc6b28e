package merge

import (
	"strings"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

// Key is the conflict target of an upsert: a unique column and its value.
type Key struct {
	Column string
	Value  string
}

// PaperKey selects the identity of a paper: the DOI when present, otherwise
// the source-native id. A paper with neither is rejected with
// domain.ErrNoIdentity.
func PaperKey(doi, sourceID string) (Key, error) {
	if v := strings.TrimSpace(doi); v != "" {
		return Key{Column: "doi", Value: v}, nil
	}
	if v := strings.TrimSpace(sourceID); v != "" {
		return Key{Column: "openalex_id", Value: v}, nil
	}
	return Key{}, domain.NewIdentityError("paper", "")
}

// NameKey builds a key for tables identified by a single text column. A
// blank value is rejected with domain.ErrNoIdentity.
func NameKey(entity, column, value string) (Key, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Key{}, domain.NewIdentityError(entity, "")
	}
	return Key{Column: column, Value: v}, nil
}
