// Package papersources maps source-native bibliographic records onto the
// canonical record shape.
//
// Every external source (arXiv, OpenAlex, CrossRef, Semantic Scholar)
// implements Adapter. Records arrive from exports on disk or from an
// upstream fetcher as raw bytes, one record at a time, through a
// RecordReader. The package never talks to source APIs directly.
//
// Example usage:
//
//	registry := papersources.NewRegistry(openalex.New(), crossref.New())
//	adapter, _ := registry.Get(domain.SourceTypeOpenAlex)
//	reader := registry.Reader(domain.SourceTypeOpenAlex, file)
//	for {
//		raw, err := reader.Next()
//		if errors.Is(err, io.EOF) {
//			break
//		}
//		record, err := adapter.Map(raw)
//		...
//	}
package papersources

import (
	"errors"
	"io"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

// ErrMalformedRecord indicates raw bytes that could not be decoded as a
// record of the adapter's source.
var ErrMalformedRecord = errors.New("malformed record")

// Adapter maps one source-native record into canonical fields.
type Adapter interface {
	// Source returns the type identifier of the source this adapter reads.
	Source() domain.SourceType

	// Map decodes raw and returns the canonical record.
	//
	// Implementations should:
	//   - wrap decoding failures with ErrMalformedRecord
	//   - return a *domain.IdentityError for records the source itself
	//     marks as unusable without a key
	//   - leave fields the source does not supply at their zero value
	Map(raw []byte) (*domain.Record, error)
}

// RecordReader yields raw records one at a time. Next returns io.EOF once
// the input is exhausted.
type RecordReader interface {
	Next() ([]byte, error)
}

// ReaderProvider is implemented by adapters whose exports are not
// newline-delimited JSON.
type ReaderProvider interface {
	NewReader(r io.Reader) RecordReader
}
