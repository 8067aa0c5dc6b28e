package papersources

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// maxRecordSize bounds a single JSON line. OpenAlex works with long
// author lists and inverted abstracts run to several megabytes.
const maxRecordSize = 16 << 20

// JSONLReader reads newline-delimited JSON, one record per line. Blank
// lines are skipped.
type JSONLReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewJSONLReader creates a reader over r.
func NewJSONLReader(r io.Reader) *JSONLReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	return &JSONLReader{scanner: scanner}
}

// Next returns the next non-blank line. The returned slice is a copy and
// remains valid after subsequent calls.
func (r *JSONLReader) Next() ([]byte, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

// Line returns the number of the line most recently read.
func (r *JSONLReader) Line() int {
	return r.line
}
