package arxiv

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// FeedReader streams <entry> elements out of an Atom feed without loading
// the whole feed into memory.
type FeedReader struct {
	decoder *xml.Decoder
}

// NewFeedReader creates a reader over an Atom feed.
func NewFeedReader(r io.Reader) *FeedReader {
	return &FeedReader{decoder: xml.NewDecoder(r)}
}

// rawEntry captures an entry's inner markup untouched.
type rawEntry struct {
	Inner []byte `xml:",innerxml"`
}

// Next returns the next entry as a standalone <entry> document.
func (f *FeedReader) Next() ([]byte, error) {
	for {
		tok, err := f.decoder.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read atom feed: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "entry" {
			continue
		}

		var entry rawEntry
		if err := f.decoder.DecodeElement(&entry, &start); err != nil {
			return nil, fmt.Errorf("failed to decode atom entry: %w", err)
		}

		var buf bytes.Buffer
		buf.Grow(len(entry.Inner) + 16)
		buf.WriteString("<entry>")
		buf.Write(entry.Inner)
		buf.WriteString("</entry>")
		return buf.Bytes(), nil
	}
}
