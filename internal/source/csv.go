// Package source streams raw order records from a header-addressed CSV
// feed, transparently decompressing gzip files.
package source

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/toyland-batch/internal/domain/order"
)

// ErrFeedUnavailable is returned when the orders feed cannot be opened or
// its header cannot be read. It is fatal at batch scope: no orders are
// processed.
var ErrFeedUnavailable = errors.New("order feed unavailable")

// Feed streams raw order records from one feed file. Field names come from
// the feed's header row.
type Feed struct {
	file   *os.File
	gz     io.Closer
	r      *csv.Reader
	header []string
}

// Open opens the feed at path. Paths ending in .gz are decompressed through
// pgzip. The header row is consumed immediately; any error before the first
// record wraps ErrFeedUnavailable.
func Open(path string) (*Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrFeedUnavailable, "open %s: %v", path, err)
	}

	feed := &Feed{file: f}
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(ErrFeedUnavailable, "create gzip reader for %s: %v", path, err)
		}
		feed.gz = gz
		r = gz
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // short rows are padded later
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		_ = feed.Close()
		return nil, errors.Wrapf(ErrFeedUnavailable, "read header of %s: %v", path, err)
	}
	for i, name := range header {
		header[i] = strings.ToLower(strings.TrimSpace(name))
	}

	feed.r = cr
	feed.header = header

	return feed, nil
}

// Header returns the normalized field names of the feed.
func (f *Feed) Header() []string {
	return f.header
}

// Next returns the next raw order record, or io.EOF when the feed is
// exhausted. Rows shorter than the header yield empty strings for the
// missing trailing fields.
func (f *Feed) Next() (order.RawOrder, error) {
	rec, err := f.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read order record")
	}

	raw := make(order.RawOrder, len(f.header))
	for i, name := range f.header {
		if i < len(rec) {
			raw[name] = strings.TrimSpace(rec[i])
		} else {
			raw[name] = ""
		}
	}

	return raw, nil
}

// Close releases the underlying file and, for gzip feeds, the decompressor.
func (f *Feed) Close() error {
	if f.gz != nil {
		_ = f.gz.Close()
	}
	return f.file.Close()
}
