// Package report collects per-order outcomes into a batch summary and,
// optionally, a JSONL outcome stream for downstream tooling.
package report

import (
	"bufio"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/toyland-batch/internal/domain/order"
)

// Summary aggregates per-order outcomes for one batch run.
type Summary struct {
	TotalOrders  int
	SuccessCount int
	ErrorCount   int
	FlaggedCount int
}

// Observe folds one outcome into the summary.
func (s *Summary) Observe(out order.Outcome) {
	s.TotalOrders++
	if out.Success() {
		s.SuccessCount++
	} else {
		s.ErrorCount++
	}
	if out.FlaggedForReview {
		s.FlaggedCount++
	}
}

// Writer emits one JSON object per order outcome, newline-delimited.
type Writer struct {
	f   *os.File
	buf *bufio.Writer
}

// NewWriter creates (or truncates) the outcome file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create outcome report %s", path)
	}
	return &Writer{f: f, buf: bufio.NewWriter(f)}, nil
}

// Write appends one outcome as a JSON line. Monetary fields are encoded as
// fixed two-decimal strings.
func (w *Writer) Write(out order.Outcome) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("order_id")
	e.Str(out.OrderID)
	e.FieldStart("status")
	if out.Success() {
		e.Str("success")
	} else {
		e.Str("failed")
	}
	if out.FlaggedForReview {
		e.FieldStart("flagged_for_review")
		e.Bool(true)
	}
	if out.Failure != nil {
		e.FieldStart("failure_kind")
		e.Str(string(out.Failure.Kind))
		e.FieldStart("message")
		e.Str(out.Failure.Message)
	}
	if p := out.Pricing; p != nil {
		e.FieldStart("subtotal")
		e.Str(p.Subtotal.StringFixed(2))
		e.FieldStart("discounted_total")
		e.Str(p.DiscountedTotal.StringFixed(2))
		e.FieldStart("tax")
		e.Str(p.Tax.StringFixed(2))
		e.FieldStart("shipping")
		e.Str(p.Shipping.StringFixed(2))
		e.FieldStart("final_total")
		e.Str(p.FinalTotal.StringFixed(2))
	}
	e.ObjEnd()

	if _, err := w.buf.Write(e.Bytes()); err != nil {
		return errors.Wrap(err, "write outcome")
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write outcome")
	}
	return nil
}

// Close flushes buffered outcomes and closes the file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.f.Close()
		return errors.Wrap(err, "flush outcome report")
	}
	return w.f.Close()
}
