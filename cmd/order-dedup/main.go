// Command order-dedup scans a set of order feed files and reports the order
// ids that appear in two or more of them. Repeated ids earn the loyalty
// bonus when the feeds are processed back to back, so operations wants them
// surfaced before a run.
//
// The scan is two-pass: pass 1 builds one bloom filter per feed, pass 2
// re-streams each feed and checks every id against the other feeds'
// filters. Bloom false positives can only add ids to the candidate set;
// the merged per-file bitmask makes the final 2+ files decision exact for
// the candidates kept.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/toyland-batch/internal/domain/order"
	"github.com/xenking/toyland-batch/internal/source"
)

const (
	defaultExpectedOrders = 1_000_000
	bloomFPR              = 0.001
	progressEvery         = 1_000_000
)

// fileResult holds candidate order ids found in a single feed during pass 2.
type fileResult struct {
	candidates map[string]uint
}

func main() {
	var (
		outPath        string
		expectedOrders uint
	)

	flag.StringVar(&outPath, "out", "", "output file for repeated order ids (default stdout)")
	flag.UintVar(&expectedOrders, "expected-orders", defaultExpectedOrders, "estimated order count per feed, sizes the bloom filters")
	flag.Parse()

	feeds := flag.Args()
	if len(feeds) < 2 {
		slog.Error("need at least two feed files to compare")
		os.Exit(1)
	}

	if err := run(feeds, outPath, expectedOrders); err != nil {
		slog.Error("order dedup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order dedup completed successfully")
}

func run(feeds []string, outPath string, expectedOrders uint) error {
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	// Pass 1: build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", len(feeds)))

	filters, err := buildBloomFilters(feeds, expectedOrders)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: find ids appearing in 2+ feeds.
	slog.Info("pass 2: finding repeated order ids")

	repeated, err := findRepeatedIDs(feeds, filters)
	if err != nil {
		return errors.Wrap(err, "find repeated ids")
	}

	slog.Info("repeated order ids found", slog.Int("count", len(repeated)))

	return writeIDs(outPath, repeated)
}

// buildBloomFilters creates one bloom filter per feed, concurrently.
func buildBloomFilters(feeds []string, expectedOrders uint) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	var g errgroup.Group
	for i, f := range feeds {
		g.Go(buildFilterForFeed(i, f, expectedOrders, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFeed(idx int, path string, expectedOrders uint, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(expectedOrders, bloomFPR)
		var count uint64

		if err := streamOrderIDs(path, func(id string) {
			filter.AddString(id)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("orders", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_orders", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findRepeatedIDs re-streams each feed and checks ids against OTHER feeds'
// bloom filters. An id is repeated if it appears in 2 or more feeds.
func findRepeatedIDs(feeds []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]fileResult, len(feeds))

	var g errgroup.Group
	for i, f := range feeds {
		g.Go(findCandidatesInFeed(i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all feeds.
	merged := make(map[string]uint)
	for _, r := range results {
		for id, mask := range r.candidates {
			merged[id] |= mask
		}
	}

	// Keep ids appearing in 2+ feeds.
	var repeated []string
	for id, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			repeated = append(repeated, id)
		}
	}
	sort.Strings(repeated)

	return repeated, nil
}

func findCandidatesInFeed(
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		feedBit := uint(1) << uint(idx)
		var count uint64

		if err := streamOrderIDs(path, func(id string) {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("orders", count),
				)
			}

			// Check if this id appears in any OTHER feed's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(id) {
					candidates[id] |= feedBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan feed %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_orders", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamOrderIDs opens a feed file and calls fn for each non-empty order id.
func streamOrderIDs(path string, fn func(id string)) error {
	feed, err := source.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = feed.Close() }()

	for {
		raw, err := feed.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if id := raw.Field(order.FieldOrderID, ""); id != "" {
			fn(id)
		}
	}
}

// writeIDs writes one id per line to outPath, or stdout when outPath is
// empty.
func writeIDs(outPath string, ids []string) error {
	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return errors.Wrapf(err, "create %s", outPath)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	for _, id := range ids {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return errors.Wrap(err, "write id")
		}
	}

	return nil
}
