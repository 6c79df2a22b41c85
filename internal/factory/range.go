package factory

import "fmt"

// Page is a half-open window [From, To) of registry indices.
type Page struct {
	From uint64
	To   uint64
}

// Pages splits the registry indices [0, n) into pages of step entries.
func Pages(n, step uint64) ([]Page, error) {
	return PagesFrom(0, n, step)
}

// PagesFrom splits [start, n) into pages of step entries. The last page is
// clamped to n.
func PagesFrom(start, n, step uint64) ([]Page, error) {
	if step == 0 {
		return nil, fmt.Errorf("step must be greater than zero")
	}
	if start >= n {
		return nil, nil
	}

	pages := make([]Page, 0, (n-start+step-1)/step)
	for from := start; from < n; {
		to := n
		if n-from > step {
			to = from + step
		}
		pages = append(pages, Page{From: from, To: to})
		from = to
	}
	return pages, nil
}

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a block range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	start := from
	for start <= to {
		end := to
		if to-start+1 > batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
