package ocr

import (
	"slices"
	"sync"
	"time"
)

// TimingSummary aggregates how long each image took to recognize.
type TimingSummary struct {
	Count int           `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
}

// Timings collects per-image durations from concurrent tesseract runs.
type Timings struct {
	mu      sync.Mutex
	samples []time.Duration
}

func (t *Timings) Record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, d)
}

func (t *Timings) Summary() TimingSummary {
	t.mu.Lock()
	values := slices.Clone(t.samples)
	t.mu.Unlock()

	if len(values) == 0 {
		return TimingSummary{}
	}
	slices.Sort(values)

	var sum time.Duration
	for _, v := range values {
		sum += v
	}
	return TimingSummary{
		Count: len(values),
		Min:   values[0],
		Max:   values[len(values)-1],
		Avg:   sum / time.Duration(len(values)),
		P50:   percentile(values, 50),
		P95:   percentile(values, 95),
	}
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []time.Duration, pct float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 100 {
		return sorted[len(sorted)-1]
	}

	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return sorted[lower]
	}
	weight := index - float64(lower)
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return time.Duration(lo + (hi-lo)*weight)
}
