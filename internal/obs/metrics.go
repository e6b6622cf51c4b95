package obs

import (
	"sort"
	"strings"
	"sync"
)

// Label is a key/value pair attached to measurements.
type Label struct {
	Key   string
	Value string
}

// L builds a Label.
func L(key, value string) Label { return Label{Key: key, Value: value} }

// Meter is a very small interface for emitting counters/histograms.
// Implementations may no-op or bridge to a metrics system.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter is a Meter that discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}

// Tally is an in-memory Meter. Counters are summed per name and label set;
// histograms keep count and sum only.
type Tally struct {
	mu     sync.Mutex
	counts map[string]float64
	hists  map[string][2]float64
}

func (t *Tally) Counter(name string, value float64, labels ...Label) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts == nil {
		t.counts = make(map[string]float64)
	}
	t.counts[seriesKey(name, labels)] += value
}

func (t *Tally) Histogram(name string, value float64, labels ...Label) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hists == nil {
		t.hists = make(map[string][2]float64)
	}
	k := seriesKey(name, labels)
	h := t.hists[k]
	h[0]++
	h[1] += value
	t.hists[k] = h
}

// Count returns the summed counter for name and exactly these labels.
func (t *Tally) Count(name string, labels ...Label) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[seriesKey(name, labels)]
}

// Observations returns how many histogram samples were recorded.
func (t *Tally) Observations(name string, labels ...Label) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.hists[seriesKey(name, labels)][0])
}

// Snapshot returns every counter series keyed as name{k=v,...}.
func (t *Tally) Snapshot() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]float64, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

func seriesKey(name string, labels []Label) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Key + "=" + l.Value
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}
