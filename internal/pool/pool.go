// Package pool runs a fixed set of indexed work items on a bounded number of
// goroutines. Every item is attempted; failures are collected and judged by
// the caller once the whole set has drained.
package pool

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Op processes work item i. It must only touch output addressed by i.
type Op func(i int) error

// Failure records one failed work item.
type Failure struct {
	Index int
	Err   error
}

func (f Failure) String() string {
	return fmt.Sprintf("item %d: %v", f.Index, f.Err)
}

// Outcome summarises a drained run. Failures are sorted by index.
type Outcome struct {
	Total     int
	Succeeded int
	Failures  []Failure
}

func (o Outcome) Failed() int {
	return len(o.Failures)
}

func (o Outcome) OK() bool {
	return len(o.Failures) == 0 && o.Succeeded == o.Total
}

// First returns the lowest-index failure.
func (o Outcome) First() (Failure, bool) {
	if len(o.Failures) == 0 {
		return Failure{}, false
	}
	return o.Failures[0], true
}

// ProgressFunc receives the running count of completed items.
type ProgressFunc func(done, total int)

type options struct {
	progress ProgressFunc
	updates  int
}

type Option func(*options)

// WithProgress reports completion roughly updates times per run, plus once
// when the last item finishes.
func WithProgress(fn ProgressFunc, updates int) Option {
	return func(o *options) {
		o.progress = fn
		o.updates = updates
	}
}

// DefaultUpdates is the number of progress reports per run.
const DefaultUpdates = 25

// Run executes op for every index in [0, total) using at most workers
// goroutines. workers <= 1 runs the items sequentially in index order.
func Run(total, workers int, op Op, opts ...Option) Outcome {
	o := options{updates: DefaultUpdates}
	for _, fn := range opts {
		fn(&o)
	}

	out := Outcome{Total: total}
	if total <= 0 {
		return out
	}

	c := newCollector(total, o)

	if workers <= 1 {
		for i := 0; i < total; i++ {
			c.record(i, call(op, i))
		}
		return c.outcome()
	}

	if workers > total {
		workers = total
	}

	jobs := make(chan int, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c.record(i, call(op, i))
			}
		}()
	}

	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return c.outcome()
}

// call turns a panicking item into a failure so the rest of the set still runs.
func call(op Op, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return op(i)
}

// collector is the per-run shared state: an append-only failure list and a
// monotonic completion counter.
type collector struct {
	total    int
	done     atomic.Int64
	every    int
	progress ProgressFunc

	mu       sync.Mutex
	failures []Failure
	reported int
}

func newCollector(total int, o options) *collector {
	every := 1
	if o.updates > 0 && total > o.updates {
		every = (total + o.updates - 1) / o.updates
	}
	return &collector{total: total, every: every, progress: o.progress}
}

func (c *collector) record(i int, err error) {
	if err != nil {
		c.mu.Lock()
		c.failures = append(c.failures, Failure{Index: i, Err: err})
		c.mu.Unlock()
		return
	}
	done := int(c.done.Add(1))
	if c.progress == nil {
		return
	}
	if done%c.every != 0 && done != c.total {
		return
	}
	c.mu.Lock()
	// Reports may race; only move forward.
	if done > c.reported {
		c.reported = done
		c.progress(done, c.total)
	}
	c.mu.Unlock()
}

func (c *collector) outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	failures := append([]Failure(nil), c.failures...)
	sort.Slice(failures, func(a, b int) bool { return failures[a].Index < failures[b].Index })
	return Outcome{
		Total:     c.total,
		Succeeded: int(c.done.Load()),
		Failures:  failures,
	}
}
