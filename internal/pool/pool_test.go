package pool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunAttemptsEveryItem(t *testing.T) {
	for _, workers := range []int{1, 2, 8, 200} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			const total = 100
			var seen [total]atomic.Int32
			out := Run(total, workers, func(i int) error {
				seen[i].Add(1)
				return nil
			})
			if !out.OK() {
				t.Fatalf("Expected success, got %+v", out)
			}
			if out.Succeeded != total {
				t.Errorf("Expected %d succeeded, got %d", total, out.Succeeded)
			}
			for i := range seen {
				if n := seen[i].Load(); n != 1 {
					t.Errorf("Item %d ran %d times", i, n)
				}
			}
		})
	}
}

func TestRunDrainsAfterFailures(t *testing.T) {
	const total = 100
	var attempted atomic.Int32
	out := Run(total, 8, func(i int) error {
		attempted.Add(1)
		if i == 3 || i == 47 {
			return fmt.Errorf("frame %d broke", i)
		}
		return nil
	})

	if got := attempted.Load(); got != total {
		t.Errorf("Expected all %d items attempted, got %d", total, got)
	}
	if out.Failed() != 2 {
		t.Fatalf("Expected 2 failures, got %d", out.Failed())
	}
	if out.Succeeded != total-2 {
		t.Errorf("Expected %d succeeded, got %d", total-2, out.Succeeded)
	}
	if out.Failures[0].Index != 3 || out.Failures[1].Index != 47 {
		t.Errorf("Expected failures at 3 and 47, got %v", out.Failures)
	}
	first, ok := out.First()
	if !ok || first.Index != 3 {
		t.Errorf("Expected first failure at 3, got %v", first)
	}
	if out.OK() {
		t.Error("Outcome with failures must not be OK")
	}
}

func TestRunRecoversPanics(t *testing.T) {
	out := Run(10, 4, func(i int) error {
		if i == 5 {
			panic("boom")
		}
		return nil
	})
	if out.Failed() != 1 || out.Failures[0].Index != 5 {
		t.Fatalf("Expected a single failure at 5, got %v", out.Failures)
	}
	if out.Succeeded != 9 {
		t.Errorf("Expected 9 succeeded, got %d", out.Succeeded)
	}
}

func TestRunSequentialOrder(t *testing.T) {
	var order []int
	Run(20, 1, func(i int) error {
		order = append(order, i)
		return nil
	})
	for i, v := range order {
		if v != i {
			t.Fatalf("Expected sequential order, got %v", order)
		}
	}
}

func TestRunRespectsWorkerBound(t *testing.T) {
	const workers = 3
	var active, peak atomic.Int32
	var mu sync.Mutex

	Run(50, workers, func(i int) error {
		n := active.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		runtime.Gosched()
		active.Add(-1)
		return nil
	})
	if p := peak.Load(); p > workers {
		t.Errorf("Expected at most %d concurrent items, saw %d", workers, p)
	}
}

func TestRunEmpty(t *testing.T) {
	out := Run(0, 4, func(int) error {
		t.Fatal("op must not run")
		return nil
	})
	if !out.OK() || out.Total != 0 {
		t.Errorf("Expected empty OK outcome, got %+v", out)
	}
}

func TestProgressIsBounded(t *testing.T) {
	const total = 1000
	var calls []int
	var mu sync.Mutex
	Run(total, 8, func(int) error { return nil }, WithProgress(func(done, n int) {
		mu.Lock()
		calls = append(calls, done)
		mu.Unlock()
		if n != total {
			t.Errorf("Expected total %d, got %d", total, n)
		}
	}, 25))

	if len(calls) == 0 || len(calls) > 26 {
		t.Fatalf("Expected between 1 and 26 progress reports, got %d", len(calls))
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] <= calls[i-1] {
			t.Fatalf("Progress went backwards: %v", calls)
		}
	}
	if last := calls[len(calls)-1]; last != total {
		t.Errorf("Expected final report %d, got %d", total, last)
	}
}

func TestProgressCountForSmallRuns(t *testing.T) {
	for _, total := range []int{26, 49, 74, 10000} {
		t.Run(fmt.Sprint(total), func(t *testing.T) {
			var calls atomic.Int32
			Run(total, 1, func(int) error { return nil }, WithProgress(func(done, n int) {
				calls.Add(1)
			}, DefaultUpdates))
			if n := calls.Load(); n < 13 || n > DefaultUpdates+1 {
				t.Errorf("Expected at most %d progress reports, got %d", DefaultUpdates+1, n)
			}
		})
	}
}

// Output addressed by index makes completion order irrelevant.
func TestSequentialAndPooledProduceSameFiles(t *testing.T) {
	const total = 64
	write := func(dir string) Op {
		return func(i int) error {
			name := filepath.Join(dir, fmt.Sprintf("item_%05d.txt", i))
			return os.WriteFile(name, []byte(fmt.Sprintf("payload %d", i*i)), 0644)
		}
	}

	seqDir, parDir := t.TempDir(), t.TempDir()
	if out := Run(total, 1, write(seqDir)); !out.OK() {
		t.Fatalf("sequential run failed: %v", out.Failures)
	}
	if out := Run(total, 8, write(parDir)); !out.OK() {
		t.Fatalf("pooled run failed: %v", out.Failures)
	}

	seq, _ := os.ReadDir(seqDir)
	par, _ := os.ReadDir(parDir)
	if len(seq) != total || len(par) != total {
		t.Fatalf("Expected %d files each, got %d and %d", total, len(seq), len(par))
	}
	for i := range seq {
		if seq[i].Name() != par[i].Name() {
			t.Fatalf("Name mismatch at %d: %s vs %s", i, seq[i].Name(), par[i].Name())
		}
		a, _ := os.ReadFile(filepath.Join(seqDir, seq[i].Name()))
		b, _ := os.ReadFile(filepath.Join(parDir, par[i].Name()))
		if string(a) != string(b) {
			t.Errorf("Content mismatch for %s", seq[i].Name())
		}
	}
}

func TestFailureString(t *testing.T) {
	f := Failure{Index: 7, Err: errors.New("exit status 1")}
	if got := f.String(); got != "item 7: exit status 1" {
		t.Errorf("Unexpected string %q", got)
	}
}
