package ids

import (
	"sync"
	"testing"
)

func TestNewSubmissionIDFormat(t *testing.T) {
	id := NewSubmissionID()
	if len(id) != 26 {
		t.Errorf("len(id) = %d, want 26", len(id))
	}
}

func TestNewSubmissionIDIsUnique(t *testing.T) {
	const n = 1000
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		id := string(NewSubmissionID())
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestNewSubmissionIDConcurrent(t *testing.T) {
	const goroutines = 16
	const perGoroutine = 100

	var mu sync.Mutex
	seen := make(map[string]bool, goroutines*perGoroutine)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := string(NewSubmissionID())
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
