package xid

import (
	"strings"
	"testing"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := New("ord")
		if !strings.HasPrefix(id, "ord-") {
			t.Fatalf("expected ord- prefix, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestNewIsUniqueUnderConcurrency(t *testing.T) {
	const workers = 8
	const perWorker = 200

	results := make(chan string, workers*perWorker)
	for w := 0; w < workers; w++ {
		go func() {
			for i := 0; i < perWorker; i++ {
				results <- New("tx")
			}
		}()
	}

	seen := make(map[string]bool, workers*perWorker)
	for i := 0; i < workers*perWorker; i++ {
		id := <-results
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
