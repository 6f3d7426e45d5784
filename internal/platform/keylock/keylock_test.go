package keylock

import (
	"sync"
	"testing"
)

func TestSerializesSameKey(t *testing.T) {
	r := New()
	const n = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Lock("doc1:2025-01-15")
			counter++
			r.Unlock("doc1:2025-01-15")
		}()
	}
	wg.Wait()

	if counter != n {
		t.Fatalf("counter = %d, want %d", counter, n)
	}
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	r := New()
	r.Lock("doc1:2025-01-15")
	done := make(chan struct{})
	go func() {
		r.Lock("doc2:2025-01-15")
		r.Unlock("doc2:2025-01-15")
		close(done)
	}()
	<-done
	r.Unlock("doc1:2025-01-15")
}

func TestIdleEntriesReleased(t *testing.T) {
	r := New()
	r.Lock("k")
	r.Unlock("k")
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.locks) != 0 {
		t.Fatalf("expected empty registry, have %d entries", len(r.locks))
	}
}

func TestUnlockUnheldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unlock of unheld key")
		}
	}()
	New().Unlock("nope")
}
