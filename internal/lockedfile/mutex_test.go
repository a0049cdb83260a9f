package lockedfile

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLockUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", ".lock")
	mu := MutexAt(path)

	unlock, err := mu.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file not created: %v", err)
	}
	unlock()

	// Relocking after unlock must not block.
	unlock, err = mu.Lock()
	if err != nil {
		t.Fatalf("second Lock: %v", err)
	}
	unlock()
}

func TestLockExcludes(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	unlock, err := MutexAt(path).Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		u, err := MutexAt(path).Lock()
		if err != nil {
			t.Errorf("Lock in goroutine: %v", err)
			return
		}
		mu.Lock()
		acquired = true
		mu.Unlock()
		u()
	}()

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	early := acquired
	mu.Unlock()
	if early {
		t.Fatal("second Lock acquired while the first was held")
	}

	unlock()
	wg.Wait()
	if !acquired {
		t.Fatal("second Lock never acquired")
	}
}

func TestMutexAtEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MutexAt(\"\") did not panic")
		}
	}()
	MutexAt("")
}
