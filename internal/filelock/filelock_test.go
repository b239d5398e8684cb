package filelock

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLockUnlock(t *testing.T) {
	tmpDir := t.TempDir()
	lock := NewFileLock(filepath.Join(tmpDir, "test.lock"))

	if err := lock.Lock(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
}

func TestTryLockHeldElsewhere(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")

	first := NewFileLock(lockPath)
	if err := first.Lock(); err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer first.Unlock()

	second := NewFileLock(lockPath)
	acquired, err := second.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if acquired {
		t.Error("TryLock should not succeed while lock is held")
	}
}

func TestAcquireRunLock(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), ".scadbench")

	release, err := AcquireRunLock(stateDir)
	if err != nil {
		t.Fatalf("AcquireRunLock failed: %v", err)
	}

	if _, err := AcquireRunLock(stateDir); err == nil {
		t.Error("second AcquireRunLock should fail while first is held")
	}

	release()

	release2, err := AcquireRunLock(stateDir)
	if err != nil {
		t.Fatalf("AcquireRunLock after release failed: %v", err)
	}
	release2()
}

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "nested", "out.txt")

	if err := AtomicWrite(target, []byte("first")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read target: %v", err)
	}
	if !bytes.Equal(data, []byte("first")) {
		t.Errorf("expected 'first', got %q", data)
	}

	// Overwriting should replace the content wholesale
	if err := AtomicWrite(target, []byte("second")); err != nil {
		t.Fatalf("AtomicWrite overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(target)
	if string(data) != "second" {
		t.Errorf("expected 'second', got %q", data)
	}

	// No temp files should linger
	entries, _ := os.ReadDir(filepath.Dir(target))
	if len(entries) != 1 {
		t.Errorf("expected 1 file in target dir, got %d", len(entries))
	}
}

func TestAtomicWriteConcurrent(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "out.txt")

	var wg sync.WaitGroup
	payload := bytes.Repeat([]byte("x"), 4096)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := AtomicWrite(target, payload); err != nil {
				t.Errorf("AtomicWrite failed: %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read target: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("torn write: got %d bytes, want %d", len(data), len(payload))
	}
}
