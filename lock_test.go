//go:build !windows

package models

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.bin.lock")

	t.Run("acquire and release", func(t *testing.T) {
		l, err := newFileLock(path, time.Second)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		if err := l.Lock(); err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		if err := l.Unlock(); err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
	})

	t.Run("contended lock times out", func(t *testing.T) {
		holder, err := newFileLock(path, time.Second)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		if err := holder.Lock(); err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		defer holder.Unlock()

		waiter, err := newFileLock(path, 50*time.Millisecond)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		defer waiter.Unlock()
		if err := waiter.Lock(); err == nil {
			t.Error("Lock() succeeded while another handle holds the lock")
		}
	})

	t.Run("unlock twice is safe", func(t *testing.T) {
		l, err := newFileLock(path, time.Second)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		if err := l.Lock(); err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		if err := l.Unlock(); err != nil {
			t.Fatalf("first Unlock() error = %v", err)
		}
		if err := l.Unlock(); err != nil {
			t.Errorf("second Unlock() error = %v", err)
		}
	})
}
