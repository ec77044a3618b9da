package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/rhsrobot/logging"
)

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auto.txt")
	test.That(t, os.WriteFile(path, []byte("BEGIN\nEND\n"), 0o600), test.ShouldBeNil)

	var changes atomic.Int32
	w, err := NewWatcher(path, 200*time.Millisecond, func() { changes.Inc() }, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		test.That(t, <-done, test.ShouldBeNil)
	}()

	// other files in the directory are ignored
	test.That(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600), test.ShouldBeNil)

	// a burst of writes settles into one change
	for i := 0; i < 3; i++ {
		test.That(t, os.WriteFile(path, []byte("BEGIN\nDELAY 1\nEND\n"), 0o600), test.ShouldBeNil)
	}
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, changes.Load(), test.ShouldEqual, int32(1))
	})
	time.Sleep(400 * time.Millisecond)
	test.That(t, changes.Load(), test.ShouldEqual, int32(1))
}

func TestWatcherMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone", "auto.txt")
	_, err := NewWatcher(path, 0, func() {}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot watch")
}
