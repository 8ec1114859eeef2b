package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/flock"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

const retryDelay = 100 * time.Millisecond

// RunLock serializes runs against one holding account across processes.
type RunLock struct {
	path string
	fl   *flock.Flock
}

// Path is the lock file for a holding account inside dir.
func Path(dir string, holding common.Address) string {
	return filepath.Join(dir, "holding-"+strings.ToLower(holding.Hex())+".lock")
}

// Acquire takes the run lock for holding, waiting up to wait for a
// concurrent run to finish. A zero wait fails immediately when held.
func Acquire(ctx context.Context, dir string, holding common.Address, wait time.Duration) (*RunLock, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, clierr.New(clierr.CodeUsage, "lock directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "create lock directory", err)
	}
	path := Path(dir, holding)
	fl := flock.New(path)

	var (
		locked bool
		err    error
	)
	if wait <= 0 {
		locked, err = fl.TryLock()
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		locked, err = fl.TryLockContext(waitCtx, retryDelay)
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	}
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "acquire run lock", err)
	}
	if !locked {
		return nil, clierr.New(clierr.CodeLocked, fmt.Sprintf("another run holds the lock for holding account %s (%s)", holding.Hex(), path))
	}
	return &RunLock{path: path, fl: fl}, nil
}

func (l *RunLock) Path() string { return l.path }

func (l *RunLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
