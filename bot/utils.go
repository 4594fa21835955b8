package bot

import (
	"context"
	"time"
)

// RobustExecute calls f up to n times, waiting d between attempts, until it
// succeeds. It returns the last error of f or the error of ctx if ctx is done
// while waiting.
func RobustExecute(ctx context.Context, n int, d time.Duration, f func() error) error {
	var err error
	for i := 0; i < n; i++ {
		if err = f(); err == nil {
			return nil
		}

		if i == n-1 {
			break
		}

		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
