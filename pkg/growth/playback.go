package growth

import (
	"context"
	"time"
)

// Play hands each frame to fn in order, one per interval, on the caller's
// goroutine. The first frame is delivered immediately. It returns early
// with the context error when ctx is cancelled.
func Play(ctx context.Context, frames []Frame, interval time.Duration, fn func(i int, f Frame)) error {
	if len(frames) == 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i, f := range frames {
		if i == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		fn(i, f)
	}
	return nil
}
