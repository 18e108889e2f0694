package contxt

import (
	"context"
	"os"
	"time"
)

// NewContext returns a context detached from any caller, bounded by timeout.
// Work scheduled in the background (bridge writes, HTTP triggers) must not
// inherit a request context that is cancelled when the caller returns.
func NewContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if os.Getenv("CONTEXT_TEST") != "" {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
