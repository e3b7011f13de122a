package httpapi

import (
	"context"
	"net/http"
	"time"
)

// handlerContext derives the context used to wait on the converter: it ends
// when the client goes away, when the server shuts down, or after timeout.
func handlerContext(base context.Context, r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := joinContexts(base, r.Context())
	if timeout <= 0 {
		return ctx, cancel
	}
	tctx, tcancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		tcancel()
		cancel()
	}
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(b)
	stop := context.AfterFunc(a, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
