package hxrt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestRuntime returns a quiet runtime and a context on its initial thread
func newTestRuntime(t *testing.T) (*Runtime, context.Context) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ReportUncaught = false
	cfg.LogFormat = LogFormatJSON
	rt := New(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, rt.Close(ctx))
	})
	return rt, rt.MainContext()
}

// faultKind runs fn and returns the kind of the *Error it panics with
func faultKind(t *testing.T, fn func()) (kind ErrorKind) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a fault")
		err, ok := r.(*Error)
		require.True(t, ok, "expected *Error, got %T", r)
		kind = err.Kind
	}()
	fn()
	return 0
}

// receiveWithin fails the test if no message arrives in time
func receiveWithin(t *testing.T, rt *Runtime, ctx context.Context, d time.Duration) Dynamic {
	t.Helper()
	msg, ok := rt.ReceiveTimeout(ctx, d)
	require.True(t, ok, "no message within %s", d)
	return msg
}
