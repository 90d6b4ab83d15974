package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haulready/internal/submission/tracer"
)

func TestNoopTracer_Start(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanSubmit,
		tracer.String(tracer.AttrKind, "contact"),
		tracer.Bool(tracer.AttrCaptchaPass, true),
	)

	// Context should be returned unchanged
	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	// Span methods should not panic
	span.SetAttributes(tracer.Int64(tracer.AttrRemaining, 2))
	span.AddEvent("dispatch.queued", tracer.Duration("elapsed", time.Second))
	span.End(nil)
}

func TestNoopTracer_SpanEndWithError(t *testing.T) {
	tr := tracer.NewNoop()

	_, span := tr.Start(context.Background(), tracer.SpanDispatch)
	require.NotNil(t, span)

	span.End(errors.New("delivery failed"))
}

func TestAttributeConstructors(t *testing.T) {
	assert.Equal(t, tracer.Attribute{Key: "k", Value: "v"}, tracer.String("k", "v"))
	assert.Equal(t, tracer.Attribute{Key: "k", Value: true}, tracer.Bool("k", true))
	assert.Equal(t, tracer.Attribute{Key: "k", Value: int64(7)}, tracer.Int64("k", 7))
	assert.Equal(t, tracer.Attribute{Key: "k", Value: int64(1500)}, tracer.Duration("k", 1500*time.Millisecond))
}

func TestOTelTracer_StartAndEnd(t *testing.T) {
	// The default global provider is a no-op; this exercises the adapter
	// paths without exporting anywhere.
	tr := tracer.NewOTel()

	_, span := tr.Start(context.Background(), tracer.SpanRateLimitCheck,
		tracer.Bool(tracer.AttrRateAllowed, false),
	)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Int64(tracer.AttrRemaining, 0))
	span.AddEvent("window.exhausted")
	span.End(errors.New("rate limited"))
}
