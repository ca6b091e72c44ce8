package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	appendErr error
	closeErr  error
	appends   int
}

func (f *failingSink) Append(context.Context, *Entry) error {
	f.appends++
	return f.appendErr
}

func (f *failingSink) Close() error { return f.closeErr }

func TestMultiSinkFanOut(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	sink := NewMultiSink(a, b)

	require.NoError(t, sink.Append(context.Background(), entry("x")))
	assert.Equal(t, []string{"x"}, a.ids())
	assert.Equal(t, []string{"x"}, b.ids())

	require.NoError(t, sink.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMultiSinkDeliversPastFailures(t *testing.T) {
	bad := &failingSink{appendErr: errors.New("db down")}
	good := &captureSink{}
	sink := NewMultiSink(bad, good)

	err := sink.Append(context.Background(), entry("x"))
	assert.EqualError(t, err, "db down")
	assert.Equal(t, []string{"x"}, good.ids(), "a failing sink does not block the others")
	assert.Equal(t, 1, bad.appends)
}

func TestMultiSinkCloseFirstError(t *testing.T) {
	first := &failingSink{closeErr: errors.New("first")}
	second := &failingSink{closeErr: errors.New("second")}
	err := NewMultiSink(first, second).Close()
	assert.EqualError(t, err, "first")
}
