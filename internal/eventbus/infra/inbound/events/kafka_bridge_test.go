package events

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopReading_ClosedReaderEndsTheLoop(t *testing.T) {
	ctx := context.Background()

	// Reader cerrado por Close con el contexto todavía vivo.
	assert.True(t, stopReading(ctx, io.EOF))
	assert.True(t, stopReading(ctx, io.ErrClosedPipe))

	// Un fallo transitorio del broker se reintenta, no termina el bucle.
	assert.False(t, stopReading(ctx, errors.New("broker unreachable")))
}

func TestStopReading_CanceledContextEndsTheLoop(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, stopReading(canceled, errors.New("broker unreachable")))
}
