package qtrace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartOperationReturnsUsableSpanCloser(t *testing.T) {
	ctx, end := StartOperation(context.Background(), "select", "sqlite", "account")
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { end(nil) })
}

func TestStartOperationRecordsErrorWithoutPanicking(t *testing.T) {
	_, end := StartOperation(context.Background(), "insert", "sqlite", "account")
	assert.NotPanics(t, func() { end(errors.New("constraint violation")) })
}
