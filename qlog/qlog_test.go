package qlog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNoOpDoesNothing(t *testing.T) {
	assert.NotPanics(t, func() {
		NoOp.Debug("msg", "k", "v")
		NoOp.Warn("msg")
		NoOp.Error("msg", errors.New("boom"))
	})
}

func TestZerologLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	z := zerolog.New(&buf)
	l := NewZerologLogger(z)

	l.Debug("qdb.query", "sql", "SELECT 1", "nparams", 0)

	out := buf.String()
	assert.Contains(t, out, "qdb.query")
	assert.Contains(t, out, "SELECT 1")
}

func TestZerologLoggerErrorIncludesErr(t *testing.T) {
	var buf bytes.Buffer
	z := zerolog.New(&buf)
	l := NewZerologLogger(z)

	l.Error("qdb.exec failed", errors.New("constraint violation"), "sql", "INSERT")

	out := buf.String()
	assert.Contains(t, out, "constraint violation")
}

func TestApplyFieldsSkipsOddTrailingValue(t *testing.T) {
	var buf bytes.Buffer
	z := zerolog.New(&buf)
	l := NewZerologLogger(z)

	assert.NotPanics(t, func() {
		l.Debug("msg", "k1", "v1", "danglingKey")
	})
}
