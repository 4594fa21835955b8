package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type closer struct{ closed bool }

func (c *closer) Close() { c.closed = true }

func TestCloneWith(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := &closer{}
	ctx := &Context{Storage: s, Logger: zap.New(core).Sugar()}

	uctx := ctx.CloneWith(42)
	uctx.Logger.Info("hello")

	assert.Same(t, ctx.Storage, uctx.Storage)
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, int64(42), entries[0].ContextMap()["usr"])
	}
}

func TestContextClose(t *testing.T) {
	s := &closer{}
	(&Context{Storage: s}).Close()
	assert.True(t, s.closed)

	// nothing to close
	(&Context{}).Close()
}
