package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbosity(t *testing.T) {
	assert.Equal(t, 2, verbosity("debug"))
	assert.Equal(t, 1, verbosity("INFO"))
	assert.Equal(t, -1, verbosity("warn"))
	assert.Equal(t, -2, verbosity("error"))
	assert.Equal(t, -2, verbosity("bogus"))
}

func TestNewServer(t *testing.T) {
	workers, indexDir = 3, "/tmp/index"
	defer func() { workers, indexDir = 0, "" }()

	cfg := newServer().Config()
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "/tmp/index", cfg.IndexDir)
}
