package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Fields("  a \t b   c  "))
	assert.Empty(t, Fields("   \t "))
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{"one", "two"}, Lines("one\r\ntwo\n"))
	assert.Equal(t, []string{"one", "", "two"}, Lines("one\n\ntwo\n\n"))
}

func TestNodeDescriptionCleansName(t *testing.T) {
	d := NodeDescription("node_some-metric", "help")
	assert.Contains(t, d.String(), "node_some_metric")
}
