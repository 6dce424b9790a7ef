package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memInfoBody = `MemTotal:       255700 kB
MemFree:        221240 kB
Buffers:          5312 kB
Cached:          15428 kB
SwapCached:          0 kB
Active:           9976 kB
Inactive:        13284 kB
HighTotal:      131072 kB
HighFree:       109608 kB
LowTotal:       124628 kB
LowFree:        111632 kB
SwapTotal:           0 kB
SwapFree:            0 kB
HugePages_Total:     0
`

func TestMemoryCollector(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{memoryCommand: memInfoBody}}

	samples := collect(t, newMemoryCollector(), runner)

	require.Len(t, samples, 14)
	assertSample(t, samples, "node_memory_MemTotal_bytes", nil, 255700*1024)
	assertSample(t, samples, "node_memory_MemFree_bytes", nil, 221240*1024)
	assertSample(t, samples, "node_memory_Buffers_bytes", nil, 5312*1024)
	assertSample(t, samples, "node_memory_HighTotal_bytes", nil, 131072*1024)
	assertSample(t, samples, "node_memory_SwapFree_bytes", nil, 0)
	// unitless fields keep their raw value and plain name
	assertSample(t, samples, "node_memory_HugePages_Total", nil, 0)
}

func TestMemoryCollectorParenthesizedField(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		memoryCommand: "Committed_AS:     1024 kB\nVmallocTotal: 1015800 kB\n",
	}}

	samples := collect(t, newMemoryCollector(), runner)

	require.Len(t, samples, 2)
	assertSample(t, samples, "node_memory_Committed_AS_bytes", nil, 1024*1024)
}

func TestMemoryCollectorSkipsOddLines(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		memoryCommand: "MemTotal:       255700 kB\nsome diagnostic noise\nMemFree:        221240 kB\n",
	}}

	samples := collect(t, newMemoryCollector(), runner)

	require.Len(t, samples, 2)
}

func TestMemoryCollectorMalformed(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{memoryCommand: "cat: can't open '/proc/meminfo'"}}

	_, err := tryCollect(t, newMemoryCollector(), runner)

	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected parse error, got %v", err)
	assert.Equal(t, memoryCommand, perr.Command)
	assert.Contains(t, perr.Snippet, "can't open")
}
