package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(http.StatusOK, 10*time.Millisecond)
	c.Record(http.StatusInternalServerError, 30*time.Millisecond)
	c.Record(http.StatusTooManyRequests, 0)

	c.RecordImport("attendance", 120, 3, false)
	c.RecordImport("attendance", 0, 0, true)
	c.RecordImport("payments", 40, 0, false)

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["rateLimitedTotal"])
	assert.InDelta(t, 13.33, snap["avgDurationMs"], 0.01)

	imports, ok := snap["imports"].(map[string]importCounters)
	require.True(t, ok)
	assert.Equal(t, importCounters{Runs: 2, Rows: 120, Skipped: 3, Failed: 1}, imports["attendance"])
	assert.Equal(t, uint64(40), imports["payments"].Rows)
}
