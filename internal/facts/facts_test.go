package facts

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache_ColdTriggersSynchronousCollect(t *testing.T) {
	c := New(time.Hour, map[string]Collector{
		"x": func() (any, error) { return "value", nil },
	})

	require.Equal(t, Cold, c.State())
	values := c.Get()
	require.Equal(t, "value", values["x"])
	require.Equal(t, Fresh, c.State())
}

func TestCache_FailingCollectorIsOmittedNotFatal(t *testing.T) {
	c := New(time.Hour, map[string]Collector{
		"ok":  func() (any, error) { return "fine", nil },
		"bad": func() (any, error) { return nil, fmt.Errorf("boom") },
	})

	values := c.Get()
	require.Equal(t, "fine", values["ok"])
	_, ok := values["bad"]
	require.False(t, ok)
}

func TestCache_StaleAfterTTLTriggersBackgroundRefreshButReturnsImmediately(t *testing.T) {
	var calls int64
	c := New(10*time.Millisecond, map[string]Collector{
		"n": func() (any, error) {
			return atomic.AddInt64(&calls, 1), nil
		},
	})

	first := c.Get()
	require.Equal(t, int64(1), first["n"])

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, Stale, c.State())

	stale := c.Get()
	require.Equal(t, int64(1), stale["n"], "stale read must return the old value immediately")

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) >= 2
	}, time.Second, time.Millisecond)
}
