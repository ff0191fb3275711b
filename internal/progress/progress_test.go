package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry(c *clock) *Registry {
	r := New(10*time.Minute, time.Hour)
	r.now = c.now
	return r
}

func TestRegistryLifecycle(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	r := newTestRegistry(c)
	r.Start("a")
	require.NoError(t, r.Update("a", "load", 1, 5, map[string]int{"files": 3}))
	require.NoError(t, r.Update("a", "code_scan", 2, 5, nil))

	e, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, e.Status)
	assert.Equal(t, "code_scan", e.Progress.Stage)
	assert.Equal(t, []string{"load", "code_scan"}, e.Progress.Stages)
	assert.True(t, e.ReadAt.IsZero())

	require.NoError(t, r.Complete("a", map[string]string{"ok": "yes"}))
	e, _ = r.Get("a")
	assert.Equal(t, StatusCompleted, e.Status)
	assert.NotNil(t, e.Result)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownScan)
	assert.ErrorIs(t, r.Update("missing", "x", 1, 1, nil), ErrUnknownScan)
	assert.ErrorIs(t, r.Fail("missing", "x"), ErrUnknownScan)
}

func TestRegistryEvictsAfterReadTTL(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	r := newTestRegistry(c)
	r.Start("read")
	r.Start("unread")
	require.NoError(t, r.Complete("read", "done"))
	require.NoError(t, r.Fail("unread", "failed"))
	_, _ = r.Get("read")

	c.advance(9 * time.Minute)
	assert.Equal(t, 0, r.Evict())
	c.advance(time.Minute)
	assert.Equal(t, 1, r.Evict())
	_, err := r.Get("read")
	assert.ErrorIs(t, err, ErrUnknownScan)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryEvictsAtMaxAge(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	r := newTestRegistry(c)
	r.Start("stuck")
	_, _ = r.Get("stuck")
	c.advance(59 * time.Minute)
	assert.Equal(t, 0, r.Evict())
	c.advance(time.Minute)
	assert.Equal(t, 1, r.Evict())
	assert.Equal(t, 0, r.Len())
}

func TestRegistryReadingRunningScanDoesNotStartTTL(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	r := newTestRegistry(c)
	r.Start("a")
	_, _ = r.Get("a")
	c.advance(20 * time.Minute)
	assert.Equal(t, 0, r.Evict())
}

func TestJanitorStops(t *testing.T) {
	r := New(time.Millisecond, time.Millisecond)
	r.Start("a")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Janitor(ctx, time.Millisecond)
		close(done)
	}()
	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
