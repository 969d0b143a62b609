package daemon

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/screen-time-tracker/internal/metrics"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

func runDispatcher(t *testing.T, d *Dispatcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(cancel)
	return cancel
}

func TestDispatcherRunsInOrder(t *testing.T) {
	d := NewDispatcher(16, nil)
	runDispatcher(t, d)

	var order []int
	for i := range 5 {
		require.NoError(t, d.Post("append", func() (any, error) {
			order = append(order, i)
			return nil, nil
		}))
	}
	got, err := dispatch(context.Background(), d, "read", func() ([]int, error) {
		return append([]int(nil), order...), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestDispatcherRecoversPanic(t *testing.T) {
	d := NewDispatcher(4, nil)
	runDispatcher(t, d)

	_, err := d.Do(context.Background(), "boom", func() (any, error) { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	v, err := dispatch(context.Background(), d, "after", func() (string, error) { return "still alive", nil })
	require.NoError(t, err)
	assert.Equal(t, "still alive", v)
}

func TestDispatcherStopped(t *testing.T) {
	d := NewDispatcher(4, nil)
	cancel := runDispatcher(t, d)
	cancel()
	<-d.done

	_, err := d.Do(context.Background(), "late", func() (any, error) { return nil, nil })
	require.ErrorIs(t, err, ErrStopped)
	require.ErrorIs(t, d.Post("late", func() (any, error) { return nil, nil }), ErrStopped)
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(1, nil)
	require.NoError(t, d.Post("a", func() (any, error) { return nil, nil }))
	require.ErrorIs(t, d.Post("b", func() (any, error) { return nil, nil }), ErrQueueFull)
}

func TestDispatcherCallerTimeout(t *testing.T) {
	d := NewDispatcher(4, nil)
	runDispatcher(t, d)

	release := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, d.Post("slow", func() (any, error) {
		<-release
		finished.Store(true)
		return nil, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Do(ctx, "waiting", func() (any, error) { return nil, nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.Eventually(t, finished.Load, time.Second, 5*time.Millisecond)
}

func TestDispatcherRecordsResults(t *testing.T) {
	pr := metrics.NewPrometheusRecorder(prom.NewRegistry())
	d := NewDispatcher(4, pr)
	runDispatcher(t, d)
	ctx := context.Background()

	_, _ = d.Do(ctx, "ok", func() (any, error) { return nil, nil })
	_, _ = d.Do(ctx, "ok", func() (any, error) { return nil, tracker.ErrNoSession })
	_, _ = d.Do(ctx, "ok", func() (any, error) { return nil, errors.New("io") })

	assert.Equal(t, metrics.ResultSuccess, resultLabel(nil))
	assert.Equal(t, metrics.ResultRejected, resultLabel(tracker.ErrAlreadyPaused))
	assert.Equal(t, metrics.ResultFailed, resultLabel(tracker.ErrLockAcquisitionFailed))

	rec := httptest.NewRecorder()
	pr.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `stt_commands_total{command="ok",result="success"} 1`)
	assert.Contains(t, body, `stt_commands_total{command="ok",result="rejected"} 1`)
	assert.Contains(t, body, `stt_commands_total{command="ok",result="failed"} 1`)
}
