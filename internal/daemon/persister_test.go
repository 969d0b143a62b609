package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/storage"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

type countingSource struct {
	calls atomic.Int32
	snap  model.Snapshot
	err   error
}

func (c *countingSource) Snapshot() (model.Snapshot, error) {
	c.calls.Add(1)
	return c.snap, c.err
}

func TestPersisterArchivesEndedDay(t *testing.T) {
	base := t.TempDir()
	src := &countingSource{snap: model.Snapshot{DayRecords: map[string]model.DayRecord{}}}
	p := NewPersister(base, src, nil)

	rec := model.DayRecord{Date: "2026-02-27", TotalDuration: 30, Laps: []model.Lap{}}
	p.Observe(tracker.Transition{Kind: tracker.KindDayEnded, DayKey: rec.Date, Record: &rec})
	require.NoError(t, p.Flush())

	archived, found, err := storage.LoadDay(base, "2026-02-27")
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 30, archived.TotalDuration)

	_, found, err = storage.LoadSnapshot(base)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPersisterCoalescesRequests(t *testing.T) {
	src := &countingSource{snap: model.Snapshot{}}
	p := NewPersister(t.TempDir(), src, nil)

	// Without Run, repeated requests collapse into the single pending slot.
	for range 10 {
		p.Observe(tracker.Transition{Kind: tracker.KindLapOpened})
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, src.calls.Load())
	cancel()
	<-done
}

func TestPersisterIgnoresGapTransitions(t *testing.T) {
	p := NewPersister(t.TempDir(), &countingSource{}, nil)
	p.Observe(tracker.Transition{Kind: tracker.KindGapExcluded})
	select {
	case <-p.wake:
		t.Fatal("gap transition requested a write")
	default:
	}
}

func TestPersisterReportsFailure(t *testing.T) {
	base := t.TempDir()
	p := NewPersister(base, &countingSource{err: errors.New("poisoned")}, nil)
	require.Error(t, p.Flush())
	_, err := os.Stat(filepath.Join(base, storage.StateFile))
	assert.True(t, os.IsNotExist(err))
}
