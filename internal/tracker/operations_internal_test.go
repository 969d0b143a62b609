package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/screen-time-tracker/internal/clock"
)

func TestEndDayKeepsSessionWhenRecordMissing(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC))
	tr := New(WithClock(clk))
	_, err := tr.StartDay()
	require.NoError(t, err)

	tr.ledger.Import(nil)
	clk.Advance(2 * time.Second)

	_, err = tr.EndDay()
	require.ErrorIs(t, err, ErrRecordNotFound)

	st, ok := tr.State()
	require.True(t, ok)
	assert.Equal(t, "2026-02-27", st.DayKey)
}
