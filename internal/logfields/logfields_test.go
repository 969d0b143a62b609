package logfields

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, KeyError, Error(nil).Key)
}

func TestHelpersUseCanonicalKeys(t *testing.T) {
	assert.Equal(t, KeyDay, Day("2026-02-27").Key)
	assert.Equal(t, KeyLap, Lap(3).Key)
	assert.EqualValues(t, 3, Lap(3).Value.Int64())
	assert.Equal(t, KeySeconds, Seconds(10).Key)
}
