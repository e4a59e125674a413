package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRoundedUnit(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{60, "1m"},
		{3599, "59m"},
		{3600, "1h"},
		{7300, "2h"},
		{-90, "1m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRoundedUnit(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "5m", FormatAgo(now, now.Add(-5*time.Minute-20*time.Second)))
	assert.Equal(t, "0s", FormatAgo(now, now.Add(-300*time.Millisecond)))
}
