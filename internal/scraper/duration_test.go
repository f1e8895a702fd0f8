package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{"Hours minutes seconds", "1:30:23", 5423000 * time.Millisecond},
		{"Zero hours", "0:00:05", 5000 * time.Millisecond},
		{"Minutes seconds", "4:05", 245 * time.Second},
		{"Seconds only", "42", 42 * time.Second},
		{"Surrounding spaces", "  0:00:02\n", 2 * time.Second},
		{"More than a day", "26:00:00", 26 * time.Hour},
		{"Longest representable hours", "2562047:00:00", 2562047 * time.Hour},
		{"Wrapped in markup", `<span class="time">1:00:00</span>`, time.Hour},
		{"Entity in text", "0:01:00&nbsp;", time.Minute},
		{"Player control text", `<span class="vjs-control-text">Duration Time</span> 1:30:23`, 5423 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDurationText(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestParseDurationTextInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "1:2:3:4", "1:-5", "1:xx:00", "<span></span>",
		"2562048:00:00", "9999999999:00:00", "2562047:59:9999999999", "99999999999999999999"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDurationText(input)
			assert.Error(t, err)
		})
	}
}
