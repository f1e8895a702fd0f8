package scraper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ParseDurationText converts a player's duration label such as "1:30:23" or
// "4:05" into a duration. Markup is ignored and only the last word of the
// text counts, so "Duration Time 4:05" reads as 4:05. The hour field is
// unbounded: "26:00:00" is 26 hours.
func ParseDurationText(text string) (time.Duration, error) {
	words := strings.Fields(TextContent(text))
	if len(words) == 0 {
		return 0, fmt.Errorf("empty duration text")
	}
	label := words[len(words)-1]

	parts := strings.Split(label, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration text %q: too many fields", label)
	}

	var fields [3]int64 // hours, minutes, seconds
	offset := 3 - len(parts)
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration text %q: %w", label, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("invalid duration text %q: negative field", label)
		}
		fields[offset+i] = n
	}

	// time.Duration holds at most maxSeconds whole seconds.
	const maxSeconds = math.MaxInt64 / int64(time.Second)
	if fields[0] > maxSeconds/3600 || fields[1] > maxSeconds/60 || fields[2] > maxSeconds {
		return 0, fmt.Errorf("invalid duration text %q: too long", label)
	}
	seconds := fields[0]*3600 + fields[1]*60
	if seconds > maxSeconds-fields[2] {
		return 0, fmt.Errorf("invalid duration text %q: too long", label)
	}
	seconds += fields[2]
	return time.Duration(seconds*1000) * time.Millisecond, nil
}

// TextContent returns the text of an HTML fragment.
func TextContent(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}
