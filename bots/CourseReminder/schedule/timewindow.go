package schedule

import (
	"regexp"
	"strconv"
	"time"
)

// matches "第3-4节 (10:00-10:45)", full-width parentheses are accepted as well
var periodRe = regexp.MustCompile(`第(\d+)-(\d+)节\s*[(（]\s*(\d{2}):(\d{2})\s*-\s*(\d{2}):(\d{2})\s*[)）]`)

// TimeRange is a class period together with its clock times.
type TimeRange struct {
	FirstPeriod, LastPeriod int
	StartHour, StartMinute  int
	EndHour, EndMinute      int
}

// ParseTimeRange extracts the class period descriptor from the text. It
// returns false if the text has no descriptor or the clock times are invalid.
func ParseTimeRange(text string) (TimeRange, bool) {
	m := periodRe.FindStringSubmatch(text)
	if m == nil {
		return TimeRange{}, false
	}

	n := make([]int, 0, 6)
	for _, s := range m[1:] {
		v, err := strconv.Atoi(s)
		if err != nil {
			return TimeRange{}, false
		}
		n = append(n, v)
	}

	tr := TimeRange{
		FirstPeriod: n[0],
		LastPeriod:  n[1],
		StartHour:   n[2],
		StartMinute: n[3],
		EndHour:     n[4],
		EndMinute:   n[5],
	}
	if !validClock(tr.StartHour, tr.StartMinute) || !validClock(tr.EndHour, tr.EndMinute) {
		return TimeRange{}, false
	}

	return tr, true
}

func validClock(h, m int) bool {
	return h >= 0 && h < 24 && m >= 0 && m < 60
}

// ResolveNextStart returns the start of the class on the reference date.
// Only the start time of the descriptor matters; the weekday of the course
// isn't checked against the reference date.
func ResolveNextStart(timeRange string, ref time.Time) (time.Time, bool) {
	tr, ok := ParseTimeRange(timeRange)
	if !ok {
		return time.Time{}, false
	}

	return time.Date(ref.Year(), ref.Month(), ref.Day(), tr.StartHour, tr.StartMinute, 0, 0, ref.Location()), true
}
