package schedule

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const colon = "："

const (
	markerTime     = "上课时间"
	markerName     = "课程名称"
	markerTeacher  = "教师"
	markerLocation = "上课地点"
	markerWeeks    = "周次"
)

// checked in this order, the first match wins
var markers = []string{markerTime, markerName, markerTeacher, markerLocation, markerWeeks}

var weekdayRe = regexp.MustCompile(`^星期([一二三四五六日])`)

var (
	ErrMalformedField = errors.New("field line has no value")
	ErrMissingWeekday = errors.New("field line precedes any weekday header")
)

// LineError reports the input line that couldn't be parsed.
type LineError struct {
	Line int // 1-based
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

type parser struct {
	courses     []Course
	cur         *Course
	bare        bool // cur carries only a weekday
	weekday     time.Weekday
	seenWeekday bool
}

// Parse converts a free-text weekly schedule into courses. It returns no
// courses and no error if nothing in the text looks like a schedule.
//
// A weekday header ("星期一") opens a course; a class time line opens a
// course of the last seen weekday unless the current one has nothing but a
// weekday, in which case the time is assigned to it. A header which isn't
// followed by any field still yields a course with a weekday only.
func Parse(text string) ([]Course, error) {
	p := &parser{}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := p.line(line); err != nil {
			return nil, &LineError{Line: i + 1, Text: line, Err: err}
		}
	}

	p.flush()
	return p.courses, nil
}

func (p *parser) line(line string) error {
	if m := weekdayRe.FindStringSubmatch(line); m != nil {
		p.flush()
		p.weekday = weekdayNames[m[1]]
		p.seenWeekday = true
		p.open()
		return nil
	}

	label, value, hasValue := strings.Cut(line, colon)
	marker := findMarker(label)
	if marker == "" {
		return nil
	}
	if !hasValue {
		return ErrMalformedField
	}
	if !p.seenWeekday {
		return ErrMissingWeekday
	}

	value = strings.TrimSpace(value)
	if marker == markerTime {
		if !p.bare {
			p.flush()
			p.open()
		}
		p.cur.Time = value
		p.bare = false
		return nil
	}

	switch marker {
	case markerName:
		p.cur.CourseName = value
	case markerTeacher:
		p.cur.Teacher = value
	case markerLocation:
		p.cur.Location = value
	case markerWeeks:
		p.cur.Weeks = value
	}
	p.bare = false

	return nil
}

func (p *parser) open() {
	p.cur = &Course{Weekday: p.weekday}
	p.bare = true
}

func (p *parser) flush() {
	if p.cur != nil {
		p.courses = append(p.courses, *p.cur)
	}
	p.cur = nil
	p.bare = false
}

func findMarker(label string) string {
	for _, m := range markers {
		if strings.Contains(label, m) {
			return m
		}
	}
	return ""
}
