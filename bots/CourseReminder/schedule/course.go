package schedule

import "time"

var weekdayNames = map[string]time.Weekday{
	"一": time.Monday,
	"二": time.Tuesday,
	"三": time.Wednesday,
	"四": time.Thursday,
	"五": time.Friday,
	"六": time.Saturday,
	"日": time.Sunday,
}

var weekdayChars = [...]string{"日", "一", "二", "三", "四", "五", "六"}

// WeekdayName returns the Chinese name of the day, e.g. "星期一".
func WeekdayName(d time.Weekday) string {
	return "星期" + weekdayChars[d]
}

// Course is a weekly class template: it takes place every Weekday at the
// time described by Time.
type Course struct {
	Weekday    time.Weekday `json:"weekday"`
	Time       string       `json:"time"` // raw time range, e.g. "第1-2节 (08:00-09:40)"
	CourseName string       `json:"course_name"`
	Teacher    string       `json:"teacher"`
	Location   string       `json:"location"`
	Weeks      string       `json:"weeks,omitempty"` // free text, e.g. "1-16周"
}

// TimeRange returns the resolved time range of the course. The second value
// is false if the raw text doesn't describe a class period.
func (c *Course) TimeRange() (TimeRange, bool) {
	return ParseTimeRange(c.Time)
}

// Settings keeps per-user preferences.
type Settings struct {
	EnableDailyReminder bool // send the daily preview
	RemindersActive     bool // the user confirmed a schedule and hasn't stopped reminders since
}

// DefaultSettings are used for users who never saved any settings.
func DefaultSettings() Settings {
	return Settings{EnableDailyReminder: true}
}
