package schedule

import (
	"fmt"
	"strings"
)

const numAssumedAvgCourse = 120

const (
	fmtReminder = `同学你好，待会有课哦
上课时间（节次和时间）：%s
课程名称：%s
教师：%s
上课地点：%s`

	fmtWeekday    = "%s\n"
	fmtTime       = "上课时间：%s\n"
	fmtCourseName = "课程名称：%s\n"
	fmtTeacher    = "教师：%s\n"
	fmtLocation   = "上课地点：%s\n"
	fmtWeeks      = "周次：%s\n"
)

// FormatReminder renders the reminder sent shortly before the class.
func FormatReminder(c Course) string {
	return fmt.Sprintf(fmtReminder, c.Time, c.CourseName, c.Teacher, c.Location)
}

// FormatCourses renders the whole schedule, one block per course, the way
// the user is expected to type it in.
func FormatCourses(courses []Course) string {
	var sb strings.Builder
	sb.Grow(numAssumedAvgCourse * len(courses))

	for _, c := range courses {
		fmt.Fprintf(&sb, fmtWeekday, WeekdayName(c.Weekday))
		writeDetails(&sb, c)
		if c.Weeks != "" {
			fmt.Fprintf(&sb, fmtWeeks, c.Weeks)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatPreview renders the courses for the daily preview. Weekdays and
// weeks are omitted.
func FormatPreview(courses []Course) string {
	var sb strings.Builder
	sb.Grow(numAssumedAvgCourse * len(courses))

	for _, c := range courses {
		writeDetails(&sb, c)
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeDetails(sb *strings.Builder, c Course) {
	fmt.Fprintf(sb, fmtTime, c.Time)
	fmt.Fprintf(sb, fmtCourseName, c.CourseName)
	fmt.Fprintf(sb, fmtTeacher, c.Teacher)
	fmt.Fprintf(sb, fmtLocation, c.Location)
}
