package portal

import (
	"time"

	"github.com/infokelas/kelas/internal/api"
)

// Days lists schedule days in timetable order.
var Days = []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu", "Minggu"}

// DayGroup is the schedule of one day.
type DayGroup struct {
	Day   string
	Items []api.Schedule
}

// GroupByDay groups schedules by day in timetable order, keeping the input
// order within a day. Days without classes are omitted, as are slots whose
// day name is not recognized.
func GroupByDay(schedules []api.Schedule) []DayGroup {
	var out []DayGroup
	for _, day := range Days {
		var items []api.Schedule
		for _, s := range schedules {
			if s.Day == day {
				items = append(items, s)
			}
		}
		if len(items) > 0 {
			out = append(out, DayGroup{Day: day, Items: items})
		}
	}
	return out
}

// Greeting returns the Indonesian time-of-day greeting for t.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Selamat Pagi"
	case h < 15:
		return "Selamat Siang"
	case h < 18:
		return "Selamat Sore"
	default:
		return "Selamat Malam"
	}
}

var weekdays = [...]string{
	time.Sunday:    "Minggu",
	time.Monday:    "Senin",
	time.Tuesday:   "Selasa",
	time.Wednesday: "Rabu",
	time.Thursday:  "Kamis",
	time.Friday:    "Jumat",
	time.Saturday:  "Sabtu",
}

// DayName returns the schedule day name for t.
func DayName(t time.Time) string {
	return weekdays[t.Weekday()]
}
