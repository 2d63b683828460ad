package calendar

import (
	"strconv"
	"strings"
	"time"
)

// Event kinds of the HEM takwim.
const (
	EventMeeting = "MESYUARAT"
	EventProgram = "PROGRAM"
	EventHoliday = "CUTI"
	EventTheme   = "TEMA"
	EventOther   = "LAIN"
)

// Months in calendar order, as named in the takwim.
var Months = []string{
	"JANUARI", "FEBRUARI", "MAC", "APRIL", "MEI", "JUN",
	"JULAI", "OGOS", "SEPTEMBER", "OKTOBER", "NOVEMBER", "DISEMBER",
}

var monthAbbrevs = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mac": time.March, "mar": time.March,
	"apr": time.April, "mei": time.May, "jun": time.June, "jul": time.July,
	"ogos": time.August, "ogo": time.August, "sep": time.September, "sept": time.September,
	"okt": time.October, "nov": time.November, "dis": time.December,
}

// Event is one row of the HEM takwim.
type Event struct {
	Month    string `yaml:"month" json:"month"`
	Bil      int    `yaml:"bil" json:"bil"`
	Tarikh   string `yaml:"tarikh" json:"tarikh"`
	Hari     string `yaml:"hari" json:"hari"`
	Minggu   string `yaml:"minggu,omitempty" json:"minggu,omitempty"`
	Aktiviti string `yaml:"aktiviti" json:"aktiviti"`
	Catatan  string `yaml:"catatan,omitempty" json:"catatan,omitempty"`
	Jenis    string `yaml:"jenis" json:"jenis"`
}

// Date parses single-day entries like "12 Jan". Ranges like "23-29 Mar" report false.
func (e Event) Date(year int) (time.Time, bool) {
	parts := strings.Fields(e.Tarikh)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := monthAbbrevs[strings.ToLower(parts[1])]
	if !ok {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, Location), true
}

// EventsByMonth returns the events of month (case-insensitive) in file order.
func (c *Calendar) EventsByMonth(month string) []Event {
	month = strings.ToUpper(strings.TrimSpace(month))
	events := make([]Event, 0)
	for _, e := range c.Events {
		if e.Month == month {
			events = append(events, e)
		}
	}
	return events
}

// EventsForWeek returns the events tagged with academic week w.
func (c *Calendar) EventsForWeek(w int) []Event {
	tag := strconv.Itoa(w)
	events := make([]Event, 0)
	for _, e := range c.Events {
		if e.Minggu == tag {
			events = append(events, e)
		}
	}
	return events
}

// Theme returns the assembly theme the takwim sets for week w, if any.
func (c *Calendar) Theme(w int) (string, bool) {
	const prefix = "TEMA PERHIMPUNAN :"
	for _, e := range c.EventsForWeek(w) {
		if e.Jenis != EventTheme || !strings.HasPrefix(e.Aktiviti, prefix) {
			continue
		}
		theme := strings.TrimSpace(strings.TrimPrefix(e.Aktiviti, prefix))
		// extra activities are appended after a slash
		if i := strings.Index(theme, " / "); i > 0 {
			theme = theme[:i]
		}
		return theme, theme != ""
	}
	return "", false
}

func IsMonth(month string) bool {
	month = strings.ToUpper(strings.TrimSpace(month))
	for _, m := range Months {
		if m == month {
			return true
		}
	}
	return false
}
