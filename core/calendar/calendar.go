// Package calendar maps calendar dates to academic weeks.
//
// Week 1 starts on the configured Monday. Every configured holiday boundary the date has passed
// pulls the week number back by the boundary's delta, so holiday weeks are not counted.
// The result is always clamped to [1, TotalWeeks].
package calendar

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	appfs "github.com/skmethodistpj/laporan/fs"
)

const (
	DateLayout        = "2006-01-02"
	DefaultTotalWeeks = 43
	defaultFile       = "assets/calendar/2026.yaml"
)

var (
	NowFunc = time.Now // mockable

	// Location is Malaysia time. It has no DST so a fixed zone is exact.
	Location = time.FixedZone("MYT", 8*60*60)

	ErrInvalidDate = errors.New("invalid date")
)

// Boundary is the last day of a school holiday. Dates after it lose Delta weeks.
type Boundary struct {
	Name  string
	Date  time.Time
	Delta int
}

type Calendar struct {
	Year       int
	Start      time.Time
	TotalWeeks int
	Boundaries []Boundary
	Events     []Event
}

type (
	fileBoundary struct {
		Name  string `yaml:"name"`
		Date  string `yaml:"date"`
		Delta int    `yaml:"delta"`
	}

	file struct {
		Year       int            `yaml:"year"`
		Start      string         `yaml:"start"`
		TotalWeeks int            `yaml:"total_weeks"`
		Boundaries []fileBoundary `yaml:"boundaries"`
		Events     []Event        `yaml:"events"`
	}
)

// Load decodes a YAML calendar.
func Load(r io.Reader) (*Calendar, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decoding calendar")
	}

	start, err := ParseDate(f.Start)
	if err != nil {
		return nil, errors.Wrap(err, "parsing start")
	}
	cal := &Calendar{
		Year:       f.Year,
		Start:      start,
		TotalWeeks: f.TotalWeeks,
		Events:     f.Events,
	}
	if cal.TotalWeeks == 0 {
		cal.TotalWeeks = DefaultTotalWeeks
	}
	if cal.Year == 0 {
		cal.Year = start.Year()
	}
	for _, fb := range f.Boundaries {
		date, err := ParseDate(fb.Date)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing boundary %q", fb.Name)
		}
		cal.Boundaries = append(cal.Boundaries, Boundary{Name: fb.Name, Date: date, Delta: fb.Delta})
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return cal, nil
}

// LoadFile loads a calendar from disk. An empty path loads the embedded default.
func LoadFile(path string) (*Calendar, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading calendar file")
	}
	return Load(bytes.NewReader(data))
}

// Default returns the calendar shipped with the binary.
func Default() (*Calendar, error) {
	data, err := appfs.FS.ReadFile(defaultFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading embedded calendar")
	}
	return Load(bytes.NewReader(data))
}

func (c *Calendar) Validate() error {
	if c.Start.Weekday() != time.Monday {
		return errors.Errorf("calendar start %s is not a Monday", c.Start.Format(DateLayout))
	}
	if c.TotalWeeks < 1 {
		return errors.Errorf("total weeks must be positive, got %d", c.TotalWeeks)
	}
	for i, b := range c.Boundaries {
		if b.Delta < 0 {
			return errors.Errorf("boundary %q has a negative delta", b.Name)
		}
		if i > 0 && !b.Date.After(c.Boundaries[i-1].Date) {
			return errors.Errorf("boundary %q is not after %q", b.Name, c.Boundaries[i-1].Name)
		}
	}
	return nil
}

// Week returns the academic week of t.
func (c *Calendar) Week(t time.Time) int {
	t = t.In(Location)
	if t.Before(c.Start) {
		return 1
	}

	day := dateOf(t)
	raw := int(day.Sub(c.Start).Hours()/24)/7 + 1

	var adjustment int
	for _, b := range c.Boundaries {
		// a boundary is passed once its last second is over
		if t.After(b.Date.Add(24*time.Hour - time.Second)) {
			adjustment += b.Delta
		}
	}

	week := raw - adjustment
	if week < 1 {
		return 1
	}
	if week > c.TotalWeeks {
		return c.TotalWeeks
	}
	return week
}

// WeekOn parses s (YYYY-MM-DD, RFC3339 or "YYYY-MM-DD HH:MM:SS") and returns its academic week.
func (c *Calendar) WeekOn(s string) (int, error) {
	t, err := ParseDate(s)
	if err != nil {
		return 0, err
	}
	return c.Week(t), nil
}

func (c *Calendar) CurrentWeek() int {
	return c.Week(NowFunc())
}

// ParseDate parses the date formats found in stored reports into a midnight in Location.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.ParseInLocation(DateLayout, s, Location); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return dateOf(t.In(Location)), nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, Location); err == nil {
		return dateOf(t), nil
	}
	return time.Time{}, errors.Wrapf(ErrInvalidDate, "%q", s)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
