package main

import (
	"github.com/skmethodistpj/laporan/core/calendar"
)

// week prints the academic week of a date and the takwim's assembly theme for it.
func (cli *commandLine) week(date string) error {
	t, err := cli.date(date)
	if err != nil {
		return err
	}
	w := cli.cal.Week(t)
	cli.logf("%s %s: minggu %d / %d", t.Format(calendar.DateLayout), calendar.Weekday(t), w, cli.cal.TotalWeeks)
	if theme, ok := cli.cal.Theme(w); ok {
		cli.logf("tema: %s", theme)
	}
	return nil
}
