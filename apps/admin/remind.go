package main

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/report"
	"github.com/skmethodistpj/laporan/core/tracker"
)

const remindTimeout = 30 * time.Second

type waiter interface {
	Wait()
}

// remind emails the past due assembly weeks to every configured recipient.
// Nothing is sent when no week is past due.
func (cli *commandLine) remind(date string) error {
	t, err := cli.date(date)
	if err != nil {
		return err
	}
	if len(cli.conf.ReminderTo) == 0 {
		return errNoRecipients
	}

	ctx, cancel := context.WithTimeout(context.Background(), remindTimeout)
	defer cancel()
	rows, err := cli.store.Fetch(ctx, report.KindAssembly)
	if err != nil {
		return errors.Wrap(err, "fetching assembly reports")
	}
	list := make([]report.Assembly, 0, len(rows))
	for _, rec := range rows {
		if a, ok := rec.(report.Assembly); ok {
			list = append(list, a)
		}
	}
	list = report.FilterAssembly(report.Dedupe(list))

	summary := tracker.New(list, cli.cal.Week(t), cli.cal.TotalWeeks).Summary()
	if len(summary.PastDue) == 0 {
		cli.logf("minggu %d: tiada minggu tertunggak", summary.CurrentWeek)
		return nil
	}

	messages := make([]*core.EmailMessage, 0, len(cli.conf.ReminderTo))
	for _, to := range cli.conf.ReminderTo {
		name := to.Name
		if name == "" {
			name = "Penyelaras"
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{to},
			Subject:      fmt.Sprintf("Laporan perhimpunan belum diisi: %d minggu", len(summary.PastDue)),
			TemplateName: "missed_weeks",
			TemplateData: map[string]interface{}{
				"Name":        name,
				"CurrentWeek": summary.CurrentWeek,
				"TotalWeeks":  summary.TotalWeeks,
				"PastDue":     summary.PastDue,
				"Percentage":  summary.Percentage,
			},
		})
	}
	cli.mailSvc.SendMessages(messages...)
	if w, ok := cli.mailSvc.(waiter); ok {
		w.Wait()
	}
	cli.logf("minggu %d: %d minggu tertunggak %v, %d peringatan dihantar",
		summary.CurrentWeek, len(summary.PastDue), summary.PastDue, len(messages))
	return nil
}
