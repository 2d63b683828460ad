package emailsvc

import (
	"bytes"
	"io"
	"log"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skmethodistpj/laporan/core"
	logsvc "github.com/skmethodistpj/laporan/services/logger"
)

func testConfig() *core.Config {
	conf := &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Laporan HEM",
		SchoolName:      "SK METHODIST PETALING JAYA",
		FrontendBaseURL: "https://laporan.test",
	}
	conf.SetDefaultFromEmail("Unit HEM <hem@sk.test>")
	return conf
}

func TestConsoleService_SendMessages(t *testing.T) {
	conf := testConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	core.ParseEmailTemplates(conf, logger)

	var out bytes.Buffer
	svc := NewConsoleService(conf, logger)
	svc.out = &out

	reminder := &core.EmailMessage{
		To:           []mail.Address{{Name: "Penyelaras", Address: "penyelaras@sk.test"}},
		Subject:      "Laporan perhimpunan belum diisi",
		TemplateName: "missed_weeks",
		TemplateData: map[string]interface{}{
			"Name":        "Penyelaras",
			"CurrentWeek": 6,
			"TotalWeeks":  43,
			"PastDue":     []int{2, 4},
			"Percentage":  9,
		},
	}
	plain := &core.EmailMessage{
		To:      []mail.Address{{Address: "guru@sk.test"}},
		Subject: "Ujian",
		BodyStr: "Hello",
	}
	noRecipient := &core.EmailMessage{Subject: "x", BodyStr: "dropped"}

	svc.SendMessages(reminder, plain, noRecipient)
	svc.Wait()

	sent := svc.SentMessages()
	require.Len(t, sent, 2)

	var got core.EmailMessage
	for _, m := range sent {
		if m.TemplateName == "missed_weeks" {
			got = m
		}
	}
	assert.Contains(t, got.TextContent, "Minggu 2")
	assert.Contains(t, got.TextContent, "Minggu 4")
	assert.Contains(t, got.TextContent, "6 / 43")
	assert.Contains(t, got.TextContent, "SK METHODIST PETALING JAYA")
	assert.Contains(t, got.HTMLContent, `<a href="https://laporan.test">`)

	printed := out.String()
	assert.Contains(t, printed, "Subject: [Laporan HEM] Laporan perhimpunan belum diisi")
	assert.Contains(t, printed, `From: "Unit HEM" <hem@sk.test>`)
	assert.Equal(t, 2, strings.Count(printed, "MIME-Version: 1.0"))
}

func TestConsoleServiceMock_attachments(t *testing.T) {
	conf := testConfig()
	svc := NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))

	msg := &core.EmailMessage{To: []mail.Address{{Address: "a@sk.test"}}, Subject: "xlsx"}
	require.NoError(t, msg.Attach(strings.NewReader("PK\x03\x04"), "laporan.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	svc.SendMessages(msg)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].HasAttachments())
	assert.Equal(t, "laporan.xlsx", sent[0].Attachments[0].Filename)
}
