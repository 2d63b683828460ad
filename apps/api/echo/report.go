package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/calendar"
	"github.com/skmethodistpj/laporan/core/report"
	exportsvc "github.com/skmethodistpj/laporan/services/export"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type renderFunc[R report.Record] func(w io.Writer, reports []R) error

// reportAPI serves one report kind. Both kinds share the routes and differ only in these funcs.
type reportAPI[R report.Record] struct {
	kind     report.Kind
	filename string
	app      *appstate.App
	auth     *authenticator
	validate *validator.Validate

	list  func() []R
	draft func(now time.Time) R
	// prefill sets the fields a logged in user implies, before validation.
	prefill func(rec *R, sess appstate.Session)
	html    renderFunc[R]
	pdf     renderFunc[R]
	xlsx    renderFunc[R]
}

func registerReportAPI(g *echo.Group, deps ServerDeps, auth *authenticator) {
	cal, exp := deps.Calendar, deps.Exporter

	assembly := &reportAPI[report.Assembly]{
		kind:     report.KindAssembly,
		filename: "laporan-perhimpunan",
		app:      deps.App,
		auth:     auth,
		validate: deps.Validate,
		list: func() []report.Assembly {
			return report.FilterAssembly(deps.App.Assembly())
		},
		draft: func(now time.Time) report.Assembly {
			week := cal.Week(now)
			d := report.NewAssemblyDraft(now, week)
			if theme, ok := cal.Theme(week); ok {
				d.Tema = theme
			}
			return d
		},
		prefill: func(rec *report.Assembly, sess appstate.Session) {
			if strings.TrimSpace(rec.DisediakanOleh) == "" {
				rec.DisediakanOleh = sess.Name
			}
		},
		html: exp.AssemblyHTML,
		pdf:  exp.AssemblyPDF,
		xlsx: exp.AssemblyXLSX,
	}
	assembly.register(g.Group("/perhimpunan"))

	caring := &reportAPI[report.Caring]{
		kind:     report.KindCaring,
		filename: "laporan-guru-penyayang",
		app:      deps.App,
		auth:     auth,
		validate: deps.Validate,
		list:     deps.App.Caring,
		draft:    report.NewCaringDraft,
		prefill: func(rec *report.Caring, sess appstate.Session) {
			if strings.TrimSpace(rec.DisediakanOleh) == "" {
				rec.DisediakanOleh = sess.Name
			}
		},
		html: exp.CaringHTML,
		pdf:  exp.CaringPDF,
		xlsx: exp.CaringXLSX,
	}
	caring.register(g.Group("/penyayang"))
}

func (api *reportAPI[R]) register(g *echo.Group) {
	g.GET("", api.query)
	g.POST("", api.save)
	g.GET("/draft", api.newDraft)
	g.GET("/print", api.print)
	g.GET("/pdf", api.exportPDF)
	g.GET("/xlsx", api.exportXLSX)
	g.GET("/:id", api.retrieve)
}

// Handlers

func (api *reportAPI[R]) query(ctx echo.Context) error {
	var sel Selection
	sel.Bind(ctx)
	recs := report.Search(api.list(), sel.Query)
	if len(sel.IDs) > 0 {
		recs = report.Select(recs, sel.IDs)
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *reportAPI[R]) newDraft(ctx echo.Context) error {
	d := api.draft(calendar.NowFunc())
	if sess, ok := api.auth.optionalSession(ctx); ok {
		api.prefill(&d, sess)
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *reportAPI[R]) retrieve(ctx echo.Context) error {
	rec, err := api.app.Get(api.kind, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

// save creates or edits the report with the body's id. The list is updated right away;
// the remote write finishes in the background and its outcome shows in /v1/sync.
func (api *reportAPI[R]) save(ctx echo.Context) error {
	var rec R
	if err := ctx.Bind(&rec); err != nil {
		return errors.Wrap(err, "binding report")
	}

	sess, loggedIn := api.auth.optionalSession(ctx)
	if loggedIn {
		api.prefill(&rec, sess)
	}

	normalized, err := report.Validate(api.validate, withID(rec))
	if err != nil {
		return err
	}

	receipt, err := api.app.Save(ctx.Request().Context(), sess.ID, normalized)
	if err != nil {
		return errors.Wrap(err, "saving report")
	}
	return ctx.JSON(http.StatusAccepted, receipt)
}

func (api *reportAPI[R]) print(ctx echo.Context) error {
	recs, err := api.selection(ctx, true)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := api.html(&buf, recs); err != nil {
		return err
	}
	return ctx.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (api *reportAPI[R]) exportPDF(ctx echo.Context) error {
	recs, err := api.selection(ctx, true)
	if err != nil {
		return err
	}
	return api.attachment(ctx, api.pdf, recs, mimePDF, "pdf")
}

func (api *reportAPI[R]) exportXLSX(ctx echo.Context) error {
	recs, err := api.selection(ctx, false)
	if err != nil {
		return err
	}
	return api.attachment(ctx, api.xlsx, recs, mimeXLSX, "xlsx")
}

// selection returns the ticked reports in list order. Without ids, required fails with
// exportsvc.ErrNoReports, otherwise every report matching ?q= is returned.
func (api *reportAPI[R]) selection(ctx echo.Context, required bool) ([]R, error) {
	var sel Selection
	sel.Bind(ctx)

	if len(sel.IDs) == 0 {
		if required {
			return nil, exportsvc.ErrNoReports
		}
		return report.Search(api.list(), sel.Query), nil
	}
	recs := report.Select(api.list(), sel.IDs)
	if len(recs) == 0 {
		return nil, exportsvc.ErrNoReports
	}
	return recs, nil
}

func (api *reportAPI[R]) attachment(ctx echo.Context, render renderFunc[R], recs []R, mime, ext string) error {
	var buf bytes.Buffer
	if err := render(&buf, recs); err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%s.%s", api.filename, calendar.NowFunc().In(calendar.Location).Format("20060102"), ext)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, mime, buf.Bytes())
}

// withID gives a new report its id. Re-submitting an existing id edits that report.
func withID(rec report.Record) report.Record {
	switch r := rec.(type) {
	case report.Assembly:
		if strings.TrimSpace(r.ID) == "" {
			r.ID = report.NewID()
		}
		return r
	case report.Caring:
		if strings.TrimSpace(r.ID) == "" {
			r.ID = report.NewID()
		}
		return r
	}
	return rec
}
