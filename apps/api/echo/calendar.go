package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/calendar"
	"github.com/skmethodistpj/laporan/core/tracker"
)

type calendarAPI struct {
	cal *calendar.Calendar
}

func registerCalendarAPI(g *echo.Group, cal *calendar.Calendar) {
	api := calendarAPI{cal: cal}

	cg := g.Group("/calendar")
	cg.GET("/week", api.week)
	cg.GET("/takwim", api.takwim)
}

func (api *calendarAPI) week(ctx echo.Context) error {
	date := strings.TrimSpace(ctx.QueryParam("date"))
	if date == "" {
		date = calendar.NowFunc().In(calendar.Location).Format(calendar.DateLayout)
	}
	week, err := api.cal.WeekOn(date)
	if err != nil {
		return core.NewFieldError("date", "date must be in the format YYYY-MM-DD")
	}

	resp := WeekResponse{Date: date, Week: week, Hari: calendar.WeekdayOf(date)}
	if theme, ok := api.cal.Theme(week); ok {
		resp.Theme = theme
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *calendarAPI) takwim(ctx echo.Context) error {
	month := ctx.QueryParam("month")
	if month == "" {
		return ctx.JSON(http.StatusOK, api.cal.Events)
	}
	if !calendar.IsMonth(month) {
		return core.NewFieldError("month", fmt.Sprintf("month must be one of %s", strings.Join(calendar.Months, ", ")))
	}
	return ctx.JSON(http.StatusOK, api.cal.EventsByMonth(month))
}

type dashboardAPI struct {
	deps ServerDeps
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := dashboardAPI{deps: deps}

	dg := g.Group("/dashboard")
	dg.GET("", api.summary)
	dg.GET("/xlsx", api.exportXLSX, jwt, adminMiddleware())
}

func (api *dashboardAPI) tracker() *tracker.Tracker {
	return tracker.New(api.deps.App.Assembly(), api.deps.Calendar.CurrentWeek(), api.deps.Calendar.TotalWeeks)
}

func (api *dashboardAPI) summary(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.tracker().Summary())
}

func (api *dashboardAPI) exportXLSX(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := api.deps.Exporter.CompletionXLSX(&buf, api.tracker().Summary()); err != nil {
		return err
	}
	name := fmt.Sprintf("pemantauan-perhimpunan-minggu-%d.xlsx", api.deps.Calendar.CurrentWeek())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}
