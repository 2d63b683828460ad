package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/report"
)

type syncAPI struct {
	app *appstate.App
}

func registerSyncAPI(g *echo.Group, jwt echo.MiddlewareFunc, app *appstate.App) {
	api := syncAPI{app: app}

	sg := g.Group("/sync")
	sg.GET("", api.status)
	sg.POST("/refresh", api.refresh)
	sg.POST("/:id/rollback", api.rollback, jwt, adminMiddleware())

	// session endpoints
	ss := g.Group("/session", jwt)
	ss.GET("", api.session)
	ss.PUT("/view", api.navigate)
}

func (api *syncAPI) syncResponse() SyncResponse {
	snap := api.app.Snapshot()
	return SyncResponse{
		Status:      snap.Status,
		Error:       snap.Error,
		Unconfirmed: api.app.Unconfirmed(),
		Pending:     snap.Pending,
		Counts: map[string]int{
			string(report.KindAssembly): len(snap.Assembly),
			string(report.KindCaring):   len(snap.Caring),
		},
	}
}

func (api *syncAPI) status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.syncResponse())
}

// refresh is the manual reload. The lists are kept when the store cannot be reached.
func (api *syncAPI) refresh(ctx echo.Context) error {
	if err := api.app.Load(ctx.Request().Context()); err != nil {
		if errors.Cause(err) == appstate.ErrClosed {
			return err
		}
		return echo.NewHTTPError(http.StatusBadGateway, "report store unavailable").SetInternal(err)
	}
	return ctx.JSON(http.StatusOK, api.syncResponse())
}

func (api *syncAPI) rollback(ctx echo.Context) error {
	id := ctx.Param("id")
	restored, err := api.app.Rollback(id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, RollbackResponse{ID: id, Restored: restored})
}

func (api *syncAPI) contextSession(ctx echo.Context) (appstate.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return appstate.Session{}, err
	}
	sess, ok := api.app.Session(claims.Id)
	if !ok {
		return appstate.Session{}, errSessionExpired
	}
	return sess, nil
}

func (api *syncAPI) session(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	status, lastErr := api.app.Status()
	resp := SessionResponse{Session: sess, Status: status}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *syncAPI) navigate(ctx echo.Context) error {
	var data NavigateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NavigateRequest")
	}
	view, err := appstate.ParseView(data.View)
	if err != nil {
		return err
	}

	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	if err := api.app.Navigate(sess.ID, view); err != nil {
		return err
	}
	sess, _ = api.app.Session(sess.ID)
	return ctx.JSON(http.StatusOK, sess)
}
