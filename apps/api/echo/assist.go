package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core/assist"
	"github.com/skmethodistpj/laporan/core/report"
)

type assistAPI struct {
	svc *assist.Service
}

func registerAssistAPI(g *echo.Group, svc *assist.Service) {
	api := assistAPI{svc: svc}

	ag := g.Group("/assist")
	ag.POST("/perhimpunan", api.draft(report.KindAssembly))
	ag.POST("/penyayang", api.draft(report.KindCaring))
}

// draft generates the text of one form field. The prompt is the assembly theme or the caring program.
func (api *assistAPI) draft(kind report.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data AssistRequest
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to AssistRequest")
		}
		d, err := api.svc.Draft(ctx.Request().Context(), kind, data.Field, data.Prompt)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, d)
	}
}
