package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/appstate"
)

var (
	orderingParam = "ordering"
	searchParam   = "q"
	idParam       = "id"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Selection is the list query of the report views: a search string and the ticked report ids.
// Ids may be repeated (?id=a&id=b) or comma separated (?id=a,b).
type Selection struct {
	Query string
	IDs   []string
}

func (sel *Selection) Bind(ctx echo.Context) {
	sel.Query = strings.TrimSpace(ctx.QueryParam(searchParam))
	for _, v := range ctx.QueryParams()[idParam] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				sel.IDs = append(sel.IDs, id)
			}
		}
	}
}

type (
	LoginResponse struct {
		Token   string           `json:"token"`
		Session appstate.Session `json:"session"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	NavigateRequest struct {
		View string `json:"view"`
	}

	AssistRequest struct {
		Field  string `json:"field"`
		Prompt string `json:"prompt"`
	}

	WeekResponse struct {
		Date string `json:"date"`
		Week int    `json:"week"`
		Hari string `json:"hari"`
		// Theme is the takwim's assembly theme of the week, when it sets one.
		Theme string `json:"tema,omitempty"`
	}

	SyncResponse struct {
		Status      appstate.SyncStatus          `json:"status"`
		Error       string                       `json:"error,omitempty"`
		Unconfirmed []appstate.UnconfirmedRecord `json:"unconfirmed"`
		Pending     []string                     `json:"pending"`
		Counts      map[string]int               `json:"counts"`
	}

	SessionResponse struct {
		Session appstate.Session    `json:"session"`
		Status  appstate.SyncStatus `json:"status"`
		Error   string              `json:"error,omitempty"`
	}

	RollbackResponse struct {
		ID       string      `json:"id"`
		Restored interface{} `json:"restored"` // nil when the rolled back record was new
	}
)
