package echoapi_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/report"
)

func Test_reportApi_save(t *testing.T) {
	env := setup(t)

	t.Run("assembly", func(t *testing.T) {
		body := marshallObj(t, map[string]string{
			"tarikh":         testDate,
			"minggu":         "5",
			"tema":           testTheme,
			"huraian":        "Murid diingatkan supaya berhati-hati.",
			"disediakanOleh": "AMINAH BINTI YUSOF",
		})
		rec := env.do(httpTest{method: http.MethodPost, path: "/v1/perhimpunan", body: body})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		var receipt appstate.Receipt
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
		assert.NotEmpty(t, receipt.ID)
		assert.Equal(t, report.KindAssembly, receipt.Kind)
		assert.Equal(t, appstate.StatusLoading, receipt.Status)
		assert.Equal(t, appstate.ViewList, receipt.NavigateTo)
		assert.Equal(t, int64(10), receipt.NavigateAfterMS)

		// the list shows the report before the store confirms it
		got, err := env.app.Get(report.KindAssembly, receipt.ID)
		require.NoError(t, err)
		saved := got.(report.Assembly)
		assert.Equal(t, "ISNIN", saved.Hari)
		assert.Equal(t, report.DefaultMasa, saved.Masa)

		assert.Eventually(t, func() bool {
			return len(env.store.Rows(report.KindAssembly)) == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("caring", func(t *testing.T) {
		body := marshallObj(t, map[string]string{
			"tarikh":         testDate,
			"tempat":         report.OtherPlace,
			"tempatLain":     "Kantin",
			"sasaran":        "Murid Tahun 1",
			"disediakanOleh": "AMINAH BINTI YUSOF",
		})
		rec := env.do(httpTest{method: http.MethodPost, path: "/v1/penyayang", body: body})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		var receipt appstate.Receipt
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
		assert.Equal(t, appstate.ViewCaringList, receipt.NavigateTo)

		got, err := env.app.Get(report.KindCaring, receipt.ID)
		require.NoError(t, err)
		saved := got.(report.Caring)
		assert.Equal(t, report.DefaultProgram, saved.Program)
		assert.Equal(t, "Kantin", saved.Location())
	})

	t.Run("edit keeps the id", func(t *testing.T) {
		orig := seedAssembly("abc123def", "2026-01-12", "1", "RITA")
		body := marshallObj(t, orig)
		rec := env.do(httpTest{method: http.MethodPost, path: "/v1/perhimpunan", body: body})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		orig.Tema = "Tema dikemas kini"
		rec = env.do(httpTest{method: http.MethodPost, path: "/v1/perhimpunan", body: marshallObj(t, orig)})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		got, err := env.app.Get(report.KindAssembly, orig.ID)
		require.NoError(t, err)
		assert.Equal(t, "Tema dikemas kini", got.(report.Assembly).Tema)
	})
}

func Test_reportApi_saveValidation(t *testing.T) {
	env := setup(t)
	required := "this field is required"

	tests := []httpTest{
		{
			name:     "assembly: empty",
			method:   http.MethodPost,
			path:     "/v1/perhimpunan",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"tarikh": required, "minggu": required, "disediakanOleh": required}),
		},
		{
			name:     "assembly: bad week",
			method:   http.MethodPost,
			path:     "/v1/perhimpunan",
			body:     []byte(`{"tarikh": "2026-02-09", "minggu": "44", "disediakanOleh": "RITA"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"minggu": "minggu must be a week number between 1 and 43"}),
		},
		{
			name:     "assembly: bad date",
			method:   http.MethodPost,
			path:     "/v1/perhimpunan",
			body:     []byte(`{"tarikh": "09/02/2026", "minggu": "5", "disediakanOleh": "RITA"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"tarikh": "tarikh must be a date in the format YYYY-MM-DD"}),
		},
		{
			name:     "caring: empty",
			method:   http.MethodPost,
			path:     "/v1/penyayang",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"tarikh": required, "sasaran": required, "disediakanOleh": required}),
		},
		{
			name:     "caring: other place unspecified",
			method:   http.MethodPost,
			path:     "/v1/penyayang",
			body:     marshallObj(t, map[string]string{"tarikh": testDate, "tempat": report.OtherPlace, "sasaran": "Murid", "disediakanOleh": "RITA"}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"tempatLain": "please specify the location"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt)
			checkCodeAndData(t, tt, rec)
		})
	}

	// nothing reached the store
	appends, _ := env.store.Calls()
	assert.Zero(t, appends)
}

func Test_reportApi_saveWithSession(t *testing.T) {
	env := setup(t)
	login := env.login(t, env.teacher)
	assert.Equal(t, appstate.ViewHub, login.Session.View)

	body := []byte(`{"tarikh": "2026-02-09", "minggu": "5"}`)
	rec := env.do(httpTest{method: http.MethodPost, path: "/v1/perhimpunan", body: body, token: login.Token})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var receipt appstate.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	got, err := env.app.Get(report.KindAssembly, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, env.teacher.Name, got.(report.Assembly).DisediakanOleh)

	assert.Eventually(t, func() bool {
		sess, ok := env.app.Session(login.Session.ID)
		return ok && sess.View == appstate.ViewList
	}, time.Second, 5*time.Millisecond)
}

func Test_reportApi_query(t *testing.T) {
	a1 := seedAssembly("aaaaaaaa1", "2026-01-12", "1", "AMINAH BINTI YUSOF")
	a3 := seedAssembly("aaaaaaaa3", "2026-01-26", "3", "RITA SELVAMALAR")
	blank := report.Assembly{ID: "blankrow1"}
	c1 := seedCaring("cccccccc1", "2026-02-02", "Murid Tahun 1")
	env := setup(t, a1, a3, blank, c1)

	list := func(t *testing.T, path string) []report.Assembly {
		rec := env.do(httpTest{method: http.MethodGet, path: path})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []report.Assembly
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		return got
	}

	t.Run("rows without a week are hidden", func(t *testing.T) {
		assert.ElementsMatch(t, []report.Assembly{a1, a3}, list(t, "/v1/perhimpunan"))
	})
	t.Run("search", func(t *testing.T) {
		assert.Equal(t, []report.Assembly{a3}, list(t, "/v1/perhimpunan?q=rita"))
	})
	t.Run("selection", func(t *testing.T) {
		assert.Equal(t, []report.Assembly{a1}, list(t, "/v1/perhimpunan?id=aaaaaaaa1,unknown"))
	})

	tests := []httpTest{
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     "/v1/penyayang/cccccccc1",
			wantCode: http.StatusOK,
			wantData: marshallObj(t, c1),
		},
		{
			name:     "retrieve: wrong kind",
			method:   http.MethodGet,
			path:     "/v1/perhimpunan/cccccccc1",
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: report.ErrNotFound.Error()}),
		},
		{
			name:     "retrieve: unknown",
			method:   http.MethodGet,
			path:     "/v1/penyayang/nope",
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "report not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}
}

func Test_reportApi_draft(t *testing.T) {
	env := setup(t)

	draft := func(t *testing.T, token string) report.Assembly {
		rec := env.do(httpTest{method: http.MethodGet, path: "/v1/perhimpunan/draft", token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got report.Assembly
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		return got
	}

	t.Run("anonymous", func(t *testing.T) {
		got := draft(t, "")
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, testDate, got.Tarikh)
		assert.Equal(t, "ISNIN", got.Hari)
		assert.Equal(t, "5", got.Minggu)
		assert.Equal(t, testTheme, got.Tema)
		assert.Empty(t, got.DisediakanOleh)
	})

	t.Run("logged in", func(t *testing.T) {
		got := draft(t, env.login(t, env.teacher).Token)
		assert.Equal(t, env.teacher.Name, got.DisediakanOleh)
	})

	t.Run("caring", func(t *testing.T) {
		rec := env.do(httpTest{method: http.MethodGet, path: "/v1/penyayang/draft"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got report.Caring
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, report.DefaultProgram, got.Program)
		assert.Equal(t, report.DefaultCaringPlace, got.Tempat)
		assert.Equal(t, testDate, got.Tarikh)
	})
}

func Test_reportApi_exports(t *testing.T) {
	a1 := seedAssembly("aaaaaaaa1", "2026-01-12", "1", "AMINAH BINTI YUSOF")
	c1 := seedCaring("cccccccc1", "2026-02-02", "Murid Tahun 1")
	env := setup(t, a1, c1)
	noReports := marshallObj(t, httpErr{Error: "no reports selected"})

	errTests := []httpTest{
		{name: "print: no selection", method: http.MethodGet, path: "/v1/perhimpunan/print", wantCode: http.StatusBadRequest, wantData: noReports},
		{name: "print: unknown ids", method: http.MethodGet, path: "/v1/penyayang/print?id=nope", wantCode: http.StatusBadRequest, wantData: noReports},
		{name: "pdf: no selection", method: http.MethodGet, path: "/v1/penyayang/pdf", wantCode: http.StatusBadRequest, wantData: noReports},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}

	tests := []struct {
		name        string
		path        string
		contentType string
		filename    string
		contains    string
	}{
		{"assembly print", "/v1/perhimpunan/print?id=aaaaaaaa1", "text/html", "", "Tema minggu 1"},
		{"caring print", "/v1/penyayang/print?id=cccccccc1", "text/html", "", "Murid Tahun 1"},
		{"assembly pdf", "/v1/perhimpunan/pdf?id=aaaaaaaa1", "application/pdf", "laporan-perhimpunan-20260209.pdf", "%PDF-"},
		{"caring pdf", "/v1/penyayang/pdf?id=cccccccc1", "application/pdf", "laporan-guru-penyayang-20260209.pdf", "%PDF-"},
		{"assembly xlsx", "/v1/perhimpunan/xlsx", "spreadsheetml", "laporan-perhimpunan-20260209.xlsx", "PK"},
		{"caring xlsx", "/v1/penyayang/xlsx?q=tahun", "spreadsheetml", "laporan-guru-penyayang-20260209.xlsx", "PK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(httpTest{method: http.MethodGet, path: tt.path})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), tt.contentType)
			if tt.filename != "" {
				assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.filename)
			}
			assert.True(t, strings.Contains(rec.Body.String(), tt.contains), "body does not contain %q", tt.contains)
		})
	}

	t.Run("print pages open the print dialog", func(t *testing.T) {
		for _, path := range []string{"/v1/perhimpunan/print?id=aaaaaaaa1", "/v1/penyayang/print?id=cccccccc1"} {
			rec := env.do(httpTest{method: http.MethodGet, path: path})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), "window.print()", path)
			assert.Contains(t, rec.Body.String(), `src="`+testLogoURL+`"`, path)
		}
	})
}
