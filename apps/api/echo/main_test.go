package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/skmethodistpj/laporan/apps/api/echo"
	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/assist"
	"github.com/skmethodistpj/laporan/core/calendar"
	"github.com/skmethodistpj/laporan/core/report"
	"github.com/skmethodistpj/laporan/core/user"
	exportsvc "github.com/skmethodistpj/laporan/services/export"
	"github.com/skmethodistpj/laporan/services/metrics"
	inmemdb "github.com/skmethodistpj/laporan/storage/database/inmem"
	testutil "github.com/skmethodistpj/laporan/tests"
)

var (
	errMissingToken   = httpErr{Error: "missing or malformed jwt"}
	errSessionExpired = httpErr{Error: "session expired"}
	errForbidden      = httpErr{Error: "permission denied"}

	// Monday of week 5; the takwim sets the assembly theme of that week.
	testNow = time.Date(2026, time.February, 9, 8, 0, 0, 0, calendar.Location)
)

const (
	testDate    = "2026-02-09"
	testTheme   = "KESELAMATAN DI PADANG"
	testLogoURL = "https://skmpj.edu.my/logo.png"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// fakeGenerator answers every prompt with text, or fails with err.
type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type testEnv struct {
	server  Server
	app     *appstate.App
	store   *inmemdb.ReportStore
	usrRepo user.Repository
	gen     *fakeGenerator
	conf    *core.Config

	admin   user.User
	teacher user.User
}

// setup builds a server over in-memory stores, seeded with seed, with the clock fixed at testNow.
func setup(t *testing.T, seed ...report.Record) *testEnv {
	t.Helper()

	calendar.NowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { calendar.NowFunc = time.Now })

	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Laporan HEM",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Print: core.PrintConfig{
			Coordinator: "PN RITA SELVAMALAR",
			LogoURL:     testLogoURL,
			AutoPrint:   true,
		},
	}

	validate, translator := core.NewValidator()
	report.RegisterValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	store := inmemdb.NewReportStore(seed...)
	app := appstate.New(store, appstate.Options{
		NavigateDelay:  10 * time.Millisecond,
		ReconcileDelay: 10 * time.Millisecond,
	})
	t.Cleanup(app.Close)
	require.NoError(t, app.Load(context.Background()))

	cal, err := calendar.Default()
	require.NoError(t, err)

	usrRepo := inmemdb.NewUserRepository()
	usrSvc := user.NewService(usrRepo, validate)

	exp, err := exportsvc.New(exportsvc.OptionsFrom(conf))
	require.NoError(t, err)

	gen := &fakeGenerator{text: "  Murid perlu berhati-hati semasa bermain.  "}

	env := &testEnv{
		app:     app,
		store:   store,
		usrRepo: usrRepo,
		gen:     gen,
		conf:    conf,
		server: NewServer(ServerDeps{
			Conf:           conf,
			Logger:         nopLogger{},
			App:            app,
			Calendar:       cal,
			UserSvc:        usrSvc,
			Assist:         assist.NewService(gen),
			Exporter:       exp,
			Metrics:        metrics.New("test"),
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		}),
	}
	env.admin = testutil.CreateUser(t, usrRepo, "Rita Selvamalar", "rita", "rita@skmpj.edu.my", []string{user.RoleAdminCoordinator}, true)
	env.teacher = testutil.CreateUser(t, usrRepo, "Aminah Binti Yusof", "aminah", "aminah@skmpj.edu.my", []string{user.RoleTeacher}, true)
	return env
}

// login opens a session for usr through the API and returns its token.
func (env *testEnv) login(t *testing.T, usr user.User) LoginResponse {
	t.Helper()
	body := marshallObj(t, user.LoginCredentials{Username: usr.Username, Password: testutil.Password})
	req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (env *testEnv) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	env.server.ServeHTTP(rec, req)
	return rec
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func seedAssembly(id, date, week, preparer string) report.Assembly {
	a := report.Assembly{
		ID:             id,
		Tarikh:         date,
		Minggu:         week,
		Tema:           "Tema minggu " + week,
		Huraian:        "Huraian minggu " + week,
		DisediakanOleh: preparer,
	}
	a.Normalize()
	return a
}

func seedCaring(id, date, sasaran string) report.Caring {
	c := report.Caring{
		ID:             id,
		Tarikh:         date,
		Sasaran:        sasaran,
		Aktiviti:       "Menyambut murid di pintu pagar",
		DisediakanOleh: "AMINAH BINTI YUSOF",
	}
	c.Normalize()
	return c
}
