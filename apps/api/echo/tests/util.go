package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/engsoc/apps/api/echo"
	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/dashboard"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/form"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/portal"
	"github.com/trezcool/engsoc/core/resource"
	"github.com/trezcool/engsoc/core/team"
	emailsvc "github.com/trezcool/engsoc/services/email"
	storagesvc "github.com/trezcool/engsoc/services/storage"
	"github.com/trezcool/engsoc/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app    echoapi.Server
	conf   *core.Config
	repos  testutil.Repos
	mailer *emailsvc.ConsoleServiceMock
}

// setup serves the API over a fresh database, with simulated uploads and no simulated latencies.
func setup(t *testing.T) *env {
	db := testutil.PrepareDB(t)
	repos := testutil.Repositories(db)
	conf := core.NewTestConfig()
	logger := testutil.NopLogger{}

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	member.InitValidators(validate, translator)
	require.NoError(t, core.ParseEmailTemplates(conf))

	storage, err := storagesvc.New(conf.Portal)
	require.NoError(t, err)

	memberSvc := member.NewService(repos.Member)
	eventSvc := event.NewService(repos.Event)
	competitionSvc := competition.NewService(repos.Competition)
	teamSvc := team.NewService(repos.Team)
	notificationSvc := notification.NewService(repos.Notification)
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	registry := portal.NewRegistry(conf.Portal.ScreenTTL, logger)
	t.Cleanup(registry.CloseAll)

	app := echoapi.NewServer(echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		Members:        memberSvc,
		PasswordReset:  member.NewPasswordReset(conf, memberSvc, mailer),
		Dashboard:      dashboard.NewService(eventSvc, competitionSvc, notificationSvc, teamSvc),
		Events:         eventSvc,
		Resources:      resource.NewService(repos.Resource),
		Competitions:   competitionSvc,
		Teams:          teamSvc,
		Notifications:  notificationSvc,
		Portal: portal.NewService(portal.Deps{
			Conf:          conf.Portal,
			Validator:     form.NewValidator(validate, translator),
			Storage:       storage,
			Mailer:        mailer,
			Logger:        logger,
			Registry:      registry,
			Members:       memberSvc,
			Events:        eventSvc,
			Competitions:  competitionSvc,
			Teams:         teamSvc,
			Notifications: notificationSvc,
		}),
	})

	return &env{app: app, conf: conf, repos: repos, mailer: mailer}
}

// serve sends a JSON request with an optional bearer token.
func (e *env) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

func (e *env) token(t *testing.T, m member.Member) string {
	token, err := echoapi.GenerateToken(e.conf, echoapi.NewClaims(e.conf, m))
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return token
}

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

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
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
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if assert.NoError(t, err) {
		assert.True(t, ok, "data = %s; wantData %s", rec.Body.String(), string(tt.wantData))
	}
}
