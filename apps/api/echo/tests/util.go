package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/homeworkhelper/api/apps/api/echo"
	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/tutor"
	"github.com/homeworkhelper/api/core/user"
	identitysvc "github.com/homeworkhelper/api/services/identity"
	"github.com/homeworkhelper/api/storage/database"
	inmemdb "github.com/homeworkhelper/api/storage/database/inmem"
	testutil "github.com/homeworkhelper/api/tests"
)

type fakeGenerator struct {
	mu         sync.Mutex
	configured bool
	answer     string
	err        error
}

func (g *fakeGenerator) Configured() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.configured
}

func (g *fakeGenerator) Answer(context.Context, tutor.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.answer, g.err
}

func (g *fakeGenerator) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

type testApp struct {
	app   *Server
	store *database.Store
	gen   *fakeGenerator
	local *identitysvc.Local
}

type setupConfig struct {
	openMode    bool
	unavailable bool
}

type setupOpt func(c *setupConfig)

// openMode runs the server without an identity provider.
func openMode(c *setupConfig) { c.openMode = true }

// unavailableStore backs the server with a store that cannot be reached.
func unavailableStore(c *setupConfig) { c.unavailable = true }

func setup(t *testing.T, opts ...setupOpt) *testApp {
	t.Helper()
	var sc setupConfig
	for _, opt := range opts {
		opt(&sc)
	}

	conf := core.NewTestConfig()
	conf.Auth.Provider = core.AuthLocal

	var store *database.Store
	if sc.unavailable {
		store = database.NewUnavailableStore(core.EngineMemory, nil)
	} else {
		db, err := inmemdb.Open()
		if err != nil {
			t.Fatalf("inmemdb.Open() failed: %v", err)
		}
		store = database.NewMemoryStore(db)
	}

	validate, translator := testutil.NewValidator()
	logger := testutil.NewLogger()
	gen := &fakeGenerator{configured: true, answer: "42"}
	local := identitysvc.NewLocal(conf)

	deps := ServerDeps{
		Conf:         conf,
		Logger:       logger,
		Translator:   translator,
		Storage:      store,
		QuestionSvc:  question.NewService(store.Questions, gen, validate, logger, core.NopMetrics{}, conf),
		AnalyticsSvc: analytics.NewService(store.Stats, validate, logger, core.NopMetrics{}, conf),
		UserSvc:      user.NewService(store.Users, validate),
		Verifier:     local,
	}
	if sc.openMode {
		deps.Verifier = nil
	}

	return &testApp{
		app:   NewServer(deps),
		store: store,
		gen:   gen,
		local: local,
	}
}

func (ta *testApp) token(t *testing.T, uid string, admin bool) string {
	t.Helper()
	role := user.RoleStudent
	if admin {
		role = user.RoleAdmin
	}
	token, err := ta.local.IssueToken(user.User{UID: uid, Email: uid + "@example.com", Role: role})
	if err != nil {
		t.Fatalf("IssueToken() failed: %v", err)
	}
	return token
}

func (ta *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	ta.app.ServeHTTP(rec, req)
	return rec
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

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarshall(%s) failed: %v", rec.Body.String(), err)
	}
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
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, ta *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, ta.do(method, tt.path, tt.token, tt.body))
		})
	}
}
