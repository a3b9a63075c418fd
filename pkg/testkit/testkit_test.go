package testkit

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(echoed FuncMocker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = echoed.Intercept(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "data": json.RawMessage(body)})
	})
	mux.HandleFunc("GET /whoami", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"auth": r.Header.Get("Authorization")})
	})
	return mux
}

func newEchoRunner(*testing.T) *Runner {
	echoed := NewFuncMocker("echoed")
	return &Runner{
		Handler: echoHandler(echoed),
		Tokens:  map[string]string{"staff": "staff-token"},
		Mockers: map[string]FuncMocker{"echoed": echoed},
	}
}

func TestRunDir(t *testing.T) {
	newEchoRunner(t).RunDir(t, "testdata/echo")
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/echo/01_echo.json")
	require.NoError(t, err)

	assert.Equal(t, "POST", s.RequestMethod)
	assert.Equal(t, 201, s.ExpectedCode)
	assert.True(t, s.PartialMatch)
	require.Len(t, s.SideEffects, 1)
	assert.Equal(t, 1, *s.SideEffects[0].Times)
	assert.Equal(t, filepath.Join(filepath.Dir(mustAbs(t, "testdata/echo/01_echo.json")), "echo_req.body"), s.RequestBodyPath())

	s, err = LoadScenario("testdata/echo/02_whoami.json")
	require.NoError(t, err)
	assert.Equal(t, "GET", s.RequestMethod, "method defaults to GET")
	assert.Equal(t, 200, s.ExpectedCode, "status defaults to 200")
}

func TestLoadScenarioRejects(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"no_name.json":    `{"requestUrl": "/x"}`,
		"no_url.json":     `{"name": "x"}`,
		"two_bodies.json": `{"name": "x", "requestUrl": "/x", "requestFileName": "a", "requestBody": {}}`,
		"bad_effect.json": `{"name": "x", "requestUrl": "/x", "sideEffects": [{}]}`,
		"negative.json":   `{"name": "x", "requestUrl": "/x", "sideEffects": [{"method": "m", "times": -1}]}`,
		"not_json.json":   `{`,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := LoadScenario(path)
		assert.Error(t, err, name)
	}
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "test_scenarios.json"), []ConfigEntry{{
		ServiceName:       "echo",
		FilePath:          "echo",
		ScenariosFileName: "scenarios.json",
		ServiceURL:        "/echo",
		HTTPMethodType:    "POST",
	}})
	writeJSON(t, filepath.Join(dir, "echo", "scenarios.json"), []map[string]any{
		{
			"name":         "inherits url and method",
			"requestBody":  map[string]string{"title": "Eskimo"},
			"expectedCode": 201,
			"response":     map[string]any{"data": map[string]string{"title": "Eskimo"}},
			"partialMatch": true,
			"sideEffects":  []map[string]any{{"method": "echoed", "contains": []string{"Eskimo"}}},
		},
		{
			"name":          "own method wins",
			"requestMethod": "GET",
			"requestUrl":    "/whoami",
			"response":      map[string]string{"auth": ""},
		},
	})

	groups := 0
	RunSuite(t, filepath.Join(dir, "test_scenarios.json"), func(t *testing.T) *Runner {
		groups++
		return newEchoRunner(t)
	})
	assert.Equal(t, 1, groups)
}

func TestCheckSideEffects(t *testing.T) {
	m := NewFuncMocker("catalog.changed")
	mockers := map[string]FuncMocker{"catalog.changed": m}
	once, never := 1, 0

	s := &Scenario{Name: "x", SideEffects: []SideEffect{{Method: "catalog.changed"}}}
	assert.Len(t, checkSideEffects(s, mockers), 1, "never called")

	require.NoError(t, m.Intercept([]byte(`{"action":"created"}`)))
	require.NoError(t, m.Intercept([]byte(`{"action":"updated"}`)))
	assert.Empty(t, checkSideEffects(s, mockers))

	s.SideEffects = []SideEffect{{Method: "catalog.changed", Times: &once, Contains: []string{`"deleted"`}}}
	assert.Len(t, checkSideEffects(s, mockers), 2, "count and payload")

	m.Reset()
	assert.Zero(t, m.WasCalled())
	s.SideEffects = []SideEffect{{Method: "catalog.changed", Times: &never}, {Method: "unknown"}}
	assert.Len(t, checkSideEffects(s, mockers), 1, "unknown mocker")
}

func TestDiffJSON(t *testing.T) {
	var exp, act any
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"title":"Plombir"},"items":[{"id":1}]}`), &exp))
	require.NoError(t, json.Unmarshal([]byte(`{"status":200,"data":{"id":3,"title":"Plombir"},"items":[{"id":1,"x":true}]}`), &act))
	assert.Empty(t, DiffJSON("", exp, act), "extra keys are ignored")

	require.NoError(t, json.Unmarshal([]byte(`{"data":{"title":"Eskimo"},"items":[]}`), &act))
	assert.Len(t, DiffJSON("", exp, act), 2)
}

func TestAssertJSONBody(t *testing.T) {
	s := &Scenario{Name: "json"}
	AssertJSONBody(t, s, []byte(`{"title":"Plombir","id":1}`), []byte(`{"id": 1, "title": "Plombir"}`))
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func mustAbs(t *testing.T, path string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}
