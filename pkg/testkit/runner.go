package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Runner fires scenarios at Handler.
type Runner struct {
	Handler http.Handler
	// Tokens maps a scenario's "as" value to a bearer token.
	Tokens map[string]string
	// Mockers are reset before each scenario and checked against its
	// SideEffects afterwards.
	Mockers map[string]FuncMocker
}

// Run executes the scenario file at path as a subtest.
func Run(t *testing.T, handler http.Handler, path string) {
	t.Helper()
	(&Runner{Handler: handler}).Run(t, path)
}

// RunDir executes every *.json scenario in dir as a subtest.
func RunDir(t *testing.T, handler http.Handler, dir string) {
	t.Helper()
	(&Runner{Handler: handler}).RunDir(t, dir)
}

func (r *Runner) Run(t *testing.T, path string) {
	t.Helper()
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("testkit: load scenario %q: %v", path, err)
	}
	t.Run(s.Name, func(t *testing.T) { r.RunScenario(t, s) })
}

// RunDir runs the files in name order, so a directory can build up state.
// Files that fail to load are reported and skipped.
func (r *Runner) RunDir(t *testing.T, dir string) {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(paths) == 0 {
		t.Fatalf("testkit: no scenario files found in %q", dir)
	}

	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			t.Errorf("testkit: load %q: %v", path, err)
			continue
		}
		t.Run(s.Name, func(t *testing.T) { r.RunScenario(t, s) })
	}
}

// RunScenario fires s and checks status, body and side effects.
func (r *Runner) RunScenario(t *testing.T, s *Scenario) {
	t.Helper()

	body, err := s.requestBody()
	if err != nil {
		t.Fatalf("[%s] read request body: %v", s.Name, err)
	}
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req := httptest.NewRequest(strings.ToUpper(s.RequestMethod), s.RequestURL, reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.As != "" {
		tok, ok := r.Tokens[s.As]
		if !ok {
			t.Fatalf("[%s] no token for %q", s.Name, s.As)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	for _, m := range r.Mockers {
		m.Reset()
	}

	rec := httptest.NewRecorder()
	r.Handler.ServeHTTP(rec, req)

	AssertStatusCode(t, s, rec.Code, rec.Body.Bytes())

	expected, err := s.expectedBody()
	if err != nil {
		t.Errorf("[%s] read expected response: %v", s.Name, err)
	} else if s.PartialMatch {
		AssertJSONSubset(t, s, expected, rec.Body.Bytes())
	} else {
		AssertJSONBody(t, s, expected, rec.Body.Bytes())
	}

	for _, err := range checkSideEffects(s, r.Mockers) {
		assert.NoError(t, err, "[%s]", s.Name)
	}
}

// DumpScenario prints a summary of s, for use while writing scenarios.
func DumpScenario(s *Scenario) {
	fmt.Printf("Scenario: %s\n", s.Name)
	fmt.Printf("  %s %s -> %d\n", s.RequestMethod, s.RequestURL, s.ExpectedCode)
	if s.As != "" {
		fmt.Printf("  as: %s\n", s.As)
	}
	fmt.Printf("  requestFile:  %s\n", s.RequestFileName)
	fmt.Printf("  responseFile: %s  partial: %v\n", s.ResponseFileName, s.PartialMatch)
	for i, e := range s.SideEffects {
		times := "any"
		if e.Times != nil {
			times = fmt.Sprint(*e.Times)
		}
		fmt.Printf("  sideEffect[%d]: method=%s times=%s\n", i, e.Method, times)
	}
}
