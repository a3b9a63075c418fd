// Package testkit drives REST API tests from JSON scenario files.
//
// A scenario names one request (method, URL, body, caller), the status it
// must get back, the response body it must match and the side effects it
// must cause. Files live next to the tests that run them:
//
//	testdata/
//	  test_scenarios.json          master file, one entry per endpoint group
//	  categories/scenarios.json    array of scenarios for that group
//	  categories/create_req.body   request body
//	  categories/create_res.body   expected response body
//
// and a test hands them a handler:
//
//	r := &testkit.Runner{Handler: k.Handler(), Tokens: map[string]string{"staff": tok}}
//	r.RunDir(t, "testdata/auth")
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Scenario describes a single REST API test case.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	RequestMethod   string            `json:"requestMethod"`
	RequestURL      string            `json:"requestUrl"`
	RequestFileName string            `json:"requestFileName"`
	RequestBody     json.RawMessage   `json:"requestBody"`
	Headers         map[string]string `json:"headers"`
	// As picks the bearer token from Runner.Tokens, e.g. "staff".
	As string `json:"as"`

	ExpectedCode       int             `json:"expectedCode"`
	ExpectedStatusCode int             `json:"expectedStatusCode"`
	ResponseFileName   string          `json:"responseFileName"`
	Response           json.RawMessage `json:"response"`
	// PartialMatch compares only the keys present in the expected body, so
	// ids and timestamps can be left out.
	PartialMatch bool `json:"partialMatch"`

	SideEffects []SideEffect `json:"sideEffects"`

	dir         string
	methodGiven bool
}

// SideEffect expects a registered FuncMocker to have been called while the
// scenario ran.
type SideEffect struct {
	Method string `json:"method"`
	// Times is the exact call count. Absent means at least once.
	Times *int `json:"times"`
	// Contains lists substrings some recorded payload must include.
	Contains []string `json:"contains"`
}

// LoadScenario reads and validates a scenario from a JSON file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	s.dir = filepath.Dir(abs)
	s.defaults()

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}
	return &s, nil
}

// LoadScenarioArray reads an array of scenarios. URL and method may be left
// out and filled in by the suite entry that owns the file.
func LoadScenarioArray(path string) ([]*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve scenario array path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read scenario array %q: %w", abs, err)
	}

	var scenarios []*Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("testkit: parse scenario array %q: %w", abs, err)
	}

	dir := filepath.Dir(abs)
	for i, s := range scenarios {
		s.dir = dir
		s.defaults()
		if s.Name == "" {
			return nil, fmt.Errorf("testkit: %q item %d: name is required", abs, i)
		}
		if err := s.validateSideEffects(); err != nil {
			return nil, fmt.Errorf("testkit: %q item %q: %w", abs, s.Name, err)
		}
	}
	return scenarios, nil
}

func (s *Scenario) defaults() {
	if s.ExpectedCode == 0 {
		s.ExpectedCode = s.ExpectedStatusCode
	}
	if s.ExpectedCode == 0 {
		s.ExpectedCode = 200
	}
	s.methodGiven = s.RequestMethod != ""
	if !s.methodGiven {
		s.RequestMethod = "GET"
	}
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.RequestURL == "" {
		return fmt.Errorf("requestUrl is required")
	}
	if s.RequestFileName != "" && len(s.RequestBody) > 0 {
		return fmt.Errorf("requestFileName and requestBody are exclusive")
	}
	if s.ResponseFileName != "" && len(s.Response) > 0 {
		return fmt.Errorf("responseFileName and response are exclusive")
	}
	return s.validateSideEffects()
}

func (s *Scenario) validateSideEffects() error {
	for i, e := range s.SideEffects {
		if e.Method == "" {
			return fmt.Errorf("sideEffects[%d].method is required", i)
		}
		if e.Times != nil && *e.Times < 0 {
			return fmt.Errorf("sideEffects[%d].times must not be negative", i)
		}
	}
	return nil
}

// RequestBodyPath resolves RequestFileName against the scenario's directory.
func (s *Scenario) RequestBodyPath() string {
	return s.resolve(s.RequestFileName)
}

func (s *Scenario) ResponseBodyPath() string {
	return s.resolve(s.ResponseFileName)
}

func (s *Scenario) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// requestBody returns the inline body or the contents of RequestFileName.
func (s *Scenario) requestBody() ([]byte, error) {
	if len(s.RequestBody) > 0 {
		return s.RequestBody, nil
	}
	if p := s.RequestBodyPath(); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}

func (s *Scenario) expectedBody() ([]byte, error) {
	if len(s.Response) > 0 {
		return s.Response, nil
	}
	if p := s.ResponseBodyPath(); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}
