package testkit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// ConfigEntry is one endpoint group in a master test_scenarios.json.
type ConfigEntry struct {
	ServiceName       string `json:"serviceName"`
	FilePath          string `json:"filePath"`
	ScenariosFileName string `json:"scenariosFileName"`
	// ServiceURL and HTTPMethodType fill in scenarios that leave them out.
	ServiceURL     string `json:"serviceUrl"`
	HTTPMethodType string `json:"httpMethodType"`
}

// RunSuite runs every group listed in the master file. Each group gets a
// fresh Runner from newRunner and its scenarios run in order against it,
// so later scenarios see what earlier ones created.
func RunSuite(t *testing.T, masterPath string, newRunner func(t *testing.T) *Runner) {
	t.Helper()

	abs, err := filepath.Abs(masterPath)
	if err != nil {
		t.Fatalf("testkit: resolve master config %q: %v", masterPath, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("testkit: read master config %q: %v", abs, err)
	}
	var entries []ConfigEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("testkit: parse master config %q: %v", abs, err)
	}
	baseDir := filepath.Dir(abs)

	for _, entry := range entries {
		t.Run(entry.ServiceName, func(t *testing.T) {
			scenarios, err := LoadScenarioArray(filepath.Join(baseDir, entry.FilePath, entry.ScenariosFileName))
			if err != nil {
				t.Fatal(err)
			}

			r := newRunner(t)
			for _, s := range scenarios {
				if s.RequestURL == "" {
					s.RequestURL = entry.ServiceURL
				}
				if !s.methodGiven && entry.HTTPMethodType != "" {
					s.RequestMethod = entry.HTTPMethodType
				}
				if s.RequestURL == "" {
					t.Fatalf("testkit: %q has no requestUrl and the group no serviceUrl", s.Name)
				}
				t.Run(s.Name, func(t *testing.T) { r.RunScenario(t, s) })
			}
		})
	}
}
