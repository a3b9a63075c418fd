package routes

import (
	"testing"

	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/pkg/testkit"
)

// newScenarioRunner gives every scenario group its own database, a staff and
// a guest token, and a mocker that records catalog.changed events.
func newScenarioRunner(t *testing.T) *testkit.Runner {
	a := newApp(t)
	return &testkit.Runner{
		Handler: a.handler,
		Tokens: map[string]string{
			"staff": a.token(t, "staff@example.com"),
			"guest": a.token(t, "guest@example.com"),
		},
		Mockers: map[string]testkit.FuncMocker{services.CatalogChangedEvent: a.changes},
	}
}

func TestAPIScenarios(t *testing.T) {
	testkit.RunSuite(t, "testdata/test_scenarios.json", newScenarioRunner)
}

func TestAuthScenarios(t *testing.T) {
	newScenarioRunner(t).RunDir(t, "testdata/auth")
}
