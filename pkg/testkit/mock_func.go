package testkit

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
)

// FuncMocker stands in for a side effect of the handler under test: a
// catalog event, a queued job, a broadcast. The application calls Intercept
// with a payload; scenarios assert on the calls through SideEffects.
type FuncMocker interface {
	Intercept(payload []byte) error
	// Reset clears call history between scenarios.
	Reset()
	WasCalled() int
	// Payloads returns what Intercept received since the last Reset.
	Payloads() [][]byte
	// Mock exposes the embedded testify mock for custom expectations.
	Mock() *mock.Mock
}

// GenericFuncMocker is a testify/mock-backed FuncMocker that accepts every
// call by default.
type GenericFuncMocker struct {
	m        mock.Mock
	method   string
	mu       sync.Mutex
	payloads [][]byte
}

func NewFuncMocker(method string) *GenericFuncMocker {
	gm := &GenericFuncMocker{method: method}
	gm.m.On("Intercept", mock.AnythingOfType("[]uint8")).Return(nil)
	return gm
}

func (gm *GenericFuncMocker) Intercept(payload []byte) error {
	gm.mu.Lock()
	gm.payloads = append(gm.payloads, append([]byte(nil), payload...))
	gm.mu.Unlock()

	args := gm.m.Called(payload)
	if args.Get(0) == nil {
		return nil
	}
	return args.Error(0)
}

func (gm *GenericFuncMocker) Reset() {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.payloads = nil
	gm.m.Calls = nil
	gm.m.ExpectedCalls = nil
	gm.m.On("Intercept", mock.AnythingOfType("[]uint8")).Return(nil)
}

func (gm *GenericFuncMocker) WasCalled() int {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return len(gm.payloads)
}

func (gm *GenericFuncMocker) Payloads() [][]byte {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return append([][]byte(nil), gm.payloads...)
}

func (gm *GenericFuncMocker) Mock() *mock.Mock { return &gm.m }

// checkSideEffects compares the scenario's expectations with what the
// mockers recorded.
func checkSideEffects(s *Scenario, mockers map[string]FuncMocker) []error {
	var errs []error
	for _, e := range s.SideEffects {
		m := mockers[e.Method]
		if m == nil {
			errs = append(errs, fmt.Errorf("no mocker registered for %q", e.Method))
			continue
		}

		calls := m.WasCalled()
		switch {
		case e.Times != nil && calls != *e.Times:
			errs = append(errs, fmt.Errorf("%q called %d times, want %d", e.Method, calls, *e.Times))
		case e.Times == nil && calls == 0:
			errs = append(errs, fmt.Errorf("%q was never called", e.Method))
		}

		for _, want := range e.Contains {
			if !anyContains(m.Payloads(), want) {
				errs = append(errs, fmt.Errorf("no %q payload contains %q", e.Method, want))
			}
		}
	}
	return errs
}

func anyContains(payloads [][]byte, want string) bool {
	for _, p := range payloads {
		if strings.Contains(string(p), want) {
			return true
		}
	}
	return false
}
