package fsm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type lamp string

const (
	lampOff    lamp = "off"
	lampOn     lamp = "on"
	lampBroken lamp = "broken"
)

var errTestAction = errors.New("action failed")

type testData struct {
	Power bool
}

// callLog records the actions and guards run during a test, in order.
type callLog struct {
	mut   sync.Mutex
	calls []string
}

func (c *callLog) add(s string) {
	c.mut.Lock()
	defer c.mut.Unlock()

	c.calls = append(c.calls, s)
}

func (c *callLog) get() []string {
	c.mut.Lock()
	defer c.mut.Unlock()

	out := make([]string, len(c.calls))
	copy(out, c.calls)

	return out
}

func (c *callLog) action(name string) Action[string, *testData] {
	return func(context.Context, string, *testData) error {
		c.add(name)

		return nil
	}
}

func (c *callLog) failing(name string) Action[string, *testData] {
	return func(context.Context, string, *testData) error {
		c.add(name)

		return errTestAction
	}
}

func (c *callLog) powerGuard(name string) Guard[*testData] {
	return func(_ context.Context, data *testData) (bool, error) {
		c.add(name)

		return data != nil && data.Power, nil
	}
}

// lampBuilder declares off <-> on, on -> broken with logging actions and a
// power guard on "on".
func lampBuilder(name string, log *callLog) *Builder[lamp, string, *testData] {
	return NewBuilder[lamp, string, *testData](name).
		Initial(lampOff).
		Allow(lampOff, lampOn).
		Allow(lampOn, lampOff, lampBroken).
		OnEntry(lampOn, "turn_on", log.action("enter:on")).
		OnExit(lampOn, "leave_on", log.action("exit:on")).
		OnEntry(lampOff, "turn_off", log.action("enter:off")).
		OnExit(lampOff, "leave_off", log.action("exit:off")).
		Guard(lampOn, "has_power", log.powerGuard("guard:on"))
}

func mustBuild(t *testing.T, b *Builder[lamp, string, *testData]) *Definition[lamp, string, *testData] {
	t.Helper()

	def, err := b.Build()
	require.NoError(t, err)

	return def
}
