package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recording(name string, calls *[]string, startErr error) Func {
	return Func{
		ServiceName: name,
		OnStart: func(context.Context) error {
			*calls = append(*calls, "start "+name)
			return startErr
		},
		OnStop: func(context.Context) error {
			*calls = append(*calls, "stop "+name)
			return nil
		},
	}
}

func TestManager_StartStopOrder(t *testing.T) {
	var calls []string
	m := NewManager()
	require.NoError(t, m.Register(recording("a", &calls, nil)))
	require.NoError(t, m.Register(recording("b", &calls, nil)))

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, calls)
	assert.Equal(t, []string{"a", "b"}, m.Names())
}

func TestManager_StartFailureStopsStarted(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	m := NewManager()
	require.NoError(t, m.Register(recording("a", &calls, nil)))
	require.NoError(t, m.Register(recording("b", &calls, boom)))
	require.NoError(t, m.Register(recording("c", &calls, nil)))

	err := m.Start(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "start b")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, calls)
}

func TestManager_RegisterRules(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(Func{ServiceName: "a"}))
	assert.Error(t, m.Register(Func{ServiceName: "a"}))
	assert.Error(t, m.Register(nil))

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Register(Func{ServiceName: "late"}))
	require.NoError(t, m.Stop(context.Background()))
}
