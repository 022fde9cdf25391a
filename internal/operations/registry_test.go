package operations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cianalysis/internal/operations"
)

func TestRegistry_Register(t *testing.T) {
	registry := operations.NewRegistry()

	require.NoError(t, registry.Register(newMockStep("a", nil, nil)))
	require.NoError(t, registry.Register(newMockStep("b", []string{"a"}, nil)))

	tests := []struct {
		name string
		step operations.Step
	}{
		{"nil step", nil},
		{"empty id", newMockStep("", nil, nil)},
		{"duplicate id", newMockStep("a", nil, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, registry.Register(tt.step))
		})
	}

	assert.Equal(t, 2, registry.Count())
	assert.Equal(t, []string{"a", "b"}, registry.ListIDs())
	assert.True(t, registry.Has("b"))
	assert.False(t, registry.Has("c"))

	step, err := registry.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, step.GetDependencies())

	_, err = registry.Get("c")
	assert.Error(t, err)
}

func TestRegistry_GetDependencyOrder(t *testing.T) {
	registry := operations.NewRegistry()
	require.NoError(t, registry.Register(newMockStep("report", []string{"merge", "extra"}, nil)))
	require.NoError(t, registry.Register(newMockStep("merge", []string{"extract"}, nil)))
	require.NoError(t, registry.Register(newMockStep("extra", nil, nil)))
	require.NoError(t, registry.Register(newMockStep("extract", nil, nil)))

	steps, err := registry.GetDependencyOrder()
	require.NoError(t, err)

	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	assert.Equal(t, []string{"extra", "extract", "merge", "report"}, ids)
}

func TestRegistry_DetectsCycle(t *testing.T) {
	registry := operations.NewRegistry()
	require.NoError(t, registry.Register(newMockStep("a", []string{"b"}, nil)))
	require.NoError(t, registry.Register(newMockStep("b", []string{"a"}, nil)))

	_, err := registry.GetDependencyOrder()
	assert.ErrorContains(t, err, "cycle")
}
