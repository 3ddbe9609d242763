package k8sworker

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	table := []struct {
		name     string
		opts     []K8sOption
		expected float64
	}{
		{name: "default", expected: defaultMemLimitRatio},
		{name: "ratio", opts: []K8sOption{WithMemLimitRatio(0.5)}, expected: 0.5},
		{name: "zero ignored", opts: []K8sOption{WithMemLimitRatio(0)}, expected: defaultMemLimitRatio},
		{name: "over one ignored", opts: []K8sOption{WithMemLimitRatio(1.5)}, expected: defaultMemLimitRatio},
	}
	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			options := ParseOptions(test.opts...)
			assert.Equal(t, test.expected, options.memLimitRatio)
		})
	}
}

func TestNewK8sConfig(t *testing.T) {
	var logged []string
	k8Config, err := NewK8sConfig(WithLogger(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}))
	require.NoError(t, err)
	defer Close()

	assert.Equal(t, runtime.Version(), k8Config.GoVersion)
	assert.Positive(t, k8Config.GoMaxProcs)
	assert.Positive(t, k8Config.GoMemLimit)
	assert.NotEmpty(t, logged)
}
