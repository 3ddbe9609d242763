package k8sworker

import (
	"runtime"
	"runtime/debug"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	// 10% is the headroom for memory sources the Go runtime is unaware of.
	defaultMemLimitRatio = 0.9
)

var (
	undoMaxProcs = func() {}
)

// K8sConfig sets the cpu and memory
//
//	go configuration for kubernetes.
type K8sConfig struct {
	GoMaxProcs int

	GoMemLimit int64

	GoVersion string
}

// NewK8sConfig sizes GOMAXPROCS from the cgroup cpu quota and GOMEMLIMIT from
// the cgroup memory limit. Outside a memory limited cgroup the memory limit
// is left alone. Call Close to restore GOMAXPROCS.
//
// Refs: https://github.com/golang/go/issues/33803
func NewK8sConfig(opts ...K8sOption) (*K8sConfig, error) {

	options := ParseOptions(opts...)

	k8Config := K8sConfig{
		GoVersion: runtime.Version(),
	}

	// If GOMEMLIMIT is already set or AUTOMEMLIMIT=off this does nothing.
	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(options.memLimitRatio),
		memlimit.WithProvider(memlimit.FromCgroup),
	)
	if err != nil {
		options.logf("memory limit not set: %v", err)
	} else {
		options.logf("memory limit set to %d", limit)
	}

	// GC stalls when the runtime thinks it has more cores than the cpu quota
	// allows so GOMAXPROCS follows the quota.
	undo, err := maxprocs.Set(maxprocs.Logger(options.logf))
	if err != nil {
		return nil, err
	}
	undoMaxProcs = undo

	k8Config.GoMaxProcs = runtime.GOMAXPROCS(-1)
	k8Config.GoMemLimit = debug.SetMemoryLimit(-1)

	return &k8Config, nil
}

// Close undoes any changes to GoMaxProcs.
func Close() {
	undoMaxProcs()
	undoMaxProcs = func() {}
}
