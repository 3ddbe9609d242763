package k8sworker

type K8sOptions struct {
	// logger used for GoMaxProcs and memory limit reports
	logger func(string, ...any)

	memLimitRatio float64
}

type K8sOption func(*K8sOptions)

// WithLogger sets the optional logger for goMaxProcs
func WithLogger(logger func(string, ...any)) K8sOption {
	return func(ko *K8sOptions) { ko.logger = logger }
}

// WithMemLimitRatio sets the share of the cgroup memory limit given to the go
// runtime. Values outside (0, 1] are ignored.
func WithMemLimitRatio(ratio float64) K8sOption {
	return func(ko *K8sOptions) {
		if ratio > 0 && ratio <= 1 {
			ko.memLimitRatio = ratio
		}
	}
}

// ParseOptions parses the given options into a K8sOptions struct
func ParseOptions(options ...K8sOption) K8sOptions {
	k8sOptions := K8sOptions{
		memLimitRatio: defaultMemLimitRatio,
	}

	for _, option := range options {
		option(&k8sOptions)
	}

	return k8sOptions
}

func (o *K8sOptions) logf(format string, args ...any) {
	if o.logger != nil {
		o.logger(format, args...)
	}
}
