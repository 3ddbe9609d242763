// Package startup is intended as a helper package to
// run services in go routines in main
package startup

import (
	"os"

	"github.com/datatrails/go-datatrails-typedredis/environment"
	"github.com/datatrails/go-datatrails-typedredis/k8sworker"
	"github.com/datatrails/go-datatrails-typedredis/logger"
	"github.com/datatrails/go-datatrails-typedredis/tracing"
)

type Runner func(Logger) error

// Run configures logging, the go runtime and tracing then calls run. The
// process exits with status 1 if run returns an error.
// portName names the env var holding the service port used in the tracer
// endpoint, tracing is not started if it is empty.
//
// defers do not work in main() because of the os.Exit(
func Run(serviceName string, portName string, run Runner) {
	logger.New(environment.GetLogLevel())
	log := logger.Sugar.WithServiceName(serviceName)

	exitCode := func() int {
		// ensure we configure go max procs and memlimit
		//  for kubernetes.
		k8Config, err := k8sworker.NewK8sConfig(k8sworker.WithLogger(log.Infof))
		if err != nil {
			log.Infof("Error configuring go for kubernetes: %v", err)
			return 1
		}
		defer k8sworker.Close()

		// log the useful kubernetes go configuration
		log.Infof("Go Configuration: %+v", k8Config)

		if portName != "" {
			closer := tracing.NewTracer(portName)
			if closer != nil {
				defer closer.Close()
			}
		}
		if err = run(log); err != nil {
			log.Infof("Error at startup: %v", err)
			return 1
		}
		return 0
	}()

	log.Infof("Shutting down")
	logger.OnExit()

	os.Exit(exitCode)
}
