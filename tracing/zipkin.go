package tracing

import (
	"io"
	"log"
	"os"

	zipkinot "github.com/openzipkin-contrib/zipkin-go-opentracing"
	zipkin "github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	opentracing "github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/datatrails/go-datatrails-typedredis/environment"
	"github.com/datatrails/go-datatrails-typedredis/logger"
)

const (
	zipkinBatchSizeEnv = "ZIPKIN_BATCH_SIZE"
	defaultBatchSize   = 100
)

// reporter errors go to the service log once it exists.
func newZipkinLogger() *log.Logger {
	if logger.Plain != nil {
		return zap.NewStdLog(logger.Plain.Named("zipkin"))
	}
	return log.New(os.Stdout, "zipkin", log.Ldate|log.Ltime|log.Lmicroseconds|log.Llongfile)
}

// NewFromEnv initialises tracing and returns a closer if tracing is
// configured. If endpointVar is not set it is Fatal unless disableVar is
// truthy (strconv.ParseBool). If tracing is disabled returns nil.
func NewFromEnv(service string, host string, endpointVar, disableVar string) io.Closer {
	ze, ok := os.LookupEnv(endpointVar)
	if !ok {
		if disabled := environment.GetTruthyOrFatal(disableVar); !disabled {
			logger.Sugar.Panicf(
				"'%s' has not been provided and is not disabled by '%s'",
				endpointVar, disableVar)
		}
		logger.Sugar.Infof("zipkin disabled by '%s'", disableVar)
		return nil
	}

	if disabled := environment.GetTruthy(disableVar); disabled {
		logger.Sugar.Infof("'%s' set, zipkin disabled", disableVar)
		return nil
	}
	return New(service, host, ze)
}

// New sets a zipkin backed opentracing tracer as the global tracer. The
// returned closer flushes the span reporter.
func New(service string, host string, zipkinEndpoint string) io.Closer {
	localEndpoint, err := zipkin.NewEndpoint(service, host)
	if err != nil {
		logger.Sugar.Panicf("unable to create zipkin local endpoint service '%s' - host '%s': %v", service, host, err)
	}

	reporter := zipkinhttp.NewReporter(
		zipkinEndpoint,
		zipkinhttp.Logger(newZipkinLogger()),
		zipkinhttp.BatchSize(environment.GetIntWithDefault(zipkinBatchSizeEnv, defaultBatchSize)),
	)

	nativeTracer, err := zipkin.NewTracer(
		reporter,
		zipkin.WithLocalEndpoint(localEndpoint),
		zipkin.WithSharedSpans(false),
	)
	if err != nil {
		logger.Sugar.Panicf("unable to create zipkin tracer: %v", err)
	}

	opentracing.SetGlobalTracer(zipkinot.Wrap(nativeTracer))
	return reporter
}
