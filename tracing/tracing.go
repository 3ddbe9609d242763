// Package tracing sets up the zipkin tracer and carries span context across
// http requests and queued jobs.
package tracing

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	otnethttp "github.com/opentracing-contrib/go-stdlib/nethttp"
	opentracing "github.com/opentracing/opentracing-go"

	"github.com/datatrails/go-datatrails-typedredis/environment"
)

const (
	prefixTracerState = "x-b3-"
	TraceID           = prefixTracerState + "traceid"
)

func HTTPMiddleware(h http.Handler) http.Handler {
	return otnethttp.Middleware(
		opentracing.GlobalTracer(),
		h,
		otnethttp.OperationNameFunc(func(r *http.Request) string {
			return "HTTP " + r.Method + ":" + r.URL.EscapedPath() + " >"
		}),
	)
}

func trimPodName(p string) string {
	a := strings.Split(p, "-")
	i := len(a)
	if i > 2 {
		return strings.Join(a[:i-2], "-")
	}
	if i > 1 {
		return strings.Join(a[:i-1], "-")
	}
	return p
}

// NewTracer derives the service name from the kubernetes downward api
// variables, and the listen address from the port in portName, then calls
// NewFromEnv.
func NewTracer(portName string) io.Closer {
	instanceName, _, _ := strings.Cut(environment.GetOrFatal("POD_NAME"), " ")
	nameSpace := environment.GetOrFatal("POD_NAMESPACE")
	containerName := environment.GetOrFatal("CONTAINER_NAME")
	podName := strings.Join([]string{trimPodName(instanceName), nameSpace, containerName}, ".")
	listenStr := fmt.Sprintf("localhost:%s", environment.GetOrFatal(portName))
	return NewFromEnv(strings.TrimSpace(podName), listenStr, "ZIPKIN_ENDPOINT", "DISABLE_ZIPKIN")
}
