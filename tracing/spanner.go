package tracing

import (
	"context"

	"github.com/datatrails/go-datatrails-typedredis/logger"
	opentracing "github.com/opentracing/opentracing-go"
	opentracinglog "github.com/opentracing/opentracing-go/log"
)

// Span hides the opentracing-go package from callers so that a later move
// to opentelemetry only touches this file.
type Span struct {
	span opentracing.Span
	log  logger.Logger
}

func (s *Span) Close() {
	if s.span != nil {
		s.span.Finish()
		s.span = nil
	}
}

func (s *Span) SetTag(key string, value any) {
	if s.span != nil {
		s.span.SetTag(key, value)
	}
}

func (s *Span) LogField(key string, value any) {
	if s.span == nil {
		return
	}
	switch v := value.(type) {
	case bool:
		s.span.LogFields(opentracinglog.Bool(key, v))
	case error:
		s.span.LogFields(opentracinglog.Error(v))
	case int:
		s.span.LogFields(opentracinglog.Int(key, v))
	case int64:
		s.span.LogFields(opentracinglog.Int64(key, v))
	case float64:
		s.span.LogFields(opentracinglog.Float64(key, v))
	case string:
		s.span.LogFields(opentracinglog.String(key, v))
	default:
		s.span.LogFields(opentracinglog.Object(key, v))
	}
}

func valueFromCarrier(carrier opentracing.TextMapCarrier, key string) string {
	value, found := carrier[key]
	if !found || value == "" {
		return ""
	}
	return value
}

func (s *Span) TraceID() string {
	if s.span == nil {
		return ""
	}
	carrier := opentracing.TextMapCarrier{}
	err := opentracing.GlobalTracer().Inject(s.span.Context(), opentracing.TextMap, carrier)
	if err != nil {
		return ""
	}

	return valueFromCarrier(carrier, TraceID)
}

// Attributes returns the span context as a string map that can travel with
// a queued job and be restored by NewSpanWithAttributes.
func (s *Span) Attributes() map[string]string {
	var attributes = make(map[string]string)
	if s.span == nil {
		return attributes
	}

	carrier := opentracing.TextMapCarrier(attributes)
	err := opentracing.GlobalTracer().Inject(s.span.Context(), opentracing.TextMap, carrier)
	if err != nil {
		s.log.Infof("Attributes(): Unable to inject span context: %v", err)
	}
	return attributes
}

// NewSpanWithAttributes starts a span that is a child of the span context
// held in attributes, if there is one. Unrelated entries are ignored.
func NewSpanWithAttributes(ctx context.Context, name string, log logger.Logger, attributes map[string]string) (*Span, context.Context) {
	log.Debugf("NewSpanWithAttributes %s", name)
	var opts = []opentracing.StartSpanOption{}
	carrier := opentracing.TextMapCarrier(attributes)
	spanCtx, err := opentracing.GlobalTracer().Extract(opentracing.TextMap, carrier)
	if err != nil {
		log.Debugf("NewSpanWithAttributes(): Unable to extract span context: %v", err)
	} else {
		opts = append(opts, opentracing.ChildOf(spanCtx))
	}
	span := opentracing.StartSpan(name, opts...)
	ctx = opentracing.ContextWithSpan(ctx, span)
	return &Span{span: span, log: log}, ctx
}

func StartSpanFromContext(ctx context.Context, log logger.Logger, name string) (*Span, context.Context) {
	log.Debugf("StartSpanFromContext %s", name)
	span, ctx := opentracing.StartSpanFromContext(ctx, name)
	return &Span{span: span, log: log}, ctx
}
