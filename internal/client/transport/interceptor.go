package transport

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/sociusfit/internal/client/metrics"
	"github.com/dmitrijs2005/sociusfit/internal/common"
	"github.com/dmitrijs2005/sociusfit/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Interceptor wraps a round-tripper. Interceptors must not mutate the
// request they receive; they clone it before changing headers.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base so that interceptors[0] sees the request first and the
// response last.
func Chain(base http.RoundTripper, interceptors ...Interceptor) http.RoundTripper {
	rt := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		rt = interceptors[i](rt)
	}
	return rt
}

// RequestID sets X-Request-ID to a fresh UUID unless the caller set one.
func RequestID() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(common.RequestIDHeaderName) != "" {
				return next.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			clone.Header.Set(common.RequestIDHeaderName, uuid.NewString())
			return next.RoundTrip(clone)
		})
	}
}

// Logging logs every exchange at debug level and transport failures at warn.
// Headers are never logged.
func Logging(logger logging.Logger) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			args := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"request_id", req.Header.Get(common.RequestIDHeaderName),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn(req.Context(), "http request failed", append(args, "error", err)...)
				return nil, err
			}
			logger.Debug(req.Context(), "http request", append(args, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}

// Metrics counts responses by status class.
func Metrics(m *metrics.Metrics) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil {
				m.ObserveRequest(0)
				return nil, err
			}
			m.ObserveRequest(resp.StatusCode)
			return resp, nil
		})
	}
}

const tracerName = "github.com/dmitrijs2005/sociusfit/internal/client/transport"

// Tracing opens a client span per request and injects the trace context
// into the outgoing headers. A nil tracer uses the global provider.
func Tracing(tracer trace.Tracer) Interceptor {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx, span := tracer.Start(req.Context(), "HTTP "+req.Method,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("url.path", req.URL.Path),
				))
			defer span.End()

			clone := req.Clone(ctx)
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(clone.Header))

			resp, err := next.RoundTrip(clone)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			if resp.StatusCode >= 500 {
				span.SetStatus(codes.Error, resp.Status)
			}
			return resp, nil
		})
	}
}
