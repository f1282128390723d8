// Package o11y wires OpenTelemetry tracing and metrics export to an OTLP
// gRPC collector, following the reference bundler's opt-in-by-service-name
// convention: o11y is only initialized when an OTEL service name is set.
package o11y

import (
	"context"
	"crypto/tls"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Opts configures the OTLP exporters.
type Opts struct {
	ServiceName     string
	CollectorHeader map[string]string
	CollectorURL    string
	InsecureMode    bool

	ChainID    *big.Int
	EntryPoint common.Address
}

// IsEnabled reports whether o11y should be initialized at all.
func IsEnabled(serviceName string) bool {
	return serviceName != ""
}

func dialOption(ins bool) grpc.DialOption {
	if ins {
		return grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	return grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{}))
}

func newResource(o *Opts) *resource.Resource {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(o.ServiceName)}
	if o.ChainID != nil {
		attrs = append(attrs, attribute.String("chain.id", o.ChainID.String()))
	}
	if o.EntryPoint != (common.Address{}) {
		attrs = append(attrs, attribute.String("entry_point", o.EntryPoint.Hex()))
	}
	r, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return resource.Default()
	}
	return r
}

// InitTracer installs a global OTLP gRPC trace provider and returns a
// cleanup func that flushes and shuts it down.
func InitTracer(o *Opts) func() {
	ctx := context.Background()
	conn, err := grpc.DialContext(ctx, o.CollectorURL, dialOption(o.InsecureMode), grpc.WithBlock())
	if err != nil {
		return func() {}
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
		otlptracegrpc.WithGRPCConn(conn),
		otlptracegrpc.WithHeaders(o.CollectorHeader),
	))
	if err != nil {
		return func() {}
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(o)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return func() { _ = tp.Shutdown(context.Background()) }
}

// InitMetrics installs a global OTLP gRPC metric provider and returns a
// cleanup func that flushes and shuts it down.
func InitMetrics(o *Opts) func() {
	ctx := context.Background()
	conn, err := grpc.DialContext(ctx, o.CollectorURL, dialOption(o.InsecureMode), grpc.WithBlock())
	if err != nil {
		return func() {}
	}
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithGRPCConn(conn),
		otlpmetricgrpc.WithHeaders(o.CollectorHeader),
	)
	if err != nil {
		return func() {}
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(newResource(o)),
	)
	otel.SetMeterProvider(mp)
	return func() { _ = mp.Shutdown(context.Background()) }
}
