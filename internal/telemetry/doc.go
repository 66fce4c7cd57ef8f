// Package telemetry sets up OpenTelemetry tracing and metrics for the portal.
//
// Spans and metrics are exported over OTLP (gRPC or HTTP/protobuf) to a
// collector. When telemetry is disabled, Tracer and Meter fall back to the
// global no-op providers, so instrumented code never checks for nil.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx, span := tel.Tracer("portal/registration").Start(ctx, "registration.submit")
//	defer span.End()
//
// Exporter failures degrade the instance instead of failing startup; see Health.
//
// Tests use TestTelemetry, which records spans and metrics in memory.
package telemetry
