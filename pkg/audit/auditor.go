package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chronicle/pkg/audit/metrics"
	"chronicle/pkg/requestcontext"
)

// Auditor is the control point invoked synchronously around every lifecycle
// event. It consults the execution context and policy registry, computes the
// filtered diff, resolves the owner, and hands the assembled record to the
// store in-line with the event, so destroy audits capture pre-deletion state
// and find audits land before data is returned.
type Auditor struct {
	registry *Registry
	store    Store
	sink     Sink
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	clock    func() time.Time
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithLogger sets the logger for fail-open loss reporting.
func WithLogger(logger *slog.Logger) AuditorOption {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) AuditorOption {
	return func(a *Auditor) { a.metrics = m }
}

// WithSink sets the side-channel sink for appended and lost records.
func WithSink(s Sink) AuditorOption {
	return func(a *Auditor) { a.sink = s }
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) AuditorOption {
	return func(a *Auditor) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// NewAuditor constructs the interceptor over a policy registry and a store.
func NewAuditor(registry *Registry, store Store, opts ...AuditorOption) *Auditor {
	a := &Auditor{
		registry: registry,
		store:    store,
		logger:   slog.Default(),
		tracer:   otel.Tracer("chronicle/audit"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RecordCreate audits a create event. The entity's current attributes are the
// after state; every eligible attribute with a set (non-nil) value is
// recorded as changed from nothing.
func (a *Auditor) RecordCreate(ctx context.Context, e Auditable) error {
	return a.record(ctx, ActionCreate, e, nil, e.AuditableAttributes())
}

// RecordUpdate audits an update event. before holds the attribute values
// prior to the mutation; the entity carries the new values.
func (a *Auditor) RecordUpdate(ctx context.Context, e Auditable, before map[string]any) error {
	return a.record(ctx, ActionUpdate, e, before, e.AuditableAttributes())
}

// RecordDestroy audits a destroy event. Call before deletion so the entity
// still exposes its final attribute values; they become the before state.
func (a *Auditor) RecordDestroy(ctx context.Context, e Auditable) error {
	return a.record(ctx, ActionDestroy, e, e.AuditableAttributes(), nil)
}

// RecordFind audits an access. The record carries no changes; it exists
// purely to mark that a read occurred. Find is always effectively fail-open.
func (a *Auditor) RecordFind(ctx context.Context, e Auditable) error {
	return a.record(ctx, ActionFind, e, nil, nil)
}

func (a *Auditor) record(ctx context.Context, action Action, e Auditable, before, after map[string]any) error {
	if !Enabled(ctx) {
		return nil
	}
	policy, ok := a.registry.Lookup(e.AuditableType(), action)
	if !ok {
		return nil
	}

	ctx, span := a.tracer.Start(ctx, "audit.record",
		trace.WithAttributes(
			attribute.String("audit.entity_type", e.AuditableType()),
			attribute.String("audit.action", action.String()),
		))
	defer span.End()

	changes := Changes{}
	if action != ActionFind {
		candidates := make(map[string]any, len(before)+len(after))
		for name, v := range before {
			candidates[name] = v
		}
		for name, v := range after {
			candidates[name] = v
		}
		changes = diff(before, after, eligibleAttributes(policy, candidates))
	}

	rec := Record{
		ID:            uuid.New(),
		AuditableID:   e.AuditableID(),
		AuditableType: e.AuditableType(),
		Actor:         CurrentActor(ctx),
		Action:        action,
		Changes:       changes,
		CreatedAt:     a.clock().UTC(),
		RemoteAddress: requestcontext.ClientIP(ctx),
		UserAgent:     requestcontext.UserAgent(ctx),
		RequestID:     requestcontext.RequestID(ctx),
	}

	ownerID, ownerType, err := resolveOwner(e, policy.OwnerChain)
	if err != nil {
		return a.fail(ctx, policy, action, rec, err)
	}
	rec.OwnerID, rec.OwnerType = ownerID, ownerType

	if policy.Comment != nil {
		rec.Comment = policy.Comment(e, rec.Actor, action)
	}

	start := time.Now()
	stored, err := a.store.AppendNext(ctx, rec)
	if err != nil {
		return a.fail(ctx, policy, action, rec, err)
	}
	if a.metrics != nil {
		a.metrics.RecordsAppended.WithLabelValues(action.String()).Inc()
		a.metrics.AppendDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}
	if a.sink != nil {
		a.sink.RecordAppended(ctx, stored)
	}
	return nil
}

// fail applies the policy's fail mode to a persistence or owner-resolution
// failure. Fail-closed propagates so the triggering mutation fails with the
// audit; fail-open (and every find) swallows the error but keeps the loss
// observable through the logger, metrics, and sink.
func (a *Auditor) fail(ctx context.Context, policy Policy, action Action, rec Record, cause error) error {
	if policy.FailClosed && action.Mutating() {
		if a.metrics != nil {
			a.metrics.AppendFailures.WithLabelValues("fail_closed").Inc()
		}
		return fmt.Errorf("audit %s of %s/%s: %w", action, rec.AuditableType, rec.AuditableID, cause)
	}
	if a.metrics != nil {
		a.metrics.AppendFailures.WithLabelValues("fail_open").Inc()
		a.metrics.FailOpenLosses.Inc()
	}
	a.logger.Error("audit record lost under fail-open policy",
		"auditable_type", rec.AuditableType,
		"auditable_id", rec.AuditableID,
		"action", action.String(),
		"error", cause,
	)
	if a.sink != nil {
		a.sink.RecordLost(ctx, rec, cause)
	}
	return nil
}
