package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment, so business context
// (room_id, agreement_id, ...) shows up on every log statement without being
// threaded by hand.
type LogFields struct {
	RoomID      *int64
	AgreementID *int64
	DealID      *int64
	EnvelopeID  *string
	ActorRole   *string
	Component   string // e.g. "coordinator.service.reconcile"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.RoomID != nil {
		result.RoomID = next.RoomID
	}
	if next.AgreementID != nil {
		result.AgreementID = next.AgreementID
	}
	if next.DealID != nil {
		result.DealID = next.DealID
	}
	if next.EnvelopeID != nil {
		result.EnvelopeID = next.EnvelopeID
	}
	if next.ActorRole != nil {
		result.ActorRole = next.ActorRole
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{RoomID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}
