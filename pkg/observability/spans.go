package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error classification values for the error.type span attribute.
const (
	// ErrTypeDependencyUnavailable marks failures of an external dependency
	// (forge API unreachable, git object database corrupt).
	ErrTypeDependencyUnavailable = "dependency_unavailable"

	// ErrTypeValidation marks rejected input (bad repo slug, unknown format,
	// repository without tags).
	ErrTypeValidation = "validation"

	// ErrTypeInternal marks unexpected internal failures.
	ErrTypeInternal = "internal"
)

// Error origin values for the error.source span attribute.
const (
	// ErrSourceDependency attributes the error to an external dependency.
	ErrSourceDependency = "dependency"

	// ErrSourceServer attributes the error to the serving layer itself.
	ErrSourceServer = "server"
)

// RecordSpanError records err on the span with a classified error.type
// attribute and marks the span status as error. errSource is optional;
// when empty, no error.source attribute is set.
func RecordSpanError(span trace.Span, err error, errType, errSource string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", errType))

	if errSource != "" {
		span.SetAttributes(attribute.String("error.source", errSource))
	}
}
