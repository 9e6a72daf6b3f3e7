// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Kind classifies an engine failure into a small taxonomy the rest of
// the codebase can branch on. Most of these never reach a caller as an
// error at all — InputClamp,
// NotFound, UpstreamUnavailable, and StrategyResolution all degrade
// gracefully and surface through the Result shape instead. Kind exists so
// logging/metrics can tell these apart without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindInputClamp
	KindNotFound
	KindUpstreamUnavailable
	KindStrategyResolution
	KindTransientStore
	KindPerUserScoring
	KindCancellation
)

func (k Kind) String() string {
	switch k {
	case KindInputClamp:
		return "input_clamp"
	case KindNotFound:
		return "not_found"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindStrategyResolution:
		return "strategy_resolution"
	case KindTransientStore:
		return "transient_store"
	case KindPerUserScoring:
		return "per_user_scoring"
	case KindCancellation:
		return "cancellation"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind, so callers can branch on
// classification with errors.As while %v/%w still shows the real cause.
type Error struct {
	Kind Kind
	Op   string // component/operation that produced the error, e.g. "refresher.cycle"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a Kind and an operation label. A nil err still
// produces a non-nil *Error — used for sentinel conditions like NotFound
// that don't carry an underlying cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is lets errors.Is(err, SentinelKind)-style checks work against Kind
// directly, without callers needing to know about *Error.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Classify maps a raw infra error (gorm, context) into the Kind taxonomy.
// Classification stops at Kind rather than a wire protocol, since the
// RPC surface itself is out of scope for this component.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindCancellation
	default:
		return KindTransientStore
	}
}
