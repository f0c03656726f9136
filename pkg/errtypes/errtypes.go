// Package errtypes holds the error taxonomy shared by the preprocessing,
// training and inference paths.
//
// Errors are created with one of the helpers and carry a sentinel,
// so callers classify them with errors.Is:
//
//	if errors.Is(err, errtypes.ErrDataFormat) { ... }
package errtypes

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// malformed dataset: missing columns, unparsable values, ragged rows.
	ErrDataFormat = errors.New("data format error")

	// unreadable or unwritable location.
	ErrIO = errors.New("io error")

	// malformed inference request or model invocation failure.
	ErrInference = errors.New("inference error")

	// out-of-range hyperparameter or configuration value.
	ErrInvalidParameter = errors.New("invalid parameter")
)

func DataFormat(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrDataFormat, format, args...)
}

// IO wraps cause with ErrIO. The cause message is kept in the error string.
func IO(cause error, format string, args ...any) error {
	return pkgerrors.Wrapf(&wrapped{kind: ErrIO, cause: cause}, format, args...)
}

func Inference(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrInference, format, args...)
}

// InferenceCause wraps cause with ErrInference.
func InferenceCause(cause error, format string, args ...any) error {
	return pkgerrors.Wrapf(&wrapped{kind: ErrInference, cause: cause}, format, args...)
}

func InvalidParameter(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrInvalidParameter, format, args...)
}

// Kind names the taxonomy bucket of err, or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataFormat):
		return "DataFormatError"
	case errors.Is(err, ErrIO):
		return "IOError"
	case errors.Is(err, ErrInference):
		return "InferenceError"
	case errors.Is(err, ErrInvalidParameter):
		return "InvalidParameter"
	default:
		return "unknown"
	}
}

// wrapped ties an underlying cause to a sentinel so both are reachable
// through errors.Is / errors.As.
type wrapped struct {
	kind  error
	cause error
}

func (w *wrapped) Error() string {
	return w.kind.Error() + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.kind, w.cause}
}
