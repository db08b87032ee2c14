package parser

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fatal parse errors. Once Next returns one of these the parser is in its error state and keeps
// returning the same error.
var (
	ErrInvalidMagic          = errors.New("invalid ULog magic bytes")
	ErrInvalidHeader         = errors.New("invalid ULog file header")
	ErrUnknownIncompatBits   = errors.New("unknown incompat flag bits set")
	ErrMissingTimestamp      = errors.New("logged data has no timestamp field")
	ErrUndefinedSubscription = errors.New("logged data for an undefined subscription")
	ErrUndefinedFormat       = errors.New("reference to an undefined format")
	ErrNestingTooDeep        = errors.New("format nesting too deep")
	ErrUnknownParameterType  = errors.New("unknown parameter type")
	ErrInvalidLogLevel       = errors.New("invalid log level")
)

// UndefinedFormatError is returned when a subscription or an Other typed field names a format
// that was never defined.
type UndefinedFormatError struct {
	Name string
}

func (e *UndefinedFormatError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUndefinedFormat, e.Name)
}

// Is matches ErrUndefinedFormat.
func (e *UndefinedFormatError) Is(target error) bool {
	return target == ErrUndefinedFormat
}

// UndefinedSubscriptionError is returned for a data record whose msg_id was never subscribed.
type UndefinedSubscriptionError struct {
	MsgID uint16
}

func (e *UndefinedSubscriptionError) Error() string {
	return fmt.Sprintf("%s: msg_id %d", ErrUndefinedSubscription, e.MsgID)
}

// Is matches ErrUndefinedSubscription.
func (e *UndefinedSubscriptionError) Is(target error) bool {
	return target == ErrUndefinedSubscription
}
