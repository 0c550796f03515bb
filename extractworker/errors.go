package extractworker

import "github.com/pkg/errors"

// FatalError marks an unexpected internal error: one the worker loop
// must neither Ack nor Nack for. It is a typed value rather than a call
// to alert.Fatal so ExtractionWorker stays testable; the process-level
// caller decides whether a FatalError should actually terminate the
// process.
type FatalError struct {
	msg string
}

func (e *FatalError) Error() string { return e.msg }

// IsFatal reports whether err is (or wraps) a *FatalError.
func IsFatal(err error) bool {
	_, ok := errors.Cause(err).(*FatalError)
	return ok
}

func newFatal(msg string) error {
	return &FatalError{msg: msg}
}

func fatalf(format string, args ...interface{}) error {
	return &FatalError{msg: errors.Errorf(format, args...).Error()}
}

// wrapFatal lifts an unexpected lower-level error (I/O, broker, etc)
// into a FatalError whose message includes the cause's text. The cause
// itself is not retained: errors.Cause on the result yields the
// FatalError.
func wrapFatal(cause error, msg string) error {
	return &FatalError{msg: errors.Wrap(cause, msg).Error()}
}

func wrapf(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}

func newf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
