// Package errs defines the typed error kinds used across the control
// server, per the error handling design: configuration, device, plugin
// contract, numerical, network and state-machine errors.
package errs

import "fmt"

// Kind discriminates the error categories the dispatcher needs to reason
// about when deciding how to reply to a client or whether to tear a subtree
// down.
type Kind int

const (
	KindConfiguration Kind = iota
	KindDevice
	KindPluginContract
	KindNumerical
	KindNetwork
	KindStateMachine
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDevice:
		return "device"
	case KindPluginContract:
		return "plugin_contract"
	case KindNumerical:
		return "numerical"
	case KindNetwork:
		return "network"
	case KindStateMachine:
		return "state_machine"
	default:
		return "unknown"
	}
}

// Error is a typed, wrapped error. Subject identifies the object the error
// concerns (a config name, a device id, a client address, ...).
type Error struct {
	Kind    Kind
	Subject string
	Err     error
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s(%s): %v", e.Kind, e.Subject, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, subject string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Subject: subject, Err: fmt.Errorf(format, args...)}
}

// Configuration reports a ConfigurationError: missing/malformed config,
// unknown plugin, incompatible dimensions. Fatal to the subject subtree.
func Configuration(subject, format string, args ...interface{}) *Error {
	return newErr(KindConfiguration, subject, format, args...)
}

// Device reports a DeviceError: plugin-reported failure on read/write/
// acquire. Non-fatal; recovered via reset.
func Device(subject, format string, args ...interface{}) *Error {
	return newErr(KindDevice, subject, format, args...)
}

// PluginContract reports a plugin returning a null handle or mismatched
// counts. Fatal for the robot.
func PluginContract(subject, format string, args ...interface{}) *Error {
	return newErr(KindPluginContract, subject, format, args...)
}

// Numerical reports a singular innovation covariance or a NaN state. The
// current Kalman update is skipped; the filter continues from prediction.
func Numerical(subject, format string, args ...interface{}) *Error {
	return newErr(KindNumerical, subject, format, args...)
}

// Network reports a per-message error. The message is dropped, the
// connection is kept.
func Network(subject, format string, args ...interface{}) *Error {
	return newErr(KindNetwork, subject, format, args...)
}

// StateMachine reports an invalid requested transition. Reported via a
// refusal reply; connection state is never discarded.
func StateMachine(subject, format string, args ...interface{}) *Error {
	return newErr(KindStateMachine, subject, format, args...)
}

// Is reports whether target is an *Error of the same Kind, so that
// errors.Is(err, &errs.Error{Kind: errs.KindX}) matches any error of
// that kind in err's chain, whatever its Subject or wrapped error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
