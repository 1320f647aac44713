package rules

import (
	"errors"
	"github.com/clambin/smarterzones/internal/host"
)

var _ error = &SensorReadError{}

// SensorReadError reports an entity whose state could not be read, or could not be used as a temperature.
type SensorReadError struct {
	err    error
	Entity string
}

func (e *SensorReadError) Error() string {
	return "sensor " + e.Entity + ": " + e.err.Error()
}

func (e *SensorReadError) Unwrap() error {
	return e.err
}

func (e *SensorReadError) Is(err error) bool {
	var sensorReadError *SensorReadError
	return errors.As(err, &sensorReadError)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

var _ error = &ConditionReadError{}

// ConditionReadError reports a condition whose entity could not be read. The condition is considered met.
type ConditionReadError struct {
	err    error
	Entity string
}

func (e *ConditionReadError) Error() string {
	return "condition " + e.Entity + ": " + e.err.Error()
}

func (e *ConditionReadError) Unwrap() error {
	return e.err
}

func (e *ConditionReadError) Is(err error) bool {
	var conditionReadError *ConditionReadError
	return errors.As(err, &conditionReadError)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

var _ error = &OffsetConfigError{}

// OffsetConfigError reports a malformed offset configuration. The default offsets are used instead.
type OffsetConfigError struct {
	err  error
	Zone string
	Mode Mode
}

func (e *OffsetConfigError) Error() string {
	return "zone " + e.Zone + ": invalid " + e.Mode.String() + " offset: " + e.err.Error()
}

func (e *OffsetConfigError) Unwrap() error {
	return e.err
}

func (e *OffsetConfigError) Is(err error) bool {
	var offsetConfigError *OffsetConfigError
	return errors.As(err, &offsetConfigError)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

var _ error = &CommandError{}

// CommandError reports a command that was rejected by the host.
type CommandError struct {
	err     error
	Command host.Command
}

func (e *CommandError) Error() string {
	return "command " + e.Command.String() + ": " + e.err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.err
}

func (e *CommandError) Is(err error) bool {
	var commandError *CommandError
	return errors.As(err, &commandError)
}
