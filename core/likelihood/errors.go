package likelihood

import "fmt"

// ConfigurationError reports a required construction argument that was not
// supplied, such as a hypothesis with neither limits nor priors.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "likelihood: configuration: " + e.Reason
}

// ShapeMismatchError reports array rank or axis-length mismatches between
// data, response and truth arrays.
type ShapeMismatchError struct {
	Op     string
	Detail string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("likelihood: %s: %s", e.Op, e.Detail)
}

// DomainError reports a truth vector exceeding the configured truth limits.
// It is raised only under LimitRaise; LimitProhibit converts the condition
// into a -Inf likelihood instead.
type DomainError struct {
	Bin   int
	Value float64
	Limit float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("likelihood: truth bin %d value %g is above allowed limit %g", e.Bin, e.Value, e.Limit)
}

// UnknownModeError reports an invalid systematics mode or limit method.
type UnknownModeError struct {
	Mode string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("likelihood: unknown mode %q", e.Mode)
}
