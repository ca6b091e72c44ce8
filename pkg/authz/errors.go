package authz

import (
	"errors"
	"fmt"
)

// ErrResourceNotFound is returned by Check when the resource code itself is
// unrecognized. This is a caller error, distinct from the Deny("undefined_permission")
// policy outcome for a known resource with no permission row.
var ErrResourceNotFound = errors.New("resource not found")

// ErrModuleNotFound is returned by catalog mutations referencing a missing module.
var ErrModuleNotFound = errors.New("module not found")

// ErrRoleNotFound is returned by assignment mutations referencing a missing role.
var ErrRoleNotFound = errors.New("role not found")

// ConfigurationError reports an invalid catalog or role mutation: a cyclic
// resource parentage, a parent in a different module, a duplicate
// (resource, action) permission, or a role scoped inconsistently. These are
// rejected synchronously at mutation time and never reach the resolver.
type ConfigurationError struct {
	Entity string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s configuration: %s", e.Entity, e.Reason)
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
