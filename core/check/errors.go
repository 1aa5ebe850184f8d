package check

import "fmt"

// UnknownNamespaceError means the check referenced an object type not
// present in the active rule version. It is surfaced to the caller and not
// retried internally.
type UnknownNamespaceError struct {
	Namespace string
}

func (e *UnknownNamespaceError) Error() string {
	return fmt.Sprintf("check: unknown namespace %q in active rule version", e.Namespace)
}

// UnknownPermissionError means the checked namespace exists but does not
// define the requested permission.
type UnknownPermissionError struct {
	Namespace  string
	Permission string
}

func (e *UnknownPermissionError) Error() string {
	return fmt.Sprintf("check: namespace %q does not define permission %q", e.Namespace, e.Permission)
}
