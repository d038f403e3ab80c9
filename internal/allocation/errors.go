package allocation

import "fmt"

// ValidationError is a caller-correctable input problem; the input never reaches
// the processor submission layer.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AllocationError means the candidate set went stale between selection and
// submission. The caller must re-fetch candidates and re-run selection; there is
// no partial retry because allocation is all-or-nothing.
type AllocationError struct {
	Code     string
	Message  string
	TargetID string
}

func (e AllocationError) Error() string {
	if e.TargetID == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (target %s)", e.Code, e.Message, e.TargetID)
}
