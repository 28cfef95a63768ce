package catalog

import "fmt"

// InvalidRecordError reports a dataset record that breaks a catalog invariant.
type InvalidRecordError struct {
	Kind   string // "stage" or "incident"
	ID     string
	Index  int
	Reason string
}

func (e *InvalidRecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid %s at index %d: %s", e.Kind, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q at index %d: %s", e.Kind, e.ID, e.Index, e.Reason)
}
