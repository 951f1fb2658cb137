package layout

import "fmt"

// InvalidFieldError reports malformed field geometry, a duplicate id, or an
// inconsistent variant at mutation time.
type InvalidFieldError struct {
	FieldID string
	Reason  string
}

func (e *InvalidFieldError) Error() string {
	if e.FieldID == "" {
		return fmt.Sprintf("invalid field: %s", e.Reason)
	}
	return fmt.Sprintf("invalid field %q: %s", e.FieldID, e.Reason)
}

// NotFoundError reports a reference to a field id that does not exist.
type NotFoundError struct {
	FieldID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("field %q not found", e.FieldID)
}
