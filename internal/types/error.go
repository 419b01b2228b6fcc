package types

import "fmt"

// CustomError is an error carrying its HTTP status, the error type reported
// to clients and, for validation failures, the failing input field.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
}

func (e *CustomError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d: %s: %s [type: %s]", e.Code, e.Field, e.Message, e.Type)
	}
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}
