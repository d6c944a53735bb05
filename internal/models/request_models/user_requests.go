package request_models

import "encoding/json"

// UpdateFieldRequest carries the new value for one preference field. The
// field name comes from the URL and is checked against a closed enum before
// the value is even decoded.
type UpdateFieldRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}
