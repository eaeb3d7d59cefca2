package types

import (
	"encoding/json"
	"fmt"
)

// Success codes the storefront backend places in the envelope.
const (
	CodeOK       = 200
	CodeUnlisted = 0
)

// ServerResponse is the envelope every storefront endpoint answers with.
type ServerResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// OK reports whether the envelope carries a success code.
func (r *ServerResponse) OK() bool {
	if r == nil {
		return false
	}
	return r.Code == CodeOK || r.Code == CodeUnlisted
}

// DecodeData unmarshals the data field into dest.
func (r *ServerResponse) DecodeData(dest any) error {
	if r == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return fmt.Errorf("response has no data")
	}
	if err := json.Unmarshal(r.Data, dest); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}
