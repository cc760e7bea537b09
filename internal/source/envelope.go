package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lucasnoah/prflow/internal/workflow"
)

// Envelope is the response shape of the fix history API:
// {"success": true, "count": 2, "fixes": [...]}.
type Envelope struct {
	Success bool                    `json:"success"`
	Error   string                  `json:"error,omitempty"`
	Fixes   []workflow.RawFixRecord `json:"fixes"`
}

type wireEnvelope struct {
	Success bool              `json:"success"`
	Error   workflow.Value    `json:"error"`
	Fixes   []json.RawMessage `json:"fixes"`
}

// DecodeEnvelope parses an API response. A bare JSON array is accepted as a
// successful envelope. Individual records that are not JSON objects decode
// as empty records so batch positions are preserved; only a malformed
// document is an error.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("decode envelope: empty document")
	}

	var wire wireEnvelope
	if data[0] == '[' {
		if err := json.Unmarshal(data, &wire.Fixes); err != nil {
			return nil, fmt.Errorf("decode fix list: %w", err)
		}
		wire.Success = true
	} else if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	env := &Envelope{
		Success: wire.Success,
		Error:   wire.Error.String(),
		Fixes:   make([]workflow.RawFixRecord, len(wire.Fixes)),
	}
	for i, raw := range wire.Fixes {
		// Non-object entries stay as the zero record.
		_ = json.Unmarshal(raw, &env.Fixes[i])
	}
	return env, nil
}

// Records returns the envelope's fixes, or ErrUnsuccessful when the upstream
// flagged the response as failed.
func (e *Envelope) Records() ([]workflow.RawFixRecord, error) {
	if !e.Success {
		if e.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, e.Error)
		}
		return nil, ErrUnsuccessful
	}
	return e.Fixes, nil
}
