package workflow

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Value is a loosely typed scalar taken from an upstream record. Producers send
// identifiers as numbers or strings and leave fields null or empty; Value
// keeps the literal text and whether anything usable was supplied.
type Value struct {
	text string
	set  bool
}

// Text returns a Value holding s. Blank strings are treated as absent.
func Text(s string) Value {
	s = strings.TrimSpace(s)
	return Value{text: s, set: s != ""}
}

// Present reports whether the field was supplied with a non-empty value.
func (v Value) Present() bool {
	return v.set
}

// String returns the value's text, or "" when absent.
func (v Value) String() string {
	return v.text
}

// Or returns the value's text, or def when absent.
func (v Value) Or(def string) string {
	if !v.set {
		return def
	}
	return v.text
}

// UnmarshalJSON never fails: strings are taken as-is, numbers and booleans
// keep their literal spelling, and null, objects and arrays decode as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Value{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*v = Text(s)
	case '{', '[', 'n':
		return nil
	default:
		*v = Text(string(data))
	}
	return nil
}

// MarshalJSON writes the value as a JSON string, or null when absent.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.text)
}

// RawFixRecord is one fix entry as emitted by the upstream history API.
// Every field is optional; unknown fields are ignored.
type RawFixRecord struct {
	ID         Value `json:"id"`
	PRNumber   Value `json:"pr_number"`
	PRURL      Value `json:"pr_url"`
	Status     Value `json:"status"`
	FixType    Value `json:"fix_type"`
	FailureID  Value `json:"failure_id"`
	BuildID    Value `json:"build_id"`
	BranchName Value `json:"branch_name"`
	AppliedBy  Value `json:"applied_by"`
	AppliedAt  Value `json:"applied_at"`
	MergedAt   Value `json:"merged_at"`
	RollbackAt Value `json:"rollback_at"`
}
