package workflow

import (
	"encoding/json"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	n := Normalize(decode(t, `{"id": 7}`), 0)

	if n.BranchName != "fix/auto-7" {
		t.Errorf("BranchName = %q, want %q", n.BranchName, "fix/auto-7")
	}
	if n.FixType != DefaultFixType {
		t.Errorf("FixType = %q, want %q", n.FixType, DefaultFixType)
	}
	if n.FixTypeLabel != "Code Fix" {
		t.Errorf("FixTypeLabel = %q, want %q", n.FixTypeLabel, "Code Fix")
	}
	if n.FailureID != DefaultFailureID {
		t.Errorf("FailureID = %q, want %q", n.FailureID, DefaultFailureID)
	}
	if n.Status != "" {
		t.Errorf("Status = %q, want empty", n.Status)
	}
	if n.HasStatus || n.HasPRNumber || n.HasPRURL || n.HasRollback {
		t.Errorf("presence flags set on a bare record: %+v", n)
	}
}

func TestNormalizeStatus(t *testing.T) {
	n := Normalize(decode(t, `{"status": "  PR_Created "}`), 0)
	if n.Status != RawStatusPRCreated {
		t.Errorf("Status = %q, want %q", n.Status, RawStatusPRCreated)
	}
	if !n.HasStatus {
		t.Error("HasStatus = false, want true")
	}

	n = Normalize(decode(t, `{"status": null}`), 0)
	if n.HasStatus {
		t.Error("HasStatus = true for null status")
	}
}

func TestNormalizeIdentifierOrder(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		index int
		want  string
	}{
		{"pr_number wins", `{"id": 7, "pr_number": 42}`, 0, "42"},
		{"id when no pr_number", `{"id": 7}`, 0, "7"},
		{"string id", `{"id": "abc-1"}`, 0, "abc-1"},
		{"index fallback", `{}`, 5, "5"},
		{"null pr_number ignored", `{"id": 7, "pr_number": null}`, 0, "7"},
		{"empty pr_number ignored", `{"id": 7, "pr_number": ""}`, 0, "7"},
		{"zero pr_number ignored", `{"id": 3, "pr_number": 0}`, 0, "3"},
		{"zero string pr_number ignored", `{"id": 3, "pr_number": "0"}`, 0, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(decode(t, tt.json), tt.index)
			if n.ID != tt.want {
				t.Errorf("ID = %q, want %q", n.ID, tt.want)
			}
		})
	}
}

// A zero pr_number means no PR has been opened yet.
func TestNormalizeZeroPRNumber(t *testing.T) {
	n := Normalize(decode(t, `{"id": 3, "pr_number": 0}`), 0)
	if n.HasPRNumber {
		t.Error("HasPRNumber = true for pr_number 0")
	}
	if n.PRNumber != "" {
		t.Errorf("PRNumber = %q, want empty", n.PRNumber)
	}
	if n.BranchName != "fix/auto-3" {
		t.Errorf("BranchName = %q, want %q", n.BranchName, "fix/auto-3")
	}
	v := Derive(n)
	if got := v.Stages[StagePRCreated].Status; got != StagePending {
		t.Errorf("pr_created = %q, want %q", got, StagePending)
	}
}

func TestNormalizeFailureLinkage(t *testing.T) {
	tests := []struct {
		json string
		want string
	}{
		{`{"failure_id": 101, "build_id": 55}`, "101"},
		{`{"build_id": 55}`, "55"},
		{`{"build_id": "jenkins-55"}`, "jenkins-55"},
		{`{}`, "unknown"},
	}
	for _, tt := range tests {
		n := Normalize(decode(t, tt.json), 0)
		if n.FailureID != tt.want {
			t.Errorf("%s: FailureID = %q, want %q", tt.json, n.FailureID, tt.want)
		}
	}
}

func TestNormalizeKeepsExplicitBranch(t *testing.T) {
	n := Normalize(decode(t, `{"id": 7, "branch_name": "fix/null-deref"}`), 0)
	if n.BranchName != "fix/null-deref" {
		t.Errorf("BranchName = %q, want %q", n.BranchName, "fix/null-deref")
	}
}

func TestFixTypeLabel(t *testing.T) {
	tests := map[string]string{
		"code_fix":        "Code Fix",
		"null_check":      "Null Check",
		"dependency":      "Dependency",
		"timeout__retry_": "Timeout Retry",
		"":                "",
	}
	for in, want := range tests {
		if got := FixTypeLabel(in); got != want {
			t.Errorf("FixTypeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValueDecodingNeverFails(t *testing.T) {
	inputs := []string{
		`{"id": {"nested": true}}`,
		`{"pr_number": [1, 2]}`,
		`{"status": null}`,
		`{"status": 12}`,
		`{"merged_at": false}`,
		`{"unknown_field": "ignored", "another": {"x": 1}}`,
	}
	for _, in := range inputs {
		var r RawFixRecord
		if err := json.Unmarshal([]byte(in), &r); err != nil {
			t.Errorf("Unmarshal(%s) error: %v", in, err)
		}
	}
}

func TestValueNumberSpelling(t *testing.T) {
	r := decode(t, `{"id": 1234567890123, "pr_number": 12}`)
	if r.ID.String() != "1234567890123" {
		t.Errorf("ID = %q, want literal spelling", r.ID.String())
	}
	if !r.PRNumber.Present() || r.PRNumber.String() != "12" {
		t.Errorf("PRNumber = %+v, want present 12", r.PRNumber)
	}
}

func TestValueMarshal(t *testing.T) {
	r := RawFixRecord{ID: Text("7"), Status: Text("  ")}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back map[string]interface{}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back["id"] != "7" {
		t.Errorf("id = %v, want \"7\"", back["id"])
	}
	if back["status"] != nil {
		t.Errorf("blank status should marshal as null, got %v", back["status"])
	}
}
