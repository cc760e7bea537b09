package workflow

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults applied by Normalize when a field is absent.
const (
	DefaultFixType      = "code_fix"
	DefaultFailureID    = "unknown"
	DefaultBranchPrefix = "fix/auto-"
)

// Known values of the upstream status vocabulary. The vocabulary is open:
// anything else is carried through verbatim and handled by the fallback rule.
const (
	RawStatusMerged    = "merged"
	RawStatusReverted  = "reverted"
	RawStatusPRCreated = "pr_created"
	RawStatusPending   = "pending"
)

// NormalizedRecord is a RawFixRecord with identifiers resolved, defaults
// filled in and presence of the lifecycle fields made explicit.
type NormalizedRecord struct {
	ID           string `json:"id"`
	PRNumber     string `json:"pr_number,omitempty"`
	PRURL        string `json:"pr_url,omitempty"`
	Status       string `json:"status,omitempty"`
	FixType      string `json:"fix_type"`
	FixTypeLabel string `json:"fix_type_label"`
	FailureID    string `json:"failure_id"`
	BranchName   string `json:"branch_name"`
	AppliedBy    string `json:"applied_by,omitempty"`
	AppliedAt    string `json:"applied_at,omitempty"`
	MergedAt     string `json:"merged_at,omitempty"`
	RollbackAt   string `json:"rollback_at,omitempty"`

	HasStatus   bool `json:"has_status"`
	HasPRNumber bool `json:"has_pr_number"`
	HasPRURL    bool `json:"has_pr_url"`
	HasRollback bool `json:"has_rollback"`
}

// Normalize converts a raw record into its canonical shape. index is the
// record's position in its batch and is used as the identifier only when
// neither pr_number nor id is present.
//
// Defaults:
//   - ID: pr_number (a zero pr_number is absent), then id, then index
//   - FixType: "code_fix"
//   - FailureID: failure_id, then build_id, then "unknown"
//   - BranchName: "fix/auto-<ID>"
//   - Status is trimmed and lower-cased; absent stays ""
func Normalize(raw RawFixRecord, index int) NormalizedRecord {
	prNumber := raw.PRNumber
	if isZeroNumber(prNumber) {
		prNumber = Value{}
	}
	id := prNumber.Or(raw.ID.Or(strconv.Itoa(index)))
	fixType := raw.FixType.Or(DefaultFixType)

	return NormalizedRecord{
		ID:           id,
		PRNumber:     prNumber.String(),
		PRURL:        raw.PRURL.String(),
		Status:       strings.ToLower(raw.Status.String()),
		FixType:      fixType,
		FixTypeLabel: FixTypeLabel(fixType),
		FailureID:    raw.FailureID.Or(raw.BuildID.Or(DefaultFailureID)),
		BranchName:   raw.BranchName.Or(DefaultBranchPrefix + id),
		AppliedBy:    raw.AppliedBy.String(),
		AppliedAt:    raw.AppliedAt.String(),
		MergedAt:     raw.MergedAt.String(),
		RollbackAt:   raw.RollbackAt.String(),
		HasStatus:    raw.Status.Present(),
		HasPRNumber:  prNumber.Present(),
		HasPRURL:     raw.PRURL.Present(),
		HasRollback:  raw.RollbackAt.Present(),
	}
}

// isZeroNumber reports whether v spells the number zero. Producers send
// pr_number 0 for "no PR yet", so it counts as absent.
func isZeroNumber(v Value) bool {
	if !v.Present() {
		return false
	}
	f, err := strconv.ParseFloat(v.String(), 64)
	return err == nil && f == 0
}

// FixTypeLabel turns a fix category such as "null_check" into "Null Check".
// It is text formatting only.
func FixTypeLabel(fixType string) string {
	words := strings.Fields(strings.ReplaceAll(fixType, "_", " "))
	return cases.Title(language.Und).String(strings.Join(words, " "))
}
