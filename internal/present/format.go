package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/lucasnoah/prflow/internal/workflow"
)

// NotAvailable is shown for absent values.
const NotAvailable = "N/A"

// DefaultApprover is shown when a record does not name who approved it.
const DefaultApprover = "system"

// Title formats the PR title, e.g. "fix: null_check for 37".
func Title(n workflow.NormalizedRecord) string {
	return fmt.Sprintf("fix: %s for %s", n.FixType, n.FailureID)
}

// PRLabel is "#<pr_number>", or "#<id>" when no PR number was reported.
func PRLabel(n workflow.NormalizedRecord) string {
	return "#" + n.ID
}

// LinkedFailure is "#<failure_id>".
func LinkedFailure(n workflow.NormalizedRecord) string {
	return "#" + n.FailureID
}

// Classification is the fix type upper-cased, e.g. "NULL_CHECK".
func Classification(n workflow.NormalizedRecord) string {
	return strings.ToUpper(n.FixType)
}

// ApprovedBy returns who approved the fix.
func ApprovedBy(n workflow.NormalizedRecord) string {
	if n.AppliedBy == "" {
		return DefaultApprover
	}
	return n.AppliedBy
}

// timeLayouts are the timestamp spellings seen from upstream producers.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses an upstream timestamp. Timestamps without a zone are UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders a timestamp as "2006-01-02 15:04 UTC". Empty input is
// N/A; unparseable input is returned unchanged.
func FormatTime(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	t, ok := ParseTime(s)
	if !ok {
		return s
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

// RelTime renders a timestamp relative to now, e.g. "5m ago".
func RelTime(s string, now time.Time) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	t, ok := ParseTime(s)
	if !ok {
		return s
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
