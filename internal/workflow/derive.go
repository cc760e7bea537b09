package workflow

// StageState is the status of one stage plus the upstream timestamp that
// evidences it, when there is one.
type StageState struct {
	Status    StageStatus `json:"status"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// DerivedView is the canonical lifecycle view of a single fix.
type DerivedView struct {
	// Key identifies the view within its batch. It is the record ID unless
	// another record in the same batch resolved to the same ID, in which case
	// it is "<id>@<index>". Derive alone sets Key to the ID.
	Key           string                 `json:"key"`
	Index         int                    `json:"index"`
	Record        NormalizedRecord       `json:"record"`
	OverallStatus OverallStatus          `json:"overall_status"`
	CurrentStage  StageID                `json:"current_stage"`
	CurrentIndex  int                    `json:"current_index"`
	Stages        map[StageID]StageState `json:"stages"`
	CIStatus      CIStatus               `json:"ci_status"`
	Rule          string                 `json:"rule"`
}

// Rule is one entry of the classification table. Rules are evaluated in
// order and the first match wins.
type Rule struct {
	Name   string
	Match  func(NormalizedRecord) bool
	Status OverallStatus
	Stage  StageID
}

// Rule names, as reported in DerivedView.Rule.
const (
	RuleMerged    = "merged"
	RuleReverted  = "reverted"
	RulePRLinked  = "pr_linked"
	RulePRCreated = "pr_created"
	RuleOpen      = "open"
)

// A reverted fix is placed at ci_running even when merged_at says the revert
// happened after merge. Upstream data does not distinguish the two.
var rules = []Rule{
	{
		Name:   RuleMerged,
		Match:  func(n NormalizedRecord) bool { return n.Status == RawStatusMerged },
		Status: StatusMerged,
		Stage:  StageMerged,
	},
	{
		Name:   RuleReverted,
		Match:  func(n NormalizedRecord) bool { return n.Status == RawStatusReverted || n.HasRollback },
		Status: StatusFailed,
		Stage:  StageCIRunning,
	},
	{
		Name:   RulePRLinked,
		Match:  func(n NormalizedRecord) bool { return n.HasPRNumber && n.HasPRURL },
		Status: StatusReview,
		Stage:  StageReview,
	},
	{
		Name:   RulePRCreated,
		Match:  func(n NormalizedRecord) bool { return n.Status == RawStatusPRCreated },
		Status: StatusReview,
		Stage:  StagePRCreated,
	},
	{
		// pending, absent, and any status outside the known vocabulary.
		Name:   RuleOpen,
		Match:  func(NormalizedRecord) bool { return true },
		Status: StatusOpen,
		Stage:  StageApproved,
	},
}

// Rules returns the classification table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify returns the first rule matching n. The last rule matches
// everything, so Classify is total.
func Classify(n NormalizedRecord) Rule {
	for _, r := range rules {
		if r.Match(n) {
			return r
		}
	}
	return rules[len(rules)-1]
}

// Derive maps a normalized record to its lifecycle view. It is deterministic
// and has no error path.
func Derive(n NormalizedRecord) DerivedView {
	rule := Classify(n)
	current := rule.Stage.Order()

	stages := make(map[StageID]StageState, StageCount)
	for _, s := range stageTable {
		stages[s.ID] = StageState{Status: stageStatus(s.ID, rule.Status, n)}
	}

	// Everything before the current stage has necessarily happened. Applied
	// last so it overrides the per-stage rules above.
	for _, s := range stageTable {
		if s.Order < current {
			st := stages[s.ID]
			st.Status = StageCompleted
			stages[s.ID] = st
		}
	}

	for id, st := range stages {
		st.Timestamp = stageTimestamp(id, rule, n)
		stages[id] = st
	}

	return DerivedView{
		Key:           n.ID,
		Record:        n,
		OverallStatus: rule.Status,
		CurrentStage:  rule.Stage,
		CurrentIndex:  current,
		Stages:        stages,
		CIStatus:      ciStatus(rule.Status),
		Rule:          rule.Name,
	}
}

// stageStatus is the status of a stage before the ordering pass. The first
// three stages precede anything this system can observe, so a record's
// existence implies them.
func stageStatus(id StageID, overall OverallStatus, n NormalizedRecord) StageStatus {
	switch id {
	case StageApproved, StageBranch, StageCommit:
		return StageCompleted
	case StagePRCreated:
		if n.HasPRNumber {
			return StageCompleted
		}
		return StagePending
	case StageCIRunning:
		switch overall {
		case StatusMerged:
			return StageCompleted
		case StatusFailed:
			return StageFailed
		}
		return StageInProgress
	case StageReview:
		switch overall {
		case StatusMerged:
			return StageCompleted
		case StatusReview:
			return StageInProgress
		}
		return StagePending
	case StageMerged:
		if overall == StatusMerged {
			return StageCompleted
		}
	}
	return StagePending
}

// stageTimestamp picks the upstream time evidencing a stage. rollback_at only
// stamps ci_running when the record was classified as reverted.
func stageTimestamp(id StageID, rule Rule, n NormalizedRecord) string {
	switch id {
	case StageApproved, StageBranch, StageCommit, StagePRCreated:
		return n.AppliedAt
	case StageCIRunning:
		if rule.Name == RuleReverted {
			return n.RollbackAt
		}
	case StageMerged:
		return n.MergedAt
	}
	return ""
}

func ciStatus(overall OverallStatus) CIStatus {
	switch overall {
	case StatusMerged:
		return CIPassed
	case StatusFailed:
		return CIFailed
	}
	return CIRunning
}
