package workflow

// StageID identifies one of the seven fixed checkpoints a fix passes through.
type StageID string

const (
	StageApproved  StageID = "approved"
	StageBranch    StageID = "branch"
	StageCommit    StageID = "commit"
	StagePRCreated StageID = "pr_created"
	StageCIRunning StageID = "ci_running"
	StageReview    StageID = "review"
	StageMerged    StageID = "merged"
)

// StageCount is the number of stages in the pipeline. Adding a stage is a
// model change: extend the table below and every test that pins the count.
const StageCount = 7

// StageDescriptor is the static description of a pipeline stage.
// Order is the only field used for index math.
type StageDescriptor struct {
	ID          StageID `json:"id"`
	Order       int     `json:"order"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
}

var stageTable = [StageCount]StageDescriptor{
	{ID: StageApproved, Order: 0, Label: "Fix Approved", Description: "User approved AI-suggested code fix"},
	{ID: StageBranch, Order: 1, Label: "Branch Created", Description: "Feature branch created from main"},
	{ID: StageCommit, Order: 2, Label: "Changes Committed", Description: "Code changes committed to branch"},
	{ID: StagePRCreated, Order: 3, Label: "PR Created", Description: "Pull request opened on GitHub"},
	{ID: StageCIRunning, Order: 4, Label: "CI Running", Description: "Automated tests and checks running"},
	{ID: StageReview, Order: 5, Label: "Code Review", Description: "Awaiting code review approval"},
	{ID: StageMerged, Order: 6, Label: "Merged", Description: "PR merged to main branch"},
}

// Stages returns the pipeline stages in order. The returned slice is a copy;
// mutating it does not affect the model.
func Stages() []StageDescriptor {
	out := stageTable
	return out[:]
}

// LookupStage returns the descriptor for id.
func LookupStage(id StageID) (StageDescriptor, bool) {
	for _, s := range stageTable {
		if s.ID == id {
			return s, true
		}
	}
	return StageDescriptor{}, false
}

// Order returns the stage's position in the pipeline, or -1 for an unknown id.
func (id StageID) Order() int {
	if s, ok := LookupStage(id); ok {
		return s.Order
	}
	return -1
}

// Valid reports whether id is one of the seven pipeline stages.
func (id StageID) Valid() bool {
	return id.Order() >= 0
}

// StageStatus is the progress of a single stage for one fix.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageFailed     StageStatus = "failed"
)

// OverallStatus is the coarse lifecycle classification of a fix.
type OverallStatus string

const (
	StatusOpen   OverallStatus = "open"
	StatusReview OverallStatus = "review"
	StatusMerged OverallStatus = "merged"
	StatusFailed OverallStatus = "failed"
)

// IsTerminal returns true if the status is in a final state.
func (s OverallStatus) IsTerminal() bool {
	return s == StatusMerged || s == StatusFailed
}

// CIStatus summarises the continuous-integration outcome shown next to a PR.
type CIStatus string

const (
	CIPassed  CIStatus = "passed"
	CIFailed  CIStatus = "failed"
	CIRunning CIStatus = "running"
)
