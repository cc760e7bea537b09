package workflow

import "testing"

func TestStageModel(t *testing.T) {
	stages := Stages()
	if len(stages) != StageCount {
		t.Fatalf("len(Stages()) = %d, want %d", len(stages), StageCount)
	}

	want := []StageID{StageApproved, StageBranch, StageCommit, StagePRCreated, StageCIRunning, StageReview, StageMerged}
	for i, s := range stages {
		if s.ID != want[i] {
			t.Errorf("stage %d = %q, want %q", i, s.ID, want[i])
		}
		if s.Order != i {
			t.Errorf("stage %q Order = %d, want %d", s.ID, s.Order, i)
		}
		if s.Label == "" || s.Description == "" {
			t.Errorf("stage %q missing display metadata", s.ID)
		}
		if s.ID.Order() != i {
			t.Errorf("%q.Order() = %d, want %d", s.ID, s.ID.Order(), i)
		}
	}
}

func TestStagesReturnsCopy(t *testing.T) {
	s := Stages()
	s[0].ID = "tampered"
	s[0].Order = 99

	again := Stages()
	if again[0].ID != StageApproved || again[0].Order != 0 {
		t.Errorf("stage model mutated through returned slice: %+v", again[0])
	}
}

func TestUnknownStage(t *testing.T) {
	id := StageID("deploy")
	if id.Valid() {
		t.Error("deploy should not be a valid stage")
	}
	if id.Order() != -1 {
		t.Errorf("Order() = %d, want -1", id.Order())
	}
	if _, ok := LookupStage(id); ok {
		t.Error("LookupStage should miss for unknown id")
	}
}

func TestOverallStatusIsTerminal(t *testing.T) {
	for s, want := range map[OverallStatus]bool{
		StatusOpen: false, StatusReview: false, StatusMerged: true, StatusFailed: true,
	} {
		if got := s.IsTerminal(); got != want {
			t.Errorf("%q.IsTerminal() = %v, want %v", s, got, want)
		}
	}
}
