package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lucasnoah/prflow/internal/present"
	"github.com/lucasnoah/prflow/internal/snapshot"
	"github.com/lucasnoah/prflow/internal/workflow"
)

// ---- view models ----

type DashboardData struct {
	Summary     workflow.AggregateSummary
	Stages      []workflow.StageDescriptor
	Rows        []FixRow
	Source      string
	SnapshotID  string
	FetchedAt   string
	LastAttempt string
	Error       string
	HasData     bool
}

type FixRow struct {
	Key            string
	ID             string
	PRLabel        string
	PRURL          string
	Title          string
	Status         workflow.OverallStatus
	StatusLabel    string
	StageLabel     string
	CIStatus       workflow.CIStatus
	Branch         string
	LinkedFailure  string
	Classification string
	FixTypeLabel   string
	ApprovedBy     string
	AppliedAt      string
	MergedAt       string
	RollbackAt     string
	Cells          []StageCell
}

type StageCell struct {
	ID          workflow.StageID
	Label       string
	Description string
	Status      workflow.StageStatus
	Glyph       string
	Timestamp   string
	Current     bool
}

type FixDetailData struct {
	Row       FixRow
	Rule      string
	Source    string
	FetchedAt string
}

func fixRow(v workflow.DerivedView) FixRow {
	n := v.Record
	stage, _ := workflow.LookupStage(v.CurrentStage)
	row := FixRow{
		Key:            v.Key,
		ID:             n.ID,
		PRLabel:        present.PRLabel(n),
		PRURL:          n.PRURL,
		Title:          present.Title(n),
		Status:         v.OverallStatus,
		StatusLabel:    present.StatusBadge(v.OverallStatus).Label,
		StageLabel:     stage.Label,
		CIStatus:       v.CIStatus,
		Branch:         n.BranchName,
		LinkedFailure:  present.LinkedFailure(n),
		Classification: present.Classification(n),
		FixTypeLabel:   n.FixTypeLabel,
		ApprovedBy:     present.ApprovedBy(n),
		AppliedAt:      n.AppliedAt,
		MergedAt:       n.MergedAt,
		RollbackAt:     n.RollbackAt,
	}
	for _, d := range workflow.Stages() {
		st := v.Stages[d.ID]
		row.Cells = append(row.Cells, StageCell{
			ID:          d.ID,
			Label:       d.Label,
			Description: d.Description,
			Status:      st.Status,
			Glyph:       present.StageGlyph(st.Status),
			Timestamp:   st.Timestamp,
			Current:     d.ID == v.CurrentStage,
		})
	}
	return row
}

func fmtStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *Server) latest() (snapshot.Snapshot, bool, string) {
	snap, ok := s.provider.Latest()
	var msg string
	if err := s.provider.LastError(); err != nil {
		msg = err.Error()
	}
	return snap, ok, msg
}

func (s *Server) execTemplate(w http.ResponseWriter, tmpl interface {
	ExecuteTemplate(io.Writer, string, interface{}) error
}, data interface{}) {
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ---- HTML ----

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok, errMsg := s.latest()
	data := DashboardData{
		Stages:      workflow.Stages(),
		Error:       errMsg,
		HasData:     ok,
		LastAttempt: fmtStamp(s.provider.LastAttempt()),
	}
	if ok {
		data.Summary = snap.Report.Summary
		data.Source = snap.Source
		data.SnapshotID = snap.ID
		data.FetchedAt = fmtStamp(snap.FetchedAt)
		for _, v := range filterViews(snap.Report.Views, r.URL.Query().Get("status")) {
			data.Rows = append(data.Rows, fixRow(v))
		}
	}
	s.execTemplate(w, s.dashboardTmpl, data)
}

func (s *Server) handleFixDetail(w http.ResponseWriter, r *http.Request, key string) {
	snap, ok := s.provider.Latest()
	if !ok || key == "" {
		http.NotFound(w, r)
		return
	}
	v, found := snap.Report.Find(key)
	if !found {
		http.NotFound(w, r)
		return
	}
	s.execTemplate(w, s.fixTmpl, FixDetailData{
		Row:       fixRow(v),
		Rule:      v.Rule,
		Source:    snap.Source,
		FetchedAt: fmtStamp(snap.FetchedAt),
	})
}

// filterViews keeps views whose overall status matches status. An empty
// filter keeps everything.
func filterViews(views []workflow.DerivedView, status string) []workflow.DerivedView {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return views
	}
	var out []workflow.DerivedView
	for _, v := range views {
		if string(v.OverallStatus) == status {
			out = append(out, v)
		}
	}
	return out
}

// ---- JSON API ----

type fixesResponse struct {
	Success    bool                   `json:"success"`
	Count      int                    `json:"count"`
	Fixes      []workflow.DerivedView `json:"fixes"`
	SnapshotID string                 `json:"snapshot_id,omitempty"`
	Source     string                 `json:"source,omitempty"`
	FetchedAt  string                 `json:"fetched_at,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

type summaryResponse struct {
	Success bool                      `json:"success"`
	Summary workflow.AggregateSummary `json:"summary"`
	Error   string                    `json:"error,omitempty"`
}

type stagesResponse struct {
	Success bool                       `json:"success"`
	Stages  []workflow.StageDescriptor `json:"stages"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// handleAPIFixes returns the derived views of the latest snapshot. With no
// snapshot yet the list is empty and error carries the last fetch error.
func (s *Server) handleAPIFixes(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	snap, ok, errMsg := s.latest()
	resp := fixesResponse{Success: ok, Fixes: []workflow.DerivedView{}, Error: errMsg}
	if ok {
		resp.Fixes = filterViews(snap.Report.Views, r.URL.Query().Get("status"))
		if resp.Fixes == nil {
			resp.Fixes = []workflow.DerivedView{}
		}
		resp.SnapshotID = snap.ID
		resp.Source = snap.Source
		resp.FetchedAt = fmtStamp(snap.FetchedAt)
	}
	resp.Count = len(resp.Fixes)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	snap, ok, errMsg := s.latest()
	writeJSON(w, http.StatusOK, summaryResponse{Success: ok, Summary: snap.Report.Summary, Error: errMsg})
}

func (s *Server) handleAPIStages(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, stagesResponse{Success: true, Stages: workflow.Stages()})
}

// handleRefresh requests an out-of-band refresh. Browsers posting the
// dashboard form are redirected back; API clients get 202.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.provider.Trigger()
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
