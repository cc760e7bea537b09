package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/lucasnoah/prflow/internal/workflow"
)

// FixApplication represents a row in the code_fix_applications table.
// Nullable columns are pointers.
type FixApplication struct {
	ID         int
	BuildID    *string
	FixType    *string
	BranchName *string
	PRNumber   *int
	PRURL      *string
	Status     *string
	ApprovedBy *string
	ApprovedAt *string
	MergedAt   *string
	RollbackAt *string
	CreatedAt  string
}

// InsertFix adds a fix application and returns its id. CreatedAt is set by
// the database when empty.
func (d *DB) InsertFix(f FixApplication) (int, error) {
	var createdAt interface{}
	if f.CreatedAt != "" {
		createdAt = f.CreatedAt
	}
	res, err := d.conn.Exec(
		`INSERT INTO code_fix_applications
		 (build_id, fix_type, branch_name, pr_number, pr_url, status, approved_by_name, approved_at, merged_at, rollback_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, datetime('now')))`,
		f.BuildID, f.FixType, f.BranchName, f.PRNumber, f.PRURL, f.Status,
		f.ApprovedBy, f.ApprovedAt, f.MergedAt, f.RollbackAt, createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert fix: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert fix id: %w", err)
	}
	return int(id), nil
}

// ImportRecords stores raw records as new rows in one transaction. Record ids
// are not preserved; rows get fresh ids in batch order.
func (d *DB) ImportRecords(records []workflow.RawFixRecord) (int, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO code_fix_applications
		 (build_id, fix_type, branch_name, pr_number, pr_url, status, approved_by_name, approved_at, merged_at, rollback_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		var prNumber interface{}
		if n, err := strconv.Atoi(r.PRNumber.String()); err == nil {
			prNumber = n
		}
		buildID := r.FailureID
		if !buildID.Present() {
			buildID = r.BuildID
		}
		if _, err := stmt.Exec(nullable(buildID), nullable(r.FixType), nullable(r.BranchName), prNumber,
			nullable(r.PRURL), nullable(r.Status), nullable(r.AppliedBy), nullable(r.AppliedAt),
			nullable(r.MergedAt), nullable(r.RollbackAt)); err != nil {
			return 0, fmt.Errorf("import record %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(records), nil
}

func nullable(v workflow.Value) interface{} {
	if !v.Present() {
		return nil
	}
	return v.String()
}

// History returns the most recent fix applications as raw records, newest
// first. An empty status returns every status.
func (d *DB) History(ctx context.Context, limit int, status string) ([]workflow.RawFixRecord, error) {
	query := `SELECT id, build_id, fix_type, branch_name, pr_number, pr_url, status,
	                 approved_by_name, approved_at, merged_at, rollback_at
	          FROM code_fix_applications`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fix history: %w", err)
	}
	defer rows.Close()

	var records []workflow.RawFixRecord
	for rows.Next() {
		var id int64
		var buildID, fixType, branch, prURL, st, approvedBy, approvedAt, mergedAt, rollbackAt sql.NullString
		var prNumber sql.NullInt64
		if err := rows.Scan(&id, &buildID, &fixType, &branch, &prNumber, &prURL, &st,
			&approvedBy, &approvedAt, &mergedAt, &rollbackAt); err != nil {
			return nil, fmt.Errorf("scan fix: %w", err)
		}
		rec := workflow.RawFixRecord{
			ID:         workflow.Text(strconv.FormatInt(id, 10)),
			BuildID:    nullText(buildID),
			FixType:    nullText(fixType),
			BranchName: nullText(branch),
			PRURL:      nullText(prURL),
			Status:     nullText(st),
			AppliedBy:  nullText(approvedBy),
			AppliedAt:  nullText(approvedAt),
			MergedAt:   nullText(mergedAt),
			RollbackAt: nullText(rollbackAt),
		}
		if prNumber.Valid {
			rec.PRNumber = workflow.Text(strconv.FormatInt(prNumber.Int64, 10))
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullText(s sql.NullString) workflow.Value {
	if !s.Valid {
		return workflow.Value{}
	}
	return workflow.Text(s.String)
}

// CountByStatus returns the number of rows per raw status. NULL statuses are
// reported under "".
func (d *DB) CountByStatus() (map[string]int, error) {
	rows, err := d.conn.Query(`SELECT COALESCE(status, ''), COUNT(*) FROM code_fix_applications GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
