package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasnoah/prflow/internal/workflow"
)

// PostgresSource reads fix applications straight from the analysis
// service's code_fix_applications table. The table carries no fix category,
// so fix_type is always left to the normalizer's default.
type PostgresSource struct {
	pool   *pgxpool.Pool
	limit  int
	status string
}

// NewPostgresSource connects to dsn and verifies the connection.
func NewPostgresSource(ctx context.Context, dsn string, limit int, status string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresSource{pool: pool, limit: limit, status: status}, nil
}

// Name implements Source.
func (s *PostgresSource) Name() string {
	return "postgres"
}

// Close releases the pool.
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}

// pgHistoryQuery builds the history query with positional parameters.
func pgHistoryQuery(status string, limit int) (string, []any) {
	query := `
		SELECT id, build_id, branch_name, pr_number, pr_url, status,
		       approved_by_name, approved_at, merged_at, rollback_at
		FROM code_fix_applications`
	var args []any
	if status != "" {
		args = append(args, status)
		query += ` WHERE status = $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))
	return query, args
}

// pgHistoryRow is one scanned row of the history query.
type pgHistoryRow struct {
	ID         int64
	BuildID    pgtype.Text
	BranchName pgtype.Text
	PRNumber   pgtype.Int8
	PRURL      pgtype.Text
	Status     pgtype.Text
	ApprovedBy pgtype.Text
	ApprovedAt pgtype.Timestamptz
	MergedAt   pgtype.Timestamptz
	RollbackAt pgtype.Timestamptz
}

func (r pgHistoryRow) record() workflow.RawFixRecord {
	rec := workflow.RawFixRecord{
		ID:         workflow.Text(strconv.FormatInt(r.ID, 10)),
		BuildID:    pgText(r.BuildID),
		BranchName: pgText(r.BranchName),
		PRURL:      pgText(r.PRURL),
		Status:     pgText(r.Status),
		AppliedBy:  pgText(r.ApprovedBy),
		AppliedAt:  pgTime(r.ApprovedAt),
		MergedAt:   pgTime(r.MergedAt),
		RollbackAt: pgTime(r.RollbackAt),
	}
	if r.PRNumber.Valid {
		rec.PRNumber = workflow.Text(strconv.FormatInt(r.PRNumber.Int64, 10))
	}
	return rec
}

func pgText(t pgtype.Text) workflow.Value {
	if !t.Valid {
		return workflow.Value{}
	}
	return workflow.Text(t.String)
}

func pgTime(t pgtype.Timestamptz) workflow.Value {
	if !t.Valid {
		return workflow.Value{}
	}
	return workflow.Text(t.Time.UTC().Format(time.RFC3339))
}

// Fetch implements Source.
func (s *PostgresSource) Fetch(ctx context.Context) ([]workflow.RawFixRecord, error) {
	query, args := pgHistoryQuery(s.status, s.limit)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fix history: %w", err)
	}

	scanned, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pgHistoryRow, error) {
		var r pgHistoryRow
		err := row.Scan(&r.ID, &r.BuildID, &r.BranchName, &r.PRNumber, &r.PRURL, &r.Status,
			&r.ApprovedBy, &r.ApprovedAt, &r.MergedAt, &r.RollbackAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan fix history: %w", err)
	}

	records := make([]workflow.RawFixRecord, len(scanned))
	for i, r := range scanned {
		records[i] = r.record()
	}
	return records, nil
}
