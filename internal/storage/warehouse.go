package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kalambet/rootcause/internal/dataset"
)

// Summary holds the dataset-wide aggregates.
type Summary struct {
	Records             int     `json:"records"`
	AverageSentiment    float64 `json:"average_sentiment"`
	AverageResponseTime float64 `json:"average_response_time_s"`
}

// GroupStats aggregates the records sharing one department or industry.
type GroupStats struct {
	Name                string  `json:"name"`
	Records             int     `json:"records"`
	AverageResponseTime float64 `json:"average_response_time_s"`
	AverageSentiment    float64 `json:"average_sentiment"`
	Escalations         int     `json:"escalations"`
}

// ReplaceRecords swaps the warehouse contents for records, in one transaction.
func (s *Store) ReplaceRecords(ctx context.Context, records []dataset.InteractionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM interaction_records"); err != nil {
		return eris.Wrap(err, "clearing records")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO interaction_records (seq, record_id, event_at, response_time_s, sentiment_score, industry, customer_segment, department, user_name, action_taken, interaction_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "preparing insert")
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx,
			i, r.RecordID, r.Timestamp.UTC().Format(time.RFC3339Nano), r.ResponseTimeSeconds, r.SentimentScore,
			r.Industry, r.CustomerSegment, r.Department, r.UserName, r.ActionTaken, r.InteractionNotes,
		); err != nil {
			return eris.Wrapf(err, "inserting record %d", i)
		}
	}

	return eris.Wrap(tx.Commit(), "committing records")
}

func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(sentiment_score), 0), COALESCE(AVG(response_time_s), 0)
		FROM interaction_records`,
	).Scan(&sum.Records, &sum.AverageSentiment, &sum.AverageResponseTime)
	if err != nil {
		return Summary{}, eris.Wrap(err, "querying summary")
	}
	return sum, nil
}

// escalatedExpr matches the selector's escalation rule.
const escalatedExpr = `(LOWER(action_taken) LIKE '%escalated%' OR LOWER(action_taken) LIKE '%transferred%')`

// DepartmentStats returns per-department aggregates, slowest average
// response time first.
func (s *Store) DepartmentStats(ctx context.Context) ([]GroupStats, error) {
	return s.groupStats(ctx, "department")
}

// IndustryStats returns per-industry aggregates, slowest average response
// time first.
func (s *Store) IndustryStats(ctx context.Context) ([]GroupStats, error) {
	return s.groupStats(ctx, "industry")
}

// groupStats aggregates by column, which must be a trusted identifier.
func (s *Store) groupStats(ctx context.Context, column string) ([]GroupStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+column+`, COUNT(*), AVG(response_time_s), AVG(sentiment_score),
		       SUM(CASE WHEN `+escalatedExpr+` THEN 1 ELSE 0 END)
		FROM interaction_records
		GROUP BY `+column+`
		ORDER BY AVG(response_time_s) DESC, `+column+` ASC`)
	if err != nil {
		return nil, eris.Wrapf(err, "querying %s stats", column)
	}
	defer rows.Close()

	var out []GroupStats
	for rows.Next() {
		var g GroupStats
		if err := rows.Scan(&g.Name, &g.Records, &g.AverageResponseTime, &g.AverageSentiment, &g.Escalations); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Departments returns the distinct department names, sorted.
func (s *Store) Departments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT department FROM interaction_records ORDER BY department ASC")
	if err != nil {
		return nil, eris.Wrap(err, "querying departments")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Record returns the record stored at position seq, in source order.
func (s *Store) Record(ctx context.Context, seq int) (dataset.InteractionRecord, error) {
	var (
		r       dataset.InteractionRecord
		eventAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT record_id, event_at, response_time_s, sentiment_score, industry, customer_segment, department, user_name, action_taken, interaction_notes
		FROM interaction_records WHERE seq = ?`, seq,
	).Scan(&r.RecordID, &eventAt, &r.ResponseTimeSeconds, &r.SentimentScore, &r.Industry, &r.CustomerSegment,
		&r.Department, &r.UserName, &r.ActionTaken, &r.InteractionNotes)
	if err == sql.ErrNoRows {
		return dataset.InteractionRecord{}, ErrNotFound
	}
	if err != nil {
		return dataset.InteractionRecord{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, eventAt)
	if err != nil {
		return dataset.InteractionRecord{}, eris.Wrapf(err, "parsing event_at %q", eventAt)
	}
	r.Timestamp = t
	return r, nil
}

// Dashboard bundles the aggregates shown by the stats surfaces.
type Dashboard struct {
	Summary         Summary      `json:"summary"`
	Departments     []GroupStats `json:"departments"`
	Industries      []GroupStats `json:"industries"`
	DepartmentNames []string     `json:"department_names"`
}

func (s *Store) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Summary, err = s.Summary(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.Departments, err = s.DepartmentStats(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.Industries, err = s.IndustryStats(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.DepartmentNames, err = s.Departments(ctx); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Top keeps the first n departments and industries. n <= 0 keeps all.
func (d Dashboard) Top(n int) Dashboard {
	if n <= 0 {
		return d
	}
	if len(d.Departments) > n {
		d.Departments = d.Departments[:n]
	}
	if len(d.Industries) > n {
		d.Industries = d.Industries[:n]
	}
	return d
}
