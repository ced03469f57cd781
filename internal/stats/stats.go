package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/AI2HU/sqlite2pg/internal/models"
)

// Service aggregates the operation journal on demand
type Service struct {
	database *sql.DB
}

// New creates a new stats service over the journal database
func New(database *sql.DB) *Service {
	return &Service{
		database: database,
	}
}

// GetOperationStats returns one entry per operation kind, sorted by name
func (s *Service) GetOperationStats(ctx context.Context) ([]*models.OperationStats, error) {
	rows, err := s.database.QueryContext(ctx, `
		SELECT operation, status, COUNT(*), COALESCE(SUM(duration_ms), 0)
		FROM operations
		GROUP BY operation, status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate operations: %w", err)
	}
	defer rows.Close()

	byOp := make(map[string]*models.OperationStats)
	totalMs := make(map[string]int64)
	for rows.Next() {
		var op, status string
		var count int
		var sumMs int64
		if err := rows.Scan(&op, &status, &count, &sumMs); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}

		st, ok := byOp[op]
		if !ok {
			st = &models.OperationStats{Operation: op, StatusCounts: make(map[string]int)}
			byOp[op] = st
		}
		st.Total += count
		st.StatusCounts[status] += count
		totalMs[op] += sumMs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]*models.OperationStats, 0, len(byOp))
	for op, st := range byOp {
		if st.Total > 0 {
			st.AvgDurationMs = float64(totalMs[op]) / float64(st.Total)
		}
		last, err := s.lastRun(ctx, op)
		if err != nil {
			return nil, err
		}
		st.LastRun = last
		result = append(result, st)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Operation < result[j].Operation
	})
	return result, nil
}

func (s *Service) lastRun(ctx context.Context, operation string) (*models.Operation, error) {
	row := s.database.QueryRowContext(ctx, `
		SELECT id, status, started_at
		FROM operations
		WHERE operation = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1`, operation)

	op := &models.Operation{Operation: operation}
	if err := row.Scan(&op.ID, &op.Status, &op.StartedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last %s run: %w", operation, err)
	}
	return op, nil
}
