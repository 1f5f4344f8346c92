package resultstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const defaultListLimit = 50

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the result store
func NewStore(db *bun.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) CreateRun(ctx context.Context, run *Run) error {
	dao := &RunDao{
		ID:            run.ID,
		Operation:     run.Operation,
		Party:         run.Party,
		ReferenceBase: optional(run.ReferenceBase),
		Items:         run.Items,
		Status:        string(StatusRunning),
	}

	_, err := s.db.NewInsert().
		Model(dao).
		Returning("started_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	run.Status = StatusRunning
	run.StartedAt = dao.StartedAt
	return nil
}

func (s *pgStore) FinishRun(ctx context.Context, id string, status Status, successCount, failCount int, runErr string) error {
	res, err := s.db.NewUpdate().
		Model((*RunDao)(nil)).
		Set("status = ?", string(status)).
		Set("success_count = ?", successCount).
		Set("fail_count = ?", failCount).
		Set("error = ?", optional(runErr)).
		Set("finished_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *pgStore) GetRun(ctx context.Context, id string) (*Run, error) {
	dao := new(RunDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return toRun(dao), nil
}

func (s *pgStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var daos []RunDao
	err := s.db.NewSelect().
		Model(&daos).
		Order("started_at DESC", "id").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*Run, len(daos))
	for i := range daos {
		runs[i] = toRun(&daos[i])
	}
	return runs, nil
}

func (s *pgStore) InsertResult(ctx context.Context, result *Result) error {
	dao := toResultDao(result)
	_, err := s.db.NewInsert().
		Model(dao).
		Returning("created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	result.CreatedAt = dao.CreatedAt
	return nil
}

func (s *pgStore) ListResults(ctx context.Context, runID string) ([]*Result, error) {
	var daos []ResultDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("run_id = ?", runID).
		Order("item_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	results := make([]*Result, len(daos))
	for i := range daos {
		results[i] = toResult(&daos[i])
	}
	return results, nil
}

func (s *pgStore) GetResultByReference(ctx context.Context, reference string) (*Result, error) {
	dao := new(ResultDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("reference = ?", reference).
		Order("success DESC", "state_unknown DESC", "created_at DESC", "id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result by reference: %w", err)
	}
	return toResult(dao), nil
}
