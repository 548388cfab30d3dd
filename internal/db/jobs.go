package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/catalog-agent/internal/jobs"
	"github.com/jonathan/catalog-agent/internal/types"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys
const uniqueViolation = "23505"

// JobStore implements jobs.Store on PostgreSQL.
type JobStore struct {
	db *DB
}

// NewJobStore creates a job store backed by db
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

const jobColumns = `id, product_id, status, provider, error, started_at, finished_at, stages, result`

// Create inserts a new job
func (s *JobStore) Create(ctx context.Context, job *types.Job) error {
	stages, result, err := encodeJob(job)
	if err != nil {
		return err
	}

	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO analysis_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.ProductID, job.Status, job.Provider, job.Error,
		job.StartedAt, job.FinishedAt, stages, result,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return jobs.ErrExists
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*types.Job, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jobs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Save writes the full job record, inserting it if needed
func (s *JobStore) Save(ctx context.Context, job *types.Job) error {
	stages, result, err := encodeJob(job)
	if err != nil {
		return err
	}

	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO analysis_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   status = $3, provider = $4, error = $5, finished_at = $7,
		   stages = $8, result = $9, updated_at = NOW()`,
		job.ID, job.ProductID, job.Status, job.Provider, job.Error,
		job.StartedAt, job.FinishedAt, stages, result,
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// ListByProduct returns a product's jobs, newest first
func (s *JobStore) ListByProduct(ctx context.Context, productID string) ([]*types.Job, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE product_id = $1 ORDER BY started_at DESC`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	out := []*types.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func encodeJob(job *types.Job) (stages, result []byte, err error) {
	records := job.Stages
	if records == nil {
		records = []types.StageRecord{}
	}
	stages, err = json.Marshal(records)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal stages: %w", err)
	}
	if job.Result != nil {
		result, err = json.Marshal(job.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal result: %w", err)
		}
	}
	return stages, result, nil
}

func scanJob(row pgx.Row) (*types.Job, error) {
	var (
		job        types.Job
		status     string
		finishedAt *time.Time
		stages     []byte
		result     []byte
	)
	if err := row.Scan(&job.ID, &job.ProductID, &status, &job.Provider, &job.Error,
		&job.StartedAt, &finishedAt, &stages, &result); err != nil {
		return nil, err
	}
	job.Status = types.JobStatus(status)
	job.FinishedAt = finishedAt

	job.Stages = []types.StageRecord{}
	if len(stages) > 0 {
		if err := json.Unmarshal(stages, &job.Stages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stages: %w", err)
		}
	}
	if len(result) > 0 {
		job.Result = &types.FinalResult{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	return &job, nil
}
