package rundb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// Run is one ledger row.
type Run struct {
	RunID      string `json:"run_id"`
	PointsPath string `json:"points_path"`
	PosesPath  string `json:"poses_path"`
	OutputPath string `json:"output_path"`
	Status     string `json:"status"`

	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	DeclaredPoints    int64 `json:"declared_points"`
	PointsRead        int64 `json:"points_read"`
	RecordsWritten    int64 `json:"records_written"`
	PointsSkipped     int64 `json:"points_skipped"`
	PointsPassthrough int64 `json:"points_passthrough"`
	PoseCount         int   `json:"pose_count"`
	PoseLinesSkipped  int   `json:"pose_lines_skipped"`
	OutputBytes       int64 `json:"output_bytes"`
	// OutputDigest is the hex xxhash64 of the output file.
	OutputDigest string `json:"output_digest,omitempty"`

	ConfigJSON  json.RawMessage `json:"config_json,omitempty"`
	SummaryJSON json.RawMessage `json:"summary_json,omitempty"`

	StartedAtNs  int64  `json:"started_at_ns"`
	FinishedAtNs *int64 `json:"finished_at_ns,omitempty"`
}

// Outcome carries the fields recorded when a run finishes.
type Outcome struct {
	Status       string
	ErrorKind    string
	ErrorMessage string

	DeclaredPoints    int64
	PointsRead        int64
	RecordsWritten    int64
	PointsSkipped     int64
	PointsPassthrough int64
	PoseCount         int
	PoseLinesSkipped  int
	OutputBytes       int64
	OutputDigest      string
	SummaryJSON       json.RawMessage

	FinishedAtNs int64
}

// RunStore provides persistence for georef runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// InsertRun records the start of a run. If run.RunID is empty a new UUID is
// generated. StartedAtNs must be set by the caller.
func (s *RunStore) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	query := `
		INSERT INTO georef_runs (
			run_id, points_path, poses_path, output_path, status,
			config_json, started_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.RunID,
		run.PointsPath,
		run.PosesPath,
		run.OutputPath,
		run.Status,
		nullString(string(run.ConfigJSON)),
		run.StartedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records how a run ended.
func (s *RunStore) FinishRun(runID string, o Outcome) error {
	query := `
		UPDATE georef_runs SET
			status = ?, error_kind = ?, error_message = ?,
			declared_points = ?, points_read = ?, records_written = ?,
			points_skipped = ?, points_passthrough = ?,
			pose_count = ?, pose_lines_skipped = ?,
			output_bytes = ?, output_digest = ?, summary_json = ?,
			finished_at_ns = ?
		WHERE run_id = ?
	`
	res, err := s.db.Exec(query,
		o.Status,
		nullString(o.ErrorKind),
		nullString(o.ErrorMessage),
		o.DeclaredPoints,
		o.PointsRead,
		o.RecordsWritten,
		o.PointsSkipped,
		o.PointsPassthrough,
		o.PoseCount,
		o.PoseLinesSkipped,
		o.OutputBytes,
		nullString(o.OutputDigest),
		nullString(string(o.SummaryJSON)),
		o.FinishedAtNs,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `
	run_id, points_path, poses_path, output_path, status,
	error_kind, error_message,
	declared_points, points_read, records_written, points_skipped, points_passthrough,
	pose_count, pose_lines_skipped, output_bytes, output_digest,
	config_json, summary_json, started_at_ns, finished_at_ns
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var errorKind, errorMessage, digest, configJSON, summaryJSON sql.NullString
	var finishedAtNs sql.NullInt64

	err := row.Scan(
		&run.RunID,
		&run.PointsPath,
		&run.PosesPath,
		&run.OutputPath,
		&run.Status,
		&errorKind,
		&errorMessage,
		&run.DeclaredPoints,
		&run.PointsRead,
		&run.RecordsWritten,
		&run.PointsSkipped,
		&run.PointsPassthrough,
		&run.PoseCount,
		&run.PoseLinesSkipped,
		&run.OutputBytes,
		&digest,
		&configJSON,
		&summaryJSON,
		&run.StartedAtNs,
		&finishedAtNs,
	)
	if err != nil {
		return nil, err
	}

	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	run.OutputDigest = digest.String
	if configJSON.Valid {
		run.ConfigJSON = json.RawMessage(configJSON.String)
	}
	if summaryJSON.Valid {
		run.SummaryJSON = json.RawMessage(summaryJSON.String)
	}
	if finishedAtNs.Valid {
		run.FinishedAtNs = &finishedAtNs.Int64
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM georef_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *RunStore) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM georef_runs ORDER BY started_at_ns DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindByDigest returns finished runs whose output digest equals digest, most
// recent first. It is how repeated runs over the same inputs are compared.
func (s *RunStore) FindByDigest(digest string) ([]*Run, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM georef_runs WHERE output_digest = ? ORDER BY started_at_ns DESC`, digest)
	if err != nil {
		return nil, fmt.Errorf("find runs by digest: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
