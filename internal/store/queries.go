package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/tosit-io/tdp/internal/depmodel"
	tdperrors "github.com/tosit-io/tdp/pkg/errors"
)

// deploymentRow mirrors the deployment_log table for sqlx scanning.
type deploymentRow struct {
	ID               int64          `db:"id"`
	Sources          string         `db:"sources"`
	Targets          string         `db:"targets"`
	FilterExpression string         `db:"filter_expression"`
	FilterType       string         `db:"filter_type"`
	Restart          bool           `db:"restart"`
	DeploymentType   string         `db:"deployment_type"`
	State            string         `db:"state"`
	StartTime        sql.NullTime   `db:"start_time"`
	EndTime          sql.NullTime   `db:"end_time"`
}

func joinNames(names []string) string { return strings.Join(names, ",") }

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (r deploymentRow) toDomain() *depmodel.DeploymentLog {
	log := &depmodel.DeploymentLog{
		ID:               r.ID,
		Sources:          splitNames(r.Sources),
		Targets:          splitNames(r.Targets),
		FilterExpression: r.FilterExpression,
		FilterType:       depmodel.FilterType(r.FilterType),
		Restart:          r.Restart,
		DeploymentType:   depmodel.DeploymentType(r.DeploymentType),
		State:            depmodel.DeploymentState(r.State),
	}
	if r.StartTime.Valid {
		log.StartTime = &r.StartTime.Time
	}
	if r.EndTime.Valid {
		log.EndTime = &r.EndTime.Time
	}
	return log
}

type operationRow struct {
	DeploymentID int64         `db:"deployment_id"`
	PlanIndex    int           `db:"plan_index"`
	Operation    string        `db:"operation"`
	State        string        `db:"state"`
	StartTime    sql.NullTime  `db:"start_time"`
	EndTime      sql.NullTime  `db:"end_time"`
	Logs         []byte        `db:"logs"`
}

func (r operationRow) toDomain() *depmodel.OperationLog {
	op := &depmodel.OperationLog{
		DeploymentID: r.DeploymentID,
		Operation:    r.Operation,
		State:        depmodel.OperationState(r.State),
		Logs:         r.Logs,
	}
	if r.StartTime.Valid {
		op.StartTime = &r.StartTime.Time
	}
	if r.EndTime.Valid {
		op.EndTime = &r.EndTime.Time
	}
	return op
}

type componentVersionRow struct {
	ID           int64  `db:"id"`
	DeploymentID int64  `db:"deployment_id"`
	EmitOrder    int    `db:"emit_order"`
	Service      string `db:"service"`
	Component    string `db:"component"`
	Version      string `db:"version"`
}

func (r componentVersionRow) toDomain() *depmodel.ComponentVersionLog {
	return &depmodel.ComponentVersionLog{
		DeploymentID: r.DeploymentID,
		Service:      r.Service,
		Component:    r.Component,
		Version:      r.Version,
	}
}

// SaveDeployment persists a freshly planned deployment (state PLANNED) and
// its operations, assigning log.ID. If a PLANNED deployment already exists,
// it returns a PlannedConflictError naming the existing row instead of
// violating the one-planned-deployment invariant (spec.md §3, §7); the
// caller decides whether to overwrite it.
func (s *Store) SaveDeployment(ctx context.Context, log *depmodel.DeploymentLog) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.NamedExecContext(ctx, `
		INSERT INTO deployment_log
			(sources, targets, filter_expression, filter_type, restart, deployment_type, state, start_time, end_time)
		VALUES
			(:sources, :targets, :filter_expression, :filter_type, :restart, :deployment_type, :state, :start_time, :end_time)
	`, deploymentRowFromDomain(log))
	if err != nil {
		if existing, ok := s.conflictingPlannedID(ctx, err); ok {
			return tdperrors.NewPlannedConflictError(existing)
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = id

	for i, op := range log.Operations {
		op.DeploymentID = id
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO operation_log (deployment_id, plan_index, operation, state, start_time, end_time, logs)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, i, op.Operation, string(op.State), nullTime(op.StartTime), nullTime(op.EndTime), op.Logs); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// conflictingPlannedID inspects err for the unique-PLANNED-row violation and,
// if found, returns the id of the conflicting row.
func (s *Store) conflictingPlannedID(ctx context.Context, err error) (int64, bool) {
	var sqliteErr sqlite3.Error
	var pqErr *pq.Error
	isUnique := errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
	isUnique = isUnique || (errors.As(err, &pqErr) && pqErr.Code == "23505")
	if !isUnique {
		return 0, false
	}
	var id int64
	if scanErr := s.db.GetContext(ctx, &id, `SELECT id FROM deployment_log WHERE state = 'PLANNED'`); scanErr != nil {
		return 0, false
	}
	return id, true
}

// UpdateDeployment persists the current state of an already-saved
// deployment: its own state/timestamps, every OperationLog, and any newly
// emitted ComponentVersionLogs. Called after each step, or once at the end
// of a run.
func (s *Store) UpdateDeployment(ctx context.Context, log *depmodel.DeploymentLog) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.NamedExecContext(ctx, `
		UPDATE deployment_log SET
			state = :state, start_time = :start_time, end_time = :end_time
		WHERE id = :id
	`, struct {
		ID        int64        `db:"id"`
		State     string       `db:"state"`
		StartTime sql.NullTime `db:"start_time"`
		EndTime   sql.NullTime `db:"end_time"`
	}{log.ID, string(log.State), nullTime(log.StartTime), nullTime(log.EndTime)}); err != nil {
		return err
	}

	for i, op := range log.Operations {
		if _, err := tx.ExecContext(ctx, `
			UPDATE operation_log SET state = ?, start_time = ?, end_time = ?, logs = ?
			WHERE deployment_id = ? AND plan_index = ?
		`, string(op.State), nullTime(op.StartTime), nullTime(op.EndTime), op.Logs, log.ID, i); err != nil {
			return err
		}
	}

	var existingCount int
	if err := tx.GetContext(ctx, &existingCount, `SELECT COUNT(*) FROM component_version_log WHERE deployment_id = ?`, log.ID); err != nil {
		return err
	}
	for i := existingCount; i < len(log.ComponentVersion); i++ {
		cv := log.ComponentVersion[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO component_version_log (deployment_id, emit_order, service, component, version)
			VALUES (?, ?, ?, ?, ?)
		`, log.ID, i, cv.Service, cv.Component, cv.Version); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func deploymentRowFromDomain(log *depmodel.DeploymentLog) deploymentRow {
	return deploymentRow{
		ID:               log.ID,
		Sources:          joinNames(log.Sources),
		Targets:          joinNames(log.Targets),
		FilterExpression: log.FilterExpression,
		FilterType:       string(log.FilterType),
		Restart:          log.Restart,
		DeploymentType:   string(log.DeploymentType),
		State:            string(log.State),
		StartTime:        nullTime(log.StartTime),
		EndTime:          nullTime(log.EndTime),
	}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// GetDeployment loads a single deployment by id, with its operations and
// component-version logs in plan/emission order.
func (s *Store) GetDeployment(ctx context.Context, id int64) (*depmodel.DeploymentLog, error) {
	var row deploymentRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM deployment_log WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tdperrors.NewNotFoundError("deployment", id)
		}
		return nil, err
	}
	return s.hydrate(ctx, row)
}

// GetDeployments returns the most recent deployments, newest first.
func (s *Store) GetDeployments(ctx context.Context, limit, offset int) ([]*depmodel.DeploymentLog, error) {
	var rows []deploymentRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM deployment_log ORDER BY id DESC LIMIT ? OFFSET ?
	`, limit, offset); err != nil {
		return nil, err
	}
	logs := make([]*depmodel.DeploymentLog, 0, len(rows))
	for _, row := range rows {
		log, err := s.hydrate(ctx, row)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// GetLastDeployment returns the most recently created deployment of any
// state.
func (s *Store) GetLastDeployment(ctx context.Context) (*depmodel.DeploymentLog, error) {
	var row deploymentRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM deployment_log ORDER BY id DESC LIMIT 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tdperrors.NewNotFoundError("deployment", "last")
		}
		return nil, err
	}
	return s.hydrate(ctx, row)
}

// GetPlannedDeployment returns the single PLANNED deployment, if any.
func (s *Store) GetPlannedDeployment(ctx context.Context) (*depmodel.DeploymentLog, error) {
	var row deploymentRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM deployment_log WHERE state = 'PLANNED' LIMIT 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tdperrors.NewNotFoundError("deployment", "planned")
		}
		return nil, err
	}
	return s.hydrate(ctx, row)
}

// GetOperationLog returns a single operation's log within a deployment.
func (s *Store) GetOperationLog(ctx context.Context, deploymentID int64, operation string) (*depmodel.OperationLog, error) {
	var row operationRow
	if err := s.db.GetContext(ctx, &row, `
		SELECT * FROM operation_log WHERE deployment_id = ? AND operation = ?
	`, deploymentID, operation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tdperrors.NewNotFoundError("operation_log", operation)
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// LatestSuccessComponentVersions returns, for every (service, component)
// that has ever emitted a component-version log, the most recently emitted
// one — the basis for detecting stale components before a reconfigure
// (spec.md §4.E). Ordered by deployment_id descending, then service, then
// component (spec.md §4.G).
func (s *Store) LatestSuccessComponentVersions(ctx context.Context) ([]*depmodel.ComponentVersionLog, error) {
	var rows []componentVersionRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT cv.* FROM component_version_log cv
		INNER JOIN (
			SELECT service, component, MAX(id) AS max_id
			FROM component_version_log
			GROUP BY service, component
		) latest ON latest.service = cv.service AND latest.component = cv.component AND latest.max_id = cv.id
		ORDER BY cv.deployment_id DESC, cv.service, cv.component
	`); err != nil {
		return nil, err
	}
	out := make([]*depmodel.ComponentVersionLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) hydrate(ctx context.Context, row deploymentRow) (*depmodel.DeploymentLog, error) {
	log := row.toDomain()

	var opRows []operationRow
	if err := s.db.SelectContext(ctx, &opRows, `
		SELECT * FROM operation_log WHERE deployment_id = ? ORDER BY plan_index ASC
	`, log.ID); err != nil {
		return nil, err
	}
	log.Operations = make([]*depmodel.OperationLog, 0, len(opRows))
	for _, opRow := range opRows {
		log.Operations = append(log.Operations, opRow.toDomain())
	}

	var cvRows []componentVersionRow
	if err := s.db.SelectContext(ctx, &cvRows, `
		SELECT * FROM component_version_log WHERE deployment_id = ? ORDER BY emit_order ASC
	`, log.ID); err != nil {
		return nil, err
	}
	log.ComponentVersion = make([]*depmodel.ComponentVersionLog, 0, len(cvRows))
	for _, cvRow := range cvRows {
		log.ComponentVersion = append(log.ComponentVersion, cvRow.toDomain())
	}

	return log, nil
}
