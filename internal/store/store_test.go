package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/tosit-io/tdp/internal/depmodel"
	tdperrors "github.com/tosit-io/tdp/pkg/errors"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	// Label the mock connection "sqlite3" (rather than "sqlmock") so sqlx
	// resolves a QUESTION bindvar type for NamedExec; sqlmock itself never
	// inspects the driver name.
	return &Store{db: sqlx.NewDb(db, "sqlite3"), dialect: "sqlite3"}, mock
}

func TestSaveDeploymentAssignsIDAndInsertsOperations(t *testing.T) {
	s, mock := newMockStore(t)

	log := depmodel.NewPlanned(depmodel.DeploymentTypeDAG, []string{"mock_install", "mock_config"})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO deployment_log").WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO operation_log").
		WithArgs(int64(42), 0, "mock_install", "PLANNED", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO operation_log").
		WithArgs(int64(42), 1, "mock_config", "PLANNED", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := s.SaveDeployment(context.Background(), log)
	require.NoError(t, err)
	require.Equal(t, int64(42), log.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDeploymentConflictReturnsPlannedConflictError(t *testing.T) {
	s, mock := newMockStore(t)
	log := depmodel.NewPlanned(depmodel.DeploymentTypeDAG, []string{"mock_install"})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO deployment_log").
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint})
	mock.ExpectQuery("SELECT id FROM deployment_log WHERE state = 'PLANNED'").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectRollback()

	err := s.SaveDeployment(context.Background(), log)
	require.Error(t, err)
	var conflict *tdperrors.PlannedConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, int64(7), conflict.ExistingID)
}

func TestGetDeploymentNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT \\* FROM deployment_log WHERE id = ?").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetDeployment(context.Background(), 99)
	var notFound *tdperrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestGetDeploymentHydratesOperationsAndVersions(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM deployment_log WHERE id = ?").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sources", "targets", "filter_expression", "filter_type",
			"restart", "deployment_type", "state", "start_time", "end_time",
		}).AddRow(int64(1), "", "mock_init", "", "", false, "DAG", "SUCCESS", now, now))

	mock.ExpectQuery("SELECT \\* FROM operation_log WHERE deployment_id = ?").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"deployment_id", "plan_index", "operation", "state", "start_time", "end_time", "logs",
		}).AddRow(int64(1), 0, "mock_install", "SUCCESS", now, now, nil))

	mock.ExpectQuery("SELECT \\* FROM component_version_log WHERE deployment_id = ?").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"deployment_id", "emit_order", "service", "component", "version",
		}).AddRow(int64(1), 0, "mock", "node", "abc123"))

	log, err := s.GetDeployment(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, depmodel.DeploymentSuccess, log.State)
	require.Len(t, log.Operations, 1)
	require.Equal(t, "mock_install", log.Operations[0].Operation)
	require.Len(t, log.ComponentVersion, 1)
	require.Equal(t, "abc123", log.ComponentVersion[0].Version)
}

func TestLatestSuccessComponentVersionsKeepsMostRecentPerKey(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT cv\\.\\* FROM component_version_log").
		WillReturnRows(sqlmock.NewRows([]string{
			"deployment_id", "emit_order", "service", "component", "version",
		}).AddRow(int64(3), 0, "mock", "node", "def456"))

	versions, err := s.LatestSuccessComponentVersions(context.Background())
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, "def456", versions[0].Version)
}

// TestLatestSuccessComponentVersionsOrdering pins the query text to the
// deployment_id DESC, service, component ordering spec.md §4.G requires,
// and checks the store passes rows through in that order rather than
// re-sorting (or shuffling) them in Go.
func TestLatestSuccessComponentVersionsOrdering(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("(?s)SELECT cv\\.\\* FROM component_version_log.*ORDER BY cv\\.deployment_id DESC, cv\\.service, cv\\.component").
		WillReturnRows(sqlmock.NewRows([]string{
			"deployment_id", "emit_order", "service", "component", "version",
		}).
			AddRow(int64(5), 0, "hdfs", "namenode", "v5"). // deployment_id DESC first
			AddRow(int64(5), 1, "hdfs", "datanode", "v5b").
			AddRow(int64(3), 0, "mock", "node", "def456"))

	versions, err := s.LatestSuccessComponentVersions(context.Background())
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.Equal(t, []string{"v5", "v5b", "def456"}, []string{
		versions[0].Version, versions[1].Version, versions[2].Version,
	})
}

func TestGetOperationLogNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT \\* FROM operation_log WHERE deployment_id = ? AND operation = ?").
		WithArgs(int64(1), "mock_missing").
		WillReturnRows(sqlmock.NewRows([]string{"deployment_id"}))

	_, err := s.GetOperationLog(context.Background(), 1, "mock_missing")
	var notFound *tdperrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
