package app

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogurasousui/staffing-ledger/internal/platform/config"
)

func TestWire_StatsRunsInsideReadOnlyTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := &config.Config{Ledger: config.LedgerConfig{Location: time.UTC}}
	a := Wire(mock, cfg, nil)

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectQuery(regexp.QuoteMeta(`FROM employee_clients`)).
		WillReturnRows(pgxmock.NewRows([]string{"active", "total", "employees", "clients"}).AddRow(2, 5, 2, 1))
	mock.ExpectCommit()

	stats, err := a.Assignment.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveAssignments)
	assert.Equal(t, 3, stats.InactiveAssignments)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadiness_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()

	require.NoError(t, pingFunc(mock)(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
