package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

func TestBuildDSN(t *testing.T) {
	desc := models.ConnectionDescriptor{
		Host:     "db.internal",
		Port:     3306,
		User:     "app",
		Password: "p@ss/word",
		Database: "appdb",
	}
	dsn := buildDSN(desc)
	assert.Contains(t, dsn, "tcp(db.internal:3306)")
	assert.Contains(t, dsn, "/appdb")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestBuildDSNWithTLS(t *testing.T) {
	desc := models.ConnectionDescriptor{
		Host: "db.internal", Port: 3306, User: "app", Database: "appdb", SSL: true,
	}
	assert.Contains(t, buildDSN(desc), "tls=preferred")
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Adapter{db: db}, mock
}

func TestStreamQueryBatches(t *testing.T) {
	a, mock := newMockAdapter(t)

	rows := sqlmock.NewRows([]string{"id", "name"})
	for i := 1; i <= 5; i++ {
		rows.AddRow(i, "row")
	}
	mock.ExpectQuery("SELECT \\* FROM users").WillReturnRows(rows)

	var batchSizes []int
	err := a.StreamQuery(context.Background(), "SELECT * FROM users", 2,
		func(batch [][]any, cols []datasource.ColumnInfo) error {
			batchSizes = append(batchSizes, len(batch))
			require.Len(t, cols, 2)
			assert.Equal(t, "id", cols[0].Name)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamQueryByteSlicesBecomeStrings(t *testing.T) {
	a, mock := newMockAdapter(t)

	rows := sqlmock.NewRows([]string{"name"}).AddRow([]byte("alice"))
	mock.ExpectQuery("SELECT name").WillReturnRows(rows)

	err := a.StreamQuery(context.Background(), "SELECT name FROM users", 10,
		func(batch [][]any, _ []datasource.ColumnInfo) error {
			require.Len(t, batch, 1)
			assert.Equal(t, "alice", batch[0][0])
			return nil
		})
	require.NoError(t, err)
}

func TestStreamQuerySinkErrorStopsStream(t *testing.T) {
	a, mock := newMockAdapter(t)

	rows := sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3)
	mock.ExpectQuery("SELECT id").WillReturnRows(rows)

	calls := 0
	err := a.StreamQuery(context.Background(), "SELECT id FROM t", 1,
		func(_ [][]any, _ []datasource.ColumnInfo) error {
			calls++
			return assert.AnError
		})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

func TestStats(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM information_schema.tables").WillReturnRows(
		sqlmock.NewRows([]string{"tables", "rows", "size"}).AddRow(12, 34567, 89.5))

	stats, err := a.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.TotalTables)
	assert.Equal(t, int64(34567), stats.TotalRows)
	assert.InDelta(t, 89.5, stats.TotalDBSizeMB, 0.001)
}

func TestExecute(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, a.Execute(context.Background(), "CREATE TABLE t (id INT)"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
