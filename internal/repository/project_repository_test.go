package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func TestProjectRepository_ExistsByKey(t *testing.T) {
	db, mock := openMockDB(t)
	repo := NewProjectRepository(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `projects`").
		WithArgs("ALPHAT").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	// The lookup uppercases the candidate so lookups are case-insensitive on
	// both sides.
	exists, err := repo.ExistsByKey("alphat")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_ExistsByKey_Free(t *testing.T) {
	db, mock := openMockDB(t)
	repo := NewProjectRepository(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `projects`").
		WithArgs("NEWKEY").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	exists, err := repo.ExistsByKey("NEWKEY")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_FindMember(t *testing.T) {
	db, mock := openMockDB(t)
	repo := NewProjectRepository(db)

	rows := sqlmock.NewRows([]string{"id", "project_id", "user_id", "role"}).
		AddRow(1, 10, 20, "ADMIN")
	mock.ExpectQuery("SELECT \\* FROM `project_members`").
		WithArgs(10, 20, 1).
		WillReturnRows(rows)

	member, err := repo.FindMember(10, 20)
	require.NoError(t, err)
	require.EqualValues(t, 10, member.ProjectID)
	require.EqualValues(t, 20, member.UserID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_RemoveMember_LockOrder(t *testing.T) {
	db, mock := openMockDB(t)
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	// The project row takes the lock; the member fetch and the owner count run
	// behind it without locking clauses of their own.
	mock.ExpectQuery("SELECT .id. FROM .projects. WHERE .projects.\\..id. = \\?.* FOR UPDATE$").
		WithArgs(10, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("SELECT \\* FROM .project_members. WHERE project_id = \\? AND user_id = \\? ORDER BY .project_members.\\..id. LIMIT \\?$").
		WithArgs(10, 20, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "role"}).
			AddRow(1, 10, 20, "OWNER"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM .project_members. WHERE project_id = \\? AND role = \\?$").
		WithArgs(10, "OWNER").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.RemoveMember(10, 20)
	require.ErrorIs(t, err, ErrLastOwner)

	require.NoError(t, mock.ExpectationsWereMet())
}
