package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type projectTestEnv struct {
	db          *gorm.DB
	projectRepo repository.ProjectRepository
	service     *ProjectService
}

func setupProjectTestEnv(t *testing.T) projectTestEnv {
	t.Helper()

	db := openTestDB(t)

	projectRepo := repository.NewProjectRepository(db)
	authorizer := NewAuthorizer(projectRepo)
	service := NewProjectService(projectRepo, authorizer)

	return projectTestEnv{
		db:          db,
		projectRepo: projectRepo,
		service:     service,
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.ProjectInvite{},
		&models.Task{},
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		Name:         email,
		PasswordHash: "hashed",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func addTestMember(t *testing.T, db *gorm.DB, projectID, userID uint64, role models.ProjectRole) {
	t.Helper()

	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	require.NoError(t, db.Create(member).Error)
}

func TestProjectService_CreateProject_OwnerMembership(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{
		Name: "Alpha Team",
	})
	require.NoError(t, err)
	require.Equal(t, "ALPHAT", project.Key)
	require.Equal(t, owner.ID, project.OwnerID)

	var members []models.ProjectMember
	require.NoError(t, env.db.Where("project_id = ?", project.ID).Find(&members).Error)
	require.Len(t, members, 1)
	require.Equal(t, owner.ID, members[0].UserID)
	require.Equal(t, models.RoleOwner, members[0].Role)
}

func TestProjectService_CreateProject_BlankName(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	_, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "   "})
	require.ErrorIs(t, err, ErrInvalidProjectName)
}

func TestProjectService_CreateProject_KeyDedup(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	first, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha Team"})
	require.NoError(t, err)
	require.Equal(t, "ALPHAT", first.Key)

	second, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha Team"})
	require.NoError(t, err)
	require.Equal(t, "ALPHAT1", second.Key)

	third, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha Team"})
	require.NoError(t, err)
	require.Equal(t, "ALPHAT2", third.Key)
}

func TestProjectService_CreateProject_ExplicitKeyConflict(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	_, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "One", Key: "web-1"})
	require.NoError(t, err)

	// Sanitization makes "Web1" collide with "web-1" case-insensitively.
	_, err = env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Two", Key: "Web1"})
	require.ErrorIs(t, err, ErrProjectKeyTaken)
}

func TestProjectService_CreateProject_EmptyNameKeyFallback(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "!!!"})
	require.NoError(t, err)
	require.Equal(t, "PRJ", project.Key)

	project2, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "???"})
	require.NoError(t, err)
	require.Equal(t, "PRJ1", project2.Key)
}

func TestProjectService_GetProject_RequiresMembership(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")
	outsider := createTestUser(t, env.db, "outsider@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha"})
	require.NoError(t, err)

	_, err = env.service.GetProject(outsider.ID, project.ID)
	require.ErrorIs(t, err, ErrNotProjectMember)

	got, err := env.service.GetProject(owner.ID, project.ID)
	require.NoError(t, err)
	require.Equal(t, project.ID, got.ID)
}

func TestProjectService_UpdateProject_RequiresAdmin(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")
	member := createTestUser(t, env.db, "member@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha"})
	require.NoError(t, err)
	addTestMember(t, env.db, project.ID, member.ID, models.RoleMember)

	name := "Renamed"
	_, err = env.service.UpdateProject(member.ID, project.ID, UpdateProjectInput{Name: &name})
	require.ErrorIs(t, err, ErrInsufficientRole)

	updated, err := env.service.UpdateProject(owner.ID, project.ID, UpdateProjectInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
}

func TestProjectService_UpdateProject_PartialPatch(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{
		Name:        "Alpha",
		Description: "original",
	})
	require.NoError(t, err)

	desc := "updated"
	updated, err := env.service.UpdateProject(owner.ID, project.ID, UpdateProjectInput{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "Alpha", updated.Name)
	require.Equal(t, "updated", updated.Description)
}

func TestProjectService_DeleteProject_RequiresOwner(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")
	member := createTestUser(t, env.db, "member@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha"})
	require.NoError(t, err)
	addTestMember(t, env.db, project.ID, member.ID, models.RoleMember)

	err = env.service.DeleteProject(member.ID, project.ID)
	require.ErrorIs(t, err, ErrInsufficientRole)

	require.NoError(t, env.service.DeleteProject(owner.ID, project.ID))

	_, err = env.projectRepo.FindByID(project.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestProjectService_DeleteProject_Cascades(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha"})
	require.NoError(t, err)

	task := &models.Task{
		ProjectID:  project.ID,
		Title:      "t",
		Status:     models.TaskStatusTodo,
		Priority:   models.TaskPriorityMedium,
		ReporterID: owner.ID,
	}
	require.NoError(t, env.db.Create(task).Error)

	require.NoError(t, env.service.DeleteProject(owner.ID, project.ID))

	var taskCount, memberCount int64
	require.NoError(t, env.db.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&taskCount).Error)
	require.NoError(t, env.db.Model(&models.ProjectMember{}).Where("project_id = ?", project.ID).Count(&memberCount).Error)
	require.Zero(t, taskCount)
	require.Zero(t, memberCount)
}

func TestProjectService_RemoveMember_LastOwner(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha"})
	require.NoError(t, err)

	err = env.service.RemoveMember(owner.ID, project.ID, owner.ID)
	require.ErrorIs(t, err, ErrLastOwner)
}

func TestProjectService_RemoveMember_SpareOwner(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")
	coOwner := createTestUser(t, env.db, "co-owner@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha"})
	require.NoError(t, err)
	addTestMember(t, env.db, project.ID, coOwner.ID, models.RoleOwner)

	require.NoError(t, env.service.RemoveMember(owner.ID, project.ID, coOwner.ID))

	var count int64
	require.NoError(t, env.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND role = ?", project.ID, models.RoleOwner).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestProjectService_RemoveMember_RequiresAdmin(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")
	member := createTestUser(t, env.db, "member@example.com")
	victim := createTestUser(t, env.db, "victim@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha"})
	require.NoError(t, err)
	addTestMember(t, env.db, project.ID, member.ID, models.RoleMember)
	addTestMember(t, env.db, project.ID, victim.ID, models.RoleMember)

	err = env.service.RemoveMember(member.ID, project.ID, victim.ID)
	require.ErrorIs(t, err, ErrInsufficientRole)

	require.NoError(t, env.service.RemoveMember(owner.ID, project.ID, victim.ID))
}

// staleKeyRepo reports a key as free for the first stale checks, standing in
// for a concurrent creator that claims the key between the availability check
// and the insert.
type staleKeyRepo struct {
	repository.ProjectRepository
	stale int
}

func (r *staleKeyRepo) ExistsByKey(key string) (bool, error) {
	if r.stale > 0 {
		r.stale--
		return false, nil
	}
	return r.ProjectRepository.ExistsByKey(key)
}

func TestProjectService_CreateProject_DerivedKeyRace(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	first, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha Team"})
	require.NoError(t, err)
	require.Equal(t, "ALPHAT", first.Key)

	// The stale check lets the derived key collide at insert time; the
	// creation rederives against the winner's row instead of failing.
	repo := &staleKeyRepo{ProjectRepository: env.projectRepo, stale: 1}
	service := NewProjectService(repo, NewAuthorizer(repo))

	second, err := service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha Team"})
	require.NoError(t, err)
	require.Equal(t, "ALPHAT1", second.Key)
}

func TestProjectService_CreateProject_ExplicitKeyRace(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	_, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "One", Key: "WEB"})
	require.NoError(t, err)

	// An explicit key that collides at insert time surfaces as a conflict,
	// not a bare store error.
	repo := &staleKeyRepo{ProjectRepository: env.projectRepo, stale: 1}
	service := NewProjectService(repo, NewAuthorizer(repo))

	_, err = service.CreateProject(owner.ID, CreateProjectInput{Name: "Two", Key: "web"})
	require.ErrorIs(t, err, ErrProjectKeyTaken)
}

func TestProjectService_RemoveMember_NotFound(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner@example.com")

	project, err := env.service.CreateProject(owner.ID, CreateProjectInput{Name: "Alpha"})
	require.NoError(t, err)

	err = env.service.RemoveMember(owner.ID, project.ID, 9999)
	require.ErrorIs(t, err, ErrMemberNotFound)
}
