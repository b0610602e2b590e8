package repository

import (
	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds a SELECT ... FOR UPDATE clause on databases that support
// it. SQLite serializes writing transactions at the database level and rejects
// the FOR UPDATE syntax, so it is skipped there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockProject takes the project row lock that serializes writes to a
// project's dependent rows (invites, memberships, task columns). Aggregate
// reads feeding those writes run behind this lock and must stay unlocked
// themselves: Postgres rejects FOR UPDATE on aggregate queries.
func lockProject(tx *gorm.DB, projectID uint64) error {
	var project models.Project
	return lockForUpdate(tx).Select("id").First(&project, projectID).Error
}
