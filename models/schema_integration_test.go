//go:build integration

package models_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/audiencehub/internal/testdb"
	"github.com/cppla/audiencehub/models"
)

func setupSchema(t *testing.T) *gorm.DB {
	t.Helper()
	return setupSchemaOn(t, "postgres")
}

func setupSchemaOn(t *testing.T, dialect string) *gorm.DB {
	t.Helper()
	db := testdb.Open(t, dialect)
	require.NoError(t, models.CreateSchema(context.Background(), db))
	return db
}

type fixture struct {
	author    models.User
	persona   models.Persona
	platforms []models.Platform
	interest  models.Interest
	content   models.Content
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{
		author:    models.User{Name: "Ed", Email: "ed@example.com", PasswordHash: "x", Role: models.RoleEditor, Status: models.StatusActive},
		persona:   models.Persona{Name: "Runner", Active: true},
		platforms: []models.Platform{{Name: "Instagram"}, {Name: "TikTok"}},
		interest:  models.Interest{Name: "Running"},
	}
	require.NoError(t, db.Create(&f.author).Error)
	require.NoError(t, db.Omit(clause.Associations).Create(&f.persona).Error)
	require.NoError(t, db.Create(&f.platforms).Error)
	require.NoError(t, db.Create(&f.interest).Error)

	f.content = models.Content{Title: "Spring run", Type: models.ContentVideo, Status: models.ContentDraft, AuthorID: f.author.ID}
	require.NoError(t, db.Omit(clause.Associations).Create(&f.content).Error)

	ids := []uint{f.platforms[0].ID, f.platforms[1].ID}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := models.SetPersonaLinks(tx, f.persona.ID, ids, []uint{f.interest.ID}); err != nil {
			return err
		}
		return models.SetContentLinks(tx, f.content.ID, []uint{f.persona.ID}, ids)
	}))
	return f
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	db := setupSchema(t)
	require.NoError(t, models.CreateSchema(context.Background(), db))
	assert.True(t, models.SchemaReady(db))
}

func TestDeletePersonaCascadesToLinks(t *testing.T) {
	db := setupSchema(t)
	f := seedFixture(t, db)

	require.NoError(t, db.Delete(&models.Persona{}, f.persona.ID).Error)

	assert.Zero(t, count(t, db, &models.PersonaPlatform{}))
	assert.Zero(t, count(t, db, &models.PersonaInterest{}))
	assert.Zero(t, count(t, db, &models.ContentPersona{}))
	assert.Equal(t, int64(2), count(t, db, &models.Platform{}), "linked platforms survive")
	assert.Equal(t, int64(1), count(t, db, &models.Content{}), "linked content survives")
	assert.Equal(t, int64(2), count(t, db, &models.ContentPlatform{}))
}

func TestDeleteContentCascadesToLinks(t *testing.T) {
	db := setupSchema(t)
	f := seedFixture(t, db)

	require.NoError(t, db.Delete(&models.Content{}, f.content.ID).Error)

	assert.Zero(t, count(t, db, &models.ContentPersona{}))
	assert.Zero(t, count(t, db, &models.ContentPlatform{}))
	assert.Equal(t, int64(1), count(t, db, &models.Persona{}))
	assert.Equal(t, int64(2), count(t, db, &models.PersonaPlatform{}))
}

func TestDeletePlatformCascadesToLinks(t *testing.T) {
	db := setupSchema(t)
	f := seedFixture(t, db)

	require.NoError(t, db.Delete(&models.Platform{}, f.platforms[0].ID).Error)

	assert.Equal(t, int64(1), count(t, db, &models.PersonaPlatform{}))
	assert.Equal(t, int64(1), count(t, db, &models.ContentPlatform{}))
}

func TestDeleteCompanyDetachesPersonas(t *testing.T) {
	db := setupSchema(t)
	company := models.Company{Name: "Acme"}
	require.NoError(t, db.Create(&company).Error)
	p := models.Persona{Name: "Owned", Active: true, CompanyID: &company.ID}
	require.NoError(t, db.Omit(clause.Associations).Create(&p).Error)

	require.NoError(t, db.Delete(&models.Company{}, company.ID).Error)

	var got models.Persona
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Nil(t, got.CompanyID)
}

func TestMissingParentIsAReferentialViolation(t *testing.T) {
	db := setupSchema(t)
	f := seedFixture(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return models.SetContentLinks(tx, f.content.ID, []uint{9999}, nil)
	})
	assert.ErrorIs(t, err, models.ErrReferentialViolation)
	assert.Equal(t, int64(1), count(t, db, &models.ContentPersona{}), "failed replace rolls back")

	orphan := models.Content{Title: "Orphan", Type: models.ContentArticle, Status: models.ContentDraft, AuthorID: 9999}
	err = models.ClassifyDBError(db.Omit(clause.Associations).Create(&orphan).Error)
	assert.ErrorIs(t, err, models.ErrReferentialViolation)
}

func TestAuthorWithContentCannotBeDeleted(t *testing.T) {
	db := setupSchema(t)
	f := seedFixture(t, db)

	err := models.ClassifyDBError(db.Delete(&models.User{}, f.author.ID).Error)
	assert.ErrorIs(t, err, models.ErrReferentialViolation)
}

func TestDuplicatesAreRejected(t *testing.T) {
	db := setupSchema(t)
	f := seedFixture(t, db)

	err := models.ClassifyDBError(db.Create(&models.Platform{Name: "Instagram"}).Error)
	assert.ErrorIs(t, err, models.ErrDuplicate)

	err = models.ClassifyDBError(db.Create(&models.PersonaInterest{PersonaID: f.persona.ID, InterestID: f.interest.ID}).Error)
	assert.ErrorIs(t, err, models.ErrDuplicate)

	dup := f.author
	dup.ID = 0
	err = models.ClassifyDBError(db.Create(&dup).Error)
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestEngagementCountersOnlyGrow(t *testing.T) {
	db := setupSchema(t)
	f := seedFixture(t, db)

	require.NoError(t, models.IncrementEngagement(db, f.content.ID, models.EngagementViews, 5))
	require.NoError(t, models.IncrementEngagement(db, f.content.ID, models.EngagementViews, 2))
	assert.Error(t, models.IncrementEngagement(db, f.content.ID, models.EngagementViews, -1))
	assert.ErrorIs(t, models.IncrementEngagement(db, 9999, models.EngagementLikes, 1), models.ErrNotFound)

	var got models.Content
	require.NoError(t, db.First(&got, f.content.ID).Error)
	assert.Equal(t, int64(7), got.Views)

	err := db.Exec("UPDATE content SET likes = -1 WHERE id = ?", f.content.ID).Error
	assert.Error(t, err, "check constraint rejects negative counters")
}

func TestMySQLSchemaCascades(t *testing.T) {
	db := setupSchemaOn(t, "mysql")
	require.NoError(t, models.CreateSchema(context.Background(), db))
	assert.True(t, models.SchemaReady(db))

	f := seedFixture(t, db)
	assert.Equal(t, int64(2), count(t, db, &models.ContentPlatform{}))

	require.NoError(t, db.Delete(&models.Persona{}, f.persona.ID).Error)
	assert.Zero(t, count(t, db, &models.PersonaPlatform{}))
	assert.Zero(t, count(t, db, &models.PersonaInterest{}))
	assert.Zero(t, count(t, db, &models.ContentPersona{}))

	require.NoError(t, db.Delete(&models.Content{}, f.content.ID).Error)
	assert.Zero(t, count(t, db, &models.ContentPlatform{}))
	assert.Equal(t, int64(2), count(t, db, &models.Platform{}))
}
