package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/audiencehub/models"
)

// GormStore implements Store on a single gorm connection. Obtain one inside
// gorm.DB.Connection so the session-level advisory lock and every write share
// the same database session.
type GormStore struct {
	db      *gorm.DB
	lockKey int64
}

// NewGormStore wraps conn. lockKey identifies the advisory lock shared by all seeders.
func NewGormStore(conn *gorm.DB, lockKey int64) *GormStore {
	return &GormStore{db: conn, lockKey: lockKey}
}

// RunOnConnection pins one pooled connection for the whole seed run and
// releases it afterwards, whatever the outcome.
func RunOnConnection(ctx context.Context, db *gorm.DB, lockKey int64, baseline Baseline) (Report, error) {
	var rep Report
	err := db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var err error
		rep, err = Run(ctx, NewGormStore(conn, lockKey), baseline)
		return err
	})
	return rep, err
}

func (s *GormStore) dialect() string { return s.db.Dialector.Name() }

func (s *GormStore) lockName() string { return fmt.Sprintf("audiencehub_seed_%d", s.lockKey) }

// Lock blocks until no other seeder holds the lock.
func (s *GormStore) Lock(ctx context.Context) error {
	switch s.dialect() {
	case models.DialectPostgres:
		return s.db.WithContext(ctx).Exec("SELECT pg_advisory_lock(?)", s.lockKey).Error
	case models.DialectMySQL:
		var got sql.NullInt64
		// GET_LOCK returns 1 on success, 0 on timeout, NULL on error.
		if err := s.db.WithContext(ctx).Raw("SELECT GET_LOCK(?, ?)", s.lockName(), 300).Row().Scan(&got); err != nil {
			return err
		}
		if !got.Valid || got.Int64 != 1 {
			return errors.New("timed out waiting for seed lock")
		}
		return nil
	default:
		return fmt.Errorf("unsupported dialect %q", s.dialect())
	}
}

// Unlock releases the lock taken by Lock.
func (s *GormStore) Unlock(ctx context.Context) error {
	switch s.dialect() {
	case models.DialectPostgres:
		return s.db.WithContext(ctx).Exec("SELECT pg_advisory_unlock(?)", s.lockKey).Error
	case models.DialectMySQL:
		return s.db.WithContext(ctx).Exec("SELECT RELEASE_LOCK(?)", s.lockName()).Error
	default:
		return nil
	}
}

func (s *GormStore) CreateSchema(ctx context.Context) error {
	return models.CreateSchema(ctx, s.db)
}

func (s *GormStore) UserExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

func (s *GormStore) InsertUser(ctx context.Context, user *models.User) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(user)
	if res.Error != nil {
		return false, models.ClassifyDBError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) InsertPlatform(ctx context.Context, name string) (bool, error) {
	return s.insertByName(ctx, &models.Platform{Name: name})
}

func (s *GormStore) InsertInterest(ctx context.Context, name string) (bool, error) {
	return s.insertByName(ctx, &models.Interest{Name: name})
}

// insertByName is a single-statement insert-if-absent on the unique name column.
func (s *GormStore) insertByName(ctx context.Context, row interface{}) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, models.ClassifyDBError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) PlatformIDs(ctx context.Context, names []string) (map[string]uint, error) {
	var rows []models.Platform
	if err := s.db.WithContext(ctx).Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(rows))
	for _, r := range rows {
		ids[r.Name] = r.ID
	}
	return ids, nil
}

func (s *GormStore) InterestIDs(ctx context.Context, names []string) (map[string]uint, error) {
	var rows []models.Interest
	if err := s.db.WithContext(ctx).Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(rows))
	for _, r := range rows {
		ids[r.Name] = r.ID
	}
	return ids, nil
}

func (s *GormStore) FindPersona(ctx context.Context, name string) (uint, bool, error) {
	var p models.Persona
	err := s.db.WithContext(ctx).Select("id").Where("name = ?", name).Order("id").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return p.ID, true, nil
}

func (s *GormStore) CreatePersona(ctx context.Context, persona *models.Persona, platformIDs, interestIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Associations are written explicitly below; skip gorm's own upserts.
		if err := tx.Omit(clause.Associations).Create(persona).Error; err != nil {
			return models.ClassifyDBError(err)
		}
		if len(platformIDs) > 0 {
			links := make([]models.PersonaPlatform, 0, len(platformIDs))
			for _, id := range platformIDs {
				links = append(links, models.PersonaPlatform{PersonaID: persona.ID, PlatformID: id})
			}
			if err := tx.Create(&links).Error; err != nil {
				return models.ClassifyDBError(err)
			}
		}
		if len(interestIDs) > 0 {
			links := make([]models.PersonaInterest, 0, len(interestIDs))
			for _, id := range interestIDs {
				links = append(links, models.PersonaInterest{PersonaID: persona.ID, InterestID: id})
			}
			if err := tx.Create(&links).Error; err != nil {
				return models.ClassifyDBError(err)
			}
		}
		return nil
	})
}

func (s *GormStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	for _, q := range []struct {
		model interface{}
		dst   *int64
	}{
		{&models.User{}, &c.Users},
		{&models.Platform{}, &c.Platforms},
		{&models.Interest{}, &c.Interests},
		{&models.Persona{}, &c.Personas},
		{&models.PersonaPlatform{}, &c.PersonaPlatforms},
		{&models.PersonaInterest{}, &c.PersonaInterests},
	} {
		if err := db.Model(q.model).Count(q.dst).Error; err != nil {
			return c, err
		}
	}
	return c, nil
}
