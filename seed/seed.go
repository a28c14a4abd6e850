// Package seed brings a database to the baseline state. Every step is
// insert-if-absent, so running it any number of times ends in the same state.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// Step names reported in StepError.
const (
	StepLock      = "lock"
	StepSchema    = "schema"
	StepAdmin     = "admin"
	StepPlatforms = "platforms"
	StepInterests = "interests"
	StepPersona   = "persona"
	StepUnlock    = "unlock"
)

// Store is the storage the seeder runs against. Implementations run every call
// on the same connection so the lock covers the whole run.
type Store interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	CreateSchema(ctx context.Context) error
	UserExists(ctx context.Context, email string) (bool, error)
	// InsertUser inserts unless the email is taken and reports whether it inserted.
	InsertUser(ctx context.Context, user *models.User) (bool, error)
	InsertPlatform(ctx context.Context, name string) (bool, error)
	InsertInterest(ctx context.Context, name string) (bool, error)
	PlatformIDs(ctx context.Context, names []string) (map[string]uint, error)
	InterestIDs(ctx context.Context, names []string) (map[string]uint, error)
	FindPersona(ctx context.Context, name string) (uint, bool, error)
	// CreatePersona inserts the persona and its junction rows atomically.
	CreatePersona(ctx context.Context, persona *models.Persona, platformIDs, interestIDs []uint) error
	Counts(ctx context.Context) (Counts, error)
}

// Counts are row counts of the seeded tables.
type Counts struct {
	Users            int64 `json:"users"`
	Platforms        int64 `json:"platforms"`
	Interests        int64 `json:"interests"`
	Personas         int64 `json:"personas"`
	PersonaPlatforms int64 `json:"persona_platforms"`
	PersonaInterests int64 `json:"persona_interests"`
}

// Report lists what one run created.
type Report struct {
	Users            int
	Platforms        int
	Interests        int
	Personas         int
	PersonaPlatforms int
	PersonaInterests int
}

// Empty reports whether the run changed nothing.
func (r Report) Empty() bool { return r == Report{} }

// StepError is returned when a step fails. Steps after it did not run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("seed step %q failed: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// ErrNoAdminPassword is returned when the admin must be created but no password was configured.
var ErrNoAdminPassword = errors.New("admin password is not configured (SEED_ADMIN_PASSWORD)")

// Seeder runs the baseline against a Store.
type Seeder struct {
	Store    Store
	Baseline Baseline
	// Hash hashes the admin password. Defaults to bcrypt.
	Hash func(string) (string, error)
	Log  *zap.SugaredLogger
}

// Run seeds baseline into store using bcrypt and the global logger.
func Run(ctx context.Context, store Store, baseline Baseline) (Report, error) {
	s := &Seeder{Store: store, Baseline: baseline}
	return s.Run(ctx)
}

// Run executes lock, schema, admin, platforms, interests and persona in that
// order. The lock is released on every exit path.
func (s *Seeder) Run(ctx context.Context) (rep Report, err error) {
	log := s.Log
	if log == nil {
		log = utils.Sugar
	}

	if err := s.Store.Lock(ctx); err != nil {
		return rep, &StepError{Step: StepLock, Err: err}
	}
	defer func() {
		// Release even when ctx was cancelled mid-run.
		if uerr := s.Store.Unlock(context.WithoutCancel(ctx)); uerr != nil {
			log.Warnw("failed to release seed lock", "err", uerr)
			if err == nil {
				err = &StepError{Step: StepUnlock, Err: uerr}
			}
		}
	}()

	steps := []struct {
		name string
		fn   func(context.Context, *Report) error
	}{
		{StepSchema, func(ctx context.Context, _ *Report) error { return s.Store.CreateSchema(ctx) }},
		{StepAdmin, s.seedAdmin},
		{StepPlatforms, s.seedPlatforms},
		{StepInterests, s.seedInterests},
		{StepPersona, s.seedPersona},
	}
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return rep, &StepError{Step: st.name, Err: err}
		}
		if err := st.fn(ctx, &rep); err != nil {
			log.Errorw("seed step failed", "step", st.name, "err", err)
			return rep, &StepError{Step: st.name, Err: err}
		}
		log.Debugw("seed step done", "step", st.name)
	}
	return rep, nil
}

func (s *Seeder) seedAdmin(ctx context.Context, rep *Report) error {
	admin := s.Baseline.Admin
	if admin.Email == "" {
		return errors.New("admin email is not configured")
	}
	exists, err := s.Store.UserExists(ctx, admin.Email)
	if err != nil || exists {
		return err
	}
	if admin.Password == "" {
		return ErrNoAdminPassword
	}
	hash := s.Hash
	if hash == nil {
		hash = utils.HashPassword
	}
	h, err := hash(admin.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user := admin.user(h)
	if err := user.Validate(); err != nil {
		return err
	}
	created, err := s.Store.InsertUser(ctx, user)
	if err != nil {
		return err
	}
	if created {
		rep.Users++
	}
	return nil
}

func (s *Seeder) seedPlatforms(ctx context.Context, rep *Report) error {
	for _, name := range s.Baseline.Platforms {
		created, err := s.Store.InsertPlatform(ctx, name)
		if err != nil {
			return fmt.Errorf("platform %q: %w", name, err)
		}
		if created {
			rep.Platforms++
		}
	}
	return nil
}

func (s *Seeder) seedInterests(ctx context.Context, rep *Report) error {
	for _, name := range s.Baseline.Interests {
		created, err := s.Store.InsertInterest(ctx, name)
		if err != nil {
			return fmt.Errorf("interest %q: %w", name, err)
		}
		if created {
			rep.Interests++
		}
	}
	return nil
}

// seedPersona creates the sample persona with its links. An existing persona is
// left untouched, links included.
func (s *Seeder) seedPersona(ctx context.Context, rep *Report) error {
	ps := s.Baseline.Persona
	if ps.Name == "" {
		return nil
	}
	if _, found, err := s.Store.FindPersona(ctx, ps.Name); err != nil || found {
		return err
	}

	platformIDs, err := resolve(ctx, s.Store.PlatformIDs, "platform", ps.Platforms)
	if err != nil {
		return err
	}
	interestIDs, err := resolve(ctx, s.Store.InterestIDs, "interest", ps.Interests)
	if err != nil {
		return err
	}

	if err := s.Store.CreatePersona(ctx, ps.persona(), platformIDs, interestIDs); err != nil {
		return err
	}
	rep.Personas++
	rep.PersonaPlatforms += len(platformIDs)
	rep.PersonaInterests += len(interestIDs)
	return nil
}

func resolve(ctx context.Context, lookup func(context.Context, []string) (map[string]uint, error), kind string, names []string) ([]uint, error) {
	names = utils.Unique(names)
	if len(names) == 0 {
		return nil, nil
	}
	ids, err := lookup(ctx, names)
	if err != nil {
		return nil, err
	}
	out := make([]uint, 0, len(names))
	for _, n := range names {
		id, ok := ids[n]
		if !ok {
			return nil, fmt.Errorf("%s %q does not exist", kind, n)
		}
		out = append(out, id)
	}
	return out, nil
}
