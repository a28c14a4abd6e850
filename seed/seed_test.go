package seed_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/audiencehub/config"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/seed"
)

// memStore is an in-memory Store. fail makes the named method return an error.
type memStore struct {
	mu   sync.Mutex
	lock sync.Mutex

	schema    bool
	users     map[string]*models.User
	platforms map[string]uint
	interests map[string]uint
	personas  map[string]uint
	pp, pi    map[[2]uint]bool
	nextID    uint

	fail    map[string]error
	calls   []string
	unlocks int
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*models.User{},
		platforms: map[string]uint{},
		interests: map[string]uint{},
		personas:  map[string]uint{},
		pp:        map[[2]uint]bool{},
		pi:        map[[2]uint]bool{},
		fail:      map[string]error{},
	}
}

func (m *memStore) call(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	return m.fail[name]
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) Lock(ctx context.Context) error {
	if err := m.call("Lock"); err != nil {
		return err
	}
	m.lock.Lock()
	return nil
}

func (m *memStore) Unlock(ctx context.Context) error {
	m.mu.Lock()
	m.unlocks++
	m.mu.Unlock()
	m.lock.Unlock()
	return m.call("Unlock")
}

func (m *memStore) CreateSchema(ctx context.Context) error {
	if err := m.call("CreateSchema"); err != nil {
		return err
	}
	m.schema = true
	return nil
}

func (m *memStore) UserExists(ctx context.Context, email string) (bool, error) {
	if err := m.call("UserExists"); err != nil {
		return false, err
	}
	_, ok := m.users[email]
	return ok, nil
}

func (m *memStore) InsertUser(ctx context.Context, u *models.User) (bool, error) {
	if err := m.call("InsertUser"); err != nil {
		return false, err
	}
	if _, ok := m.users[u.Email]; ok {
		return false, nil
	}
	u.ID = m.id()
	m.users[u.Email] = u
	return true, nil
}

func insertName(set map[string]uint, name string, next func() uint) bool {
	if _, ok := set[name]; ok {
		return false
	}
	set[name] = next()
	return true
}

func (m *memStore) InsertPlatform(ctx context.Context, name string) (bool, error) {
	if err := m.call("InsertPlatform"); err != nil {
		return false, err
	}
	return insertName(m.platforms, name, m.id), nil
}

func (m *memStore) InsertInterest(ctx context.Context, name string) (bool, error) {
	if err := m.call("InsertInterest"); err != nil {
		return false, err
	}
	return insertName(m.interests, name, m.id), nil
}

func lookup(set map[string]uint, names []string) map[string]uint {
	out := map[string]uint{}
	for _, n := range names {
		if id, ok := set[n]; ok {
			out[n] = id
		}
	}
	return out
}

func (m *memStore) PlatformIDs(ctx context.Context, names []string) (map[string]uint, error) {
	if err := m.call("PlatformIDs"); err != nil {
		return nil, err
	}
	return lookup(m.platforms, names), nil
}

func (m *memStore) InterestIDs(ctx context.Context, names []string) (map[string]uint, error) {
	if err := m.call("InterestIDs"); err != nil {
		return nil, err
	}
	return lookup(m.interests, names), nil
}

func (m *memStore) FindPersona(ctx context.Context, name string) (uint, bool, error) {
	if err := m.call("FindPersona"); err != nil {
		return 0, false, err
	}
	id, ok := m.personas[name]
	return id, ok, nil
}

func (m *memStore) CreatePersona(ctx context.Context, p *models.Persona, platformIDs, interestIDs []uint) error {
	if err := m.call("CreatePersona"); err != nil {
		return err
	}
	p.ID = m.id()
	m.personas[p.Name] = p.ID
	for _, id := range platformIDs {
		m.pp[[2]uint{p.ID, id}] = true
	}
	for _, id := range interestIDs {
		m.pi[[2]uint{p.ID, id}] = true
	}
	return nil
}

func (m *memStore) Counts(ctx context.Context) (seed.Counts, error) {
	return seed.Counts{
		Users:            int64(len(m.users)),
		Platforms:        int64(len(m.platforms)),
		Interests:        int64(len(m.interests)),
		Personas:         int64(len(m.personas)),
		PersonaPlatforms: int64(len(m.pp)),
		PersonaInterests: int64(len(m.pi)),
	}, nil
}

func fastHash(pw string) (string, error) { return "hashed:" + pw, nil }

func baseline() seed.Baseline {
	return seed.DefaultBaseline(config.AppConfig{
		SeedAdminEmail:    "Admin@AudienceHub.local",
		SeedAdminPassword: "change-me-now",
		SeedAdminName:     "Administrator",
	})
}

func run(t *testing.T, store seed.Store) (seed.Report, error) {
	t.Helper()
	s := &seed.Seeder{Store: store, Baseline: baseline(), Hash: fastHash}
	return s.Run(context.Background())
}

func TestRunFromEmpty(t *testing.T) {
	store := newMemStore()
	rep, err := run(t, store)
	require.NoError(t, err)

	assert.Equal(t, seed.Report{Users: 1, Platforms: 6, Interests: 7, Personas: 1, PersonaPlatforms: 2, PersonaInterests: 3}, rep)
	counts, _ := store.Counts(context.Background())
	assert.Equal(t, seed.Counts{Users: 1, Platforms: 6, Interests: 7, Personas: 1, PersonaPlatforms: 2, PersonaInterests: 3}, counts)
	assert.True(t, store.schema)

	admin := store.users["admin@audiencehub.local"]
	require.NotNil(t, admin)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, models.StatusActive, admin.Status)
	assert.Equal(t, "hashed:change-me-now", admin.PasswordHash)
}

func TestRunIsIdempotent(t *testing.T) {
	store := newMemStore()
	_, err := run(t, store)
	require.NoError(t, err)
	first, _ := store.Counts(context.Background())

	for i := 0; i < 3; i++ {
		rep, err := run(t, store)
		require.NoError(t, err)
		assert.True(t, rep.Empty(), "run %d created %+v", i+2, rep)
	}
	again, _ := store.Counts(context.Background())
	assert.Equal(t, first, again)
}

func TestRunDoesNotHashForExistingAdmin(t *testing.T) {
	store := newMemStore()
	_, err := run(t, store)
	require.NoError(t, err)

	s := &seed.Seeder{Store: store, Baseline: baseline(), Hash: func(string) (string, error) {
		t.Fatal("hash called for existing admin")
		return "", nil
	}}
	_, err = s.Run(context.Background())
	require.NoError(t, err)
}

func TestRunRequiresAdminPasswordOnlyWhenCreating(t *testing.T) {
	b := baseline()
	b.Admin.Password = ""

	store := newMemStore()
	_, err := (&seed.Seeder{Store: store, Baseline: b, Hash: fastHash}).Run(context.Background())
	var stepErr *seed.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, seed.StepAdmin, stepErr.Step)
	assert.ErrorIs(t, err, seed.ErrNoAdminPassword)

	_, err = run(t, store)
	require.NoError(t, err)
	_, err = (&seed.Seeder{Store: store, Baseline: b, Hash: fastHash}).Run(context.Background())
	assert.NoError(t, err)
}

func TestStepFailureAbortsAndUnlocks(t *testing.T) {
	tests := []struct {
		method string
		step   string
		// calls that must not happen after the failure
		notCalled []string
	}{
		{"CreateSchema", seed.StepSchema, []string{"UserExists", "InsertPlatform"}},
		{"InsertUser", seed.StepAdmin, []string{"InsertPlatform", "InsertInterest"}},
		{"InsertPlatform", seed.StepPlatforms, []string{"InsertInterest", "FindPersona"}},
		{"InsertInterest", seed.StepInterests, []string{"FindPersona", "CreatePersona"}},
		{"InterestIDs", seed.StepPersona, []string{"CreatePersona"}},
		{"CreatePersona", seed.StepPersona, nil},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			store := newMemStore()
			boom := errors.New("boom")
			store.fail[tt.method] = boom

			_, err := run(t, store)
			var stepErr *seed.StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, tt.step, stepErr.Step)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, 1, store.unlocks)
			for _, c := range tt.notCalled {
				assert.NotContains(t, store.calls, c)
			}

			// The next run repairs whatever the failed one left behind.
			delete(store.fail, tt.method)
			_, err = run(t, store)
			require.NoError(t, err)
			counts, _ := store.Counts(context.Background())
			assert.Equal(t, seed.Counts{Users: 1, Platforms: 6, Interests: 7, Personas: 1, PersonaPlatforms: 2, PersonaInterests: 3}, counts)
		})
	}
}

func TestLockFailureSkipsEverything(t *testing.T) {
	store := newMemStore()
	store.fail["Lock"] = errors.New("lock timeout")

	_, err := run(t, store)
	var stepErr *seed.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, seed.StepLock, stepErr.Step)
	assert.Equal(t, []string{"Lock"}, store.calls)
	assert.Zero(t, store.unlocks)
}

func TestUnlockFailureIsReported(t *testing.T) {
	store := newMemStore()
	store.fail["Unlock"] = errors.New("connection lost")

	rep, err := run(t, store)
	var stepErr *seed.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, seed.StepUnlock, stepErr.Step)
	assert.Equal(t, 1, rep.Personas)
}

func TestMissingReferenceFailsPersonaStep(t *testing.T) {
	b := baseline()
	b.Persona.Platforms = append(b.Persona.Platforms, "Myspace")

	store := newMemStore()
	_, err := (&seed.Seeder{Store: store, Baseline: b, Hash: fastHash}).Run(context.Background())
	var stepErr *seed.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, seed.StepPersona, stepErr.Step)
	assert.Contains(t, err.Error(), "Myspace")
	assert.Empty(t, store.personas)
}

func TestCancelledContextStopsBetweenSteps(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&seed.Seeder{Store: store, Baseline: baseline(), Hash: fastHash}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.unlocks)
	assert.False(t, store.schema)
}

func TestConcurrentRunsConverge(t *testing.T) {
	store := newMemStore()
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := (&seed.Seeder{Store: store, Baseline: baseline(), Hash: fastHash}).Run(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	counts, _ := store.Counts(context.Background())
	assert.Equal(t, seed.Counts{Users: 1, Platforms: 6, Interests: 7, Personas: 1, PersonaPlatforms: 2, PersonaInterests: 3}, counts)
}
