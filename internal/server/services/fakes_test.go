package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/dbx"
	"github.com/dmitrijs2005/bitcor/internal/logging"
	"github.com/dmitrijs2005/bitcor/internal/server/config"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/diagnostics"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/settings"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/strategies"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/users"
	"github.com/dmitrijs2005/bitcor/internal/server/vault"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.OperationTimeout = time.Second
	return cfg
}

func nopLogger() logging.Logger { return logging.NewNopLogger() }

// blockUntilDone simulates a store that hangs until the operation times out.
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// --- users ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	bySubject map[string]*models.User
	inserts   int

	getErr    error
	createErr error
	updateErr error
	// missFirst makes the first lookup miss even if the row exists, as if
	// another request inserted it concurrently.
	missFirst bool
	block     bool
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{bySubject: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.bySubject[u.ExternalSubject]; ok {
		return nil, common.ErrorAlreadyExists
	}
	f.inserts++
	cp := *u
	cp.CreatedAt = time.Now()
	f.bySubject[u.ExternalSubject] = &cp
	return &cp, nil
}

func (f *fakeUsersRepo) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	if f.block {
		return nil, blockUntilDone(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.missFirst {
		f.missFirst = false
		return nil, common.ErrorNotFound
	}
	u, ok := f.bySubject[subject]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) UpdateEmail(ctx context.Context, userID string, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, u := range f.bySubject {
		if u.ID == userID {
			e := email
			u.Email = &e
			return nil
		}
	}
	return common.ErrorNotFound
}

// --- credentials ---

type fakeCredentialsRepo struct {
	mu       sync.Mutex
	pointers map[string]*models.CredentialPointer
	upserts  int

	// failUpserts makes the next n upserts fail.
	failUpserts int
	upsertErr   error
	getErr      error
}

func newFakeCredentialsRepo() *fakeCredentialsRepo {
	return &fakeCredentialsRepo{pointers: map[string]*models.CredentialPointer{}}
}

func (f *fakeCredentialsRepo) Upsert(ctx context.Context, userID, provider, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.failUpserts > 0 {
		f.failUpserts--
		if f.upsertErr != nil {
			return f.upsertErr
		}
		return fmt.Errorf("db error: %w", errBoom{})
	}
	f.pointers[userID+"|"+provider] = &models.CredentialPointer{
		UserID: userID, Provider: provider, SecretAddress: address, UpdatedAt: time.Now(),
	}
	return nil
}

func (f *fakeCredentialsRepo) Get(ctx context.Context, userID, provider string) (*models.CredentialPointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.pointers[userID+"|"+provider]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (f *fakeCredentialsRepo) ListByUser(ctx context.Context, userID string) ([]*models.CredentialPointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.CredentialPointer{}
	for _, p := range f.pointers {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

// --- strategies ---

type fakeStrategiesRepo struct {
	mu      sync.Mutex
	rows    []*models.Strategy
	err     error
	listErr error
}

func (f *fakeStrategiesRepo) Create(ctx context.Context, s *models.Strategy) (*models.Strategy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s.CreatedAt = time.Now()
	f.rows = append(f.rows, s)
	return s, nil
}

func (f *fakeStrategiesRepo) ListByUser(ctx context.Context, userID string) ([]*models.Strategy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []*models.Strategy{}
	for _, s := range f.rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

// --- settings ---

type fakeSettingsRepo struct {
	mu   sync.Mutex
	rows []*models.Settings
	err  error
}

func (f *fakeSettingsRepo) Append(ctx context.Context, s *models.Settings) (*models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s.ID = int64(len(f.rows) + 1)
	s.CreatedAt = time.Now()
	f.rows = append(f.rows, s)
	return s, nil
}

func (f *fakeSettingsRepo) Latest(ctx context.Context, userID string) (*models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var latest *models.Settings
	for _, s := range f.rows {
		if s.UserID == userID && (latest == nil || s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	return latest, nil
}

// --- diagnostics ---

type fakeDiagnosticsRepo struct {
	tables []models.Table
	err    error
}

func (f *fakeDiagnosticsRepo) Ping(ctx context.Context) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func (f *fakeDiagnosticsRepo) Tables(ctx context.Context) ([]models.Table, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tables, nil
}

// --- repository manager ---

type fakeRepoManager struct {
	u  *fakeUsersRepo
	c  *fakeCredentialsRepo
	s  *fakeStrategiesRepo
	st *fakeSettingsRepo
	d  *fakeDiagnosticsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u:  newFakeUsersRepo(),
		c:  newFakeCredentialsRepo(),
		s:  &fakeStrategiesRepo{},
		st: &fakeSettingsRepo{},
		d:  &fakeDiagnosticsRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository             { return m.u }
func (m *fakeRepoManager) Credentials(db dbx.DBTX) credentials.Repository { return m.c }
func (m *fakeRepoManager) Strategies(db dbx.DBTX) strategies.Repository   { return m.s }
func (m *fakeRepoManager) Settings(db dbx.DBTX) settings.Repository       { return m.st }
func (m *fakeRepoManager) Diagnostics(db dbx.DBTX) diagnostics.Repository { return m.d }

// --- vault ---

// memBackend is an in-memory vault.Backend.
type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newMemBackend() *memBackend {
	return &memBackend{objects: map[string][]byte{}}
}

func (m *memBackend) Name() string { return "mem" }

func (m *memBackend) Create(_ context.Context, address string, payload []byte) (vault.CreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return vault.Created, m.err
	}
	if _, ok := m.objects[address]; ok {
		return vault.AlreadyExists, nil
	}
	m.objects[address] = payload
	return vault.Created, nil
}

func (m *memBackend) Update(_ context.Context, address string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.objects[address]; !ok {
		return common.ErrorNotFound
	}
	m.objects[address] = payload
	return nil
}

func (m *memBackend) Read(_ context.Context, address string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.objects[address]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (m *memBackend) Delete(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, address)
	return nil
}

func newVaultClient(b vault.Backend) *vault.Client {
	return vault.NewClient(b, "/bitcor", nopLogger(), nil)
}
