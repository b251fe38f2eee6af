package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// clock is a settable test clock.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: testNow} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// --- In-memory aggregate store ------------------------------------------------

type memStore[T domain.Aggregate] struct {
	mu    sync.Mutex
	name  string
	items map[string]T
	clone func(T) T
	key   func(T) string
	saves int
}

func newMemStore[T domain.Aggregate](name string, clone func(T) T, key func(T) string) *memStore[T] {
	return &memStore[T]{name: name, items: map[string]T{}, clone: clone, key: key}
}

func (s *memStore[T]) activeWithKey(key, exceptID string) bool {
	for id, it := range s.items {
		if id != exceptID && !it.IsDeleted() && s.key(it) == key {
			return true
		}
	}
	return false
}

func (s *memStore[T]) Create(_ context.Context, entity T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[entity.GetID()]; ok {
		return domain.Conflict("duplicate id", "_id_")
	}
	if s.activeWithKey(s.key(entity), entity.GetID()) {
		return domain.Conflict("duplicate key", "uniq_"+s.name)
	}
	s.items[entity.GetID()] = s.clone(entity)
	return nil
}

func (s *memStore[T]) FindByID(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		var zero T
		return zero, domain.NotFound(s.name)
	}
	return s.clone(it), nil
}

func (s *memStore[T]) Save(_ context.Context, entity T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[entity.GetID()]; !ok {
		return domain.NotFound(s.name)
	}
	if !entity.IsDeleted() && s.activeWithKey(s.key(entity), entity.GetID()) {
		return domain.Conflict("duplicate key", "uniq_"+s.name)
	}
	s.items[entity.GetID()] = s.clone(entity)
	s.saves++
	return nil
}

func (s *memStore[T]) HasActiveDuplicate(_ context.Context, entity T) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeWithKey(s.key(entity), entity.GetID()), nil
}

func (s *memStore[T]) List(_ context.Context, f ports.ListFilter) ([]T, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []T
	for _, it := range s.items {
		if it.IsDeleted() && !f.IncludeDeleted {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(s.key(it)), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, s.clone(it))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].GetID() < matched[j].GetID() })

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *memStore[T]) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *memStore[T]) snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[string]T, len(s.items))
	for id, it := range s.items {
		saved[id] = s.clone(it)
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items = saved
	}
}

// --- Accounts and tokens ------------------------------------------------------

type memAccounts struct {
	*memStore[*domain.Account]
}

func newMemAccounts() *memAccounts {
	return &memAccounts{newMemStore("account",
		func(a *domain.Account) *domain.Account { c := *a; return &c },
		func(a *domain.Account) string { return a.NormalizedEmail },
	)}
}

func (r *memAccounts) FindByNormalizedEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if !a.IsDeleted() && a.NormalizedEmail == email {
			return r.clone(a), nil
		}
	}
	return nil, domain.NotFound("account")
}

type memTokens struct {
	mu    sync.Mutex
	items map[string]domain.VerificationToken
}

func newMemTokens() *memTokens {
	return &memTokens{items: map[string]domain.VerificationToken{}}
}

func (r *memTokens) Create(_ context.Context, t *domain.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.ID] = *t
	return nil
}

func (r *memTokens) FindByHash(_ context.Context, hash string) (*domain.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.items {
		if t.TokenHash == hash {
			c := t
			return &c, nil
		}
	}
	return nil, domain.NotFound("verification token")
}

func (r *memTokens) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return domain.NotFound("verification token")
	}
	if t.Used {
		return domain.Conflict("email address has already been verified", "")
	}
	now := testNow
	t.Used = true
	t.UsedAt = &now
	r.items[id] = t
	return nil
}

func (r *memTokens) forAccount(accountID string) []domain.VerificationToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.VerificationToken
	for _, t := range r.items {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

func (r *memTokens) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[string]domain.VerificationToken, len(r.items))
	for id, t := range r.items {
		saved[id] = t
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.items = saved
	}
}

// --- Transactor ---------------------------------------------------------------

type snapshotter interface {
	snapshot() func()
}

// memTx serializes transactions and rolls every registered store back when fn
// fails or ctx is cancelled before commit. beforeCommit, when set, runs after
// fn and before the cancellation check.
type memTx struct {
	mu           sync.Mutex
	stores       []snapshotter
	runs         int
	beforeCommit func()
}

func newMemTx(stores ...snapshotter) *memTx { return &memTx{stores: stores} }

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs++

	restores := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restores = append(restores, s.snapshot())
	}
	rollback := func() {
		for _, r := range restores {
			r()
		}
	}

	if err := fn(ctx); err != nil {
		rollback()
		return err
	}
	if t.beforeCommit != nil {
		t.beforeCommit()
	}
	if err := ctx.Err(); err != nil {
		rollback()
		return err
	}
	return nil
}

// --- Security and mail stubs --------------------------------------------------

type fakeHasher struct{}

func (fakeHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }

func (fakeHasher) Verify(hash, candidate string) bool { return hash == "hashed:"+candidate }

type fakeIssuer struct {
	now func() time.Time
}

func (f fakeIssuer) IssueForAccount(accountID, _, role string) (string, time.Time, error) {
	return "token-" + accountID + "-" + role, f.now().Add(8 * time.Hour), nil
}

type fakeSecrets struct {
	mu   sync.Mutex
	n    int
	last string
}

func (f *fakeSecrets) NewSecret() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	f.last = fmt.Sprintf("raw-secret-%d", f.n)
	return f.last, nil
}

func (f *fakeSecrets) HashSecret(raw string) string { return "sha:" + raw }

func (f *fakeSecrets) lastSecret() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// --- Fixture ------------------------------------------------------------------

type authFixture struct {
	svc      *AuthService
	admin    *AccountService
	accounts *memAccounts
	tokens   *memTokens
	secrets  *fakeSecrets
	mailer   *recordingMailer
	tx       *memTx
	clock    *clock
}

func newAuthFixture(cfg AuthConfig) *authFixture {
	f := &authFixture{
		accounts: newMemAccounts(),
		tokens:   newMemTokens(),
		secrets:  &fakeSecrets{},
		mailer:   &recordingMailer{},
		clock:    newClock(),
	}
	f.tx = newMemTx(f.accounts, f.tokens)
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "https://api.example.com"
	}

	f.svc = NewAuthService(AuthDeps{
		Accounts: f.accounts,
		Tokens:   f.tokens,
		Secrets:  f.secrets,
		Tx:       f.tx,
		Hasher:   fakeHasher{},
		Issuer:   fakeIssuer{now: f.clock.Now},
		Mailer:   f.mailer,
	}, cfg, zerolog.Nop(), WithClock(f.clock.Now))
	f.admin = NewAccountService(f.accounts, f.tx, zerolog.Nop(), WithClock(f.clock.Now))
	return f
}

func defaultAuthConfig() AuthConfig {
	return AuthConfig{RequireEmailVerification: true, VerificationTTL: 24 * time.Hour}
}
