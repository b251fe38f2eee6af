package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/northwind/backoffice/internal/core/domain"
)

func mustRegister(t *testing.T, f *authFixture, email, password string) string {
	t.Helper()
	id, err := f.svc.Register(context.Background(), email, password)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return id
}

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())

	id := mustRegister(t, f, "User@Example.com", "Secret123")
	if id == "" {
		t.Fatalf("expected account id")
	}

	account, err := f.accounts.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	if account.Email != "User@Example.com" {
		t.Fatalf("email should keep its casing, got %q", account.Email)
	}
	if account.NormalizedEmail != "user@example.com" {
		t.Fatalf("unexpected normalized email %q", account.NormalizedEmail)
	}
	if account.Status != domain.StatusPendingEmail {
		t.Fatalf("expected PendingEmail, got %s", account.Status)
	}
	if account.Role != domain.RoleUser {
		t.Fatalf("expected User role, got %s", account.Role)
	}
	if account.PasswordHash == "Secret123" {
		t.Fatalf("password stored in clear")
	}

	tokens := f.tokens.forAccount(id)
	if len(tokens) != 1 {
		t.Fatalf("expected one verification token, got %d", len(tokens))
	}
	if tokens[0].TokenHash == f.secrets.lastSecret() {
		t.Fatalf("raw secret must not be stored")
	}
	if !tokens[0].ExpiresAt.Equal(testNow.Add(24 * time.Hour)) {
		t.Fatalf("unexpected expiry %s", tokens[0].ExpiresAt)
	}

	if f.mailer.count() != 1 {
		t.Fatalf("expected one verification email, got %d", f.mailer.count())
	}
	mail := f.mailer.sent[0]
	if mail.to != "User@Example.com" {
		t.Fatalf("unexpected recipient %q", mail.to)
	}
	if !strings.Contains(mail.body, "https://api.example.com/auth/verify-email?token="+f.secrets.lastSecret()) {
		t.Fatalf("verification link missing from body: %s", mail.body)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())

	cases := []struct{ email, password string }{
		{"", "Secret123"},
		{"   ", "Secret123"},
		{"a@example.com", ""},
	}
	for _, tc := range cases {
		_, err := f.svc.Register(context.Background(), tc.email, tc.password)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("Register(%q, %q): expected validation, got %v", tc.email, tc.password, err)
		}
	}
}

func TestAuthService_Register_DuplicateIgnoresCase(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	mustRegister(t, f, "User@Example.com", "Secret123")

	_, err := f.svc.Register(context.Background(), "user@example.com", "Other1234")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.mailer.count() != 1 {
		t.Fatalf("duplicate registration must not send mail")
	}
}

func TestAuthService_Register_StoreConflictRollsBack(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	existing := domain.NewAccount("acc-existing", "taken@example.com", "hashed:x", domain.RoleUser, domain.StatusActive, testNow)

	// The account appears between the up-front lookup and the insert, so the
	// store's unique constraint is what rejects the write.
	racing := &racingAccounts{memAccounts: f.accounts, insert: existing}
	f.svc.accounts = racing

	_, err := f.svc.Register(context.Background(), "Taken@example.com", "Secret123")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.Constraint != "uniq_account" {
		t.Fatalf("expected constraint to be carried, got %+v", de)
	}
	if len(f.tokens.items) != 0 {
		t.Fatalf("no token may survive a failed registration")
	}
	if f.mailer.count() != 0 {
		t.Fatalf("no email may be sent for a failed registration")
	}
}

type racingAccounts struct {
	*memAccounts
	insert *domain.Account
}

func (r *racingAccounts) FindByNormalizedEmail(ctx context.Context, email string) (*domain.Account, error) {
	a, err := r.memAccounts.FindByNormalizedEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) && r.insert != nil {
		_ = r.memAccounts.Create(ctx, r.insert)
		r.insert = nil
	}
	return a, err
}

func TestAuthService_Register_WithoutEmailVerification(t *testing.T) {
	f := newAuthFixture(AuthConfig{RequireEmailVerification: false})

	id := mustRegister(t, f, "a@example.com", "Secret123")
	account, _ := f.accounts.FindByID(context.Background(), id)
	if account.Status != domain.StatusPendingApproval {
		t.Fatalf("expected PendingApproval, got %s", account.Status)
	}
	if len(f.tokens.forAccount(id)) != 0 || f.mailer.count() != 0 {
		t.Fatalf("no verification expected when not required")
	}
}

func TestAuthService_Register_MailFailureDoesNotFail(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	f.mailer.err = errors.New("smtp down")

	if _, err := f.svc.Register(context.Background(), "a@example.com", "Secret123"); err != nil {
		t.Fatalf("registration should succeed when mail fails: %v", err)
	}
}

func TestAuthService_VerifyEmail_PendingApproval(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	id := mustRegister(t, f, "a@example.com", "Secret123")

	outcome, err := f.svc.VerifyEmail(context.Background(), f.secrets.lastSecret())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.AccountID != id || outcome.Status != domain.StatusPendingApproval {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Code != domain.VerifyCodePendingApproval || outcome.Message == "" {
		t.Fatalf("unexpected outcome code %+v", outcome)
	}

	account, _ := f.accounts.FindByID(context.Background(), id)
	if account.Status != domain.StatusPendingApproval {
		t.Fatalf("expected PendingApproval, got %s", account.Status)
	}
	if tok := f.tokens.forAccount(id)[0]; !tok.Used || tok.UsedAt == nil {
		t.Fatalf("token should be marked used")
	}
}

func TestAuthService_VerifyEmail_AutoApprove(t *testing.T) {
	cfg := defaultAuthConfig()
	cfg.AutoApprove = true
	f := newAuthFixture(cfg)
	mustRegister(t, f, "a@example.com", "Secret123")

	outcome, err := f.svc.VerifyEmail(context.Background(), f.secrets.lastSecret())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Status != domain.StatusActive || outcome.Code != domain.VerifyCodeVerified {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestAuthService_VerifyEmail_SecondUseConflicts(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	mustRegister(t, f, "a@example.com", "Secret123")
	raw := f.secrets.lastSecret()

	if _, err := f.svc.VerifyEmail(context.Background(), raw); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	_, err := f.svc.VerifyEmail(context.Background(), raw)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on reuse, got %v", err)
	}
}

func TestAuthService_VerifyEmail_Expired(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	id := mustRegister(t, f, "a@example.com", "Secret123")

	f.clock.Advance(24 * time.Hour)
	_, err := f.svc.VerifyEmail(context.Background(), f.secrets.lastSecret())
	if !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}

	if tok := f.tokens.forAccount(id)[0]; tok.Used {
		t.Fatalf("expired token must stay unused")
	}
	account, _ := f.accounts.FindByID(context.Background(), id)
	if account.Status != domain.StatusPendingEmail {
		t.Fatalf("account must not change on expired token, got %s", account.Status)
	}
}

func TestAuthService_VerifyEmail_UnknownToken(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())

	for _, raw := range []string{"", "never-issued"} {
		_, err := f.svc.VerifyEmail(context.Background(), raw)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("VerifyEmail(%q): expected not_found, got %v", raw, err)
		}
	}
}

func TestAuthService_VerifyEmail_ConcurrentSingleSuccess(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	mustRegister(t, f, "a@example.com", "Secret123")
	raw := f.secrets.lastSecret()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyEmail(context.Background(), raw)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", n-1, successes, conflicts)
	}
}

func TestAuthService_VerifyEmail_DeletedAccount(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	id := mustRegister(t, f, "a@example.com", "Secret123")
	raw := f.secrets.lastSecret()

	if err := f.admin.SoftDelete(context.Background(), id, "admin-1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	_, err := f.svc.VerifyEmail(context.Background(), raw)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if f.tokens.forAccount(id)[0].Used {
		t.Fatalf("token consumption must roll back with the failed verification")
	}
}

func TestAuthService_ResendVerification(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	id := mustRegister(t, f, "a@example.com", "Secret123")
	first := f.secrets.lastSecret()

	if err := f.svc.ResendVerification(context.Background(), "A@EXAMPLE.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if f.mailer.count() != 2 || len(f.tokens.forAccount(id)) != 2 {
		t.Fatalf("expected a second token and email")
	}
	second := f.secrets.lastSecret()
	if first == second {
		t.Fatalf("resend must issue a new secret")
	}
	if _, err := f.svc.VerifyEmail(context.Background(), second); err != nil {
		t.Fatalf("verify with resent token: %v", err)
	}

	// Unknown and already verified addresses succeed without sending.
	if err := f.svc.ResendVerification(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown email: %v", err)
	}
	if err := f.svc.ResendVerification(context.Background(), "a@example.com"); err != nil {
		t.Fatalf("verified email: %v", err)
	}
	if f.mailer.count() != 2 {
		t.Fatalf("no further mail expected, got %d", f.mailer.count())
	}
}

func TestAuthService_Login_UnknownAndWrongPasswordAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	mustRegister(t, f, "a@example.com", "Secret123")

	_, errUnknown := f.svc.Login(context.Background(), "nobody@example.com", "Secret123")
	_, errWrong := f.svc.Login(context.Background(), "a@example.com", "wrong")

	for _, err := range []error{errUnknown, errWrong} {
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("messages differ: %q vs %q", errUnknown, errWrong)
	}
}

func TestAuthService_Login_ForbiddenUntilActive(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	ctx := context.Background()

	id := mustRegister(t, f, "User@Example.com", "Secret123")
	if _, err := f.svc.Register(ctx, "user@example.com", "Other1234"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	_, err := f.svc.Login(ctx, "user@example.com", "Secret123")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden before verification, got %v", err)
	}

	raw := f.secrets.lastSecret()
	if _, err := f.svc.VerifyEmail(ctx, raw); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := f.svc.VerifyEmail(ctx, raw); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on second verify, got %v", err)
	}

	_, err = f.svc.Login(ctx, "user@example.com", "Secret123")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden while pending approval, got %v", err)
	}
	if !strings.Contains(err.Error(), "approval") {
		t.Fatalf("expected status-specific message, got %q", err)
	}

	if _, err := f.admin.SetStatus(ctx, id, domain.StatusActive); err != nil {
		t.Fatalf("activate: %v", err)
	}

	res, err := f.svc.Login(ctx, "user@example.com", "Secret123")
	if err != nil {
		t.Fatalf("login after activation: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token")
	}
	if !res.ExpiresAt.After(f.clock.Now()) {
		t.Fatalf("expiry must be in the future, got %s", res.ExpiresAt)
	}
	if res.AccountID != id || res.Role != "User" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAuthService_Login_DisabledAccount(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	ctx := context.Background()
	id := mustRegister(t, f, "a@example.com", "Secret123")

	if _, err := f.admin.SetStatus(ctx, id, domain.StatusDisabled); err != nil {
		t.Fatalf("disable: %v", err)
	}
	_, err := f.svc.Login(ctx, "a@example.com", "Secret123")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	// Wrong password on a blocked account is still unauthorized.
	_, err = f.svc.Login(ctx, "a@example.com", "nope")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthService_Login_DeletedAccountIsUnknown(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	ctx := context.Background()
	id := mustRegister(t, f, "a@example.com", "Secret123")
	_, _ = f.admin.SetStatus(ctx, id, domain.StatusActive)

	if err := f.admin.SoftDelete(ctx, id, "admin-1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	_, err := f.svc.Login(ctx, "a@example.com", "Secret123")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthService_VerifyEmail_OutcomeFollowsStatus(t *testing.T) {
	cases := []struct {
		name   string
		steps  []domain.AccountStatus
		status domain.AccountStatus
		code   string
		phrase string
	}{
		{"disabled", []domain.AccountStatus{domain.StatusDisabled}, domain.StatusDisabled, domain.VerifyCodeDisabled, "account is disabled"},
		{"denied", []domain.AccountStatus{domain.StatusPendingApproval, domain.StatusDenied}, domain.StatusDenied, domain.VerifyCodeDenied, "registration was denied"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAuthFixture(defaultAuthConfig())
			id := mustRegister(t, f, "a@example.com", "Secret123")
			raw := f.secrets.lastSecret()
			for _, next := range tc.steps {
				if _, err := f.admin.SetStatus(context.Background(), id, next); err != nil {
					t.Fatalf("set status %s: %v", next, err)
				}
			}

			outcome, err := f.svc.VerifyEmail(context.Background(), raw)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if outcome.Status != tc.status || outcome.Code != tc.code {
				t.Fatalf("unexpected outcome %+v", outcome)
			}
			if strings.Contains(outcome.Message, "administrator will review") || !strings.Contains(outcome.Message, tc.phrase) {
				t.Fatalf("message does not match status: %q", outcome.Message)
			}

			account, _ := f.accounts.FindByID(context.Background(), id)
			if account.Status != tc.status {
				t.Fatalf("verification must not change a %s account, got %s", tc.status, account.Status)
			}
		})
	}
}

func TestAuthService_Register_CancelledContext(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		f := newAuthFixture(defaultAuthConfig())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		id, err := f.svc.Register(ctx, "a@example.com", "Secret123")
		if !errors.Is(err, context.Canceled) || id != "" {
			t.Fatalf("expected cancellation, got id=%q err=%v", id, err)
		}
		if len(f.accounts.items) != 0 || f.mailer.count() != 0 {
			t.Fatalf("cancelled register left state behind: accounts=%d mails=%d", len(f.accounts.items), f.mailer.count())
		}
	})

	t.Run("before commit", func(t *testing.T) {
		f := newAuthFixture(defaultAuthConfig())
		ctx, cancel := context.WithCancel(context.Background())
		f.tx.beforeCommit = cancel

		_, err := f.svc.Register(ctx, "a@example.com", "Secret123")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
		if len(f.accounts.items) != 0 || len(f.tokens.items) != 0 || f.mailer.count() != 0 {
			t.Fatalf("cancelled register left state behind")
		}

		f.tx.beforeCommit = nil
		mustRegister(t, f, "a@example.com", "Secret123")
	})
}

func TestAuthService_VerifyEmail_CancelledBeforeCommit(t *testing.T) {
	f := newAuthFixture(defaultAuthConfig())
	id := mustRegister(t, f, "a@example.com", "Secret123")
	raw := f.secrets.lastSecret()

	ctx, cancel := context.WithCancel(context.Background())
	f.tx.beforeCommit = cancel
	if _, err := f.svc.VerifyEmail(ctx, raw); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	if f.tokens.forAccount(id)[0].Used {
		t.Fatalf("token must stay unused after a cancelled verification")
	}
	account, _ := f.accounts.FindByID(context.Background(), id)
	if account.Status != domain.StatusPendingEmail {
		t.Fatalf("account must stay PendingEmail, got %s", account.Status)
	}

	f.tx.beforeCommit = nil
	if _, err := f.svc.VerifyEmail(context.Background(), raw); err != nil {
		t.Fatalf("token must still be usable: %v", err)
	}
}
