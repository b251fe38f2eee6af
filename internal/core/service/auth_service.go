package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

const invalidCredentials = "invalid email or password"

// AuthConfig holds the registration and verification policy.
type AuthConfig struct {
	// RequireEmailVerification creates accounts in PendingEmail and sends a
	// verification link; otherwise accounts start in PendingApproval.
	RequireEmailVerification bool
	// AutoApprove moves verified accounts straight to Active.
	AutoApprove     bool
	VerificationTTL time.Duration
	// PublicBaseURL is the externally reachable base of this API, used in
	// verification links.
	PublicBaseURL string
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Accounts ports.AccountRepository
	Tokens   ports.VerificationTokenRepository
	Secrets  ports.SecretGenerator
	Tx       ports.Transactor
	Hasher   ports.PasswordHasher
	Issuer   ports.TokenIssuer
	Mailer   ports.EmailSender
}

// AuthService implements registration, email verification and login.
type AuthService struct {
	accounts ports.AccountRepository
	tokens   *VerificationTokens
	tx       ports.Transactor
	hasher   ports.PasswordHasher
	issuer   ports.TokenIssuer
	mailer   ports.EmailSender
	cfg      AuthConfig
	now      func() time.Time
	log      zerolog.Logger
	decoy    string
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(deps AuthDeps, cfg AuthConfig, log zerolog.Logger, opts ...Option) *AuthService {
	s := applyOptions(opts)
	svc := &AuthService{
		accounts: deps.Accounts,
		tokens:   NewVerificationTokens(deps.Tokens, deps.Secrets, cfg.VerificationTTL, opts...),
		tx:       deps.Tx,
		hasher:   deps.Hasher,
		issuer:   deps.Issuer,
		mailer:   deps.Mailer,
		cfg:      cfg,
		now:      s.now,
		log:      log,
	}
	// Unknown emails still pay for one hash comparison.
	if decoy, err := deps.Hasher.Hash(newID()); err == nil {
		svc.decoy = decoy
	}
	return svc
}

// Register creates an account for email and returns its id. A second account
// with the same normalized email fails with a conflict.
func (s *AuthService) Register(ctx context.Context, email, password string) (string, error) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" || password == "" {
		return "", domain.Fail(domain.KindValidation, "email and password are required")
	}

	existing, err := s.accounts.FindByNormalizedEmail(ctx, normalized)
	switch {
	case err == nil && existing != nil:
		return "", domain.Conflict("an account with this email already exists", "")
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("register: lookup account: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("register: hash password: %w", err)
	}

	status := domain.StatusPendingEmail
	if !s.cfg.RequireEmailVerification {
		status = domain.StatusPendingApproval
	}
	account := domain.NewAccount(newID(), email, hash, domain.RoleUser, status, s.now())

	var rawToken string
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}
		if status != domain.StatusPendingEmail {
			return nil
		}
		raw, err := s.tokens.Create(ctx, account.ID)
		if err != nil {
			return err
		}
		rawToken = raw
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", domain.Conflict("an account with this email already exists", constraintOf(err))
		}
		if _, ok := domain.KindOf(err); ok {
			return "", err
		}
		return "", fmt.Errorf("register: %w", err)
	}

	if rawToken != "" {
		s.sendVerification(ctx, account, rawToken)
	}

	s.log.Info().Str("account_id", account.ID).Str("status", account.Status.String()).Msg("account registered")
	return account.ID, nil
}

// VerifyEmail consumes rawToken and advances the owning account. Token
// consumption and the status change commit together.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (*domain.VerificationOutcome, error) {
	var outcome *domain.VerificationOutcome
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		token, err := s.tokens.GetByRawToken(ctx, rawToken)
		if err != nil {
			return err
		}
		if token.Used {
			return domain.Conflict("email address has already been verified", "")
		}
		now := s.now()
		if token.Expired(now) {
			return domain.Fail(domain.KindExpired, "verification link has expired")
		}
		if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
			return err
		}

		account, err := s.accounts.FindByID(ctx, token.AccountID)
		if err != nil {
			return err
		}
		if account.IsDeleted() {
			return domain.NotFound("account")
		}

		if account.Status == domain.StatusPendingEmail {
			next := domain.StatusPendingApproval
			if s.cfg.AutoApprove {
				next = domain.StatusActive
			}
			if err := account.TransitionTo(next, now); err != nil {
				return err
			}
			if err := s.accounts.Save(ctx, account); err != nil {
				return err
			}
		}

		outcome = verificationOutcome(account)
		return nil
	})
	if err != nil {
		if kind, ok := domain.KindOf(err); ok {
			s.log.Debug().Str("kind", kind.String()).Msg("email verification rejected")
			return nil, err
		}
		return nil, fmt.Errorf("verify email: %w", err)
	}

	s.log.Info().Str("account_id", outcome.AccountID).Str("status", outcome.Status.String()).Msg("email verified")
	return outcome, nil
}

// ResendVerification issues a fresh verification link for an account still
// waiting on email verification. Unknown or already verified emails succeed
// silently.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	account, err := s.accounts.FindByNormalizedEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("resend verification: lookup account: %w", err)
	}
	if account.Status != domain.StatusPendingEmail {
		s.log.Debug().Str("account_id", account.ID).Msg("resend skipped, account not pending email")
		return nil
	}

	var rawToken string
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		raw, err := s.tokens.Create(ctx, account.ID)
		rawToken = raw
		return err
	})
	if err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}

	s.sendVerification(ctx, account, rawToken)
	return nil
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords are indistinguishable; valid credentials on a non-Active account
// are forbidden.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	account, err := s.accounts.FindByNormalizedEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.hasher.Verify(s.decoy, password)
			return nil, domain.Fail(domain.KindUnauthorized, invalidCredentials)
		}
		return nil, fmt.Errorf("login: lookup account: %w", err)
	}

	if !s.hasher.Verify(account.PasswordHash, password) {
		return nil, domain.Fail(domain.KindUnauthorized, invalidCredentials)
	}

	if account.Status != domain.StatusActive {
		return nil, domain.Fail(domain.KindForbidden, account.Status.LoginBlockedMessage())
	}

	token, expiresAt, err := s.issuer.IssueForAccount(account.ID, account.Email, account.Role.String())
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("login succeeded")
	return &ports.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		AccountID: account.ID,
		Role:      account.Role.String(),
	}, nil
}

// sendVerification hands the raw token to the mailer. The account is already
// durable at this point, so a delivery failure is logged and the user can
// request a new link.
func (s *AuthService) sendVerification(ctx context.Context, account *domain.Account, rawToken string) {
	link := strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/auth/verify-email?token=" + url.QueryEscape(rawToken)
	body := fmt.Sprintf(
		"Welcome!\n\nConfirm your email address by opening the link below:\n\n%s\n\nThe link expires in %s.\n",
		link, s.tokens.ttl,
	)
	if err := s.mailer.Send(ctx, account.Email, "Verify your email address", body); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to send verification email")
	}
}

// verificationOutcome reports the account's status after verification. The
// email is proven either way; only Active accounts can sign in.
func verificationOutcome(account *domain.Account) *domain.VerificationOutcome {
	out := &domain.VerificationOutcome{AccountID: account.ID, Status: account.Status}
	const verified = "Your email address has been verified."
	switch account.Status {
	case domain.StatusActive:
		out.Code = domain.VerifyCodeVerified
		out.Message = verified + " You can now sign in."
	case domain.StatusPendingApproval:
		out.Code = domain.VerifyCodePendingApproval
		out.Message = verified + " An administrator will review your account."
	case domain.StatusDenied:
		out.Code = domain.VerifyCodeDenied
		out.Message = verified + " However, your " + domain.StatusDenied.LoginBlockedMessage() + "."
	default:
		out.Code = domain.VerifyCodeDisabled
		out.Message = verified + " However, your " + account.Status.LoginBlockedMessage() + "."
	}
	return out
}

func constraintOf(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Constraint
	}
	return ""
}
