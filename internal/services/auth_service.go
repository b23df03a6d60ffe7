package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/SDARS-2025/discipline-service/internal/auth"
	apperrors "github.com/SDARS-2025/discipline-service/internal/errors"
	"github.com/SDARS-2025/discipline-service/internal/events"
	"github.com/SDARS-2025/discipline-service/internal/mailer"
	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
	"github.com/SDARS-2025/discipline-service/internal/validator"
)

// AuthService owns credential verification, session issuance and the
// email confirmation state machine.
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	ConfirmEmail(ctx context.Context, req *ConfirmEmailRequest) (*models.User, error)
}

// ===== REQUEST / RESPONSE STRUCTS =====

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,not_blank,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,user_role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// ConfirmEmailRequest carries the confirmation token plus one of the
// identity hints the mailed link embeds. The hint is what lets a
// retried click on an already-consumed link come back as "already
// confirmed" instead of "invalid token".
type ConfirmEmailRequest struct {
	Token         string `json:"token" form:"token"`
	Email         string `json:"email" form:"email"`
	ExchangeToken string `json:"exchange_token" form:"exchange"`
}

type authService struct {
	repo      repositories.Repository
	tokens    *auth.TokenService
	mailer    mailer.Mailer
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator

	emailTokenTTL  time.Duration
	confirmBaseURL string
}

func NewAuthService(
	repo repositories.Repository,
	tokens *auth.TokenService,
	mail mailer.Mailer,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
	emailTokenTTL time.Duration,
	confirmBaseURL string,
) AuthService {
	return &authService{
		repo:           repo,
		tokens:         tokens,
		mailer:         mail,
		publisher:      publisher,
		logger:         logger,
		validator:      v,
		emailTokenTTL:  emailTokenTTL,
		confirmBaseURL: confirmBaseURL,
	}
}

// ===== REGISTRATION =====

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return nil, ve
		}
		return nil, err
	}

	role := models.RoleUser
	if req.Role != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok {
			return nil, ErrInvalidRole
		}
		role = parsed
	}

	exists, err := s.repo.User().ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := auth.NewConfirmationToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation token: %w", err)
	}
	expiry := time.Now().Add(s.emailTokenTTL)

	user := &models.User{
		Name:             req.Name,
		Email:            req.Email,
		PasswordHash:     hash,
		Role:             role,
		EmailConfirmed:   false,
		EmailToken:       &token,
		EmailTokenExpiry: &expiry,
	}

	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)

	// The user row is durable at this point; mail and event delivery
	// are best-effort side channels.
	s.sendConfirmationMail(ctx, user, token)
	if err := s.publisher.Publish(ctx, events.NewUserEvent(events.UserRegistered, user)); err != nil {
		s.logger.Warn("failed to publish registration event", "user_id", user.ID, "error", err)
	}

	return user, nil
}

func (s *authService) sendConfirmationMail(ctx context.Context, user *models.User, token string) {
	exchange, err := s.tokens.IssueExchange(user.ID, user.Email)
	if err != nil {
		s.logger.Warn("failed to issue exchange token", "user_id", user.ID, "error", err)
		exchange = ""
	}

	query := url.Values{}
	query.Set("token", token)
	query.Set("email", user.Email)
	if exchange != "" {
		query.Set("exchange", exchange)
	}
	confirmURL := s.confirmBaseURL + "?" + query.Encode()

	if err := s.mailer.SendConfirmation(ctx, user.Email, user.Name, confirmURL); err != nil {
		s.logger.Warn("failed to send confirmation mail", "user_id", user.ID, "error", err)
	}
}

// ===== LOGIN =====

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return nil, ve
		}
		return nil, err
	}

	user, err := s.repo.User().GetByEmail(ctx, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Correct credentials on an unconfirmed account get their own
	// rejection so the client can prompt for confirmation rather than
	// re-entry of the password.
	if !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	token, err := s.tokens.IssueSession(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	return &LoginResponse{Token: token, User: user}, nil
}

// ===== EMAIL CONFIRMATION =====

// ConfirmEmail drives the Unconfirmed -> Confirmed transition.
//
// The presented token is matched against stored tokens first. When it
// matches nothing, the request's identity hint decides between the
// "already confirmed" outcome (the token was consumed by an earlier
// click) and a plain invalid-token rejection.
func (s *authService) ConfirmEmail(ctx context.Context, req *ConfirmEmailRequest) (*models.User, error) {
	if req.Token == "" {
		return nil, ErrConfirmationRequired
	}

	user, err := s.repo.User().GetByEmailToken(ctx, req.Token)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up confirmation token: %w", err)
	}

	if user != nil {
		if user.EmailTokenExpiry == nil || time.Now().After(*user.EmailTokenExpiry) {
			return nil, ErrConfirmationExpired
		}

		// Single use is enforced by clearing, not by a "used" flag.
		user.EmailConfirmed = true
		user.EmailToken = nil
		user.EmailTokenExpiry = nil

		if err := s.repo.User().Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to confirm user: %w", err)
		}

		s.logger.Info("email confirmed", "user_id", user.ID)
		if err := s.publisher.Publish(ctx, events.NewUserEvent(events.UserConfirmed, user)); err != nil {
			s.logger.Warn("failed to publish confirmation event", "user_id", user.ID, "error", err)
		}

		return user, nil
	}

	email := req.Email
	if email == "" && req.ExchangeToken != "" {
		claims, err := s.tokens.VerifyExchange(req.ExchangeToken)
		if err != nil {
			return nil, ErrConfirmationInvalid
		}
		email = claims.Email
	}
	if email == "" {
		return nil, ErrConfirmationInvalid
	}

	known, err := s.repo.User().GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrConfirmationInvalid
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if known.EmailConfirmed {
		return nil, ErrAlreadyConfirmed
	}

	return nil, ErrConfirmationInvalid
}
