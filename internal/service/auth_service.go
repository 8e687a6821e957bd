package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pipal/internal/cache"
	"pipal/internal/middleware"
	"pipal/internal/models"
	"pipal/internal/repository"
	"pipal/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// AuthService is the credential store: it issues and verifies access tokens
// and single-use websocket tickets.
type AuthService struct {
	users    repository.UserRepository
	rdb      *redis.Client
	secret   string
	tokenTTL time.Duration
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(users repository.UserRepository, rdb *redis.Client, secret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &AuthService{users: users, rdb: rdb, secret: secret, tokenTTL: tokenTTL}
}

// Login checks email and password and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Same answer for unknown email and wrong password.
	if user == nil || user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.IsActive {
		return nil, models.NewUnauthorizedError("Account is disabled")
	}

	token, err := middleware.IssueToken(s.secret, user.ID, user.Role, s.tokenTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Verify resolves a bearer token to an active user.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.User, error) {
	userID, err := middleware.ParseToken(s.secret, token)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	return s.activeUser(ctx, userID)
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) activeUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("User no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewUnauthorizedError("Account is disabled")
	}
	return user, nil
}

// IssueWSTicket stores a short-lived ticket a browser can pass on the websocket URL.
func (s *AuthService) IssueWSTicket(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.rdb == nil {
		return "", models.NewStoreUnavailableError(errors.New("redis not configured"))
	}
	ticket := uuid.NewString()
	if err := s.rdb.Set(ctx, cache.WSTicketKey(ticket), userID.String(), cache.WSTicketTTL).Err(); err != nil {
		return "", models.NewStoreUnavailableError(err)
	}
	return ticket, nil
}

// ConsumeWSTicket redeems a ticket once and returns the active user it was issued to.
func (s *AuthService) ConsumeWSTicket(ctx context.Context, ticket string) (*models.User, error) {
	if s.rdb == nil {
		return nil, models.NewStoreUnavailableError(errors.New("redis not configured"))
	}
	if ticket == "" {
		return nil, models.NewUnauthorizedError("Missing ticket")
	}
	raw, err := s.rdb.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, models.NewUnauthorizedError("Invalid or expired ticket")
	}
	if err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired ticket")
	}
	return s.activeUser(ctx, userID)
}

// HashPassword returns the bcrypt hash stored in users.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// RegisterInput carries a self-service signup.
type RegisterInput struct {
	Email     string          `json:"email"`
	Username  string          `json:"username"`
	Password  string          `json:"password"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Role      models.UserRole `json:"role"`
}

// Register creates a buyer or seller account and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Role == "" {
		in.Role = models.RoleBuyer
	}

	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateName("First name", in.FirstName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateName("Last name", in.LastName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	// Admins are never self-registered.
	if in.Role != models.RoleBuyer && in.Role != models.RoleSeller {
		return nil, models.NewValidationError("Role must be buyer or seller")
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		existing, err = s.users.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, err
		}
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists with this email or username")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		IsActive:     true,
	}
	// The unique indexes still catch a concurrent signup that passed the lookup.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := middleware.IssueToken(s.secret, user.ID, user.Role, s.tokenTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &LoginResult{Token: token, User: user}, nil
}
