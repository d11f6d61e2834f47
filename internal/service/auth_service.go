package service

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/content"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against on unknown emails so a miss costs as much as
// a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("inkwell-timing-equalizer"), bcrypt.DefaultCost)

// AuthService registers accounts and verifies credentials.
type AuthService struct {
	userRepo repository.UserRepository
	cost     int
}

type RegisterInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Telephone      string
	Bio            *string
	ProfilePicture *string
}

// NewAuthService uses bcrypt.DefaultCost when cost is zero.
func NewAuthService(userRepo repository.UserRepository, cost int) *AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{userRepo: userRepo, cost: cost}
}

// Register creates a user. The password is stored only as a bcrypt hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (_ *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Register")
	defer func() {
		observability.EndSpan(span, err)
		middleware.AuthAttempts.WithLabelValues("signup", authOutcome(err)).Inc()
	}()

	in = normalizeRegistration(in)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:          in.Email,
		Password:       string(hash),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Telephone:      in.Telephone,
		Bio:            nonEmpty(in.Bio),
		ProfilePicture: nonEmpty(in.ProfilePicture),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CheckRegistration runs the checks Register would, including the duplicate
// email lookup, without writing anything. Callers use it to reject a signup
// before storing its attachments.
func (s *AuthService) CheckRegistration(ctx context.Context, in RegisterInput) error {
	in = normalizeRegistration(in)
	if err := validateRegistration(in); err != nil {
		return err
	}
	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewDuplicateEmailError(in.Email)
	}
	return nil
}

func normalizeRegistration(in RegisterInput) RegisterInput {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Telephone = strings.TrimSpace(in.Telephone)
	return in
}

func validateRegistration(in RegisterInput) error {
	required := []struct{ field, value string }{
		{"First name", in.FirstName},
		{"Last name", in.LastName},
		{"Telephone", in.Telephone},
		{"Email", in.Email},
		{"Password", in.Password},
	}
	for _, r := range required {
		if r.value == "" {
			return models.NewValidationError(r.field + " is required")
		}
	}

	if err := validation.ValidateName("first name", in.FirstName); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateName("last name", in.LastName); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePhone(in.Telephone); err != nil {
		return models.NewValidationError(err.Error())
	}
	if pic := nonEmpty(in.ProfilePicture); pic != nil && !content.IsSafeImageURL(*pic) {
		return models.NewValidationError("Profile picture must be an image URL or data URI")
	}
	return nil
}

// Verify checks an email and password pair. Unknown emails report NotFound,
// wrong passwords InvalidCredential.
func (s *AuthService) Verify(ctx context.Context, email, password string) (_ *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Verify")
	defer func() {
		observability.EndSpan(span, err)
		middleware.AuthAttempts.WithLabelValues("signin", authOutcome(err)).Inc()
	}()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, models.NewNotFoundError("User", email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, models.NewInvalidCredentialError()
		}
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

func authOutcome(err error) string {
	if err == nil {
		return "success"
	}
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return "invalid_input"
	case models.CodeDuplicateEmail:
		return "duplicate"
	case models.CodeNotFound:
		return "unknown_email"
	case models.CodeInvalidCredential:
		return "bad_password"
	default:
		return "error"
	}
}

// nonEmpty maps nil and blank strings to nil.
func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
