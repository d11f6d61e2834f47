package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"inkwell/internal/cache"
	"inkwell/internal/content"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const maxBioLen = 2000

type UserService struct {
	userRepo repository.UserRepository
	cache    *cache.Cache
}

// ProfileUpdate is a partial profile edit. A nil field is left unchanged;
// an empty string clears an optional field.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	Telephone      *string
	Bio            *string
	ProfilePicture *string
}

func NewUserService(userRepo repository.UserRepository, c *cache.Cache) *UserService {
	return &UserService{userRepo: userRepo, cache: c}
}

// GetProfile looks up a profile by exact email.
func (s *UserService) GetProfile(ctx context.Context, email string) (_ *models.Profile, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "GetProfile")
	defer func() { observability.EndSpan(span, err) }()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, models.NewValidationError("Email is required")
	}

	var profile models.Profile
	err = s.cache.Aside(ctx, cache.ProfileKey(email), &profile, cache.ProfileTTL, func() error {
		user, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil {
			return models.NewNotFoundError("User", email)
		}
		profile = *user.Profile()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies the non-nil fields of in to the user with email.
func (s *UserService) UpdateProfile(ctx context.Context, email string, in ProfileUpdate) (_ *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "UpdateProfile")
	defer func() { observability.EndSpan(span, err) }()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, models.NewValidationError("Email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}

	fields, err := profileFields(in)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	s.cache.InvalidateProfile(ctx, email)
	// feed entries embed the author
	s.cache.InvalidateFeed(ctx)

	return s.userRepo.GetByID(ctx, user.ID)
}

// profileFields validates in and maps it to column updates. Required
// fields cannot be cleared; optional ones become NULL when blank.
func profileFields(in ProfileUpdate) (map[string]any, error) {
	fields := make(map[string]any)

	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if err := validation.ValidateName("first name", v); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["first_name"] = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if err := validation.ValidateName("last name", v); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["last_name"] = v
	}
	if in.Telephone != nil {
		v := strings.TrimSpace(*in.Telephone)
		if err := validation.ValidatePhone(v); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["telephone"] = v
	}
	if in.Bio != nil {
		if bio := nonEmpty(in.Bio); bio == nil {
			fields["bio"] = nil
		} else {
			if utf8.RuneCountInString(*bio) > maxBioLen {
				return nil, models.NewValidationError("Bio too long (max 2000 characters)")
			}
			fields["bio"] = *bio
		}
	}
	if in.ProfilePicture != nil {
		if pic := nonEmpty(in.ProfilePicture); pic == nil {
			fields["profile_picture"] = nil
		} else {
			if !content.IsSafeImageURL(*pic) {
				return nil, models.NewValidationError("Profile picture must be an image URL or data URI")
			}
			fields["profile_picture"] = *pic
		}
	}
	return fields, nil
}
