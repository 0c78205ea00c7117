package business

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/matthewhartstonge/argon2"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/i18n"
	"github.com/Agurato/kolnoa/internal/model"
)

const (
	minPasswordLength = 8
	maxDisplayName    = 50
	maxBioRunes       = 500
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_.-]{2,25}$`)

type UserStorer interface {
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)

	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error)

	CreateProfile(ctx context.Context, profile *model.Profile) error
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	SetProfilePassword(ctx context.Context, id, passwordHash string) error
}

type UserManagerWrapper struct {
	UserStorer

	isAdmin func(username string) bool
	now     func() time.Time
}

// NewUserManagerWrapper creates a new UserManagerWrapper.
// isAdmin tells which usernames are granted the admin flag when they sign up.
func NewUserManagerWrapper(us UserStorer, isAdmin func(username string) bool) *UserManagerWrapper {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &UserManagerWrapper{
		UserStorer: us,
		isAdmin:    isAdmin,
		now:        time.Now,
	}
}

// NormalizeUsername lowercases and trims a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CreateUser checks that the user and password follow specific rules and adds it to the database
func (umw UserManagerWrapper) CreateUser(ctx context.Context, username, password1, password2 string) (*model.Profile, error) {
	username = NormalizeUsername(username)

	// Check username format
	if !usernameRegex.MatchString(username) {
		return nil, fmt.Errorf("username must be 2 to 25 characters among a-z, 0-9, '_', '.' and '-': %w", model.ErrInvalidInput)
	}

	// Check if username is not already taken
	if available, err := umw.UserStorer.IsUsernameAvailable(ctx, username); err != nil {
		return nil, err
	} else if !available {
		return nil, fmt.Errorf("this username is already taken: %w", model.ErrAlreadyExists)
	}

	encoded, err := checkAndHashPassword(password1, password2)
	if err != nil {
		return nil, err
	}

	profile := &model.Profile{
		ID:              uuid.NewString(),
		Username:        username,
		PasswordHash:    encoded,
		IsAdmin:         umw.isAdmin(username),
		PreferredLocale: i18n.Hebrew,
		CreatedAt:       umw.now(),
	}
	if err := umw.UserStorer.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("error adding user: %w", err)
	}
	log.Info().Str("username", username).Bool("admin", profile.IsAdmin).Msg("User created")
	return profile, nil
}

// CheckLogin checks that the login is correct and returns the user it corresponds to
func (umw UserManagerWrapper) CheckLogin(ctx context.Context, username, password string) (*model.Profile, error) {
	username = NormalizeUsername(username)
	if !usernameRegex.MatchString(username) {
		return nil, fmt.Errorf("authentication failed: %w", model.ErrUnauthorized)
	}

	profile, err := umw.UserStorer.GetProfileByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("authentication failed: %w", model.ErrUnauthorized)
	} else if err != nil {
		return nil, err
	}

	// Check if the username/password combination is valid
	if ok, err := argon2.VerifyEncoded([]byte(password), []byte(profile.PasswordHash)); err != nil {
		return nil, fmt.Errorf("an error occured while logging you in: %w", err)
	} else if !ok {
		return nil, fmt.Errorf("authentication failed: %w", model.ErrUnauthorized)
	}

	// Admins listed in the configuration keep their flag even when it was added after sign up
	if !profile.IsAdmin && umw.isAdmin(profile.Username) {
		profile.IsAdmin = true
		if err := umw.UserStorer.UpdateProfile(ctx, profile); err != nil {
			log.Error().Err(err).Str("username", profile.Username).Msg("Could not grant admin flag")
		}
	}
	return profile, nil
}

// SetUserPassword checks that the password change follows specific rules and updates it in the database
func (umw UserManagerWrapper) SetUserPassword(ctx context.Context, username, oldPassword, password1, password2 string) error {
	profile, err := umw.CheckLogin(ctx, username, oldPassword)
	if err != nil {
		return err
	}
	encoded, err := checkAndHashPassword(password1, password2)
	if err != nil {
		return err
	}
	if err := umw.UserStorer.SetProfilePassword(ctx, profile.ID, encoded); err != nil {
		return fmt.Errorf("an error occured while saving your password: %w", err)
	}
	return nil
}

// GetUser returns a profile from its ID
func (umw UserManagerWrapper) GetUser(ctx context.Context, id string) (*model.Profile, error) {
	profile, err := umw.UserStorer.GetProfileByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get user from ID '%s': %w", id, err)
	}
	return profile, nil
}

// GetProfile returns a profile from its username
func (umw UserManagerWrapper) GetProfile(ctx context.Context, username string) (*model.Profile, error) {
	profile, err := umw.UserStorer.GetProfileByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		return nil, fmt.Errorf("could not get profile '%s': %w", username, err)
	}
	return profile, nil
}

// UpdateProfile changes the public fields of a profile
func (umw UserManagerWrapper) UpdateProfile(ctx context.Context, id, displayName, bio, avatarURL, locale string) (*model.Profile, error) {
	profile, err := umw.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	bio = strings.TrimSpace(bio)
	avatarURL = strings.TrimSpace(avatarURL)
	if utf8.RuneCountInString(displayName) > maxDisplayName {
		return nil, fmt.Errorf("display name must be at most %d characters: %w", maxDisplayName, model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(bio) > maxBioRunes {
		return nil, fmt.Errorf("bio must be at most %d characters: %w", maxBioRunes, model.ErrInvalidInput)
	}
	if avatarURL != "" && !strings.HasPrefix(avatarURL, "https://") {
		return nil, fmt.Errorf("avatar must be an https URL: %w", model.ErrInvalidInput)
	}
	if locale != "" && !i18n.IsSupported(locale) {
		return nil, fmt.Errorf("unsupported locale %q: %w", locale, model.ErrInvalidInput)
	}

	profile.DisplayName = displayName
	profile.Bio = bio
	profile.AvatarURL = avatarURL
	if locale != "" {
		profile.PreferredLocale = locale
	}
	if err := umw.UserStorer.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func checkAndHashPassword(password1, password2 string) (string, error) {
	// Check if both passwords are equal
	if password1 != password2 {
		return "", fmt.Errorf("passwords don't match: %w", model.ErrInvalidInput)
	}
	// Check if password is at least 8 characters
	if utf8.RuneCountInString(password1) < minPasswordLength {
		return "", fmt.Errorf("passwords must be at least %d characters long: %w", minPasswordLength, model.ErrInvalidInput)
	}

	argon := argon2.DefaultConfig()
	encoded, err := argon.HashEncoded([]byte(password1))
	if err != nil {
		return "", fmt.Errorf("an error occured while hashing the password: %w", err)
	}
	return string(encoded), nil
}
