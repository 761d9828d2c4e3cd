package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/auth"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository"
	"github.com/google/uuid"
	"github.com/hay-kot/criterio"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	telegramLinkTTL   = 10 * time.Minute
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// RegisterInput данные для регистрации; поля профиля используются в зависимости от роли
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       model.Role
	HourlyRate int
	Bio        string
	Major      string
	Year       int
}

// Validate проверяет поля регистрации
func (in RegisterInput) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("username", in.Username, validUsername),
		criterio.Run("email", in.Email, validEmail),
		criterio.Run("password", in.Password, validPassword),
		criterio.Run("role", in.Role, selfServiceRole),
		criterio.Run("hourly_rate", in.HourlyRate, nonNegative),
		criterio.Run("year", in.Year, nonNegative),
	)
}

// UpdateProfileInput частичное обновление профиля, nil означает "не менять"
type UpdateProfileInput struct {
	FirstName  *string
	LastName   *string
	HourlyRate *int
	Bio        *string
	Major      *string
	Year       *int
}

func (in UpdateProfileInput) Validate() error {
	var errs criterio.FieldErrorsBuilder
	if in.HourlyRate != nil {
		if err := nonNegative(*in.HourlyRate); err != nil {
			errs = errs.Append("hourly_rate", err)
		}
	}
	if in.Year != nil {
		if err := nonNegative(*in.Year); err != nil {
			errs = errs.Append("year", err)
		}
	}
	return errs.ToError()
}

type UserService struct {
	store       repository.Store
	tokens      *auth.TokenManager
	hasher      *auth.Hasher
	revocations auth.RevocationList
	linkCodes   auth.LinkCodes
	logger      *zap.Logger
}

func NewUserService(
	store repository.Store,
	tokens *auth.TokenManager,
	hasher *auth.Hasher,
	revocations auth.RevocationList,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		store:       store,
		tokens:      tokens,
		hasher:      hasher,
		revocations: revocations,
		linkCodes:   auth.NewMemoryLinkCodes(telegramLinkTTL),
		logger:      logger,
	}
}

// WithLinkCodes подменяет хранилище кодов привязки Telegram
func (s *UserService) WithLinkCodes(codes auth.LinkCodes) *UserService {
	s.linkCodes = codes
	return s
}

// Register создаёт пользователя и профиль его роли в одной транзакции
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.Profile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return nil, apperror.InvalidInput(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		PasswordHash: hash,
	}
	profile := &model.Profile{User: user}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}

		switch user.Role {
		case model.RoleTutor:
			profile.Tutor = &model.TutorProfile{UserID: user.ID, HourlyRate: in.HourlyRate, Bio: in.Bio}
			return tx.Profiles().CreateTutor(ctx, profile.Tutor)
		case model.RoleStudent:
			profile.Student = &model.StudentProfile{UserID: user.ID, Major: in.Major, Year: in.Year}
			return tx.Profiles().CreateStudent(ctx, profile.Student)
		case model.RoleAdmin:
			return nil
		}
		return fmt.Errorf("unexpected role %q", user.Role)
	})
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)

	return profile, nil
}

// Login проверяет пароль и выпускает токен
func (s *UserService) Login(ctx context.Context, email, password string) (string, *auth.Identity, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}
	if user == nil {
		return "", nil, apperror.ErrInvalidCredentials
	}

	ok, err := s.hasher.Check(user.PasswordHash, password)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}
	if !ok {
		return "", nil, apperror.ErrInvalidCredentials
	}

	token, identity, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))
	return token, identity, nil
}

// Authenticate проверяет токен и что он не был отозван
func (s *UserService) Authenticate(ctx context.Context, token string) (*auth.Identity, error) {
	identity, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, identity.TokenID)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if revoked {
		return nil, apperror.ErrTokenRevoked
	}
	return identity, nil
}

// Logout отзывает токен до конца срока его действия
func (s *UserService) Logout(ctx context.Context, identity *auth.Identity) error {
	if err := s.revocations.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.logger.Info("User logged out", zap.Int64("user_id", identity.UserID))
	return nil
}

// GetProfile пользователь вместе с профилем роли
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	return loadProfile(ctx, s.store, userID)
}

// UpdateProfile меняет переданные поля пользователя и профиля
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (*model.Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, apperror.InvalidInput(err)
	}

	var profile *model.Profile
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		profile, err = loadProfile(ctx, tx, userID)
		if err != nil {
			return err
		}

		user := profile.User
		if in.FirstName != nil {
			user.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			user.LastName = strings.TrimSpace(*in.LastName)
		}
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}

		if t := profile.Tutor; t != nil {
			if in.HourlyRate != nil {
				t.HourlyRate = *in.HourlyRate
			}
			if in.Bio != nil {
				t.Bio = *in.Bio
			}
			if err := tx.Profiles().UpdateTutor(ctx, t); err != nil {
				return err
			}
		}
		if st := profile.Student; st != nil {
			if in.Major != nil {
				st.Major = *in.Major
			}
			if in.Year != nil {
				st.Year = *in.Year
			}
			if err := tx.Profiles().UpdateStudent(ctx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.Info("Profile updated", zap.Int64("user_id", userID))
	return profile, nil
}

// ListUsers все пользователи, для администратора
func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SeedAdmin создаёт администратора, если пользователя с таким email ещё нет
func (s *UserService) SeedAdmin(ctx context.Context, username, email, password string) error {
	existing, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	admin := &model.User{Username: username, Email: email, FirstName: "Admin", Role: model.RoleAdmin, PasswordHash: hash}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		if errors.Is(err, apperror.ErrUserExists) {
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}

	s.logger.Info("Admin user created", zap.Int64("user_id", admin.ID), zap.String("email", email))
	return nil
}

// IssueTelegramLinkCode выдаёт одноразовый код для команды /start в боте
func (s *UserService) IssueTelegramLinkCode(ctx context.Context, userID int64) (string, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("issue link code: %w", err)
	}
	if user == nil {
		return "", apperror.ErrUserNotFound
	}

	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	if err := s.linkCodes.Put(ctx, code, userID, telegramLinkTTL); err != nil {
		return "", fmt.Errorf("issue link code: %w", err)
	}
	return code, nil
}

// LinkTelegram привязывает чат к пользователю по коду
func (s *UserService) LinkTelegram(ctx context.Context, code string, chatID int64) (*model.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	userID, ok, err := s.linkCodes.Take(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("link telegram: %w", err)
	}
	if !ok {
		return nil, apperror.Validation("link code is invalid or expired")
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("link telegram: %w", err)
	}
	if user == nil {
		return nil, apperror.ErrUserNotFound
	}

	user.TelegramChatID = &chatID
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("link telegram: %w", err)
	}

	s.logger.Info("Telegram chat linked", zap.Int64("user_id", userID), zap.Int64("chat_id", chatID))
	return user, nil
}

func loadProfile(ctx context.Context, store repository.Store, userID int64) (*model.Profile, error) {
	user, err := store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperror.ErrUserNotFound
	}

	profile := &model.Profile{User: user}
	switch user.Role {
	case model.RoleTutor:
		if profile.Tutor, err = store.Profiles().GetTutor(ctx, userID); err != nil {
			return nil, fmt.Errorf("get tutor profile: %w", err)
		}
	case model.RoleStudent:
		if profile.Student, err = store.Profiles().GetStudent(ctx, userID); err != nil {
			return nil, fmt.Errorf("get student profile: %w", err)
		}
	case model.RoleAdmin:
	}
	return profile, nil
}

func validUsername(s string) error {
	if !usernamePattern.MatchString(s) {
		return errors.New("must be 3-32 characters of letters, digits, dot, dash or underscore")
	}
	return nil
}

func validEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return errors.New("must be a valid email address")
	}
	return nil
}

func validPassword(s string) error {
	if utf8.RuneCountInString(s) < minPasswordLength {
		return fmt.Errorf("must be at least %d characters", minPasswordLength)
	}
	return nil
}

func selfServiceRole(r model.Role) error {
	switch r {
	case model.RoleStudent, model.RoleTutor:
		return nil
	case model.RoleAdmin:
		return errors.New("admin accounts cannot be self-registered")
	}
	return fmt.Errorf("unknown role %q", r)
}

func nonNegative(n int) error {
	if n < 0 {
		return errors.New("must not be negative")
	}
	return nil
}
