package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/auth"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	profile, err := e.users.Register(ctx, service.RegisterInput{
		Username:   "alice",
		Email:      "Alice@Example.com",
		Password:   "password1",
		FirstName:  " Alice ",
		Role:       model.RoleTutor,
		HourlyRate: 50,
		Bio:        "math",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.User.FirstName)
	require.NotNil(t, profile.Tutor)
	assert.Equal(t, 50, profile.Tutor.HourlyRate)
	assert.Nil(t, profile.Student)
	assert.NotEqual(t, "password1", profile.User.PasswordHash)

	_, err = e.users.Register(ctx, service.RegisterInput{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "password1",
		Role:     model.RoleStudent,
	})
	assert.ErrorIs(t, err, apperror.ErrUserExists)
}

func TestRegister_Validation(t *testing.T) {
	e := newEnv(t)

	_, err := e.users.Register(context.Background(), service.RegisterInput{
		Username: "x",
		Email:    "not-an-email",
		Password: "short",
		Role:     model.RoleAdmin,
	})
	require.ErrorIs(t, err, apperror.ErrValidation)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 4)

	users, err := e.users.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	student := e.student(t)

	_, _, err := e.users.Login(ctx, student.Email, "wrong-password")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	_, _, err = e.users.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	token, identity, err := e.users.Login(ctx, student.Email, "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, student.ID, identity.UserID)
	assert.Equal(t, model.RoleStudent, identity.Role)

	got, err := e.users.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, identity.TokenID, got.TokenID)

	require.NoError(t, e.users.Logout(ctx, got))

	_, err = e.users.Authenticate(ctx, token)
	assert.ErrorIs(t, err, apperror.ErrTokenRevoked)
	assert.ErrorIs(t, err, apperror.ErrAuthentication)

	// новый вход выдаёт новый токен
	token2, _, err := e.users.Login(ctx, student.Email, "correct-horse")
	require.NoError(t, err)
	_, err = e.users.Authenticate(ctx, token2)
	assert.NoError(t, err)

	_, err = e.users.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, apperror.ErrInvalidToken)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tutor := e.tutor(t)

	rate := 75
	bio := "physics"
	name := "Bob"
	profile, err := e.users.UpdateProfile(ctx, tutor.ID, service.UpdateProfileInput{
		FirstName:  &name,
		HourlyRate: &rate,
		Bio:        &bio,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob", profile.User.FirstName)
	assert.Equal(t, 75, profile.Tutor.HourlyRate)

	got, err := e.users.GetProfile(ctx, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, "physics", got.Tutor.Bio)
	assert.Equal(t, tutor.LastName, got.User.LastName)

	negative := -1
	_, err = e.users.UpdateProfile(ctx, tutor.ID, service.UpdateProfileInput{HourlyRate: &negative})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.users.GetProfile(ctx, 9999)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestTelegramLinking(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	student := e.student(t)

	code, err := e.users.IssueTelegramLinkCode(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, code, 10)

	user, err := e.users.LinkTelegram(ctx, code, 424242)
	require.NoError(t, err)
	require.NotNil(t, user.TelegramChatID)
	assert.EqualValues(t, 424242, *user.TelegramChatID)

	// код одноразовый
	_, err = e.users.LinkTelegram(ctx, code, 1)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.users.IssueTelegramLinkCode(ctx, 9999)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	// правка профиля не трогает привязанный чат
	name := "Renamed"
	profile, err := e.users.UpdateProfile(ctx, student.ID, service.UpdateProfileInput{FirstName: &name})
	require.NoError(t, err)
	require.NotNil(t, profile.User.TelegramChatID)
	assert.EqualValues(t, 424242, *profile.User.TelegramChatID)
}

func TestTelegramLinking_SharedCodes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	student := e.student(t)

	codes := auth.NewMemoryLinkCodes(time.Minute)
	tokens := auth.NewTokenManager("test-secret-key-that-is-long-enough", time.Hour)
	revocations := auth.NewStoreRevocationList(e.store.Revocations())
	replica := func() *service.UserService {
		return service.NewUserService(e.store, tokens, auth.NewHasher(bcrypt.MinCost), revocations, zap.NewNop()).
			WithLinkCodes(codes)
	}
	api, bot := replica(), replica()

	code, err := api.IssueTelegramLinkCode(ctx, student.ID)
	require.NoError(t, err)

	user, err := bot.LinkTelegram(ctx, strings.ToLower(code), 777)
	require.NoError(t, err)
	assert.Equal(t, student.ID, user.ID)

	_, err = api.LinkTelegram(ctx, code, 777)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	require.NoError(t, e.users.SeedAdmin(ctx, "admin", "admin@example.com", "admin-password"))
	require.NoError(t, e.users.SeedAdmin(ctx, "admin", "admin@example.com", "admin-password"))

	users, err := e.users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, model.RoleAdmin, users[0].Role)

	_, identity, err := e.users.Login(ctx, "admin@example.com", "admin-password")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, identity.Role)
}
