package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository"
	"github.com/hay-kot/criterio"
	"go.uber.org/zap"
)

// Значения профиля студента, когда администратор их не указал
const (
	defaultMajor = "Undeclared"
	defaultYear  = 1
)

// AdminCreateUserInput пользователь любой роли, заводимый администратором
type AdminCreateUserInput struct {
	Username   string
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       string
	HourlyRate int
	Bio        string
	Major      string
	Year       int
	ClassIDs   []int64
}

func (in AdminCreateUserInput) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("username", in.Username, validUsername),
		criterio.Run("email", in.Email, validEmail),
		criterio.Run("password", in.Password, validPassword),
		criterio.Run("role", in.Role, validRole),
		criterio.Run("hourly_rate", in.HourlyRate, nonNegative),
		criterio.Run("year", in.Year, nonNegative),
	)
}

// AdminUpdateUserInput частичное обновление; nil означает "не менять"
type AdminUpdateUserInput struct {
	Email      *string
	FirstName  *string
	LastName   *string
	Role       *string
	HourlyRate *int
	Bio        *string
	Major      *string
	Year       *int
	ClassIDs   *[]int64
}

func (in AdminUpdateUserInput) Validate() error {
	var errs criterio.FieldErrorsBuilder
	if in.Email != nil {
		if err := validEmail(strings.TrimSpace(*in.Email)); err != nil {
			errs = errs.Append("email", err)
		}
	}
	if in.Role != nil {
		if err := validRole(*in.Role); err != nil {
			errs = errs.Append("role", err)
		}
	}
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

// AdminCreateUser создаёт пользователя, профиль роли и классы репетитора в одной транзакции
func (s *UserService) AdminCreateUser(ctx context.Context, in AdminCreateUserInput) (*model.Profile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return nil, apperror.InvalidInput(err)
	}
	role, _ := model.ParseRole(in.Role)

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		PasswordHash: hash,
	}

	var profile *model.Profile
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		if err := createRoleProfile(ctx, tx, user, roleFields{
			hourlyRate: in.HourlyRate,
			bio:        in.Bio,
			major:      in.Major,
			year:       in.Year,
		}); err != nil {
			return err
		}
		if role == model.RoleTutor && len(in.ClassIDs) > 0 {
			if err := setTutorClasses(ctx, tx, user.ID, in.ClassIDs); err != nil {
				return err
			}
		}

		var err error
		profile, err = loadProfile(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("admin create user: %w", err)
	}

	s.logger.Info("User created by admin",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	return profile, nil
}

// AdminUpdateUser меняет учётные данные и профиль; при смене роли старый профиль заменяется новым
func (s *UserService) AdminUpdateUser(ctx context.Context, userID int64, in AdminUpdateUserInput) (*model.Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, apperror.InvalidInput(err)
	}

	var profile *model.Profile
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperror.ErrUserNotFound
		}
		oldRole := user.Role

		if in.Email != nil {
			user.Email = strings.TrimSpace(*in.Email)
		}
		if in.FirstName != nil {
			user.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			user.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.Role != nil {
			user.Role, _ = model.ParseRole(*in.Role)
		}
		if err := tx.Users().UpdateAccount(ctx, user); err != nil {
			return err
		}

		if user.Role != oldRole {
			if err := swapRoleProfile(ctx, tx, user, oldRole, in); err != nil {
				return err
			}
		}

		profile, err = loadProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := applyProfileFields(ctx, tx, profile, in); err != nil {
			return err
		}
		if in.ClassIDs != nil && user.Role == model.RoleTutor {
			return setTutorClasses(ctx, tx, userID, *in.ClassIDs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("admin update user: %w", err)
	}

	s.logger.Info("User updated by admin",
		zap.Int64("user_id", userID),
		zap.String("role", string(profile.User.Role)),
	)
	return profile, nil
}

type roleFields struct {
	hourlyRate int
	bio        string
	major      string
	year       int
}

func createRoleProfile(ctx context.Context, tx repository.Store, user *model.User, f roleFields) error {
	switch user.Role {
	case model.RoleTutor:
		return tx.Profiles().CreateTutor(ctx, &model.TutorProfile{UserID: user.ID, HourlyRate: f.hourlyRate, Bio: f.bio})
	case model.RoleStudent:
		major, year := f.major, f.year
		if major == "" {
			major = defaultMajor
		}
		if year == 0 {
			year = defaultYear
		}
		return tx.Profiles().CreateStudent(ctx, &model.StudentProfile{UserID: user.ID, Major: major, Year: year})
	case model.RoleAdmin:
		return nil
	}
	return fmt.Errorf("unexpected role %q", user.Role)
}

// swapRoleProfile возможна только пока у пользователя нет слотов и сессий
func swapRoleProfile(ctx context.Context, tx repository.Store, user *model.User, oldRole model.Role, in AdminUpdateUserInput) error {
	busy, err := hasBookingHistory(ctx, tx, user.ID, oldRole)
	if err != nil {
		return err
	}
	if busy {
		return apperror.ErrRoleInUse
	}

	switch oldRole {
	case model.RoleTutor:
		if err := tx.Profiles().DeleteTutor(ctx, user.ID); err != nil {
			return err
		}
	case model.RoleStudent:
		if err := tx.Profiles().DeleteStudent(ctx, user.ID); err != nil {
			return err
		}
	case model.RoleAdmin:
	}

	return createRoleProfile(ctx, tx, user, roleFields{
		hourlyRate: deref(in.HourlyRate),
		bio:        deref(in.Bio),
		major:      deref(in.Major),
		year:       deref(in.Year),
	})
}

func hasBookingHistory(ctx context.Context, tx repository.Store, userID int64, role model.Role) (bool, error) {
	sessions, err := tx.Sessions().ListForUser(ctx, userID, model.SlotFilter{})
	if err != nil {
		return false, err
	}
	if len(sessions) > 0 {
		return true, nil
	}
	if role != model.RoleTutor {
		return false, nil
	}
	for _, err := range tx.Slots().List(ctx, userID, model.SlotFilter{Limit: 1}) {
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func applyProfileFields(ctx context.Context, tx repository.Store, profile *model.Profile, in AdminUpdateUserInput) error {
	if t := profile.Tutor; t != nil && (in.HourlyRate != nil || in.Bio != nil) {
		if in.HourlyRate != nil {
			t.HourlyRate = *in.HourlyRate
		}
		if in.Bio != nil {
			t.Bio = *in.Bio
		}
		return tx.Profiles().UpdateTutor(ctx, t)
	}
	if st := profile.Student; st != nil && (in.Major != nil || in.Year != nil) {
		if in.Major != nil {
			st.Major = *in.Major
		}
		if in.Year != nil {
			st.Year = *in.Year
		}
		return tx.Profiles().UpdateStudent(ctx, st)
	}
	return nil
}

// setTutorClasses проверяет, что все классы существуют, и заменяет набор целиком
func setTutorClasses(ctx context.Context, tx repository.Store, tutorID int64, classIDs []int64) error {
	for _, id := range classIDs {
		class, err := tx.Catalog().GetClass(ctx, id)
		if err != nil {
			return err
		}
		if class == nil {
			return apperror.ErrClassNotFound
		}
	}
	return tx.Catalog().SetTutorClasses(ctx, tutorID, classIDs)
}

func validRole(s string) error {
	_, err := model.ParseRole(s)
	return err
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
