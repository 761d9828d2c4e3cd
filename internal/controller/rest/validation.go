package rest

import (
	"errors"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const clockLayout = "15:04"

// registerValidations добавляет правила в валидатор gin
func registerValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	if err := v.RegisterValidation("role", validateRole); err != nil {
		return err
	}
	return v.RegisterValidation("timeformat", validateTimeFormat)
}

// validateRole допускает только роли, доступные при саморегистрации
func validateRole(fl validator.FieldLevel) bool {
	role := model.Role(fl.Field().String())
	return role == model.RoleStudent || role == model.RoleTutor
}

// validateTimeFormat проверяет формат HH:MM
func validateTimeFormat(fl validator.FieldLevel) bool {
	_, err := time.Parse(clockLayout, fl.Field().String())
	return err == nil
}

func translateValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request body: " + err.Error()
	}

	messages := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "email":
			messages = append(messages, "invalid email format")
		case "min":
			messages = append(messages, field+" must be at least "+fe.Param())
		case "max":
			messages = append(messages, field+" must be at most "+fe.Param())
		case "gte":
			messages = append(messages, field+" must be greater than or equal to "+fe.Param())
		case "role":
			messages = append(messages, field+" must be student or tutor")
		case "timeformat":
			messages = append(messages, field+" must be in HH:MM format (e.g., 14:00)")
		case "oneof":
			messages = append(messages, field+" must be one of: "+fe.Param())
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	return strings.Join(messages, ", ")
}
