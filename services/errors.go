package services

import (
	"errors"
	"fmt"
	"strings"

	"cozzyhub/repository"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidTokenFormat = errors.New("invalid authorization token format")
	ErrTokenNotFound      = errors.New("authorization token not found or expired")
	ErrAuthorizeFailed    = errors.New("failed to authorize user")

	ErrEmailTaken          = errors.New("User already registered")
	ErrAccountCreation     = errors.New("failed to create account")
	ErrProfileProvisioning = errors.New("Failed to create user profile. Please try again.")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotAuthorized       = errors.New("account has not been authorized yet")
	ErrForbidden           = errors.New("admin access required")

	ErrAffiliateNotFound  = errors.New("affiliate account not found")
	ErrAffiliateNotActive = errors.New("affiliate account is not active")
	ErrAffiliateExists    = errors.New("affiliate application already exists")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrProductNotFound    = errors.New("product not found")
	ErrLinkNotFound       = errors.New("affiliate link not found")
	ErrReferralNotFound   = errors.New("referral code not found")

	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
)

// ValidationError is a client input error with a stable message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs `validate` tags and reports the first failure.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &ValidationError{Message: fmt.Sprintf("%s is required", field)}
	case "email":
		return &ValidationError{Message: "invalid email address"}
	case "min":
		return &ValidationError{Message: fmt.Sprintf("%s must be at least %s", field, fe.Param())}
	case "max":
		return &ValidationError{Message: fmt.Sprintf("%s must be at most %s", field, fe.Param())}
	case "gte", "lte", "gt", "lt":
		return &ValidationError{Message: fmt.Sprintf("%s is out of range", field)}
	case "oneof":
		return &ValidationError{Message: fmt.Sprintf("%s must be one of: %s", field, fe.Param())}
	}
	return &ValidationError{Message: fmt.Sprintf("%s is invalid", field)}
}

// HTTPStatus maps a service error onto a response status.
func HTTPStatus(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, ErrInvalidTokenFormat),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrEmptyCart):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrNotAuthorized),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrAffiliateNotActive):
		return fiber.StatusForbidden
	case errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrAffiliateNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrLinkNotFound),
		errors.Is(err, ErrReferralNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrAffiliateExists),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, repository.ErrDuplicate):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// ErrorJSON writes err as {"error": ...} with its mapped status. Internal
// errors are logged and replaced by a generic message.
func ErrorJSON(c *fiber.Ctx, err error) error {
	status := HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
