package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Error kinds. Every error returned by a service wraps exactly one of these.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrPersistence  = errors.New("persistence error")
)

var (
	ErrDuplicateUsername = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrDuplicateEmail    = fmt.Errorf("%w: email already in use", ErrConflict)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrValidation)
	ErrMissingFields      = fmt.Errorf("%w: required fields are missing", ErrValidation)
	ErrInvalidQuantity    = fmt.Errorf("%w: quantity must be a number", ErrValidation)

	ErrRestaurantNotFound = fmt.Errorf("%w: restaurant not found", ErrNotFound)
	ErrOrderNotFound      = fmt.Errorf("%w: order not found", ErrNotFound)
	ErrLineNotFound       = fmt.Errorf("%w: item not found in cart", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrNotFound)

	ErrInvalidItem     = fmt.Errorf("%w: item is invalid or no longer available", ErrInvalidState)
	ErrEmptyCart       = fmt.Errorf("%w: cart is empty", ErrInvalidState)
	ErrCartCheckedOut  = fmt.Errorf("%w: cart was already checked out", ErrInvalidState)
	ErrPaymentMissing  = fmt.Errorf("%w: order has no payment record", ErrInvalidState)
	ErrAccountDisabled = fmt.Errorf("%w: account is disabled", ErrInvalidState)
)

var userMessages = map[error]string{
	ErrDuplicateUsername:  "Username already exists",
	ErrDuplicateEmail:     "Email is already in use",
	ErrInvalidCredentials: "Incorrect username or password",
	ErrMissingFields:      "Please fill in all required fields",
	ErrInvalidQuantity:    "Invalid data",
	ErrRestaurantNotFound: "Restaurant not found",
	ErrOrderNotFound:      "Order not found",
	ErrLineNotFound:       "Item not found in cart",
	ErrUserNotFound:       "User not found",
	ErrInvalidItem:        "Item is invalid or no longer available",
	ErrEmptyCart:          "Your cart is empty",
	ErrCartCheckedOut:     "This cart has already been checked out",
	ErrPaymentMissing:     "Payment transaction is missing",
	ErrAccountDisabled:    "This account is disabled",
}

// UserMessage renders err as a notice safe to show to an end user.
// Persistence details never leak.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for target, msg := range userMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "Invalid data"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrConflict):
		return "Already exists"
	case errors.Is(err, ErrInvalidState):
		return "The request cannot be completed right now"
	}
	return "Something went wrong, please try again"
}

// HTTPStatus maps an error kind to a JSON API status code
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidState):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// isDomainError reports whether err already carries one of the kinds.
func isDomainError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrPersistence)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "unique")
}
