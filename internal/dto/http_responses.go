package dto

import (
	"errors"
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"dramclub/internal/model"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	NotFound                 = "NOT_FOUND"
	Unauthorized             = "UNAUTHORIZED"
	Forbidden                = "FORBIDDEN"
	SeatsUnavailable         = "SEATS_UNAVAILABLE"
	RegistrationDuplicate    = "REGISTRATION_DUPLICATE"
	MembershipDuplicate      = "MEMBERSHIP_DUPLICATE"
	FriendBenefitUnavailable = "FRIEND_BENEFIT_UNAVAILABLE"
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func errorResponse(c *ginext.Context, status int, code, desc string) {
	c.AbortWithStatusJSON(status, Response{
		Status: "error",
		Error:  &Error{Code: code, Desc: desc},
	})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	errorResponse(c, http.StatusBadRequest, code, desc)
}

func InternalServerError(c *ginext.Context) {
	errorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func FieldBadFormatError(c *ginext.Context, fieldName string) {
	BadResponseError(c, FieldBadFormat, "Field '"+fieldName+"' has bad format")
}

func UnauthorizedError(c *ginext.Context) {
	errorResponse(c, http.StatusUnauthorized, Unauthorized, "Authentication required")
}

func ForbiddenError(c *ginext.Context) {
	errorResponse(c, http.StatusForbidden, Forbidden, "Admin access required")
}

// StatusFor maps a domain error to its HTTP status and error code. ok is
// false for errors outside the taxonomy, which are internal failures.
func StatusFor(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, FieldIncorrect, true
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, NotFound, true
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusForbidden, Forbidden, true
	case errors.Is(err, model.ErrSeatsUnavailable):
		return http.StatusConflict, SeatsUnavailable, true
	case errors.Is(err, model.ErrDuplicateRegistration):
		return http.StatusConflict, RegistrationDuplicate, true
	case errors.Is(err, model.ErrDuplicateMembership):
		return http.StatusConflict, MembershipDuplicate, true
	case errors.Is(err, model.ErrFriendBenefitUnavailable):
		return http.StatusConflict, FriendBenefitUnavailable, true
	}
	return http.StatusInternalServerError, ServiceUnavailable, false
}

// DomainError writes err using the taxonomy mapping. It reports false and
// writes a generic 500 for anything unmapped.
func DomainError(c *ginext.Context, err error) bool {
	status, code, ok := StatusFor(err)
	if !ok {
		InternalServerError(c)
		return false
	}
	errorResponse(c, status, code, describe(err))
	return true
}

func describe(err error) string {
	switch {
	case errors.Is(err, model.ErrDuplicateRegistration):
		return "You have already registered for this event"
	case errors.Is(err, model.ErrFriendBenefitUnavailable):
		return "The bring-a-friend benefit is not available for this email"
	case errors.Is(err, model.ErrUnauthorized):
		return "Admin access required"
	}
	var seats *model.SeatsUnavailableError
	if errors.As(err, &seats) {
		return seats.Error()
	}
	if errors.Is(err, model.ErrSeatsUnavailable) {
		return "Not enough seats available"
	}
	return err.Error()
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{Status: "ok", Data: data})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, Response{Status: "ok", Data: data})
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, model.ErrUnauthorized)
}
