package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vaanifill/internal/auth"
	"vaanifill/internal/errors"
)

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// bindAndValidate decodes the request body into req and runs the registered
// validator over it.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return toHTTPError(err)
	}
	return nil
}

// toHTTPError renders a domain error as an echo error carrying ErrorResponse.
func toHTTPError(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

func currentIdentity(c echo.Context) (auth.Identity, error) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "invalid or missing token",
			Code:  "UNAUTHENTICATED",
		})
	}
	return id, nil
}
