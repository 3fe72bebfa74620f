package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaanifill/internal/auth"
	"vaanifill/internal/errors"
)

func TestBindAndValidate_MalformedBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := bindAndValidate(c, &SignupRequest{})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, "INVALID_REQUEST", he.Message.(errors.ErrorResponse).Code)
}

func TestToHTTPError_KeepsDomainErrorInternal(t *testing.T) {
	he := toHTTPError(errors.ErrFormNotFound)
	assert.Equal(t, http.StatusNotFound, he.Code)
	assert.Equal(t, errors.ErrFormNotFound, he.Internal)

	body, err := json.Marshal(he.Message)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"form not found","code":"FORM_NOT_FOUND"}`, string(body))
}

func TestProtected(t *testing.T) {
	e := echo.New()
	h := NewAuthHandler(nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/protected", nil), rec)
	err := h.Protected(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)

	id := uuid.New()
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/protected", nil), rec)
	c.Set("identity", auth.Identity{ID: id, Username: "alice"})
	require.NoError(t, h.Protected(c))
	assert.JSONEq(t, `{"message":"access granted","userId":"`+id.String()+`"}`, rec.Body.String())
}
