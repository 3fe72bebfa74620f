package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaanifill/internal/auth"
	"vaanifill/internal/cache"
	"vaanifill/internal/config"
	apperrors "vaanifill/internal/errors"
	"vaanifill/internal/handler"
	"vaanifill/internal/model"
	"vaanifill/internal/repository"
	"vaanifill/internal/service"
	"vaanifill/internal/testutil"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) *echo.Echo {
	t.Helper()

	gormDB := testutil.NewDB(t)
	log := testutil.Logger()
	var noCache *cache.Client

	tokens := auth.NewTokenService(testSecret)
	authService := service.NewAuthService(repository.NewAccountRepository(gormDB), tokens, log)
	formService := service.NewFormService(repository.NewFormRepository(gormDB), noCache, log)
	responseService := service.NewResponseService(formService, repository.NewResponseRepository(gormDB), log)

	e := echo.New()
	Register(
		e,
		&config.Config{},
		log,
		auth.NewGuard(tokens, authService, log),
		handler.NewAuthHandler(authService),
		handler.NewFormHandler(formService),
		handler.NewResponseHandler(responseService),
	)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func signupAndLogin(t *testing.T, e *echo.Echo, username, email, password string) string {
	t.Helper()

	rec := do(t, e, http.MethodPost, "/signup", "", echo.Map{"username": username, "email": email, "password": password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/login", "", echo.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login handler.LoginResponse
	decode(t, rec, &login)
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestFormLifecycle(t *testing.T) {
	e := newTestApp(t)
	alice := signupAndLogin(t, e, "alice", "a@x.com", "pw123")

	rec := do(t, e, http.MethodPost, "/forms/save-form", alice, echo.Map{
		"id":       "f1",
		"formName": "Survey",
		"fields":   []echo.Map{{"name": "Age", "type": "number"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/forms", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var owned []model.Form
	decode(t, rec, &owned)
	require.Len(t, owned, 1)
	assert.Equal(t, "Survey", owned[0].Name)

	rec = do(t, e, http.MethodPost, "/forms/submit", alice, echo.Map{
		"formName":  "Survey",
		"responses": echo.Map{"Age": "30"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/forms/responses/f1", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var responses []model.FormResponse
	decode(t, rec, &responses)
	require.Len(t, responses, 1)
	assert.Equal(t, "30", responses[0].Answers["Age"])
	assert.Equal(t, "alice", responses[0].Username)

	mallory := signupAndLogin(t, e, "mallory", "m@x.com", "pw456")

	rec = do(t, e, http.MethodDelete, "/forms/delete/f1", mallory, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodDelete, "/forms/delete/f1", alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/forms/fill-form/f1", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommunityFeedAndCapabilityFetch(t *testing.T) {
	e := newTestApp(t)
	alice := signupAndLogin(t, e, "alice", "a@x.com", "pw123")
	bob := signupAndLogin(t, e, "bob", "b@x.com", "pw456")

	rec := do(t, e, http.MethodPost, "/forms/save-form", alice, echo.Map{
		"formName": "Poll",
		"fields":   []echo.Map{{"name": "Color", "type": "radio", "options": []string{"red", "blue"}}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved handler.SaveFormResponse
	decode(t, rec, &saved)
	_, err := uuid.Parse(saved.FormID)
	require.NoError(t, err)

	rec = do(t, e, http.MethodGet, "/forms/all-forms", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var community []model.Form
	decode(t, rec, &community)
	require.Len(t, community, 1)
	assert.Equal(t, saved.FormID, community[0].ID)

	rec = do(t, e, http.MethodGet, "/forms/all-forms", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/forms/fill-form/"+saved.FormID, bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var form model.Form
	decode(t, rec, &form)
	assert.Equal(t, []string{"red", "blue"}, form.Fields[0].Options)
}

func TestSignup_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	e := newTestApp(t)

	rec := do(t, e, http.MethodPost, "/signup", "", echo.Map{"username": "alice", "email": "a@x.com", "password": "pw123"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, e, http.MethodPost, "/signup", "", echo.Map{"username": "alice2", "email": "A@X.COM", "password": "other"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body apperrors.ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "USER_ALREADY_EXISTS", body.Code)

	rec = do(t, e, http.MethodPost, "/signup", "", echo.Map{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, "VALIDATION_FAILED", body.Code)
	assert.ElementsMatch(t, []apperrors.FieldViolation{
		{Field: "username", Reason: "this field is required"},
		{Field: "email", Reason: "invalid email address"},
		{Field: "password", Reason: "this field is required"},
	}, body.Fields)
}

func TestLogin_DoesNotRevealWhichCredentialFailed(t *testing.T) {
	e := newTestApp(t)
	signupAndLogin(t, e, "alice", "a@x.com", "pw123")

	wrongPassword := do(t, e, http.MethodPost, "/login", "", echo.Map{"email": "a@x.com", "password": "nope"})
	unknownEmail := do(t, e, http.MethodPost, "/login", "", echo.Map{"email": "ghost@x.com", "password": "pw123"})

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestGuard(t *testing.T) {
	e := newTestApp(t)
	alice := signupAndLogin(t, e, "alice", "a@x.com", "pw123")

	rec := do(t, e, http.MethodGet, "/protected", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var protected handler.ProtectedResponse
	decode(t, rec, &protected)
	_, err := uuid.Parse(protected.UserID)
	assert.NoError(t, err)

	tokens := auth.NewTokenService(testSecret)
	expired, _, err := tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).Issue(uuid.MustParse(protected.UserID))
	require.NoError(t, err)
	orphan, _, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
		code   string
	}{
		{name: "missing token", token: "", status: http.StatusUnauthorized, code: "UNAUTHENTICATED"},
		{name: "garbage token", token: "not.a.jwt", status: http.StatusUnauthorized, code: "UNAUTHENTICATED"},
		{name: "expired token", token: expired, status: http.StatusUnauthorized, code: "UNAUTHENTICATED"},
		{name: "account no longer exists", token: orphan, status: http.StatusNotFound, code: "USER_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, http.MethodGet, "/forms", tt.token, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body apperrors.ErrorResponse
			decode(t, rec, &body)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestSaveForm_Rejections(t *testing.T) {
	e := newTestApp(t)
	alice := signupAndLogin(t, e, "alice", "a@x.com", "pw123")
	bob := signupAndLogin(t, e, "bob", "b@x.com", "pw456")

	form := echo.Map{"id": "f1", "formName": "Survey", "fields": []echo.Map{{"name": "Age", "type": "number"}}}
	require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, "/forms/save-form", alice, form).Code)

	rec := do(t, e, http.MethodPost, "/forms/save-form", bob, echo.Map{"id": "f1", "formName": "Mine now", "fields": []echo.Map{{"name": "X", "type": "text"}}})
	require.Equal(t, http.StatusConflict, rec.Code)
	var body apperrors.ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "FORM_ALREADY_EXISTS", body.Code)

	rec = do(t, e, http.MethodGet, "/forms/fill-form/f1", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored model.Form
	decode(t, rec, &stored)
	assert.Equal(t, "Survey", stored.Name)

	rec = do(t, e, http.MethodPost, "/forms/save-form", alice, echo.Map{"formName": "Empty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/forms/save-form", alice, echo.Map{
		"formName": "Bad",
		"fields":   []echo.Map{{"name": "Size", "type": "slider"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, []apperrors.FieldViolation{{Field: "fields[0].type", Reason: "unsupported field type"}}, body.Fields)
}

func TestSubmit_ReportsEveryInvalidField(t *testing.T) {
	e := newTestApp(t)
	alice := signupAndLogin(t, e, "alice", "a@x.com", "pw123")

	require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, "/forms/save-form", alice, echo.Map{
		"id":       "contact",
		"formName": "Contact",
		"fields": []echo.Map{
			{"name": "Name", "type": "text"},
			{"name": "Email", "type": "email"},
			{"name": "Phone", "type": "tel"},
			{"name": "Birthday", "type": "date"},
		},
	}).Code)

	rec := do(t, e, http.MethodPost, "/forms/submit", alice, echo.Map{
		"formName":  "Contact",
		"responses": echo.Map{"Name": " ", "Email": "notanemail", "Phone": "12345", "Birthday": "31-01-2024"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body apperrors.ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "VALIDATION_FAILED", body.Code)
	fields := make([]string, 0, len(body.Fields))
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"Name", "Email", "Phone", "Birthday"}, fields)

	rec = do(t, e, http.MethodPost, "/forms/submit", alice, echo.Map{
		"formName":  "Contact",
		"responses": echo.Map{"Name": "Alice", "Email": "a@b.com", "Phone": "1234567890", "Birthday": "2024-01-31"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/forms/submit", alice, echo.Map{"formName": "Nope", "responses": echo.Map{}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateField(t *testing.T) {
	e := newTestApp(t)
	alice := signupAndLogin(t, e, "alice", "a@x.com", "pw123")
	require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, "/forms/save-form", alice, echo.Map{
		"id":       "f1",
		"formName": "Survey",
		"fields":   []echo.Map{{"name": "Phone", "type": "tel"}},
	}).Code)

	rec := do(t, e, http.MethodPost, "/forms/fill-form/f1/validate", alice, echo.Map{"field": "Phone", "value": "12345"})
	require.Equal(t, http.StatusOK, rec.Code)
	var check service.FieldCheck
	decode(t, rec, &check)
	assert.False(t, check.Valid)
	assert.NotEmpty(t, check.Reason)

	rec = do(t, e, http.MethodPost, "/forms/fill-form/f1/validate", alice, echo.Map{"field": "Phone", "value": " 1234567890 "})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &check)
	assert.True(t, check.Valid)
	assert.Equal(t, "1234567890", check.Value)

	rec = do(t, e, http.MethodPost, "/forms/fill-form/f1/validate", alice, echo.Map{"field": "Fax", "value": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/forms/fill-form/missing/validate", alice, echo.Map{"field": "Phone", "value": "1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResponses_EmptyAndMissing(t *testing.T) {
	e := newTestApp(t)
	alice := signupAndLogin(t, e, "alice", "a@x.com", "pw123")
	require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, "/forms/save-form", alice, echo.Map{
		"id":       "f1",
		"formName": "Survey",
		"fields":   []echo.Map{{"name": "Age", "type": "number"}},
	}).Code)

	rec := do(t, e, http.MethodGet, "/forms/responses/f1", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/forms/responses/missing", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	e := newTestApp(t)

	rec := do(t, e, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, e, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "vaanifill_http_requests_total"))
}
