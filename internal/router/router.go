package router

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"vaanifill/docs"
	"vaanifill/internal/auth"
	"vaanifill/internal/config"
	apperrors "vaanifill/internal/errors"
	"vaanifill/internal/handler"
	"vaanifill/internal/logging"
	"vaanifill/internal/metrics"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log logrus.FieldLogger,
	guard *auth.Guard,
	authHandler *handler.AuthHandler,
	formHandler *handler.FormHandler,
	responseHandler *handler.ResponseHandler,
) {
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())

	// Add validator
	e.Validator = NewCustomValidator()

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public routes
	e.POST("/signup", authHandler.Signup)
	e.POST("/login", authHandler.Login)

	// Secured routes (require bearer token and a live account)
	secured := e.Group("", guard.Middleware())

	secured.GET("/protected", authHandler.Protected)

	// Form routes
	forms := secured.Group("/forms")
	forms.POST("/save-form", formHandler.SaveForm)
	forms.GET("", formHandler.ListOwned)
	forms.GET("/all-forms", formHandler.ListCommunity)
	forms.GET("/fill-form/:id", formHandler.FillForm)
	forms.POST("/fill-form/:id/validate", formHandler.ValidateField)
	forms.DELETE("/delete/:id", formHandler.DeleteForm)

	// Response routes
	forms.POST("/submit", responseHandler.Submit)
	forms.GET("/responses/:id", responseHandler.ListResponses)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewCustomValidator reports struct fields by their JSON names.
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface. Rule failures are returned as
// a *errors.ValidationError listing every offending field.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(apperrors.FieldViolation{Field: "body", Reason: err.Error()})
	}

	violations := make([]apperrors.FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, apperrors.FieldViolation{Field: fe.Field(), Reason: reason(fe)})
	}
	return apperrors.NewValidationError(violations...)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email address"
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " rule"
	}
}
