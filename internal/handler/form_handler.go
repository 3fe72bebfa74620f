package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vaanifill/internal/model"
	"vaanifill/internal/service"
)

// FormHandler handles form definition endpoints.
type FormHandler struct {
	formService service.FormService
}

// NewFormHandler creates a new form handler.
func NewFormHandler(formService service.FormService) *FormHandler {
	return &FormHandler{formService: formService}
}

// FieldRequest describes one input of a form being saved.
type FieldRequest struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

// SaveFormRequest represents a new form definition. An omitted id is generated.
type SaveFormRequest struct {
	ID       string         `json:"id" validate:"omitempty,max=64"`
	FormName string         `json:"formName" validate:"required"`
	Fields   []FieldRequest `json:"fields" validate:"required,min=1"`
}

// SaveFormResponse represents a stored form.
type SaveFormResponse struct {
	Message string      `json:"message"`
	FormID  string      `json:"form_id"`
	Form    *model.Form `json:"form"`
}

// ValidateFieldRequest carries a single value typed into a form field.
type ValidateFieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// SaveForm godoc
// @Summary Create a form
// @Tags forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SaveFormRequest true "Form definition"
// @Success 201 {object} SaveFormResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forms/save-form [post]
func (h *FormHandler) SaveForm(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req SaveFormRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	fields := make([]model.FieldSpec, 0, len(req.Fields))
	for _, f := range req.Fields {
		fields = append(fields, model.FieldSpec{
			Name:    f.Name,
			Type:    model.FieldType(f.Type),
			Options: f.Options,
		})
	}

	form, err := h.formService.Create(c.Request().Context(), id.ID, service.CreateFormInput{
		ID:     req.ID,
		Name:   req.FormName,
		Fields: fields,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, SaveFormResponse{
		Message: "form saved successfully",
		FormID:  form.ID,
		Form:    form,
	})
}

// ListOwned godoc
// @Summary List the caller's forms
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Form
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forms [get]
func (h *FormHandler) ListOwned(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}

	forms, err := h.formService.ListOwnedBy(c.Request().Context(), id.ID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, forms)
}

// ListCommunity godoc
// @Summary List forms created by other users
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Form
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forms/all-forms [get]
func (h *FormHandler) ListCommunity(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}

	forms, err := h.formService.ListNotOwnedBy(c.Request().Context(), id.ID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, forms)
}

// FillForm godoc
// @Summary Get a form schema by id
// @Description Any authenticated user holding the id may fetch the schema.
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} model.Form
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /forms/fill-form/{id} [get]
func (h *FormHandler) FillForm(c echo.Context) error {
	form, err := h.formService.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, form)
}

// ValidateField godoc
// @Summary Validate one field value
// @Description Applies the same rule used when a response is submitted.
// @Tags forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param request body ValidateFieldRequest true "Field value"
// @Success 200 {object} service.FieldCheck
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /forms/fill-form/{id}/validate [post]
func (h *FormHandler) ValidateField(c echo.Context) error {
	var req ValidateFieldRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	check, err := h.formService.ValidateAnswer(c.Request().Context(), c.Param("id"), req.Field, req.Value)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, check)
}

// DeleteForm godoc
// @Summary Delete a form
// @Description Only the owner may delete a form; anyone else gets 404.
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forms/delete/{id} [delete]
func (h *FormHandler) DeleteForm(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}

	if err := h.formService.DeleteByID(c.Request().Context(), c.Param("id"), id.ID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "form deleted successfully"})
}
