package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vaanifill/internal/model"
	"vaanifill/internal/service"
)

// ResponseHandler handles response submission endpoints.
type ResponseHandler struct {
	responseService service.ResponseService
}

// NewResponseHandler creates a new response handler.
func NewResponseHandler(responseService service.ResponseService) *ResponseHandler {
	return &ResponseHandler{responseService: responseService}
}

// SubmitRequest represents one set of answers.
type SubmitRequest struct {
	FormName  string            `json:"formName" validate:"required"`
	FormID    string            `json:"formId"`
	Responses map[string]string `json:"responses" validate:"required"`
}

// SubmitResponse represents a stored response.
type SubmitResponse struct {
	Message  string              `json:"message"`
	Response *model.FormResponse `json:"response"`
}

// Submit godoc
// @Summary Submit answers to a form
// @Tags responses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitRequest true "Answers keyed by field name"
// @Success 201 {object} SubmitResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forms/submit [post]
func (h *ResponseHandler) Submit(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req SubmitRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.responseService.Submit(c.Request().Context(), id.Username, service.SubmitInput{
		FormName: req.FormName,
		FormID:   req.FormID,
		Answers:  req.Responses,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, SubmitResponse{
		Message:  "response submitted successfully",
		Response: response,
	})
}

// ListResponses godoc
// @Summary List responses recorded for a form
// @Tags responses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {array} model.FormResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forms/responses/{id} [get]
func (h *ResponseHandler) ListResponses(c echo.Context) error {
	responses, err := h.responseService.ListByForm(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, responses)
}
