package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "vaanifill/internal/errors"
	"vaanifill/internal/metrics"
	"vaanifill/internal/model"
	"vaanifill/internal/repository"
	"vaanifill/internal/validation"
)

// SubmitInput carries one set of answers. Responses are linked to forms by
// name; FormID optionally pins which same-named form validates the answers.
type SubmitInput struct {
	FormName string
	FormID   string
	Answers  map[string]string
}

// ResponseService accepts and lists form responses.
type ResponseService interface {
	Submit(ctx context.Context, username string, in SubmitInput) (*model.FormResponse, error)
	ListByForm(ctx context.Context, formID string) ([]model.FormResponse, error)
}

type responseService struct {
	forms        FormService
	responseRepo repository.ResponseRepository
	log          logrus.FieldLogger
}

// NewResponseService creates a new response service.
func NewResponseService(forms FormService, responseRepo repository.ResponseRepository, log logrus.FieldLogger) ResponseService {
	return &responseService{
		forms:        forms,
		responseRepo: responseRepo,
		log:          log,
	}
}

// Submit validates answers against the form's fields and appends them. Every
// failing field is reported, not only the first.
func (s *responseService) Submit(ctx context.Context, username string, in SubmitInput) (*model.FormResponse, error) {
	form, err := s.resolveForm(ctx, in)
	if err != nil {
		metrics.RecordSubmission("rejected")
		return nil, err
	}

	answers, violations := validation.ValidateAnswers(form.Fields, in.Answers)
	if len(violations) > 0 {
		metrics.RecordSubmission("rejected")
		return nil, apperrors.NewValidationError(violations...)
	}

	response := &model.FormResponse{
		FormName: form.Name,
		Username: username,
		Answers:  answers,
	}
	if err := s.responseRepo.Create(ctx, response); err != nil {
		metrics.RecordSubmission("failed")
		return nil, apperrors.Storage("create response", err)
	}

	metrics.RecordSubmission("accepted")
	s.log.WithField("form_name", form.Name).
		WithField("response_id", response.ID).
		WithField("username", username).
		Info("response submitted")
	return response, nil
}

func (s *responseService) resolveForm(ctx context.Context, in SubmitInput) (*model.Form, error) {
	name := strings.TrimSpace(in.FormName)
	if name == "" {
		return nil, apperrors.NewValidationError(apperrors.FieldViolation{Field: "formName", Reason: "this field is required"})
	}

	formID := strings.TrimSpace(in.FormID)
	if formID == "" {
		return s.forms.FindByName(ctx, name)
	}

	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form.Name != name {
		return nil, apperrors.NewValidationError(apperrors.FieldViolation{Field: "formId", Reason: "does not match formName"})
	}
	return form, nil
}

// ListByForm returns every response recorded under the form's name, oldest
// first. A form with no responses yields an empty slice.
func (s *responseService) ListByForm(ctx context.Context, formID string) ([]model.FormResponse, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}

	responses, err := s.responseRepo.ListByFormName(ctx, form.Name)
	if err != nil {
		return nil, apperrors.Storage("list responses", err)
	}
	if responses == nil {
		responses = []model.FormResponse{}
	}
	return responses, nil
}
