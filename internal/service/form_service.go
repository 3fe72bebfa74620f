package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	apperrors "vaanifill/internal/errors"
	"vaanifill/internal/metrics"
	"vaanifill/internal/model"
	"vaanifill/internal/repository"
	"vaanifill/internal/validation"
)

const (
	formCacheTTL  = 5 * time.Minute
	maxFormIDSize = 64
)

// FormCache is the read-through cache in front of form lookups by id.
// *cache.Client satisfies it, including a nil client.
type FormCache interface {
	GetJSON(ctx context.Context, key string, dst any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string) error
}

func formCacheKey(id string) string {
	return "form:" + id
}

// CreateFormInput carries a new form definition. An empty ID asks the
// service to generate one.
type CreateFormInput struct {
	ID     string
	Name   string
	Fields []model.FieldSpec
}

// FieldCheck is the outcome of validating one value against a form field.
type FieldCheck struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// FormService manages form definitions.
type FormService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in CreateFormInput) (*model.Form, error)
	ListOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error)
	ListNotOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error)
	GetByID(ctx context.Context, id string) (*model.Form, error)
	FindByName(ctx context.Context, name string) (*model.Form, error)
	DeleteByID(ctx context.Context, id string, requesterID uuid.UUID) error
	ValidateAnswer(ctx context.Context, formID, field, value string) (*FieldCheck, error)
}

type formService struct {
	formRepo repository.FormRepository
	cache    FormCache
	log      logrus.FieldLogger
}

// NewFormService creates a new form service.
func NewFormService(formRepo repository.FormRepository, cache FormCache, log logrus.FieldLogger) FormService {
	return &formService{
		formRepo: formRepo,
		cache:    cache,
		log:      log,
	}
}

// Create validates and stores a new form. Creation is insert-only: an id
// already in use yields ErrFormIDTaken and the stored form is left untouched.
func (s *formService) Create(ctx context.Context, ownerID uuid.UUID, in CreateFormInput) (*model.Form, error) {
	form, violations := buildForm(in)
	if len(violations) > 0 {
		return nil, apperrors.NewValidationError(violations...)
	}
	form.OwnerID = ownerID

	exists, err := s.formRepo.ExistsByID(ctx, form.ID)
	if err != nil {
		return nil, apperrors.Storage("check form id", err)
	}
	if exists {
		return nil, apperrors.ErrFormIDTaken
	}

	if err := s.formRepo.Create(ctx, form); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, apperrors.ErrFormIDTaken
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Storage("create form", err)
	}

	metrics.RecordFormEvent("created")
	s.log.WithField("form_id", form.ID).
		WithField("account_id", ownerID.String()).
		Info("form created")
	return form, nil
}

func buildForm(in CreateFormInput) (*model.Form, []apperrors.FieldViolation) {
	var violations []apperrors.FieldViolation
	add := func(field, reason string) {
		violations = append(violations, apperrors.FieldViolation{Field: field, Reason: reason})
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	} else if len(id) > maxFormIDSize {
		add("id", "must be at most 64 characters")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		add("formName", "this field is required")
	}

	if len(in.Fields) == 0 {
		add("fields", "at least one field is required")
	}

	fields := make([]model.FieldSpec, 0, len(in.Fields))
	seen := make(map[string]struct{}, len(in.Fields))
	for i, f := range in.Fields {
		path := "fields[" + strconv.Itoa(i) + "]"
		fieldName := strings.TrimSpace(f.Name)
		if fieldName == "" {
			add(path+".name", "this field is required")
		} else if _, dup := seen[fieldName]; dup {
			add(path+".name", "duplicate field name")
		}
		seen[fieldName] = struct{}{}
		if !f.Type.Valid() {
			add(path+".type", "unsupported field type")
		}

		spec := model.FieldSpec{Name: fieldName, Type: f.Type}
		if f.Type.IsChoice() {
			for _, opt := range f.Options {
				if opt = strings.TrimSpace(opt); opt != "" {
					spec.Options = append(spec.Options, opt)
				}
			}
		}
		fields = append(fields, spec)
	}

	return &model.Form{ID: id, Name: name, Fields: fields}, violations
}

// ListOwnedBy lists the forms created by ownerID.
func (s *formService) ListOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error) {
	forms, err := s.formRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Storage("list forms", err)
	}
	if forms == nil {
		forms = []model.Form{}
	}
	return forms, nil
}

// ListNotOwnedBy lists every form created by someone else.
func (s *formService) ListNotOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error) {
	forms, err := s.formRepo.ListNotOwnedBy(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Storage("list community forms", err)
	}
	if forms == nil {
		forms = []model.Form{}
	}
	return forms, nil
}

// GetByID returns any form by id. Ownership is not checked: knowing the id
// is enough to fill a form.
func (s *formService) GetByID(ctx context.Context, id string) (*model.Form, error) {
	key := formCacheKey(id)

	var cached model.Form
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	form, err := s.formRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFormNotFound
		}
		return nil, apperrors.Storage("find form", err)
	}

	s.cache.SetJSON(ctx, key, form, formCacheTTL)
	return form, nil
}

// FindByName returns the oldest form carrying name.
func (s *formService) FindByName(ctx context.Context, name string) (*model.Form, error) {
	form, err := s.formRepo.FindFirstByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFormNotFound
		}
		return nil, apperrors.Storage("find form by name", err)
	}
	return form, nil
}

// DeleteByID removes a form owned by requesterID. A missing form and a form
// owned by someone else both yield ErrFormNotFound.
func (s *formService) DeleteByID(ctx context.Context, id string, requesterID uuid.UUID) error {
	rows, err := s.formRepo.DeleteByIDAndOwner(ctx, id, requesterID)
	if err != nil {
		return apperrors.Storage("delete form", err)
	}
	if rows == 0 {
		return apperrors.ErrFormNotFound
	}

	_ = s.cache.Delete(ctx, formCacheKey(id))
	metrics.RecordFormEvent("deleted")
	s.log.WithField("form_id", id).
		WithField("account_id", requesterID.String()).
		Info("form deleted")
	return nil
}

// ValidateAnswer checks a single value against the named field of a form. A
// rule violation is reported in the FieldCheck; an undeclared field is an error.
func (s *formService) ValidateAnswer(ctx context.Context, formID, field, value string) (*FieldCheck, error) {
	form, err := s.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}

	spec, ok := form.Field(field)
	if !ok {
		return nil, apperrors.NewValidationError(apperrors.FieldViolation{
			Field:  field,
			Reason: validation.ErrUnknownField.Error(),
		})
	}

	normalized, err := validation.CheckValue(spec.Type, value)
	check := &FieldCheck{Field: field, Value: normalized, Valid: err == nil}
	if err != nil {
		check.Reason = err.Error()
	}
	return check, nil
}
