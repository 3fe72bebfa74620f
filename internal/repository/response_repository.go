package repository

import (
	"context"

	"gorm.io/gorm"

	"vaanifill/internal/model"
)

// ResponseRepository defines append-only persistence for submitted answers.
type ResponseRepository interface {
	Create(ctx context.Context, response *model.FormResponse) error
	ListByFormName(ctx context.Context, formName string) ([]model.FormResponse, error)
}

type responseRepository struct {
	db *gorm.DB
}

// NewResponseRepository creates a new response repository.
func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Create(ctx context.Context, response *model.FormResponse) error {
	return r.db.WithContext(ctx).Create(response).Error
}

func (r *responseRepository) ListByFormName(ctx context.Context, formName string) ([]model.FormResponse, error) {
	var responses []model.FormResponse
	if err := r.db.WithContext(ctx).
		Where("form_name = ?", formName).
		Order("submitted_at ASC, response_id ASC").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}
