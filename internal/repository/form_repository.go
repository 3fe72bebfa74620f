package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vaanifill/internal/model"
)

// FormRepository defines form definition persistence operations.
type FormRepository interface {
	Create(ctx context.Context, form *model.Form) error
	FindByID(ctx context.Context, id string) (*model.Form, error)
	FindFirstByName(ctx context.Context, name string) (*model.Form, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error)
	ListNotOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error)
	DeleteByIDAndOwner(ctx context.Context, id string, ownerID uuid.UUID) (int64, error)
}

type formRepository struct {
	db *gorm.DB
}

// NewFormRepository creates a new form repository.
func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepository{db: db}
}

// Create inserts a form in a single row write. It never upserts: an existing
// form_id surfaces as gorm.ErrDuplicatedKey.
func (r *formRepository) Create(ctx context.Context, form *model.Form) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(form).Error
}

// FindByID finds a form by its identifier regardless of owner.
func (r *formRepository) FindByID(ctx context.Context, id string) (*model.Form, error) {
	var form model.Form
	if err := r.db.WithContext(ctx).Where("form_id = ?", id).First(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// FindFirstByName returns the oldest form carrying name.
func (r *formRepository) FindFirstByName(ctx context.Context, name string) (*model.Form, error) {
	var form model.Form
	if err := r.db.WithContext(ctx).
		Where("form_name = ?", name).
		Order("created_at ASC, form_id ASC").
		First(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// ExistsByID reports whether a form with id is stored.
func (r *formRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Form{}).Where("form_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByOwner lists the forms created by ownerID, oldest first.
func (r *formRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error) {
	var forms []model.Form
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at ASC, form_id ASC").
		Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

// ListNotOwnedBy lists every form created by someone other than ownerID.
func (r *formRepository) ListNotOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error) {
	var forms []model.Form
	if err := r.db.WithContext(ctx).
		Where("user_id <> ?", ownerID).
		Order("created_at ASC, form_id ASC").
		Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

// DeleteByIDAndOwner deletes the form only when ownerID created it and
// returns the number of rows removed.
func (r *formRepository) DeleteByIDAndOwner(ctx context.Context, id string, ownerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("form_id = ? AND user_id = ?", id, ownerID).
		Delete(&model.Form{})
	return res.RowsAffected, res.Error
}
