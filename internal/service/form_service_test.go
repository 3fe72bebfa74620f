package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "vaanifill/internal/errors"
	"vaanifill/internal/model"
	"vaanifill/internal/testutil"
	"vaanifill/internal/validation"
)

// MockFormRepository is a mock implementation of FormRepository.
type MockFormRepository struct {
	mock.Mock
}

func (m *MockFormRepository) Create(ctx context.Context, form *model.Form) error {
	args := m.Called(ctx, form)
	return args.Error(0)
}

func (m *MockFormRepository) FindByID(ctx context.Context, id string) (*model.Form, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Form), args.Error(1)
}

func (m *MockFormRepository) FindFirstByName(ctx context.Context, name string) (*model.Form, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Form), args.Error(1)
}

func (m *MockFormRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockFormRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Form), args.Error(1)
}

func (m *MockFormRepository) ListNotOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]model.Form, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Form), args.Error(1)
}

func (m *MockFormRepository) DeleteByIDAndOwner(ctx context.Context, id string, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, id, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockFormCache is a mock implementation of FormCache.
type MockFormCache struct {
	mock.Mock
}

func (m *MockFormCache) GetJSON(ctx context.Context, key string, dst any) bool {
	args := m.Called(ctx, key, dst)
	return args.Bool(0)
}

func (m *MockFormCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	m.Called(ctx, key, value, ttl)
}

func (m *MockFormCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestFormService_Create(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name          string
		input         CreateFormInput
		setupMock     func(*MockFormRepository)
		expectedError error
		check         func(*testing.T, *model.Form)
	}{
		{
			name: "successful creation with caller id",
			input: CreateFormInput{
				ID:     "f1",
				Name:   " Survey ",
				Fields: []model.FieldSpec{{Name: "Age", Type: model.FieldNumber, Options: []string{"ignored"}}},
			},
			setupMock: func(m *MockFormRepository) {
				m.On("ExistsByID", mock.Anything, "f1").Return(false, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Form")).Return(nil)
			},
			check: func(t *testing.T, f *model.Form) {
				assert.Equal(t, "f1", f.ID)
				assert.Equal(t, "Survey", f.Name)
				assert.Equal(t, owner, f.OwnerID)
				require.Len(t, f.Fields, 1)
				assert.Nil(t, f.Fields[0].Options)
			},
		},
		{
			name: "generates id when omitted and keeps choice options",
			input: CreateFormInput{
				Name:   "Poll",
				Fields: []model.FieldSpec{{Name: "Color", Type: model.FieldRadio, Options: []string{"red", " ", "blue"}}},
			},
			setupMock: func(m *MockFormRepository) {
				m.On("ExistsByID", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Form")).Return(nil)
			},
			check: func(t *testing.T, f *model.Form) {
				_, err := uuid.Parse(f.ID)
				assert.NoError(t, err)
				assert.Equal(t, []string{"red", "blue"}, f.Fields[0].Options)
			},
		},
		{
			name:  "existing id is rejected",
			input: CreateFormInput{ID: "f1", Name: "Survey", Fields: []model.FieldSpec{{Name: "Age", Type: model.FieldNumber}}},
			setupMock: func(m *MockFormRepository) {
				m.On("ExistsByID", mock.Anything, "f1").Return(true, nil)
			},
			expectedError: apperrors.ErrFormIDTaken,
		},
		{
			name:  "id taken between check and insert",
			input: CreateFormInput{ID: "f1", Name: "Survey", Fields: []model.FieldSpec{{Name: "Age", Type: model.FieldNumber}}},
			setupMock: func(m *MockFormRepository) {
				m.On("ExistsByID", mock.Anything, "f1").Return(false, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Form")).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: apperrors.ErrFormIDTaken,
		},
		{
			name:          "invalid definition",
			input:         CreateFormInput{ID: "f1", Fields: []model.FieldSpec{{Name: "A", Type: "slider"}, {Name: "A", Type: model.FieldText}}},
			setupMock:     func(m *MockFormRepository) {},
			expectedError: apperrors.ErrValidationFailed,
		},
		{
			name:  "storage failure",
			input: CreateFormInput{ID: "f1", Name: "Survey", Fields: []model.FieldSpec{{Name: "Age", Type: model.FieldNumber}}},
			setupMock: func(m *MockFormRepository) {
				m.On("ExistsByID", mock.Anything, "f1").Return(false, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Form")).Return(errors.New("disk full"))
			},
			expectedError: apperrors.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockFormRepository)
			tt.setupMock(mockRepo)

			service := NewFormService(mockRepo, new(MockFormCache), testutil.Logger())
			form, err := service.Create(context.Background(), owner, tt.input)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, form)
			} else {
				require.NoError(t, err)
				tt.check(t, form)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestFormService_CreateReportsEveryViolation(t *testing.T) {
	service := NewFormService(new(MockFormRepository), new(MockFormCache), testutil.Logger())

	_, err := service.Create(context.Background(), uuid.New(), CreateFormInput{
		Fields: []model.FieldSpec{
			{Name: "", Type: model.FieldText},
			{Name: "Age", Type: "slider"},
			{Name: "Age", Type: model.FieldNumber},
		},
	})

	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []apperrors.FieldViolation{
		{Field: "formName", Reason: "this field is required"},
		{Field: "fields[0].name", Reason: "this field is required"},
		{Field: "fields[1].type", Reason: "unsupported field type"},
		{Field: "fields[2].name", Reason: "duplicate field name"},
	}, verr.Violations)
}

func TestFormService_ListsNeverReturnNil(t *testing.T) {
	owner := uuid.New()
	mockRepo := new(MockFormRepository)
	mockRepo.On("ListByOwner", mock.Anything, owner).Return(nil, nil)
	mockRepo.On("ListNotOwnedBy", mock.Anything, owner).Return(nil, nil)
	service := NewFormService(mockRepo, new(MockFormCache), testutil.Logger())

	owned, err := service.ListOwnedBy(context.Background(), owner)
	require.NoError(t, err)
	assert.NotNil(t, owned)
	assert.Empty(t, owned)

	community, err := service.ListNotOwnedBy(context.Background(), owner)
	require.NoError(t, err)
	assert.NotNil(t, community)
}

func TestFormService_GetByIDReadsThroughCache(t *testing.T) {
	stored := &model.Form{ID: "f1", Name: "Survey", Fields: []model.FieldSpec{{Name: "Age", Type: model.FieldNumber}}}

	mockRepo := new(MockFormRepository)
	mockRepo.On("FindByID", mock.Anything, "f1").Return(stored, nil).Once()
	mockRepo.On("FindByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

	mockCache := new(MockFormCache)
	mockCache.On("GetJSON", mock.Anything, "form:f1", mock.Anything).Return(false).Once()
	mockCache.On("SetJSON", mock.Anything, "form:f1", stored, formCacheTTL).Once()
	mockCache.On("GetJSON", mock.Anything, "form:missing", mock.Anything).Return(false)

	service := NewFormService(mockRepo, mockCache, testutil.Logger())

	form, err := service.GetByID(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "Survey", form.Name)

	_, err = service.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrFormNotFound)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFormService_GetByIDCacheHitSkipsStore(t *testing.T) {
	mockRepo := new(MockFormRepository)
	mockCache := new(MockFormCache)
	mockCache.On("GetJSON", mock.Anything, "form:f1", mock.Anything).
		Run(func(args mock.Arguments) {
			dst := args.Get(2).(*model.Form)
			dst.ID = "f1"
			dst.Name = "Cached"
		}).
		Return(true)

	service := NewFormService(mockRepo, mockCache, testutil.Logger())
	form, err := service.GetByID(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "Cached", form.Name)
	mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestFormService_DeleteByID(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	mockRepo := new(MockFormRepository)
	mockRepo.On("DeleteByIDAndOwner", mock.Anything, "f1", bob).Return(int64(0), nil)
	mockRepo.On("DeleteByIDAndOwner", mock.Anything, "missing", alice).Return(int64(0), nil)
	mockRepo.On("DeleteByIDAndOwner", mock.Anything, "f1", alice).Return(int64(1), nil)

	mockCache := new(MockFormCache)
	mockCache.On("Delete", mock.Anything, "form:f1").Return(nil).Once()

	service := NewFormService(mockRepo, mockCache, testutil.Logger())
	ctx := context.Background()

	notOwner := service.DeleteByID(ctx, "f1", bob)
	notExisting := service.DeleteByID(ctx, "missing", alice)
	assert.ErrorIs(t, notOwner, apperrors.ErrFormNotFound)
	assert.Equal(t, notExisting, notOwner)

	require.NoError(t, service.DeleteByID(ctx, "f1", alice))
	mockCache.AssertExpectations(t)
}

func TestFormService_ValidateAnswer(t *testing.T) {
	stored := &model.Form{ID: "f1", Name: "Contact", Fields: []model.FieldSpec{
		{Name: "Email", Type: model.FieldEmail},
		{Name: "Phone", Type: model.FieldTel},
	}}
	mockRepo := new(MockFormRepository)
	mockRepo.On("FindByID", mock.Anything, "f1").Return(stored, nil)
	mockCache := new(MockFormCache)
	mockCache.On("GetJSON", mock.Anything, "form:f1", mock.Anything).Return(false)
	mockCache.On("SetJSON", mock.Anything, "form:f1", mock.Anything, formCacheTTL)

	service := NewFormService(mockRepo, mockCache, testutil.Logger())
	ctx := context.Background()

	check, err := service.ValidateAnswer(ctx, "f1", "Email", " a@b.com ")
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Equal(t, "a@b.com", check.Value)
	assert.Empty(t, check.Reason)

	check, err = service.ValidateAnswer(ctx, "f1", "Phone", "12345")
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, validation.ErrInvalidPhone.Error(), check.Reason)

	_, err = service.ValidateAnswer(ctx, "f1", "Nickname", "x")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
