package model

import (
	"time"

	"github.com/google/uuid"
)

// FieldType is the closed set of input kinds a form field can declare.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldDate     FieldType = "date"
	FieldTel      FieldType = "tel"
	FieldFile     FieldType = "file"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldSelect   FieldType = "select"
)

var fieldTypes = map[FieldType]struct{}{
	FieldText: {}, FieldNumber: {}, FieldTextarea: {}, FieldEmail: {},
	FieldPassword: {}, FieldDate: {}, FieldTel: {}, FieldFile: {},
	FieldCheckbox: {}, FieldRadio: {}, FieldSelect: {},
}

// Valid reports whether t is one of the declared field types.
func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// IsChoice reports whether the type takes a list of options.
func (t FieldType) IsChoice() bool {
	return t == FieldCheckbox || t == FieldRadio || t == FieldSelect
}

// FieldSpec describes one input of a form.
type FieldSpec struct {
	Name    string    `json:"name"`
	Type    FieldType `json:"type"`
	Options []string  `json:"options,omitempty"`
}

// Form is a user-authored form definition. The field list is stored as a
// single JSON document so a form is always written in one row insert.
type Form struct {
	ID        string      `json:"form_id" gorm:"column:form_id;type:varchar(64);primaryKey"`
	OwnerID   uuid.UUID   `json:"user_id" gorm:"column:user_id;type:char(36);not null;index"`
	Name      string      `json:"form_name" gorm:"column:form_name;size:255;not null;index"`
	Fields    []FieldSpec `json:"fields" gorm:"column:fields;type:json;serializer:json;not null"`
	CreatedAt time.Time   `json:"created_at"`

	// Relations
	Owner Account `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

// Field returns the field named name, if the form declares one.
func (f *Form) Field(name string) (FieldSpec, bool) {
	for _, spec := range f.Fields {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}
