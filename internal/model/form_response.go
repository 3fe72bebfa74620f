package model

import "time"

// FormResponse is one submitted set of answers. Responses reference their
// form by name, not by id, and are never updated or deleted.
type FormResponse struct {
	ID          uint              `json:"response_id" gorm:"column:response_id;primaryKey;autoIncrement"`
	FormName    string            `json:"form_name" gorm:"column:form_name;size:255;not null;index"`
	Username    string            `json:"username" gorm:"column:username;size:255;not null"`
	Answers     map[string]string `json:"responses" gorm:"column:responses;type:json;serializer:json;not null"`
	SubmittedAt time.Time         `json:"submitted_at" gorm:"column:submitted_at;autoCreateTime"`
}
