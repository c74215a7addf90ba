package model

import (
	"time"
)

type QueryStatus string

const (
	QueryPending  QueryStatus = "pending"
	QueryResolved QueryStatus = "resolved"
)

// ResultQuery is a student's question about a published result, routed to the
// exam owner.
type ResultQuery struct {
	BaseModel
	AttemptID  uint     `gorm:"index;type:bigint unsigned;not null" json:"attemptId"`
	StudentID  uint     `gorm:"index;type:bigint unsigned;not null" json:"studentId"`
	FacultyID  uint     `gorm:"index;type:bigint unsigned;not null" json:"facultyId"`
	ExamID     string   `gorm:"type:varchar(36);not null" json:"examId"`
	ExamKind   ExamKind `gorm:"size:20;not null" json:"examType"`
	QuestionID string   `gorm:"type:varchar(36);not null" json:"questionId"`

	Message    string      `gorm:"type:text;not null" json:"message"`
	Response   string      `gorm:"type:text" json:"response,omitempty"`
	Status     QueryStatus `gorm:"size:20;default:'pending'" json:"status"`
	ResolvedAt *time.Time  `json:"resolvedAt,omitempty"`

	Student *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Faculty *User `gorm:"foreignKey:FacultyID" json:"faculty,omitempty"`
}

func (ResultQuery) TableName() string {
	return "result_queries"
}
