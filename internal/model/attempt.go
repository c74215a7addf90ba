package model

import (
	"time"
)

type AttemptStatus string

const (
	AttemptSubmitted AttemptStatus = "submitted"
	AttemptExpired   AttemptStatus = "expired"
	// AttemptReviewing exists in the schema for forward compatibility; no
	// operation currently transitions into it.
	AttemptReviewing AttemptStatus = "reviewing"
	AttemptEvaluated AttemptStatus = "evaluated"
)

// ExamAttempt is one student's single submission for one exam. The compound
// unique index enforces the one-attempt-per-(student, exam) invariant at the
// storage layer, so concurrent submits race and exactly one wins.
//
// swagger:model ExamAttempt
type ExamAttempt struct {
	BaseModel
	StudentID uint     `gorm:"uniqueIndex:idx_attempt_student_exam;type:bigint unsigned;not null" json:"studentId"`
	ExamID    string   `gorm:"uniqueIndex:idx_attempt_student_exam;type:varchar(36);not null" json:"examId"`
	ExamKind  ExamKind `gorm:"size:20;not null" json:"examType"`

	TotalScore       int           `gorm:"default:0" json:"totalScore"`
	Status           AttemptStatus `gorm:"size:20;default:'submitted'" json:"status"`
	ResultsPublished bool          `gorm:"default:false" json:"resultsPublished"`

	StartedAt   time.Time  `json:"startedAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	SubmittedAt time.Time  `json:"submittedAt"`
	EvaluatedAt *time.Time `json:"evaluatedAt,omitempty"`

	Answers []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers"`
	Student *User           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// AttemptAnswer references its question by an opaque string id, not a typed
// relation; evaluator results are matched back by string equality.
type AttemptAnswer struct {
	BaseModel
	AttemptID  uint   `gorm:"index;type:bigint unsigned;not null" json:"-"`
	QuestionID string `gorm:"index;type:varchar(36);not null" json:"questionId"`
	AnswerText string `gorm:"type:text" json:"answer"`
	Score      int    `gorm:"default:0" json:"score"`
	Feedback   string `gorm:"type:text" json:"feedback"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
