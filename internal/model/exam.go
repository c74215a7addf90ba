package model

import (
	"time"
)

// ExamKind discriminates the two exam families. The value travels alongside
// every exam id in client payloads, because essay and generated exams live in
// separate tables.
type ExamKind string

const (
	KindEssay  ExamKind = "EssayExam"
	KindCoding ExamKind = "CodingExam"
)

func (k ExamKind) Valid() bool {
	return k == KindEssay || k == KindCoding
}

// Variants of a generated (CodingExam) exam. Essay exams report the pseudo
// variant "essay" through ExamInfo.
const (
	VariantEssay   = "essay"
	VariantCoding  = "coding"
	VariantMath    = "math"
	VariantComplex = "complex"
	VariantDiverse = "diverse"
)

const DefaultDurationMinutes = 120

// swagger:model EssayExam
type EssayExam struct {
	UUIDBase
	Title           string     `gorm:"size:255;not null" json:"title"`
	DurationMinutes int        `gorm:"default:120" json:"durationMinutes"`
	IsPublished     bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	// Nullable for legacy rows created before ownership existed; the
	// migration task backfills these.
	CreatorID *uint           `gorm:"index;type:bigint unsigned" json:"creatorId,omitempty"`
	Questions []EssayQuestion `gorm:"foreignKey:ExamID" json:"questions"`
}

func (EssayExam) TableName() string {
	return "essay_exams"
}

type EssayQuestion struct {
	UUIDBase
	ExamID      string `gorm:"index;type:varchar(36)" json:"examId"`
	Text        string `gorm:"type:text;not null" json:"text"`
	ModelAnswer string `gorm:"type:text" json:"modelAnswer,omitempty"`
	// Reference solution the evaluator grades against. Questions without
	// one are excluded from scoring.
	TeacherSolution string `gorm:"type:text" json:"teacherSolution,omitempty"`
	Order           int    `gorm:"default:0" json:"order"`
}

func (EssayQuestion) TableName() string {
	return "essay_questions"
}

// CodingExam hosts all generated variants: coding, math, complex, diverse.
//
// swagger:model CodingExam
type CodingExam struct {
	UUIDBase
	Title           string           `gorm:"size:255;not null" json:"title"`
	Variant         string           `gorm:"size:20;default:'coding'" json:"variant"`
	Difficulty      string           `gorm:"size:20;default:'medium'" json:"difficulty"`
	DurationMinutes int              `gorm:"default:120" json:"durationMinutes"`
	IsPublished     bool             `gorm:"default:false" json:"isPublished"`
	PublishedAt     *time.Time       `json:"publishedAt,omitempty"`
	CreatorID       *uint            `gorm:"index;type:bigint unsigned" json:"creatorId,omitempty"`
	Questions       []CodingQuestion `gorm:"foreignKey:ExamID" json:"questions"`
}

func (CodingExam) TableName() string {
	return "coding_exams"
}

type CodingQuestion struct {
	UUIDBase
	ExamID          string `gorm:"index;type:varchar(36)" json:"examId"`
	Text            string `gorm:"type:text;not null" json:"text"`
	ModelAnswer     string `gorm:"type:text" json:"modelAnswer,omitempty"`
	TeacherSolution string `gorm:"type:text" json:"teacherSolution,omitempty"`
	Order           int    `gorm:"default:0" json:"order"`
}

func (CodingQuestion) TableName() string {
	return "coding_questions"
}

// ExamInfo is the variant-agnostic view of an exam. Every cross-cutting
// operation (ownership check, deadline lookup, question access) works against
// this view instead of switching on the concrete type at each call site.
type ExamInfo struct {
	ID              string         `json:"id"`
	Kind            ExamKind       `json:"examType"`
	Title           string         `json:"title"`
	Variant         string         `json:"variant"`
	Difficulty      string         `json:"difficulty,omitempty"`
	DurationMinutes int            `json:"durationMinutes"`
	IsPublished     bool           `json:"isPublished"`
	PublishedAt     *time.Time     `json:"publishedAt,omitempty"`
	CreatorID       *uint          `json:"creatorId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	Questions       []QuestionInfo `json:"questions"`
}

type QuestionInfo struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	ModelAnswer     string `json:"modelAnswer,omitempty"`
	TeacherSolution string `json:"teacherSolution,omitempty"`
	Order           int    `json:"order"`
}

// OwnedBy reports whether the exam belongs to the given user. Legacy exams
// without a creator belong to nobody.
func (e *ExamInfo) OwnedBy(userID uint) bool {
	return e.CreatorID != nil && *e.CreatorID == userID
}

// Duration falls back to the default when the stored value is missing or
// nonsense.
func (e *ExamInfo) Duration() int {
	if e.DurationMinutes <= 0 {
		return DefaultDurationMinutes
	}
	return e.DurationMinutes
}

// QuestionIndex builds the questionId -> question lookup used when folding
// evaluator results back into answers. Stray ids simply miss.
func (e *ExamInfo) QuestionIndex() map[string]QuestionInfo {
	idx := make(map[string]QuestionInfo, len(e.Questions))
	for _, q := range e.Questions {
		idx[q.ID] = q
	}
	return idx
}

func (e *EssayExam) Info() *ExamInfo {
	info := &ExamInfo{
		ID:              e.ID,
		Kind:            KindEssay,
		Title:           e.Title,
		Variant:         VariantEssay,
		DurationMinutes: e.DurationMinutes,
		IsPublished:     e.IsPublished,
		PublishedAt:     e.PublishedAt,
		CreatorID:       e.CreatorID,
		CreatedAt:       e.CreatedAt,
		Questions:       make([]QuestionInfo, len(e.Questions)),
	}
	for i, q := range e.Questions {
		info.Questions[i] = QuestionInfo{
			ID:              q.ID,
			Text:            q.Text,
			ModelAnswer:     q.ModelAnswer,
			TeacherSolution: q.TeacherSolution,
			Order:           q.Order,
		}
	}
	return info
}

func (e *CodingExam) Info() *ExamInfo {
	variant := e.Variant
	if variant == "" {
		variant = VariantCoding
	}
	info := &ExamInfo{
		ID:              e.ID,
		Kind:            KindCoding,
		Title:           e.Title,
		Variant:         variant,
		Difficulty:      e.Difficulty,
		DurationMinutes: e.DurationMinutes,
		IsPublished:     e.IsPublished,
		PublishedAt:     e.PublishedAt,
		CreatorID:       e.CreatorID,
		CreatedAt:       e.CreatedAt,
		Questions:       make([]QuestionInfo, len(e.Questions)),
	}
	for i, q := range e.Questions {
		info.Questions[i] = QuestionInfo{
			ID:              q.ID,
			Text:            q.Text,
			ModelAnswer:     q.ModelAnswer,
			TeacherSolution: q.TeacherSolution,
			Order:           q.Order,
		}
	}
	return info
}
