package service

import (
	"context"
	"encoding/json"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	publishedExamsCacheKey = "exams:published"
	publishedExamsCacheTTL = 5 * time.Minute
)

// ExamService covers the exam catalog: authoring, AI generation,
// publication of the exam itself, and the student-facing published list.
type ExamService struct {
	examRepo  *repository.ExamRepository
	generator *GeneratorService
	cache     *redis.Client
}

func NewExamService(examRepo *repository.ExamRepository, generator *GeneratorService, cache *redis.Client) *ExamService {
	return &ExamService{
		examRepo:  examRepo,
		generator: generator,
		cache:     cache,
	}
}

type NewQuestion struct {
	Text        string `json:"text" binding:"required"`
	ModelAnswer string `json:"modelAnswer"`
}

type CreateEssayExamRequest struct {
	Title           string        `json:"title" binding:"required"`
	DurationMinutes int           `json:"durationMinutes"`
	Questions       []NewQuestion `json:"questions" binding:"required,min=1"`
}

func (s *ExamService) CreateEssayExam(creatorID uint, req *CreateEssayExamRequest) (*model.ExamInfo, error) {
	exam := &model.EssayExam{
		Title:           req.Title,
		DurationMinutes: req.DurationMinutes,
		CreatorID:       &creatorID,
		Questions:       make([]model.EssayQuestion, len(req.Questions)),
	}
	if exam.DurationMinutes <= 0 {
		exam.DurationMinutes = model.DefaultDurationMinutes
	}
	for i, q := range req.Questions {
		// The model answer is display material only; grading references come
		// exclusively through SaveSolutions.
		exam.Questions[i] = model.EssayQuestion{
			Text:        q.Text,
			ModelAnswer: q.ModelAnswer,
			Order:       i,
		}
	}
	if err := s.examRepo.CreateEssay(exam); err != nil {
		return nil, err
	}
	return exam.Info(), nil
}

type GenerateExamRequest struct {
	Title           string `json:"title" binding:"required"`
	Variant         string `json:"variant" binding:"required,oneof=coding math complex diverse"`
	Topic           string `json:"topic" binding:"required"`
	Difficulty      string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	QuestionCount   int    `json:"questionCount"`
	DurationMinutes int    `json:"durationMinutes"`
}

// GenerateExam creates a CodingExam-family exam with AI-written questions.
// Generated model answers are stored as teacher solutions too, so the exam
// is gradeable without a manual solutions pass.
func (s *ExamService) GenerateExam(ctx context.Context, creatorID uint, req *GenerateExamRequest) (*model.ExamInfo, error) {
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}

	generated, err := s.generator.Generate(ctx, req.Variant, req.Topic, difficulty, req.QuestionCount)
	if err != nil {
		return nil, err
	}

	exam := &model.CodingExam{
		Title:           req.Title,
		Variant:         req.Variant,
		Difficulty:      difficulty,
		DurationMinutes: req.DurationMinutes,
		CreatorID:       &creatorID,
		Questions:       make([]model.CodingQuestion, len(generated)),
	}
	if exam.DurationMinutes <= 0 {
		exam.DurationMinutes = model.DefaultDurationMinutes
	}
	for i, q := range generated {
		exam.Questions[i] = model.CodingQuestion{
			Text:            q.Text,
			ModelAnswer:     q.ModelAnswer,
			TeacherSolution: q.ModelAnswer,
			Order:           i,
		}
	}
	if err := s.examRepo.CreateCoding(exam); err != nil {
		return nil, err
	}
	return exam.Info(), nil
}

// ListPublished serves the student catalog through a short-lived cache.
// Solutions and model answers are stripped before anything leaves here.
func (s *ExamService) ListPublished(ctx context.Context) ([]model.ExamInfo, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, publishedExamsCacheKey).Bytes(); err == nil {
			var exams []model.ExamInfo
			if json.Unmarshal(cached, &exams) == nil {
				return exams, nil
			}
		}
	}

	exams, err := s.examRepo.ListPublished()
	if err != nil {
		return nil, err
	}
	for i := range exams {
		sanitizeForStudents(&exams[i])
	}

	if s.cache != nil {
		if payload, err := json.Marshal(exams); err == nil {
			if err := s.cache.Set(ctx, publishedExamsCacheKey, payload, publishedExamsCacheTTL).Err(); err != nil {
				logger.Log.Warn("published exams cache write failed", zap.Error(err))
			}
		}
	}
	return exams, nil
}

// GetForStudent returns one published exam with solutions stripped, for
// taking.
func (s *ExamService) GetForStudent(examID string, kind model.ExamKind) (*model.ExamInfo, error) {
	exam, err := s.examRepo.FindExam(examID, kind)
	if err != nil {
		return nil, err
	}
	if !exam.IsPublished {
		return nil, util.ErrExamUnpublished
	}
	sanitizeForStudents(exam)
	return exam, nil
}

func sanitizeForStudents(exam *model.ExamInfo) {
	for i := range exam.Questions {
		exam.Questions[i].ModelAnswer = ""
		exam.Questions[i].TeacherSolution = ""
	}
}

func (s *ExamService) ListByCreator(creatorID uint) ([]model.ExamInfo, error) {
	return s.examRepo.ListByCreator(creatorID)
}

// GetForOwner returns the full exam, solutions included, after an ownership
// check.
func (s *ExamService) GetForOwner(facultyID uint, examID string, kind model.ExamKind) (*model.ExamInfo, error) {
	exam, err := s.examRepo.FindExam(examID, kind)
	if err != nil {
		return nil, err
	}
	if !exam.OwnedBy(facultyID) {
		return nil, util.ErrNotOwner
	}
	return exam, nil
}

// SetPublished publishes or unpublishes an exam and invalidates the student
// catalog cache.
func (s *ExamService) SetPublished(ctx context.Context, facultyID uint, examID string, kind model.ExamKind, publish bool) error {
	if !kind.Valid() {
		return util.ErrExamNotFound
	}
	ok, err := s.examRepo.SetPublished(examID, kind, facultyID, publish)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrNotOwner
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, publishedExamsCacheKey).Err(); err != nil {
			logger.Log.Warn("published exams cache invalidation failed", zap.Error(err))
		}
	}

	logger.Log.Info("exam publication changed",
		zap.String("examId", examID),
		zap.Bool("published", publish))
	return nil
}

type SolutionUpdate struct {
	QuestionID string `json:"questionId" binding:"required"`
	Solution   string `json:"solution" binding:"required"`
}

// SaveSolutions writes teacher solutions onto an owned exam's questions.
// Unknown question ids are skipped.
func (s *ExamService) SaveSolutions(facultyID uint, examID string, kind model.ExamKind, updates []SolutionUpdate) (*model.ExamInfo, error) {
	exam, err := s.examRepo.FindExam(examID, kind)
	if err != nil {
		return nil, err
	}
	if !exam.OwnedBy(facultyID) {
		return nil, util.ErrNotOwner
	}

	known := exam.QuestionIndex()
	for _, u := range updates {
		if _, ok := known[u.QuestionID]; !ok {
			continue
		}
		if err := s.examRepo.UpdateQuestionSolution(kind, u.QuestionID, u.Solution); err != nil {
			return nil, err
		}
	}
	return s.examRepo.FindExam(examID, kind)
}
