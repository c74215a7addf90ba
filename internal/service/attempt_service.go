package service

import (
	"errors"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"

	"go.uber.org/zap"
)

// AttemptService owns the attempt lifecycle up to evaluation: submission,
// deadline classification and teacher-side listing.
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
	examRepo    *repository.ExamRepository

	// Injectable for deadline tests.
	now func() time.Time
}

func NewAttemptService(attemptRepo *repository.AttemptRepository, examRepo *repository.ExamRepository) *AttemptService {
	return &AttemptService{
		attemptRepo: attemptRepo,
		examRepo:    examRepo,
		now:         time.Now,
	}
}

type SubmittedAnswer struct {
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer"`
}

type SubmitAttemptRequest struct {
	ExamID   string            `json:"examId" binding:"required"`
	ExamType model.ExamKind    `json:"examType" binding:"required"`
	Answers  []SubmittedAnswer `json:"answers" binding:"required"`
	// Client-reported start, epoch milliseconds. Trusted as-is; the server
	// never saw the student open the exam. Zero means "just now".
	StartedAt    int64 `json:"startedAt"`
	TimerExpired bool  `json:"timerExpired"`
}

type SubmitAttemptResponse struct {
	AttemptID        uint                `json:"attemptId"`
	Status           model.AttemptStatus `json:"status"`
	IsLate           bool                `json:"isLate"`
	TimeTakenMinutes int                 `json:"timeTakenMinutes"`
}

// Submit records a student's one and only attempt at an exam. The exam must
// be published; a second submit of the same exam fails with
// ErrDuplicateAttempt whether it loses the pre-check or the unique index.
func (s *AttemptService) Submit(studentID uint, req *SubmitAttemptRequest) (*SubmitAttemptResponse, error) {
	if !req.ExamType.Valid() {
		return nil, util.ErrExamNotFound
	}

	exam, err := s.examRepo.FindExam(req.ExamID, req.ExamType)
	if err != nil {
		return nil, err
	}
	if !exam.IsPublished {
		return nil, util.ErrExamUnpublished
	}

	if _, err := s.attemptRepo.FindByStudentAndExam(studentID, req.ExamID); err == nil {
		return nil, util.ErrDuplicateAttempt
	} else if !errors.Is(err, util.ErrAttemptNotFound) {
		return nil, err
	}

	submittedAt := s.now()
	startedAt := submittedAt
	if req.StartedAt > 0 {
		startedAt = time.UnixMilli(req.StartedAt)
	}
	verdict := ClassifySubmission(startedAt, exam.Duration(), submittedAt, req.TimerExpired)

	status := model.AttemptStatus(verdict.Status)

	attempt := &model.ExamAttempt{
		StudentID:   studentID,
		ExamID:      exam.ID,
		ExamKind:    exam.Kind,
		Status:      status,
		StartedAt:   startedAt,
		ExpiresAt:   verdict.ExpiresAt,
		SubmittedAt: submittedAt,
		Answers:     make([]model.AttemptAnswer, len(req.Answers)),
	}
	for i, a := range req.Answers {
		attempt.Answers[i] = model.AttemptAnswer{
			QuestionID: a.QuestionID,
			AnswerText: a.Answer,
			Order:      i,
		}
	}

	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, err
	}

	logger.Log.Info("exam attempt submitted",
		zap.Uint("studentId", studentID),
		zap.String("examId", exam.ID),
		zap.String("status", string(status)))

	taken := int(submittedAt.Sub(startedAt).Minutes())
	if taken < 0 {
		taken = 0
	}
	return &SubmitAttemptResponse{
		AttemptID:        attempt.ID,
		Status:           status,
		IsLate:           verdict.IsLate,
		TimeTakenMinutes: taken,
	}, nil
}

// ListForExam returns all attempts of an exam, owner-checked.
func (s *AttemptService) ListForExam(facultyID uint, examID string, kind model.ExamKind) ([]model.ExamAttempt, error) {
	exam, err := s.examRepo.FindExam(examID, kind)
	if err != nil {
		return nil, err
	}
	if !exam.OwnedBy(facultyID) {
		return nil, util.ErrNotOwner
	}
	return s.attemptRepo.ListByExam(examID)
}

// DeleteOne removes a single attempt; the caller must own the exam the
// attempt belongs to. Used to let a student retake after an invalidated
// sitting.
func (s *AttemptService) DeleteOne(facultyID uint, attemptID uint) error {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return err
	}
	exam, err := s.examRepo.FindExam(attempt.ExamID, attempt.ExamKind)
	if err != nil {
		return err
	}
	if !exam.OwnedBy(facultyID) {
		return util.ErrNotOwner
	}
	return s.attemptRepo.Delete(attemptID)
}

// DeleteAllForExam wipes every attempt of an owned exam and reports the
// count.
func (s *AttemptService) DeleteAllForExam(facultyID uint, examID string, kind model.ExamKind) (int64, error) {
	exam, err := s.examRepo.FindExam(examID, kind)
	if err != nil {
		return 0, err
	}
	if !exam.OwnedBy(facultyID) {
		return 0, util.ErrNotOwner
	}
	deleted, err := s.attemptRepo.DeleteByExam(examID)
	if err != nil {
		return 0, err
	}
	logger.Log.Info("exam attempts cleared",
		zap.String("examId", examID),
		zap.Int64("deleted", deleted))
	return deleted, nil
}
