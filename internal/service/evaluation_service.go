package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// EvaluationService runs the evaluator over attempts and folds the results
// back into per-answer scores and an aggregate total.
type EvaluationService struct {
	attemptRepo *repository.AttemptRepository
	examRepo    *repository.ExamRepository
	evaluator   Evaluator

	now func() time.Time
}

func NewEvaluationService(attemptRepo *repository.AttemptRepository, examRepo *repository.ExamRepository, evaluator Evaluator) *EvaluationService {
	return &EvaluationService{
		attemptRepo: attemptRepo,
		examRepo:    examRepo,
		evaluator:   evaluator,
		now:         time.Now,
	}
}

// EvaluateAttempt grades one attempt. Only answers whose question carries a
// teacher solution are sent to the evaluator; if none qualify the call fails
// with ErrNoReferenceSolutions and the attempt is untouched. The total is
// the mean of every score the evaluator returned, rounded half away from
// zero. Evaluation is repeatable: re-running over an already evaluated
// attempt replaces its scores.
func (s *EvaluationService) EvaluateAttempt(ctx context.Context, facultyID, attemptID uint) (*model.ExamAttempt, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	exam, err := s.examRepo.FindExam(attempt.ExamID, attempt.ExamKind)
	if err != nil {
		return nil, err
	}
	if !exam.OwnedBy(facultyID) {
		return nil, util.ErrNotOwner
	}

	if err := s.evaluate(ctx, attempt, exam); err != nil {
		monitoring.EvaluationCounter.WithLabelValues("failure").Inc()
		return nil, err
	}
	monitoring.EvaluationCounter.WithLabelValues("success").Inc()

	if err := s.attemptRepo.Update(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// BulkOutcome summarizes a whole-exam evaluation run.
type BulkOutcome struct {
	Total     int `json:"total"`
	Evaluated int `json:"evaluated"`
	Failed    int `json:"failed"`
}

// EvaluateAllForExam grades every submitted attempt of an exam. Expired and
// already-evaluated attempts are skipped. One attempt failing does not stop
// the run; failures are counted and the failing attempts keep their status.
func (s *EvaluationService) EvaluateAllForExam(ctx context.Context, facultyID uint, examID string, kind model.ExamKind) (*BulkOutcome, error) {
	exam, err := s.examRepo.FindExam(examID, kind)
	if err != nil {
		return nil, err
	}
	if !exam.OwnedBy(facultyID) {
		return nil, util.ErrNotOwner
	}

	attempts, err := s.attemptRepo.ListByExamAndStatus(examID, model.AttemptSubmitted)
	if err != nil {
		return nil, err
	}

	outcome := &BulkOutcome{Total: len(attempts)}
	for i := range attempts {
		attempt := &attempts[i]
		if err := s.evaluate(ctx, attempt, exam); err != nil {
			monitoring.EvaluationCounter.WithLabelValues("failure").Inc()
			logger.Log.Warn("bulk evaluation: attempt failed",
				zap.Uint("attemptId", attempt.ID),
				zap.Error(err))
			outcome.Failed++
			continue
		}
		if err := s.attemptRepo.Update(attempt); err != nil {
			monitoring.EvaluationCounter.WithLabelValues("failure").Inc()
			logger.Log.Warn("bulk evaluation: persist failed",
				zap.Uint("attemptId", attempt.ID),
				zap.Error(err))
			outcome.Failed++
			continue
		}
		monitoring.EvaluationCounter.WithLabelValues("success").Inc()
		outcome.Evaluated++
	}

	logger.Log.Info("bulk evaluation finished",
		zap.String("examId", examID),
		zap.Int("total", outcome.Total),
		zap.Int("evaluated", outcome.Evaluated),
		zap.Int("failed", outcome.Failed))
	return outcome, nil
}

// evaluate mutates the attempt in place; callers persist it.
func (s *EvaluationService) evaluate(ctx context.Context, attempt *model.ExamAttempt, exam *model.ExamInfo) error {
	questions := exam.QuestionIndex()

	items := make([]EvaluationItem, 0, len(attempt.Answers))
	for _, a := range attempt.Answers {
		q, ok := questions[a.QuestionID]
		if !ok || q.TeacherSolution == "" {
			continue
		}
		items = append(items, EvaluationItem{
			QuestionID:      a.QuestionID,
			Answer:          a.AnswerText,
			ReferenceAnswer: q.TeacherSolution,
		})
	}
	if len(items) == 0 {
		return util.ErrNoReferenceSolutions
	}

	outcome, err := s.evaluator.Evaluate(ctx, exam.Variant, EvaluationRequest{Submissions: items})
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrEvaluatorFailure, err)
	}
	if !outcome.Success {
		msg := outcome.Error
		if msg == "" {
			msg = "evaluator reported failure"
		}
		return fmt.Errorf("%w: %s", util.ErrEvaluatorFailure, msg)
	}
	if len(outcome.Results) == 0 {
		return fmt.Errorf("%w: evaluator returned no results", util.ErrEvaluatorFailure)
	}

	// Fold scores back by question id; results for unknown ids still count
	// toward the total but land on no answer.
	byQuestion := make(map[string]*model.AttemptAnswer, len(attempt.Answers))
	for i := range attempt.Answers {
		byQuestion[attempt.Answers[i].QuestionID] = &attempt.Answers[i]
	}

	sum := 0
	for _, res := range outcome.Results {
		sum += res.Score
		if answer, ok := byQuestion[res.QuestionID]; ok {
			answer.Score = res.Score
			answer.Feedback = res.Feedback
		}
	}

	attempt.TotalScore = int(math.Round(float64(sum) / float64(len(outcome.Results))))
	attempt.Status = model.AttemptEvaluated
	evaluatedAt := s.now()
	attempt.EvaluatedAt = &evaluatedAt
	return nil
}

type ManualScore struct {
	QuestionID string `json:"questionId" binding:"required"`
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
}

// UpdateEvaluation lets the exam owner correct scores after an automatic
// run. Only evaluated attempts can be edited; the total is recomputed as
// the mean over all answers.
func (s *EvaluationService) UpdateEvaluation(facultyID, attemptID uint, scores []ManualScore) (*model.ExamAttempt, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	exam, err := s.examRepo.FindExam(attempt.ExamID, attempt.ExamKind)
	if err != nil {
		return nil, err
	}
	if !exam.OwnedBy(facultyID) {
		return nil, util.ErrNotOwner
	}
	if attempt.Status != model.AttemptEvaluated {
		return nil, util.ErrNotEvaluated
	}

	byQuestion := make(map[string]*model.AttemptAnswer, len(attempt.Answers))
	for i := range attempt.Answers {
		byQuestion[attempt.Answers[i].QuestionID] = &attempt.Answers[i]
	}
	for _, sc := range scores {
		if answer, ok := byQuestion[sc.QuestionID]; ok {
			answer.Score = sc.Score
			if sc.Feedback != "" {
				answer.Feedback = sc.Feedback
			}
		}
	}

	if len(attempt.Answers) > 0 {
		sum := 0
		for _, a := range attempt.Answers {
			sum += a.Score
		}
		attempt.TotalScore = int(math.Round(float64(sum) / float64(len(attempt.Answers))))
	}
	evaluatedAt := s.now()
	attempt.EvaluatedAt = &evaluatedAt

	if err := s.attemptRepo.Update(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}
