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

// PublicationService controls when students can see their scores. Scores
// exist from the moment of evaluation but stay invisible until the exam
// owner publishes them, per attempt or for the whole exam.
type PublicationService struct {
	attemptRepo *repository.AttemptRepository
	examRepo    *repository.ExamRepository
}

func NewPublicationService(attemptRepo *repository.AttemptRepository, examRepo *repository.ExamRepository) *PublicationService {
	return &PublicationService{
		attemptRepo: attemptRepo,
		examRepo:    examRepo,
	}
}

// PublishOne releases a single attempt's results. Only evaluated attempts
// can be published; publishing twice is a no-op, not an error.
func (s *PublicationService) PublishOne(facultyID, attemptID uint) (*model.ExamAttempt, error) {
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
	if attempt.ResultsPublished {
		return attempt, nil
	}

	attempt.ResultsPublished = true
	if err := s.attemptRepo.Update(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// PublishAllForExam releases every evaluated attempt of an owned exam and
// reports how many flipped. Unevaluated attempts are left alone.
func (s *PublicationService) PublishAllForExam(facultyID uint, examID string, kind model.ExamKind) (int64, error) {
	exam, err := s.examRepo.FindExam(examID, kind)
	if err != nil {
		return 0, err
	}
	if !exam.OwnedBy(facultyID) {
		return 0, util.ErrNotOwner
	}

	published, err := s.attemptRepo.PublishAll(examID)
	if err != nil {
		return 0, err
	}
	logger.Log.Info("exam results published",
		zap.String("examId", examID),
		zap.Int64("published", published))
	return published, nil
}

// AnswerResultView is one answer as the student sees it. Score and feedback
// are pointers so they vanish from the JSON entirely while results are
// unpublished, instead of reading as zero.
type AnswerResultView struct {
	QuestionID string  `json:"questionId"`
	Question   string  `json:"question,omitempty"`
	Answer     string  `json:"answer"`
	Score      *int    `json:"score,omitempty"`
	Feedback   *string `json:"feedback,omitempty"`
}

type StudentResultView struct {
	AttemptID        uint                `json:"attemptId"`
	ExamID           string              `json:"examId"`
	ExamType         model.ExamKind      `json:"examType"`
	ExamTitle        string              `json:"examTitle"`
	Status           model.AttemptStatus `json:"status"`
	ResultsPublished bool                `json:"resultsPublished"`
	SubmittedAt      time.Time           `json:"submittedAt"`
	TotalScore       *int                `json:"totalScore,omitempty"`
	// Message explains why scores are absent while results are withheld.
	Message string             `json:"message,omitempty"`
	Answers []AnswerResultView `json:"answers"`
}

// ReadForStudent returns the student's own attempt with scores included only
// once published.
func (s *PublicationService) ReadForStudent(studentID uint, examID string) (*StudentResultView, error) {
	attempt, err := s.attemptRepo.FindByStudentAndExam(studentID, examID)
	if err != nil {
		return nil, err
	}

	var exam *model.ExamInfo
	if attempt.ExamKind.Valid() {
		exam, err = s.examRepo.FindExam(attempt.ExamID, attempt.ExamKind)
		if err != nil {
			if !errors.Is(err, util.ErrExamNotFound) {
				return nil, err
			}
			// Exam deleted after the fact; the view still renders from the
			// attempt's own data.
			exam = nil
		}
	}

	return s.buildView(attempt, exam), nil
}

// AttemptSummary is one row of a student's attempt history.
type AttemptSummary struct {
	AttemptID        uint                `json:"attemptId"`
	ExamID           string              `json:"examId"`
	ExamType         model.ExamKind      `json:"examType"`
	Status           model.AttemptStatus `json:"status"`
	ResultsPublished bool                `json:"resultsPublished"`
	SubmittedAt      time.Time           `json:"submittedAt"`
	TotalScore       *int                `json:"totalScore,omitempty"`
}

// ListForStudent returns the student's attempt history, newest first, with
// totals only where published.
func (s *PublicationService) ListForStudent(studentID uint) ([]AttemptSummary, error) {
	attempts, err := s.attemptRepo.ListByStudent(studentID)
	if err != nil {
		return nil, err
	}

	summaries := make([]AttemptSummary, len(attempts))
	for i, a := range attempts {
		summary := AttemptSummary{
			AttemptID:        a.ID,
			ExamID:           a.ExamID,
			ExamType:         a.ExamKind,
			Status:           a.Status,
			ResultsPublished: a.ResultsPublished,
			SubmittedAt:      a.SubmittedAt,
		}
		if a.ResultsPublished {
			total := a.TotalScore
			summary.TotalScore = &total
		}
		summaries[i] = summary
	}
	return summaries, nil
}

func (s *PublicationService) buildView(attempt *model.ExamAttempt, exam *model.ExamInfo) *StudentResultView {
	view := &StudentResultView{
		AttemptID:        attempt.ID,
		ExamID:           attempt.ExamID,
		ExamType:         attempt.ExamKind,
		Status:           attempt.Status,
		ResultsPublished: attempt.ResultsPublished,
		SubmittedAt:      attempt.SubmittedAt,
		Answers:          make([]AnswerResultView, len(attempt.Answers)),
	}

	var questions map[string]model.QuestionInfo
	if exam != nil {
		view.ExamTitle = exam.Title
		questions = exam.QuestionIndex()
	}

	if attempt.ResultsPublished {
		total := attempt.TotalScore
		view.TotalScore = &total
	} else {
		switch attempt.Status {
		case model.AttemptEvaluated:
			view.Message = "Results have not been published yet."
		default:
			view.Message = "Your attempt is awaiting evaluation."
		}
	}

	for i, a := range attempt.Answers {
		av := AnswerResultView{
			QuestionID: a.QuestionID,
			Answer:     a.AnswerText,
		}
		if q, ok := questions[a.QuestionID]; ok {
			av.Question = q.Text
		}
		if attempt.ResultsPublished {
			score := a.Score
			feedback := a.Feedback
			av.Score = &score
			av.Feedback = &feedback
		}
		view.Answers[i] = av
	}
	return view
}
