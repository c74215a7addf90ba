package service

import (
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
)

// QueryService handles student questions about published results and the
// owner's responses.
type QueryService struct {
	queryRepo   *repository.QueryRepository
	attemptRepo *repository.AttemptRepository
	examRepo    *repository.ExamRepository

	now func() time.Time
}

func NewQueryService(queryRepo *repository.QueryRepository, attemptRepo *repository.AttemptRepository, examRepo *repository.ExamRepository) *QueryService {
	return &QueryService{
		queryRepo:   queryRepo,
		attemptRepo: attemptRepo,
		examRepo:    examRepo,
		now:         time.Now,
	}
}

type RaiseQueryRequest struct {
	AttemptID  uint   `json:"attemptId" binding:"required"`
	QuestionID string `json:"questionId" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

// Raise opens a query against the student's own published result. It is
// routed to the exam's owner; exams without an owner cannot be queried.
func (s *QueryService) Raise(studentID uint, req *RaiseQueryRequest) (*model.ResultQuery, error) {
	attempt, err := s.attemptRepo.FindByID(req.AttemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrForbidden
	}
	if !attempt.ResultsPublished {
		return nil, util.ErrNotEvaluated
	}

	exam, err := s.examRepo.FindExam(attempt.ExamID, attempt.ExamKind)
	if err != nil {
		return nil, err
	}
	if exam.CreatorID == nil {
		return nil, util.ErrExamNotFound
	}

	query := &model.ResultQuery{
		AttemptID:  attempt.ID,
		StudentID:  studentID,
		FacultyID:  *exam.CreatorID,
		ExamID:     exam.ID,
		ExamKind:   exam.Kind,
		QuestionID: req.QuestionID,
		Message:    req.Message,
		Status:     model.QueryPending,
	}
	if err := s.queryRepo.Create(query); err != nil {
		return nil, err
	}
	return query, nil
}

func (s *QueryService) ListForStudent(studentID uint) ([]model.ResultQuery, error) {
	return s.queryRepo.ListByStudent(studentID)
}

func (s *QueryService) ListForFaculty(facultyID uint) ([]model.ResultQuery, error) {
	return s.queryRepo.ListByFaculty(facultyID)
}

type RespondQueryRequest struct {
	Response string `json:"response" binding:"required"`
}

// Respond answers a pending query and resolves it. Only the faculty member
// the query was routed to may answer.
func (s *QueryService) Respond(facultyID, queryID uint, req *RespondQueryRequest) (*model.ResultQuery, error) {
	query, err := s.queryRepo.FindByID(queryID)
	if err != nil {
		return nil, err
	}
	if query.FacultyID != facultyID {
		return nil, util.ErrForbidden
	}

	query.Response = req.Response
	query.Status = model.QueryResolved
	resolvedAt := s.now()
	query.ResolvedAt = &resolvedAt

	if err := s.queryRepo.Update(query); err != nil {
		return nil, err
	}
	return query, nil
}
