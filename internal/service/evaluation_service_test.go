package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"

	"gorm.io/gorm"
)

// seedAttempt inserts an attempt answering both questions of the exam.
func seedAttempt(t *testing.T, db *gorm.DB, studentID uint, exam *model.EssayExam, status model.AttemptStatus) *model.ExamAttempt {
	t.Helper()
	now := time.Now()
	attempt := &model.ExamAttempt{
		StudentID:   studentID,
		ExamID:      exam.ID,
		ExamKind:    model.KindEssay,
		Status:      status,
		StartedAt:   now.Add(-time.Hour),
		ExpiresAt:   now.Add(time.Hour),
		SubmittedAt: now,
		Answers: []model.AttemptAnswer{
			{QuestionID: exam.Questions[0].ID, AnswerText: "answer one", Order: 0},
			{QuestionID: exam.Questions[1].ID, AnswerText: "answer two", Order: 1},
		},
	}
	if err := db.Create(attempt).Error; err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	return attempt
}

func TestEvaluateAttemptAveragesScores(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "alice@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	eval := &fakeEvaluator{outcome: &EvaluationOutcome{
		Success: true,
		Results: []QuestionResult{
			{QuestionID: exam.Questions[0].ID, Score: 80, Feedback: "good"},
			{QuestionID: exam.Questions[1].ID, Score: 60, Feedback: "thin"},
		},
	}}
	svc := NewEvaluationService(attemptRepo, examRepo, eval)

	got, err := svc.EvaluateAttempt(context.Background(), faculty.ID, attempt.ID)
	if err != nil {
		t.Fatalf("EvaluateAttempt: %v", err)
	}
	if got.TotalScore != 70 {
		t.Errorf("TotalScore = %d, want 70", got.TotalScore)
	}
	if got.Status != model.AttemptEvaluated {
		t.Errorf("Status = %q, want evaluated", got.Status)
	}
	if got.EvaluatedAt == nil {
		t.Error("EvaluatedAt not set")
	}
	if got.ResultsPublished {
		t.Error("evaluation must not publish results")
	}

	stored, err := attemptRepo.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	for _, a := range stored.Answers {
		if a.Score == 0 || a.Feedback == "" {
			t.Errorf("answer %s missing score or feedback", a.QuestionID)
		}
	}
}

func TestEvaluateAttemptRoundsMean(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "bob@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	// (75 + 70) / 2 = 72.5, rounds to 73.
	eval := &fakeEvaluator{outcome: &EvaluationOutcome{
		Success: true,
		Results: []QuestionResult{
			{QuestionID: exam.Questions[0].ID, Score: 75},
			{QuestionID: exam.Questions[1].ID, Score: 70},
		},
	}}
	svc := NewEvaluationService(attemptRepo, examRepo, eval)

	got, err := svc.EvaluateAttempt(context.Background(), faculty.ID, attempt.ID)
	if err != nil {
		t.Fatalf("EvaluateAttempt: %v", err)
	}
	if got.TotalScore != 73 {
		t.Errorf("TotalScore = %d, want 73", got.TotalScore)
	}
}

func TestEvaluateAttemptNoReferenceSolutions(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "carol@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, false)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	eval := &fakeEvaluator{}
	svc := NewEvaluationService(attemptRepo, examRepo, eval)

	_, err := svc.EvaluateAttempt(context.Background(), faculty.ID, attempt.ID)
	if !errors.Is(err, util.ErrNoReferenceSolutions) {
		t.Fatalf("err = %v, want ErrNoReferenceSolutions", err)
	}
	if eval.calls != 0 {
		t.Error("evaluator called despite no gradeable answers")
	}

	stored, _ := attemptRepo.FindByID(attempt.ID)
	if stored.Status != model.AttemptSubmitted {
		t.Errorf("status changed to %q on failure", stored.Status)
	}
}

func TestEvaluateAttemptEvaluatorFailure(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "dave@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	svc := NewEvaluationService(attemptRepo, examRepo,
		&fakeEvaluator{outcome: &EvaluationOutcome{Success: false, Error: "grader crashed"}})

	_, err := svc.EvaluateAttempt(context.Background(), faculty.ID, attempt.ID)
	if !errors.Is(err, util.ErrEvaluatorFailure) {
		t.Fatalf("err = %v, want ErrEvaluatorFailure", err)
	}

	stored, _ := attemptRepo.FindByID(attempt.ID)
	if stored.Status != model.AttemptSubmitted || stored.TotalScore != 0 {
		t.Errorf("failed evaluation mutated the attempt: status=%q score=%d",
			stored.Status, stored.TotalScore)
	}
}

func TestEvaluateAttemptOwnershipRequired(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	owner := seedUser(t, db, model.Faculty, "owner@example.com")
	intruder := seedUser(t, db, model.Faculty, "intruder@example.com")
	student := seedUser(t, db, model.Student, "erin@example.com")
	exam := seedEssayExam(t, db, owner.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	svc := NewEvaluationService(attemptRepo, examRepo, &fakeEvaluator{})

	if _, err := svc.EvaluateAttempt(context.Background(), intruder.ID, attempt.ID); !errors.Is(err, util.ErrNotOwner) {
		t.Errorf("err = %v, want ErrNotOwner", err)
	}
}

func TestEvaluateAllForExamFailSoft(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)

	var attempts []*model.ExamAttempt
	for i := 0; i < 3; i++ {
		student := seedUser(t, db, model.Student, fmt.Sprintf("s%d@example.com", i))
		attempts = append(attempts, seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted))
	}
	// An expired attempt must not be picked up by the bulk run.
	lateStudent := seedUser(t, db, model.Student, "late@example.com")
	expired := seedAttempt(t, db, lateStudent.ID, exam, model.AttemptExpired)

	// Fail exactly the second attempt's batch, identified by its answer text.
	eval := &fakeEvaluator{fn: func(req EvaluationRequest) (*EvaluationOutcome, error) {
		results := make([]QuestionResult, len(req.Submissions))
		for i, item := range req.Submissions {
			results[i] = QuestionResult{QuestionID: item.QuestionID, Score: 90}
		}
		return &EvaluationOutcome{Success: true, Results: results}, nil
	}}
	failing := attempts[1].ID
	calls := 0
	inner := eval.fn
	eval.fn = func(req EvaluationRequest) (*EvaluationOutcome, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("boom")
		}
		return inner(req)
	}

	svc := NewEvaluationService(attemptRepo, examRepo, eval)
	outcome, err := svc.EvaluateAllForExam(context.Background(), faculty.ID, exam.ID, model.KindEssay)
	if err != nil {
		t.Fatalf("EvaluateAllForExam: %v", err)
	}
	if outcome.Total != 3 || outcome.Evaluated != 2 || outcome.Failed != 1 {
		t.Errorf("outcome = %+v, want total 3, evaluated 2, failed 1", outcome)
	}

	// Attempts are processed in submission order, so the second seeded
	// attempt is the failed one and keeps its status.
	stored, _ := attemptRepo.FindByID(failing)
	if stored.Status != model.AttemptSubmitted {
		t.Errorf("failed attempt status = %q, want submitted", stored.Status)
	}
	storedExpired, _ := attemptRepo.FindByID(expired.ID)
	if storedExpired.Status != model.AttemptExpired {
		t.Errorf("expired attempt was touched: %q", storedExpired.Status)
	}
}

func TestUpdateEvaluationRequiresEvaluated(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "frank@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	svc := NewEvaluationService(attemptRepo, examRepo, &fakeEvaluator{})

	_, err := svc.UpdateEvaluation(faculty.ID, attempt.ID, []ManualScore{
		{QuestionID: exam.Questions[0].ID, Score: 100},
	})
	if !errors.Is(err, util.ErrNotEvaluated) {
		t.Errorf("err = %v, want ErrNotEvaluated", err)
	}
}

func TestUpdateEvaluationRecomputesTotal(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "grace@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	eval := &fakeEvaluator{outcome: &EvaluationOutcome{
		Success: true,
		Results: []QuestionResult{
			{QuestionID: exam.Questions[0].ID, Score: 80},
			{QuestionID: exam.Questions[1].ID, Score: 60},
		},
	}}
	svc := NewEvaluationService(attemptRepo, examRepo, eval)
	if _, err := svc.EvaluateAttempt(context.Background(), faculty.ID, attempt.ID); err != nil {
		t.Fatalf("EvaluateAttempt: %v", err)
	}

	got, err := svc.UpdateEvaluation(faculty.ID, attempt.ID, []ManualScore{
		{QuestionID: exam.Questions[1].ID, Score: 90, Feedback: "regraded"},
	})
	if err != nil {
		t.Fatalf("UpdateEvaluation: %v", err)
	}
	// (80 + 90) / 2 = 85.
	if got.TotalScore != 85 {
		t.Errorf("TotalScore = %d, want 85", got.TotalScore)
	}
	if got.Status != model.AttemptEvaluated {
		t.Errorf("Status = %q, want evaluated", got.Status)
	}
}
