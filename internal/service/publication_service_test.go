package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"
)

func evaluateSeeded(t *testing.T, svc *EvaluationService, facultyID, attemptID uint) {
	t.Helper()
	if _, err := svc.EvaluateAttempt(context.Background(), facultyID, attemptID); err != nil {
		t.Fatalf("EvaluateAttempt: %v", err)
	}
}

func scoringEvaluator(exam *model.EssayExam) *fakeEvaluator {
	return &fakeEvaluator{outcome: &EvaluationOutcome{
		Success: true,
		Results: []QuestionResult{
			{QuestionID: exam.Questions[0].ID, Score: 80, Feedback: "solid"},
			{QuestionID: exam.Questions[1].ID, Score: 60, Feedback: "brief"},
		},
	}}
}

func TestPublishOneRequiresEvaluation(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "alice@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	svc := NewPublicationService(attemptRepo, examRepo)

	if _, err := svc.PublishOne(faculty.ID, attempt.ID); !errors.Is(err, util.ErrNotEvaluated) {
		t.Errorf("err = %v, want ErrNotEvaluated", err)
	}
}

func TestPublishOneIdempotent(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "bob@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	evalSvc := NewEvaluationService(attemptRepo, examRepo, scoringEvaluator(exam))
	evaluateSeeded(t, evalSvc, faculty.ID, attempt.ID)

	svc := NewPublicationService(attemptRepo, examRepo)

	first, err := svc.PublishOne(faculty.ID, attempt.ID)
	if err != nil {
		t.Fatalf("first PublishOne: %v", err)
	}
	if !first.ResultsPublished {
		t.Fatal("first publish did not flip the flag")
	}

	second, err := svc.PublishOne(faculty.ID, attempt.ID)
	if err != nil {
		t.Fatalf("second PublishOne: %v", err)
	}
	if !second.ResultsPublished {
		t.Error("second publish lost the flag")
	}
	if second.Status != model.AttemptEvaluated {
		t.Errorf("status = %q after republish, want evaluated", second.Status)
	}
}

func TestPublishOneOwnershipRequired(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	owner := seedUser(t, db, model.Faculty, "owner@example.com")
	intruder := seedUser(t, db, model.Faculty, "intruder@example.com")
	student := seedUser(t, db, model.Student, "carol@example.com")
	exam := seedEssayExam(t, db, owner.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	evalSvc := NewEvaluationService(attemptRepo, examRepo, scoringEvaluator(exam))
	evaluateSeeded(t, evalSvc, owner.ID, attempt.ID)

	svc := NewPublicationService(attemptRepo, examRepo)
	if _, err := svc.PublishOne(intruder.ID, attempt.ID); !errors.Is(err, util.ErrNotOwner) {
		t.Errorf("err = %v, want ErrNotOwner", err)
	}
}

func TestPublishAllForExamSkipsUnevaluated(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)

	evalSvc := NewEvaluationService(attemptRepo, examRepo, scoringEvaluator(exam))

	for i := 0; i < 2; i++ {
		student := seedUser(t, db, model.Student, fmt.Sprintf("s%d@example.com", i))
		a := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)
		evaluateSeeded(t, evalSvc, faculty.ID, a.ID)
	}
	pending := seedAttempt(t, db,
		seedUser(t, db, model.Student, "pending@example.com").ID,
		exam, model.AttemptSubmitted)

	svc := NewPublicationService(attemptRepo, examRepo)
	published, err := svc.PublishAllForExam(faculty.ID, exam.ID, model.KindEssay)
	if err != nil {
		t.Fatalf("PublishAllForExam: %v", err)
	}
	if published != 2 {
		t.Errorf("published = %d, want 2", published)
	}

	storedPending, _ := attemptRepo.FindByID(pending.ID)
	if storedPending.ResultsPublished {
		t.Error("unevaluated attempt got published")
	}

	// A second run flips nothing new.
	again, err := svc.PublishAllForExam(faculty.ID, exam.ID, model.KindEssay)
	if err != nil {
		t.Fatalf("second PublishAllForExam: %v", err)
	}
	if again != 0 {
		t.Errorf("second run published %d, want 0", again)
	}
}

func TestReadForStudentHidesScoresUntilPublished(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "dave@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)
	attempt := seedAttempt(t, db, student.ID, exam, model.AttemptSubmitted)

	evalSvc := NewEvaluationService(attemptRepo, examRepo, scoringEvaluator(exam))
	evaluateSeeded(t, evalSvc, faculty.ID, attempt.ID)

	svc := NewPublicationService(attemptRepo, examRepo)

	view, err := svc.ReadForStudent(student.ID, exam.ID)
	if err != nil {
		t.Fatalf("ReadForStudent: %v", err)
	}
	if view.TotalScore != nil {
		t.Errorf("TotalScore leaked before publication: %d", *view.TotalScore)
	}
	for _, a := range view.Answers {
		if a.Score != nil || a.Feedback != nil {
			t.Errorf("answer %s leaked score or feedback before publication", a.QuestionID)
		}
	}

	if _, err := svc.PublishOne(faculty.ID, attempt.ID); err != nil {
		t.Fatalf("PublishOne: %v", err)
	}

	view, err = svc.ReadForStudent(student.ID, exam.ID)
	if err != nil {
		t.Fatalf("ReadForStudent after publish: %v", err)
	}
	if view.TotalScore == nil || *view.TotalScore != 70 {
		t.Errorf("TotalScore = %v, want 70", view.TotalScore)
	}
	for _, a := range view.Answers {
		if a.Score == nil {
			t.Errorf("answer %s missing score after publication", a.QuestionID)
		}
	}
	if view.ExamTitle != exam.Title {
		t.Errorf("ExamTitle = %q, want %q", view.ExamTitle, exam.Title)
	}
}

func TestListForStudentTotalsOnlyWherePublished(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "erin@example.com")

	examA := seedEssayExam(t, db, faculty.ID, true, true)
	examB := seedEssayExam(t, db, faculty.ID, true, true)

	attemptA := seedAttempt(t, db, student.ID, examA, model.AttemptSubmitted)
	seedAttempt(t, db, student.ID, examB, model.AttemptSubmitted)

	evalSvc := NewEvaluationService(attemptRepo, examRepo, scoringEvaluator(examA))
	evaluateSeeded(t, evalSvc, faculty.ID, attemptA.ID)

	svc := NewPublicationService(attemptRepo, examRepo)
	if _, err := svc.PublishOne(faculty.ID, attemptA.ID); err != nil {
		t.Fatalf("PublishOne: %v", err)
	}

	summaries, err := svc.ListForStudent(student.ID)
	if err != nil {
		t.Fatalf("ListForStudent: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	for _, s := range summaries {
		switch s.ExamID {
		case examA.ID:
			if s.TotalScore == nil {
				t.Error("published attempt missing total")
			}
		case examB.ID:
			if s.TotalScore != nil {
				t.Error("unpublished attempt leaked total")
			}
		}
	}
}
