package service

import (
	"errors"
	"testing"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"
)

func submitRequest(exam *model.EssayExam, startedAt time.Time) *SubmitAttemptRequest {
	return &SubmitAttemptRequest{
		ExamID:   exam.ID,
		ExamType: model.KindEssay,
		Answers: []SubmittedAnswer{
			{QuestionID: exam.Questions[0].ID, Answer: "slow start and congestion avoidance"},
			{QuestionID: exam.Questions[1].ID, Answer: "UDP is connectionless"},
		},
		StartedAt: startedAt.UnixMilli(),
	}
}

func TestSubmitOnTime(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "alice@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)

	svc := NewAttemptService(attemptRepo, examRepo)
	start := time.Now().Add(-50 * time.Minute)
	svc.now = func() time.Time { return start.Add(50 * time.Minute) }

	resp, err := svc.Submit(student.ID, submitRequest(exam, start))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Status != model.AttemptSubmitted {
		t.Errorf("status = %q, want %q", resp.Status, model.AttemptSubmitted)
	}
	if resp.IsLate {
		t.Error("on-time submission flagged late")
	}
	if resp.TimeTakenMinutes != 50 {
		t.Errorf("TimeTakenMinutes = %d, want 50", resp.TimeTakenMinutes)
	}

	stored, err := attemptRepo.FindByID(resp.AttemptID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(stored.Answers) != 2 {
		t.Fatalf("stored %d answers, want 2", len(stored.Answers))
	}
	if stored.TotalScore != 0 {
		t.Errorf("fresh attempt has TotalScore %d", stored.TotalScore)
	}
}

func TestSubmitPastDeadline(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "bob@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)

	svc := NewAttemptService(attemptRepo, examRepo)
	start := time.Now().Add(-121 * time.Minute)
	svc.now = func() time.Time { return start.Add(121 * time.Minute) }

	resp, err := svc.Submit(student.ID, submitRequest(exam, start))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Status != model.AttemptExpired {
		t.Errorf("status = %q, want %q", resp.Status, model.AttemptExpired)
	}
	if !resp.IsLate {
		t.Error("late submission not flagged")
	}

	// Late submissions are still recorded with their answers.
	stored, err := attemptRepo.FindByStudentAndExam(student.ID, exam.ID)
	if err != nil {
		t.Fatalf("FindByStudentAndExam: %v", err)
	}
	if len(stored.Answers) != 2 {
		t.Errorf("stored %d answers, want 2", len(stored.Answers))
	}
}

func TestSubmitTimerExpiredWithinWindow(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "henry@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)

	svc := NewAttemptService(attemptRepo, examRepo)
	start := time.Now().Add(-30 * time.Minute)
	svc.now = func() time.Time { return start.Add(30 * time.Minute) }

	req := submitRequest(exam, start)
	req.TimerExpired = true

	resp, err := svc.Submit(student.ID, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// The client's countdown fired, so the attempt lands as expired, but the
	// clock says the submission itself was in the window.
	if resp.Status != model.AttemptExpired {
		t.Errorf("status = %q, want %q", resp.Status, model.AttemptExpired)
	}
	if resp.IsLate {
		t.Error("submission inside the window flagged late")
	}
}

func TestSubmitUnpublishedExam(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "carol@example.com")
	exam := seedEssayExam(t, db, faculty.ID, false, true)

	svc := NewAttemptService(attemptRepo, examRepo)

	_, err := svc.Submit(student.ID, submitRequest(exam, time.Now().Add(-10*time.Minute)))
	if !errors.Is(err, util.ErrExamUnpublished) {
		t.Errorf("err = %v, want ErrExamUnpublished", err)
	}
}

func TestSubmitDuplicate(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	faculty := seedUser(t, db, model.Faculty, "prof@example.com")
	student := seedUser(t, db, model.Student, "dave@example.com")
	exam := seedEssayExam(t, db, faculty.ID, true, true)

	svc := NewAttemptService(attemptRepo, examRepo)
	start := time.Now().Add(-30 * time.Minute)

	if _, err := svc.Submit(student.ID, submitRequest(exam, start)); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, err := svc.Submit(student.ID, submitRequest(exam, start))
	if !errors.Is(err, util.ErrDuplicateAttempt) {
		t.Errorf("second Submit err = %v, want ErrDuplicateAttempt", err)
	}

	// A different student is unaffected.
	other := seedUser(t, db, model.Student, "erin@example.com")
	if _, err := svc.Submit(other.ID, submitRequest(exam, start)); err != nil {
		t.Errorf("other student's Submit: %v", err)
	}
}

func TestSubmitUnknownExam(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	student := seedUser(t, db, model.Student, "frank@example.com")

	svc := NewAttemptService(attemptRepo, examRepo)
	req := &SubmitAttemptRequest{
		ExamID:    "no-such-exam",
		ExamType:  model.KindEssay,
		Answers:   []SubmittedAnswer{{QuestionID: "q", Answer: "a"}},
		StartedAt: time.Now().UnixMilli(),
	}
	if _, err := svc.Submit(student.ID, req); !errors.Is(err, util.ErrExamNotFound) {
		t.Errorf("err = %v, want ErrExamNotFound", err)
	}
}

func TestDeleteAllForExamRequiresOwnership(t *testing.T) {
	db := newTestDB(t)
	attemptRepo, examRepo := newRepos(db)
	owner := seedUser(t, db, model.Faculty, "owner@example.com")
	intruder := seedUser(t, db, model.Faculty, "intruder@example.com")
	student := seedUser(t, db, model.Student, "grace@example.com")
	exam := seedEssayExam(t, db, owner.ID, true, true)

	svc := NewAttemptService(attemptRepo, examRepo)
	if _, err := svc.Submit(student.ID, submitRequest(exam, time.Now().Add(-10*time.Minute))); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := svc.DeleteAllForExam(intruder.ID, exam.ID, model.KindEssay); !errors.Is(err, util.ErrNotOwner) {
		t.Errorf("intruder delete err = %v, want ErrNotOwner", err)
	}

	deleted, err := svc.DeleteAllForExam(owner.ID, exam.ID, model.KindEssay)
	if err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := attemptRepo.FindByStudentAndExam(student.ID, exam.ID); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Errorf("attempt still present after delete: %v", err)
	}
}
