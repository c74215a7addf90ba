package repository

import (
	"errors"
	"testing"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/database"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newAttempt(studentID uint, examID string) *model.ExamAttempt {
	now := time.Now()
	return &model.ExamAttempt{
		StudentID:   studentID,
		ExamID:      examID,
		ExamKind:    model.KindEssay,
		Status:      model.AttemptSubmitted,
		StartedAt:   now.Add(-time.Hour),
		ExpiresAt:   now.Add(time.Hour),
		SubmittedAt: now,
		Answers: []model.AttemptAnswer{
			{QuestionID: "q-1", AnswerText: "an answer", Order: 0},
		},
	}
}

// The compound unique index is the last line of defense against double
// submission; the losing insert must surface as ErrDuplicateAttempt even
// without any service-level pre-check.
func TestCreateDuplicateHitsUniqueIndex(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepository(db)

	if err := repo.Create(newAttempt(1, "exam-1")); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	err := repo.Create(newAttempt(1, "exam-1"))
	if !errors.Is(err, util.ErrDuplicateAttempt) {
		t.Errorf("second Create err = %v, want ErrDuplicateAttempt", err)
	}

	// Same student, different exam, and vice versa, are both fine.
	if err := repo.Create(newAttempt(1, "exam-2")); err != nil {
		t.Errorf("same student, other exam: %v", err)
	}
	if err := repo.Create(newAttempt(2, "exam-1")); err != nil {
		t.Errorf("other student, same exam: %v", err)
	}
}

func TestPublishAllFlipsOnlyEvaluated(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepository(db)

	evaluated := newAttempt(1, "exam-1")
	evaluated.Status = model.AttemptEvaluated
	if err := repo.Create(evaluated); err != nil {
		t.Fatalf("Create: %v", err)
	}
	submitted := newAttempt(2, "exam-1")
	if err := repo.Create(submitted); err != nil {
		t.Fatalf("Create: %v", err)
	}

	flipped, err := repo.PublishAll("exam-1")
	if err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	if flipped != 1 {
		t.Errorf("flipped = %d, want 1", flipped)
	}

	again, err := repo.PublishAll("exam-1")
	if err != nil {
		t.Fatalf("second PublishAll: %v", err)
	}
	if again != 0 {
		t.Errorf("second run flipped %d, want 0", again)
	}
}

func TestUpdatePersistsAnswerScores(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepository(db)

	attempt := newAttempt(1, "exam-1")
	if err := repo.Create(attempt); err != nil {
		t.Fatalf("Create: %v", err)
	}

	attempt.Answers[0].Score = 85
	attempt.Answers[0].Feedback = "clear reasoning"
	attempt.TotalScore = 85
	attempt.Status = model.AttemptEvaluated
	if err := repo.Update(attempt); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stored, err := repo.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(stored.Answers) != 1 {
		t.Fatalf("answers duplicated: got %d rows", len(stored.Answers))
	}
	if stored.Answers[0].Score != 85 || stored.Answers[0].Feedback != "clear reasoning" {
		t.Errorf("answer not updated: %+v", stored.Answers[0])
	}
}
