package service

import (
	"context"
	"testing"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/pkg/database"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema. A
// single connection keeps every query on the same memory instance.
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

func seedUser(t *testing.T, db *gorm.DB, role model.UserRole, email string) *model.User {
	t.Helper()
	user := &model.User{
		Name:     "Test " + string(role),
		Email:    email,
		Password: "irrelevant",
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// seedEssayExam creates a published two-question essay exam owned by
// creatorID, with teacher solutions unless withSolutions is false.
func seedEssayExam(t *testing.T, db *gorm.DB, creatorID uint, published, withSolutions bool) *model.EssayExam {
	t.Helper()

	solution := ""
	if withSolutions {
		solution = "reference answer"
	}
	exam := &model.EssayExam{
		Title:           "Networks Midterm",
		DurationMinutes: 120,
		IsPublished:     published,
		CreatorID:       &creatorID,
		Questions: []model.EssayQuestion{
			{Text: "Explain TCP congestion control.", TeacherSolution: solution, Order: 0},
			{Text: "Compare UDP and TCP.", TeacherSolution: solution, Order: 1},
		},
	}
	if err := db.Create(exam).Error; err != nil {
		t.Fatalf("seed exam: %v", err)
	}
	return exam
}

// fakeEvaluator returns canned outcomes, or delegates to fn when set.
type fakeEvaluator struct {
	outcome *EvaluationOutcome
	err     error
	fn      func(req EvaluationRequest) (*EvaluationOutcome, error)
	calls   int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ string, req EvaluationRequest) (*EvaluationOutcome, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(req)
	}
	return f.outcome, f.err
}

func newRepos(db *gorm.DB) (*repository.AttemptRepository, *repository.ExamRepository) {
	return repository.NewAttemptRepository(db), repository.NewExamRepository(db)
}
