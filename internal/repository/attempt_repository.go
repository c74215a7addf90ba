package repository

import (
	"errors"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Create inserts a new attempt with its answers. A uniqueness violation on
// (student_id, exam_id) surfaces as util.ErrDuplicateAttempt, which is how
// the losing side of a concurrent double-submit finds out.
func (r *AttemptRepository) Create(attempt *model.ExamAttempt) error {
	if err := r.DB.Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return util.ErrDuplicateAttempt
		}
		return err
	}
	return nil
}

func (r *AttemptRepository) FindByID(id uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("`order` asc, id asc")
	}).Preload("Student").First(&attempt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindByStudentAndExam(studentID uint, examID string) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("`order` asc, id asc")
	}).Where("student_id = ? AND exam_id = ?", studentID, examID).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) ListByStudent(studentID uint) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.DB.Preload("Answers").
		Where("student_id = ?", studentID).
		Order("submitted_at desc").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByExam(examID string) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("`order` asc, id asc")
	}).Preload("Student").
		Where("exam_id = ?", examID).
		Order("submitted_at asc").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByExamAndStatus(examID string, status model.AttemptStatus) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("`order` asc, id asc")
	}).Where("exam_id = ? AND status = ?", examID, status).
		Order("submitted_at asc").
		Find(&attempts).Error
	return attempts, err
}

// Update persists the attempt and its answers in one save. Answers carry
// their primary keys, so per-answer scores written by evaluation land as
// updates rather than duplicate rows.
func (r *AttemptRepository) Update(attempt *model.ExamAttempt) error {
	return r.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(attempt).Error
}

// PublishAll marks every evaluated, not-yet-published attempt of the exam as
// published and reports how many rows flipped.
func (r *AttemptRepository) PublishAll(examID string) (int64, error) {
	tx := r.DB.Model(&model.ExamAttempt{}).
		Where("exam_id = ? AND status = ? AND results_published = ?",
			examID, model.AttemptEvaluated, false).
		Update("results_published", true)
	return tx.RowsAffected, tx.Error
}

// Delete removes an attempt for good. Hard delete on purpose: a
// soft-deleted row would still hold the (student, exam) unique slot and
// block the retake the deletion is meant to allow.
func (r *AttemptRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("attempt_id = ?", id).Delete(&model.AttemptAnswer{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.ExamAttempt{}, id).Error
	})
}

// DeleteByExam removes every attempt of the exam and returns the count.
func (r *AttemptRepository) DeleteByExam(examID string) (int64, error) {
	var deleted int64
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.ExamAttempt{}).
			Where("exam_id = ?", examID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Unscoped().Where("attempt_id IN ?", ids).Delete(&model.AttemptAnswer{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Where("exam_id = ?", examID).Delete(&model.ExamAttempt{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
