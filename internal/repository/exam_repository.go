package repository

import (
	"errors"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"

	"gorm.io/gorm"
)

// ExamRepository spans both exam families. FindExam is the single entry
// point that resolves an (id, kind) pair into the variant-agnostic
// model.ExamInfo view; everything above it works against that view.
type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) CreateEssay(exam *model.EssayExam) error {
	return r.DB.Create(exam).Error
}

func (r *ExamRepository) CreateCoding(exam *model.CodingExam) error {
	return r.DB.Create(exam).Error
}

func (r *ExamRepository) FindExam(id string, kind model.ExamKind) (*model.ExamInfo, error) {
	switch kind {
	case model.KindEssay:
		var exam model.EssayExam
		err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc, created_at asc")
		}).First(&exam, "id = ?", id).Error
		if err != nil {
			return nil, translateNotFound(err)
		}
		return exam.Info(), nil
	case model.KindCoding:
		var exam model.CodingExam
		err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc, created_at asc")
		}).First(&exam, "id = ?", id).Error
		if err != nil {
			return nil, translateNotFound(err)
		}
		return exam.Info(), nil
	default:
		return nil, util.ErrExamNotFound
	}
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrExamNotFound
	}
	return err
}

// ListByCreator returns both families as summaries (no questions loaded).
func (r *ExamRepository) ListByCreator(creatorID uint) ([]model.ExamInfo, error) {
	var essays []model.EssayExam
	if err := r.DB.Preload("Questions").Where("creator_id = ?", creatorID).
		Order("created_at desc").Find(&essays).Error; err != nil {
		return nil, err
	}

	var codings []model.CodingExam
	if err := r.DB.Preload("Questions").Where("creator_id = ?", creatorID).
		Order("created_at desc").Find(&codings).Error; err != nil {
		return nil, err
	}

	infos := make([]model.ExamInfo, 0, len(essays)+len(codings))
	for i := range essays {
		infos = append(infos, *essays[i].Info())
	}
	for i := range codings {
		infos = append(infos, *codings[i].Info())
	}
	return infos, nil
}

// ListPublished returns the student-facing catalog: published exams of both
// families, newest first within each family.
func (r *ExamRepository) ListPublished() ([]model.ExamInfo, error) {
	var essays []model.EssayExam
	if err := r.DB.Preload("Questions").Where("is_published = ?", true).
		Order("created_at desc").Find(&essays).Error; err != nil {
		return nil, err
	}

	var codings []model.CodingExam
	if err := r.DB.Preload("Questions").Where("is_published = ?", true).
		Order("created_at desc").Find(&codings).Error; err != nil {
		return nil, err
	}

	infos := make([]model.ExamInfo, 0, len(essays)+len(codings))
	for i := range essays {
		infos = append(infos, *essays[i].Info())
	}
	for i := range codings {
		infos = append(infos, *codings[i].Info())
	}
	return infos, nil
}

// SetPublished flips the publication flag with the ownership check folded
// into the WHERE clause, mirroring a conditional findOneAndUpdate. Zero rows
// affected means not found or not owned; callers cannot tell which, by
// design.
func (r *ExamRepository) SetPublished(id string, kind model.ExamKind, creatorID uint, publish bool) (bool, error) {
	updates := map[string]interface{}{
		"is_published": publish,
		"published_at": nil,
	}
	if publish {
		updates["published_at"] = gorm.Expr("CURRENT_TIMESTAMP")
	}

	var tx *gorm.DB
	switch kind {
	case model.KindEssay:
		tx = r.DB.Model(&model.EssayExam{}).
			Where("id = ? AND creator_id = ?", id, creatorID).Updates(updates)
	case model.KindCoding:
		tx = r.DB.Model(&model.CodingExam{}).
			Where("id = ? AND creator_id = ?", id, creatorID).Updates(updates)
	default:
		return false, util.ErrExamNotFound
	}
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// UpdateQuestionSolution writes one question's teacher solution.
func (r *ExamRepository) UpdateQuestionSolution(kind model.ExamKind, questionID, solution string) error {
	switch kind {
	case model.KindEssay:
		return r.DB.Model(&model.EssayQuestion{}).
			Where("id = ?", questionID).Update("teacher_solution", solution).Error
	case model.KindCoding:
		return r.DB.Model(&model.CodingQuestion{}).
			Where("id = ?", questionID).Update("teacher_solution", solution).Error
	default:
		return util.ErrExamNotFound
	}
}
