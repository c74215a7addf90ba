package repository

import (
	"errors"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"

	"gorm.io/gorm"
)

type QueryRepository struct {
	DB *gorm.DB
}

func NewQueryRepository(db *gorm.DB) *QueryRepository {
	return &QueryRepository{DB: db}
}

func (r *QueryRepository) Create(q *model.ResultQuery) error {
	return r.DB.Create(q).Error
}

func (r *QueryRepository) FindByID(id uint) (*model.ResultQuery, error) {
	var q model.ResultQuery
	err := r.DB.Preload("Student").First(&q, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQueryNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *QueryRepository) ListByStudent(studentID uint) ([]model.ResultQuery, error) {
	var queries []model.ResultQuery
	err := r.DB.Where("student_id = ?", studentID).
		Order("created_at desc").
		Find(&queries).Error
	return queries, err
}

func (r *QueryRepository) ListByFaculty(facultyID uint) ([]model.ResultQuery, error) {
	var queries []model.ResultQuery
	err := r.DB.Preload("Student").
		Where("faculty_id = ?", facultyID).
		Order("status asc, created_at desc").
		Find(&queries).Error
	return queries, err
}

func (r *QueryRepository) Update(q *model.ResultQuery) error {
	return r.DB.Save(q).Error
}
