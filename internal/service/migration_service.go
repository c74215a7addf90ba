package service

import (
	"errors"
	"time"

	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrationService backfills data created before ownership and attempt
// expiry existed. Both steps are idempotent; running them on an already
// clean database touches nothing.
type MigrationService struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	cfg      config.MigrationConfig
}

func NewMigrationService(db *gorm.DB, userRepo *repository.UserRepository, cfg config.MigrationConfig) *MigrationService {
	return &MigrationService{db: db, userRepo: userRepo, cfg: cfg}
}

// Run executes all backfill steps.
func (s *MigrationService) Run() error {
	if err := s.ClaimLegacyExams(); err != nil {
		return err
	}
	return s.BackfillExpiry()
}

// ClaimLegacyExams assigns ownerless exams to the configured legacy owner
// account. Skipped when no owner email is configured or the account does
// not exist.
func (s *MigrationService) ClaimLegacyExams() error {
	if s.cfg.LegacyOwnerEmail == "" {
		return nil
	}

	owner, err := s.userRepo.FindByEmail(s.cfg.LegacyOwnerEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Log.Warn("legacy owner account not found, skipping claim step",
				zap.String("email", s.cfg.LegacyOwnerEmail))
			return nil
		}
		return err
	}

	var claimed int64
	for _, m := range []interface{}{&model.EssayExam{}, &model.CodingExam{}} {
		tx := s.db.Model(m).Where("creator_id IS NULL").Update("creator_id", owner.ID)
		if tx.Error != nil {
			return tx.Error
		}
		claimed += tx.RowsAffected
	}

	if claimed > 0 {
		logger.Log.Info("legacy exams claimed",
			zap.Uint("ownerId", owner.ID),
			zap.Int64("claimed", claimed))
	}
	return nil
}

// BackfillExpiry derives expires_at for attempts stored before the window
// was recorded, using the default exam duration from the attempt's own
// start time.
func (s *MigrationService) BackfillExpiry() error {
	var attempts []model.ExamAttempt
	if err := s.db.Where("expires_at IS NULL OR expires_at = ?", time.Time{}).
		Find(&attempts).Error; err != nil {
		return err
	}
	if len(attempts) == 0 {
		return nil
	}

	for i := range attempts {
		a := &attempts[i]
		expiresAt := a.StartedAt.Add(model.DefaultDurationMinutes * time.Minute)
		if err := s.db.Model(&model.ExamAttempt{}).
			Where("id = ?", a.ID).
			Update("expires_at", expiresAt).Error; err != nil {
			return err
		}
	}

	logger.Log.Info("attempt expiry backfilled", zap.Int("attempts", len(attempts)))
	return nil
}
