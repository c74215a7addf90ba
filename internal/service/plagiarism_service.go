package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"

	"go.uber.org/zap"
)

// PlagiarismService cross-checks the answers of an exam's attempts through
// an external similarity endpoint and archives the report.
type PlagiarismService struct {
	attemptRepo *repository.AttemptRepository
	examRepo    *repository.ExamRepository
	storage     StorageProvider
	endpoint    string
	apiKey      string
	client      *http.Client
}

func NewPlagiarismService(attemptRepo *repository.AttemptRepository, examRepo *repository.ExamRepository, storage StorageProvider, cfg config.PlagiarismConfig) *PlagiarismService {
	return &PlagiarismService{
		attemptRepo: attemptRepo,
		examRepo:    examRepo,
		storage:     storage,
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		client:      &http.Client{Timeout: 2 * time.Minute},
	}
}

type plagiarismDocument struct {
	AttemptID uint   `json:"attemptId"`
	StudentID uint   `json:"studentId"`
	Text      string `json:"text"`
}

// SimilarityPair is one flagged pair of attempts in the report.
type SimilarityPair struct {
	AttemptA   uint    `json:"attemptA"`
	AttemptB   uint    `json:"attemptB"`
	Similarity float64 `json:"similarity"`
}

type PlagiarismReport struct {
	ExamID    string           `json:"examId"`
	CheckedAt time.Time        `json:"checkedAt"`
	Documents int              `json:"documents"`
	Pairs     []SimilarityPair `json:"pairs"`
	ReportKey string           `json:"reportKey,omitempty"`
}

// CheckExam sends every attempt's concatenated answers to the similarity
// service and stores the returned report alongside the exam's other
// artifacts. Needs at least two attempts to compare.
func (s *PlagiarismService) CheckExam(ctx context.Context, facultyID uint, examID string, kind model.ExamKind) (*PlagiarismReport, error) {
	exam, err := s.examRepo.FindExam(examID, kind)
	if err != nil {
		return nil, err
	}
	if !exam.OwnedBy(facultyID) {
		return nil, util.ErrNotOwner
	}

	attempts, err := s.attemptRepo.ListByExam(examID)
	if err != nil {
		return nil, err
	}
	if len(attempts) < 2 {
		return &PlagiarismReport{ExamID: examID, CheckedAt: time.Now(), Documents: len(attempts)}, nil
	}

	docs := make([]plagiarismDocument, 0, len(attempts))
	for _, a := range attempts {
		var buf bytes.Buffer
		for _, ans := range a.Answers {
			buf.WriteString(ans.AnswerText)
			buf.WriteString("\n")
		}
		docs = append(docs, plagiarismDocument{
			AttemptID: a.ID,
			StudentID: a.StudentID,
			Text:      buf.String(),
		})
	}

	pairs, err := s.compare(ctx, docs)
	if err != nil {
		return nil, err
	}

	report := &PlagiarismReport{
		ExamID:    examID,
		CheckedAt: time.Now(),
		Documents: len(docs),
		Pairs:     pairs,
	}

	if s.storage != nil {
		payload, err := json.MarshalIndent(report, "", "  ")
		if err == nil {
			key, err := s.storage.Save(ctx, fmt.Sprintf("plagiarism-%s.json", examID),
				"application/json", bytes.NewReader(payload), int64(len(payload)))
			if err != nil {
				logger.Log.Warn("plagiarism report archive failed", zap.Error(err))
			} else {
				report.ReportKey = key
			}
		}
	}

	logger.Log.Info("plagiarism check finished",
		zap.String("examId", examID),
		zap.Int("documents", len(docs)),
		zap.Int("flaggedPairs", len(pairs)))
	return report, nil
}

func (s *PlagiarismService) compare(ctx context.Context, docs []plagiarismDocument) ([]SimilarityPair, error) {
	payload, err := json.Marshal(map[string]interface{}{"documents": docs})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plagiarism service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plagiarism service: unexpected status %d", resp.StatusCode)
	}

	var parsed struct {
		Pairs []SimilarityPair `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode plagiarism response: %w", err)
	}
	return parsed.Pairs, nil
}
