package controller

import (
	"strconv"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// EvaluationController drives grading and result publication.
type EvaluationController struct {
	evaluationService  *service.EvaluationService
	publicationService *service.PublicationService
}

func NewEvaluationController(evaluationService *service.EvaluationService, publicationService *service.PublicationService) *EvaluationController {
	return &EvaluationController{
		evaluationService:  evaluationService,
		publicationService: publicationService,
	}
}

func attemptIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("attemptId"), 10, 64)
	if err != nil {
		util.BadRequest(c, "invalid attempt id")
		return 0, false
	}
	return uint(id), true
}

// EvaluateAttempt godoc
// @Summary Run the evaluator over one attempt
// @Tags evaluation
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "Attempt id"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /api/v1/teacher/attempts/{attemptId}/evaluate [post]
func (ctrl *EvaluationController) EvaluateAttempt(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	attemptID, ok := attemptIDParam(c)
	if !ok {
		return
	}

	attempt, err := ctrl.evaluationService.EvaluateAttempt(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, attempt)
}

type evaluateAllRequest struct {
	ExamType string `json:"examType" binding:"required,oneof=EssayExam CodingExam"`
}

// EvaluateAll godoc
// @Summary Run the evaluator over every submitted attempt of an owned exam
// @Tags evaluation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam id"
// @Param request body evaluateAllRequest true "Exam type"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/teacher/exams/{id}/evaluate [post]
func (ctrl *EvaluationController) EvaluateAll(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req evaluateAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	outcome, err := ctrl.evaluationService.EvaluateAllForExam(c.Request.Context(), claims.UserID, c.Param("id"), model.ExamKind(req.ExamType))
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, outcome)
}

type updateEvaluationRequest struct {
	Scores []service.ManualScore `json:"scores" binding:"required,min=1"`
}

// UpdateEvaluation godoc
// @Summary Manually correct an evaluated attempt's scores
// @Tags evaluation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "Attempt id"
// @Param request body updateEvaluationRequest true "Score corrections"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/teacher/attempts/{attemptId}/evaluation [put]
func (ctrl *EvaluationController) UpdateEvaluation(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	attemptID, ok := attemptIDParam(c)
	if !ok {
		return
	}

	var req updateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	attempt, err := ctrl.evaluationService.UpdateEvaluation(claims.UserID, attemptID, req.Scores)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, attempt)
}

// PublishOne godoc
// @Summary Release one evaluated attempt's results to its student
// @Tags evaluation
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "Attempt id"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/teacher/attempts/{attemptId}/publish [post]
func (ctrl *EvaluationController) PublishOne(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	attemptID, ok := attemptIDParam(c)
	if !ok {
		return
	}

	attempt, err := ctrl.publicationService.PublishOne(claims.UserID, attemptID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, attempt)
}

type publishAllRequest struct {
	ExamType string `json:"examType" binding:"required,oneof=EssayExam CodingExam"`
}

// PublishAll godoc
// @Summary Release every evaluated attempt's results for an owned exam
// @Tags evaluation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam id"
// @Param request body publishAllRequest true "Exam type"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/teacher/exams/{id}/publish-results [post]
func (ctrl *EvaluationController) PublishAll(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req publishAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	published, err := ctrl.publicationService.PublishAllForExam(claims.UserID, c.Param("id"), model.ExamKind(req.ExamType))
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, gin.H{"published": published})
}
