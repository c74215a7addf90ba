package controller

import (
	"strconv"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TeacherExamController covers exam authoring and attempt administration.
type TeacherExamController struct {
	examService       *service.ExamService
	attemptService    *service.AttemptService
	plagiarismService *service.PlagiarismService
}

func NewTeacherExamController(examService *service.ExamService, attemptService *service.AttemptService, plagiarismService *service.PlagiarismService) *TeacherExamController {
	return &TeacherExamController{
		examService:       examService,
		attemptService:    attemptService,
		plagiarismService: plagiarismService,
	}
}

func examKindFromQuery(c *gin.Context) (model.ExamKind, bool) {
	kind := model.ExamKind(c.Query("type"))
	if !kind.Valid() {
		util.BadRequest(c, "unknown exam type")
		return "", false
	}
	return kind, true
}

// CreateEssayExam godoc
// @Summary Create an essay exam
// @Tags teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateEssayExamRequest true "Exam definition"
// @Success 201 {object} util.Response
// @Router /api/v1/teacher/exams/essay [post]
func (ctrl *TeacherExamController) CreateEssayExam(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req service.CreateEssayExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	exam, err := ctrl.examService.CreateEssayExam(claims.UserID, &req)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Created(c, exam)
}

// GenerateExam godoc
// @Summary Generate an exam with AI-written questions
// @Tags teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.GenerateExamRequest true "Generation parameters"
// @Success 201 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /api/v1/teacher/exams/generate [post]
func (ctrl *TeacherExamController) GenerateExam(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req service.GenerateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	exam, err := ctrl.examService.GenerateExam(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Created(c, exam)
}

// ListOwn godoc
// @Summary List the caller's exams, both families
// @Tags teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/teacher/exams [get]
func (ctrl *TeacherExamController) ListOwn(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	exams, err := ctrl.examService.ListByCreator(claims.UserID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, exams)
}

// GetExam godoc
// @Summary Fetch one owned exam with solutions
// @Tags teacher
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam id"
// @Param type query string true "Exam type" Enums(EssayExam, CodingExam)
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/teacher/exams/{id} [get]
func (ctrl *TeacherExamController) GetExam(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	kind, ok := examKindFromQuery(c)
	if !ok {
		return
	}

	exam, err := ctrl.examService.GetForOwner(claims.UserID, c.Param("id"), kind)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, exam)
}

type publishRequest struct {
	ExamType model.ExamKind `json:"examType" binding:"required"`
	Publish  bool           `json:"publish"`
}

// SetPublished godoc
// @Summary Publish or unpublish an owned exam
// @Tags teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam id"
// @Param request body publishRequest true "Publish toggle"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/teacher/exams/{id}/publish [put]
func (ctrl *TeacherExamController) SetPublished(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	if err := ctrl.examService.SetPublished(c.Request.Context(), claims.UserID, c.Param("id"), req.ExamType, req.Publish); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, gin.H{"published": req.Publish})
}

type saveSolutionsRequest struct {
	ExamType  model.ExamKind           `json:"examType" binding:"required"`
	Solutions []service.SolutionUpdate `json:"solutions" binding:"required,min=1"`
}

// SaveSolutions godoc
// @Summary Write teacher solutions onto an owned exam's questions
// @Tags teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam id"
// @Param request body saveSolutionsRequest true "Solutions"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/teacher/exams/{id}/solutions [put]
func (ctrl *TeacherExamController) SaveSolutions(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req saveSolutionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	exam, err := ctrl.examService.SaveSolutions(claims.UserID, c.Param("id"), req.ExamType, req.Solutions)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, exam)
}

// ListAttempts godoc
// @Summary List all attempts of an owned exam
// @Tags teacher
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam id"
// @Param type query string true "Exam type" Enums(EssayExam, CodingExam)
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/teacher/exams/{id}/attempts [get]
func (ctrl *TeacherExamController) ListAttempts(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	kind, ok := examKindFromQuery(c)
	if !ok {
		return
	}

	attempts, err := ctrl.attemptService.ListForExam(claims.UserID, c.Param("id"), kind)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, attempts)
}

// DeleteAttempt godoc
// @Summary Delete one attempt of an owned exam, allowing a retake
// @Tags teacher
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "Attempt id"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/teacher/attempts/{attemptId} [delete]
func (ctrl *TeacherExamController) DeleteAttempt(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	attemptID, err := strconv.ParseUint(c.Param("attemptId"), 10, 64)
	if err != nil {
		util.BadRequest(c, "invalid attempt id")
		return
	}

	if err := ctrl.attemptService.DeleteOne(claims.UserID, uint(attemptID)); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, gin.H{"deleted": attemptID})
}

// DeleteAllAttempts godoc
// @Summary Delete every attempt of an owned exam
// @Tags teacher
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam id"
// @Param type query string true "Exam type" Enums(EssayExam, CodingExam)
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/teacher/exams/{id}/attempts [delete]
func (ctrl *TeacherExamController) DeleteAllAttempts(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	kind, ok := examKindFromQuery(c)
	if !ok {
		return
	}

	deleted, err := ctrl.attemptService.DeleteAllForExam(claims.UserID, c.Param("id"), kind)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, gin.H{"deleted": deleted})
}

// CheckPlagiarism godoc
// @Summary Run a similarity check across all attempts of an owned exam
// @Tags teacher
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam id"
// @Param type query string true "Exam type" Enums(EssayExam, CodingExam)
// @Success 200 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /api/v1/teacher/exams/{id}/plagiarism [post]
func (ctrl *TeacherExamController) CheckPlagiarism(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	kind, ok := examKindFromQuery(c)
	if !ok {
		return
	}

	report, err := ctrl.plagiarismService.CheckExam(c.Request.Context(), claims.UserID, c.Param("id"), kind)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, report)
}
