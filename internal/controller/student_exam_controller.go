package controller

import (
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// StudentExamController serves the student-facing side: the published
// catalog, exam taking, and result views.
type StudentExamController struct {
	examService        *service.ExamService
	attemptService     *service.AttemptService
	publicationService *service.PublicationService
}

func NewStudentExamController(examService *service.ExamService, attemptService *service.AttemptService, publicationService *service.PublicationService) *StudentExamController {
	return &StudentExamController{
		examService:        examService,
		attemptService:     attemptService,
		publicationService: publicationService,
	}
}

// ListPublished godoc
// @Summary List published exams available to take
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/student/exams [get]
func (ctrl *StudentExamController) ListPublished(c *gin.Context) {
	exams, err := ctrl.examService.ListPublished(c.Request.Context())
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, exams)
}

// GetExam godoc
// @Summary Fetch one published exam for taking (solutions stripped)
// @Tags student
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam id"
// @Param type query string true "Exam type" Enums(EssayExam, CodingExam)
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/v1/student/exams/{id} [get]
func (ctrl *StudentExamController) GetExam(c *gin.Context) {
	kind := model.ExamKind(c.Query("type"))
	if !kind.Valid() {
		util.BadRequest(c, "unknown exam type")
		return
	}

	exam, err := ctrl.examService.GetForStudent(c.Param("id"), kind)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, exam)
}

// SubmitAttempt godoc
// @Summary Submit answers for an exam
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.SubmitAttemptRequest true "Submission"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/student/attempts [post]
func (ctrl *StudentExamController) SubmitAttempt(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req service.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	resp, err := ctrl.attemptService.Submit(claims.UserID, &req)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Created(c, resp)
}

// ListAttempts godoc
// @Summary List the caller's attempt history
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/student/attempts [get]
func (ctrl *StudentExamController) ListAttempts(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	summaries, err := ctrl.publicationService.ListForStudent(claims.UserID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, summaries)
}

// GetResult godoc
// @Summary Read the caller's attempt for an exam, scores included once published
// @Tags student
// @Produce json
// @Security BearerAuth
// @Param examId path string true "Exam id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/v1/student/results/{examId} [get]
func (ctrl *StudentExamController) GetResult(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	view, err := ctrl.publicationService.ReadForStudent(claims.UserID, c.Param("examId"))
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, view)
}
