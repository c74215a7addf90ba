package controller

import (
	"strconv"

	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QueryController struct {
	queryService *service.QueryService
}

func NewQueryController(queryService *service.QueryService) *QueryController {
	return &QueryController{queryService: queryService}
}

// Raise godoc
// @Summary Raise a question about a published result
// @Tags queries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.RaiseQueryRequest true "Query"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/student/queries [post]
func (ctrl *QueryController) Raise(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req service.RaiseQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	query, err := ctrl.queryService.Raise(claims.UserID, &req)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Created(c, query)
}

// ListOwn godoc
// @Summary List the caller's own queries
// @Tags queries
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/student/queries [get]
func (ctrl *QueryController) ListOwn(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	queries, err := ctrl.queryService.ListForStudent(claims.UserID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, queries)
}

// ListAssigned godoc
// @Summary List queries routed to the caller
// @Tags queries
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/v1/teacher/queries [get]
func (ctrl *QueryController) ListAssigned(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	queries, err := ctrl.queryService.ListForFaculty(claims.UserID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, queries)
}

// Respond godoc
// @Summary Answer a pending query and resolve it
// @Tags queries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param queryId path int true "Query id"
// @Param request body service.RespondQueryRequest true "Response"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/teacher/queries/{queryId} [put]
func (ctrl *QueryController) Respond(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	queryID, err := strconv.ParseUint(c.Param("queryId"), 10, 64)
	if err != nil {
		util.BadRequest(c, "invalid query id")
		return
	}

	var req service.RespondQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	query, err := ctrl.queryService.Respond(claims.UserID, uint(queryID), &req)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, query)
}
