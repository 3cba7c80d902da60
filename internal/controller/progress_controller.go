package controller

import (
	"course_builder_backend/internal/service"
	"course_builder_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// MarkComplete godoc
// @Summary Mark content complete
// @Description Records completion of a page or widget and updates the enrollment's progress percentage
// @Tags progress
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.MarkCompleteRequest true "Completion target"
// @Success 200 {object} util.Response{data=model.UserProgress} "OK"
// @Failure 403 {object} util.Response "Not enrolled"
// @Router /api/progress/complete [post]
func (c *ProgressController) MarkComplete(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	var req service.MarkCompleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.ProgressService.MarkComplete(claims.UserID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// GetCourseProgress godoc
// @Summary Course progress report
// @Description Per-page completion detail plus the overall percentage for the caller
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Success 200 {object} util.Response{data=model.CourseProgressReport} "OK"
// @Failure 403 {object} util.Response "Not enrolled"
// @Router /api/courses/{id}/progress [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	report, err := c.ProgressService.GetCourseProgress(claims.UserID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, report)
}
