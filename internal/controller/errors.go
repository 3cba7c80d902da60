package controller

import (
	"course_builder_backend/internal/model"
	"course_builder_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondServiceError translates service-layer sentinels into HTTP
// responses. Anything unmapped is a 500 and gets logged.
func respondServiceError(ctx *gin.Context, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		util.UnprocessableEntity(ctx, "Widget data failed validation", verr.Fields)
		return
	}

	switch {
	case errors.Is(err, util.ErrUnauthorized):
		util.Unauthorized(ctx)
	case errors.Is(err, util.ErrCourseNotFound):
		util.NotFound(ctx, "Course not found")
	case errors.Is(err, util.ErrPageNotFound):
		util.NotFound(ctx, "Page not found")
	case errors.Is(err, util.ErrWidgetNotFound):
		util.NotFound(ctx, "Widget not found")
	case errors.Is(err, util.ErrTemplateNotFound):
		util.NotFound(ctx, "Template not found")
	case errors.Is(err, util.ErrNotCourseOwner):
		util.Forbidden(ctx, "You do not own this course")
	case errors.Is(err, util.ErrPublishBlocked):
		util.Error(ctx, http.StatusConflict, "Page needs at least one active widget before publishing")
	case errors.Is(err, util.ErrEmptyCourse):
		util.Error(ctx, http.StatusConflict, "Course has no pages to capture")
	case errors.Is(err, util.ErrNotEnrolled):
		util.Forbidden(ctx, "You are not enrolled in this course")
	case errors.Is(err, util.ErrInvalidReorder):
		util.BadRequest(ctx, "Reorder request must list every sibling with its order_index")
	case errors.Is(err, util.ErrInvalidFileExt):
		util.BadRequest(ctx, "File type not allowed for this widget")
	case errors.Is(err, util.ErrStorageFailure):
		util.Error(ctx, http.StatusBadGateway, "File storage failed")
	default:
		util.LogInternalError(ctx, err)
	}
}

// currentClaims pulls the authenticated caller, replying 401 itself
// when the context carries none.
func currentClaims(ctx *gin.Context) (*util.Claims, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return claims, true
}
