package controller

import (
	"course_builder_backend/internal/model"
	"course_builder_backend/internal/service"
	"course_builder_backend/internal/util"
	"encoding/json"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// BuilderController exposes the authoring surface: page and widget CRUD,
// ordering, publishing, duplication. Every route lives under
// /api/builder/courses/:courseId and requires the instructor role.
type BuilderController struct {
	BuilderService *service.BuilderService
}

func NewBuilderController(builderService *service.BuilderService) *BuilderController {
	return &BuilderController{BuilderService: builderService}
}

// GetCourseTree godoc
// @Summary Full course tree
// @Description Returns the course with all pages and widgets in order, including drafts
// @Tags builder
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Success 200 {object} util.Response{data=model.Course} "OK"
// @Failure 403 {object} util.Response "Not the course owner"
// @Failure 404 {object} util.Response "Course not found"
// @Router /api/builder/courses/{courseId} [get]
func (c *BuilderController) GetCourseTree(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	course, err := c.BuilderService.GetCourseTree(claims.UserID, claims.Role, util.MustParseUint(ctx.Param("courseId")))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, course)
}

// CreatePage godoc
// @Summary Create a page
// @Description Appends a page to the course, or inserts at the requested position
// @Tags builder
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param body body service.PageRequest true "Page fields"
// @Success 201 {object} util.Response{data=model.CoursePage} "Created"
// @Failure 400 {object} util.Response "Invalid request"
// @Failure 403 {object} util.Response "Not the course owner"
// @Router /api/builder/courses/{courseId}/pages [post]
func (c *BuilderController) CreatePage(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	var req service.PageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	page, err := c.BuilderService.CreatePage(claims.UserID, claims.Role, util.MustParseUint(ctx.Param("courseId")), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Created(ctx, page)
}

// UpdatePage godoc
// @Summary Update a page
// @Description Partially updates page fields; a new orderIndex moves the page
// @Tags builder
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param pageId path int true "Page ID"
// @Param body body service.PageRequest true "Fields to change"
// @Success 200 {object} util.Response{data=model.CoursePage} "OK"
// @Failure 404 {object} util.Response "Page not found"
// @Router /api/builder/courses/{courseId}/pages/{pageId} [put]
func (c *BuilderController) UpdatePage(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	var req service.PageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	page, err := c.BuilderService.UpdatePage(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("courseId")), util.MustParseUint(ctx.Param("pageId")), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, page)
}

// DeletePage godoc
// @Summary Delete a page
// @Description Soft-deletes the page and its widgets, then closes the ordering gap
// @Tags builder
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param pageId path int true "Page ID"
// @Success 200 {object} util.Response "OK"
// @Failure 404 {object} util.Response "Page not found"
// @Router /api/builder/courses/{courseId}/pages/{pageId} [delete]
func (c *BuilderController) DeletePage(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	err := c.BuilderService.DeletePage(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("courseId")), util.MustParseUint(ctx.Param("pageId")))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// ReorderPages godoc
// @Summary Reorder pages
// @Description Applies a complete new ordering of the course's pages
// @Tags builder
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param body body []service.ReorderItem true "Complete id/order_index list"
// @Success 200 {object} util.Response "OK"
// @Failure 400 {object} util.Response "Incomplete reorder list"
// @Router /api/builder/courses/{courseId}/pages/reorder [put]
func (c *BuilderController) ReorderPages(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	var items []service.ReorderItem
	if err := ctx.ShouldBindJSON(&items); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.BuilderService.ReorderPages(claims.UserID, claims.Role, util.MustParseUint(ctx.Param("courseId")), items)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// PublishPage godoc
// @Summary Publish a page
// @Description Makes the page visible to learners; requires at least one active widget
// @Tags builder
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param pageId path int true "Page ID"
// @Success 200 {object} util.Response{data=model.CoursePage} "OK"
// @Failure 409 {object} util.Response "No active widgets"
// @Router /api/builder/courses/{courseId}/pages/{pageId}/publish [post]
func (c *BuilderController) PublishPage(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	page, err := c.BuilderService.PublishPage(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("courseId")), util.MustParseUint(ctx.Param("pageId")))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, page)
}

// UnpublishPage godoc
// @Summary Unpublish a page
// @Description Hides the page from learners; always allowed
// @Tags builder
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param pageId path int true "Page ID"
// @Success 200 {object} util.Response{data=model.CoursePage} "OK"
// @Router /api/builder/courses/{courseId}/pages/{pageId}/unpublish [post]
func (c *BuilderController) UnpublishPage(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	page, err := c.BuilderService.UnpublishPage(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("courseId")), util.MustParseUint(ctx.Param("pageId")))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, page)
}

// DuplicatePage godoc
// @Summary Duplicate a page
// @Description Deep-copies the page and its widgets to the end of the course as a draft
// @Tags builder
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param pageId path int true "Page ID"
// @Success 201 {object} util.Response{data=model.CoursePage} "Created"
// @Router /api/builder/courses/{courseId}/pages/{pageId}/duplicate [post]
func (c *BuilderController) DuplicatePage(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	page, err := c.BuilderService.DuplicatePage(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("courseId")), util.MustParseUint(ctx.Param("pageId")))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Created(ctx, page)
}

// AddWidget godoc
// @Summary Add a widget
// @Description Creates a widget on the page. Send JSON, or multipart with a "data" part and an optional "file" part for media widgets
// @Tags builder
// @Accept json,mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param pageId path int true "Page ID"
// @Success 201 {object} util.Response{data=model.Widget} "Created"
// @Failure 422 {object} util.Response "Widget data failed validation"
// @Router /api/builder/courses/{courseId}/pages/{pageId}/widgets [post]
func (c *BuilderController) AddWidget(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	req, file, err := bindWidgetRequest(ctx)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	widget, err := c.BuilderService.AddWidget(ctx.Request.Context(), claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("courseId")), util.MustParseUint(ctx.Param("pageId")), req, file)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Created(ctx, widget)
}

// UpdateWidget godoc
// @Summary Update a widget
// @Description Partially updates widget payload, activity flag, settings, or position
// @Tags builder
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param pageId path int true "Page ID"
// @Param widgetId path int true "Widget ID"
// @Param body body service.WidgetRequest true "Fields to change"
// @Success 200 {object} util.Response{data=model.Widget} "OK"
// @Failure 422 {object} util.Response "Widget data failed validation"
// @Router /api/builder/courses/{courseId}/pages/{pageId}/widgets/{widgetId} [put]
func (c *BuilderController) UpdateWidget(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	var req service.WidgetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	widget, err := c.BuilderService.UpdateWidget(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("courseId")), util.MustParseUint(ctx.Param("pageId")),
		util.MustParseUint(ctx.Param("widgetId")), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, widget)
}

// DeleteWidget godoc
// @Summary Delete a widget
// @Description Soft-deletes the widget and closes the ordering gap on the page
// @Tags builder
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param pageId path int true "Page ID"
// @Param widgetId path int true "Widget ID"
// @Success 200 {object} util.Response "OK"
// @Router /api/builder/courses/{courseId}/pages/{pageId}/widgets/{widgetId} [delete]
func (c *BuilderController) DeleteWidget(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	err := c.BuilderService.DeleteWidget(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("courseId")), util.MustParseUint(ctx.Param("pageId")),
		util.MustParseUint(ctx.Param("widgetId")))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// ReorderWidgets godoc
// @Summary Reorder widgets
// @Description Applies a complete new ordering of the page's widgets
// @Tags builder
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "Course ID"
// @Param pageId path int true "Page ID"
// @Param body body []service.ReorderItem true "Complete id/order_index list"
// @Success 200 {object} util.Response "OK"
// @Failure 400 {object} util.Response "Incomplete reorder list"
// @Router /api/builder/courses/{courseId}/pages/{pageId}/widgets/reorder [put]
func (c *BuilderController) ReorderWidgets(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	var items []service.ReorderItem
	if err := ctx.ShouldBindJSON(&items); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.BuilderService.ReorderWidgets(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("courseId")), util.MustParseUint(ctx.Param("pageId")), items)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// bindWidgetRequest accepts either a JSON body or a multipart form with
// a "data" part holding the same JSON plus an optional "file" part.
func bindWidgetRequest(ctx *gin.Context) (service.WidgetRequest, *multipart.FileHeader, error) {
	var req service.WidgetRequest

	contentType := ctx.ContentType()
	if contentType == "multipart/form-data" {
		raw := ctx.PostForm("data")
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &req); err != nil {
				return req, nil, err
			}
		} else {
			req.WidgetType = model.WidgetType(ctx.PostForm("widgetType"))
			req.WidgetData = datatypes.JSON([]byte("{}"))
		}

		file, err := ctx.FormFile("file")
		if err != nil {
			file = nil
		}
		return req, file, nil
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		return req, nil, err
	}
	return req, nil, nil
}
