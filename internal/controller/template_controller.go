package controller

import (
	"course_builder_backend/internal/model"
	"course_builder_backend/internal/service"
	"course_builder_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type TemplateController struct {
	TemplateService *service.TemplateService
}

func NewTemplateController(templateService *service.TemplateService) *TemplateController {
	return &TemplateController{TemplateService: templateService}
}

// ListTemplates godoc
// @Summary List templates
// @Description Lists active templates, featured first, optionally filtered by category
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param category query string false "Category filter"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "OK"
// @Router /api/templates [get]
func (c *TemplateController) ListTemplates(ctx *gin.Context) {
	category := model.TemplateCategory(ctx.Query("category"))
	if category != "" && !model.IsValidTemplateCategory(category) {
		util.BadRequest(ctx, "Unknown template category")
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	templates, total, err := c.TemplateService.ListTemplates(category, page, limit)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  templates,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetTemplate godoc
// @Summary Get a template
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Success 200 {object} util.Response{data=model.CourseTemplate} "OK"
// @Failure 404 {object} util.Response "Template not found"
// @Router /api/templates/{id} [get]
func (c *TemplateController) GetTemplate(ctx *gin.Context) {
	template, err := c.TemplateService.GetTemplate(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, template)
}

// CaptureTemplate godoc
// @Summary Capture a template from a course
// @Description Snapshots the course's page and widget structure into a reusable template
// @Tags templates
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Source course ID"
// @Param body body service.CaptureTemplateRequest true "Template metadata"
// @Success 201 {object} util.Response{data=model.CourseTemplate} "Created"
// @Failure 409 {object} util.Response "Course has no pages"
// @Router /api/courses/{id}/capture-template [post]
func (c *TemplateController) CaptureTemplate(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	var req service.CaptureTemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	template, err := c.TemplateService.CaptureFromCourse(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Created(ctx, template)
}

// ApplyTemplate godoc
// @Summary Apply a template to a course
// @Description Appends the template's pages after the course's existing pages, all unpublished
// @Tags templates
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Param courseId path int true "Target course ID"
// @Success 200 {object} util.Response{data=model.Course} "OK"
// @Failure 404 {object} util.Response "Template or course not found"
// @Router /api/templates/{id}/apply/{courseId} [post]
func (c *TemplateController) ApplyTemplate(ctx *gin.Context) {
	claims, ok := currentClaims(ctx)
	if !ok {
		return
	}

	course, err := c.TemplateService.ApplyToCourse(claims.UserID, claims.Role,
		util.MustParseUint(ctx.Param("id")), util.MustParseUint(ctx.Param("courseId")))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, course)
}

type ModerateTemplateRequest struct {
	IsActive   *bool `json:"isActive"`
	IsFeatured *bool `json:"isFeatured"`
}

// ModerateTemplate godoc
// @Summary Moderate a template
// @Description Admin toggle for a template's active and featured flags
// @Tags templates
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Template ID"
// @Param body body ModerateTemplateRequest true "Flags to set"
// @Success 200 {object} util.Response{data=model.CourseTemplate} "OK"
// @Failure 404 {object} util.Response "Template not found"
// @Router /api/templates/{id}/moderate [patch]
func (c *TemplateController) ModerateTemplate(ctx *gin.Context) {
	var req ModerateTemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	template, err := c.TemplateService.SetModerationFlags(util.MustParseUint(ctx.Param("id")), req.IsActive, req.IsFeatured)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, template)
}
