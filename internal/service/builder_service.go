package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"course_builder_backend/internal/config"
	"course_builder_backend/internal/model"
	"course_builder_backend/internal/repository"
	"course_builder_backend/internal/util"
	"course_builder_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BuilderService owns the course content tree: pages and widgets, their
// ordering invariants, publish gating and duplication. Every mutation
// re-checks course ownership even though the HTTP layer already did,
// and every resequencing runs inside one transaction so a failed
// request leaves the previous consistent order in place.
type BuilderService struct {
	CourseRepo *repository.CourseRepository
	PageRepo   *repository.PageRepository
	WidgetRepo *repository.WidgetRepository
	Storage    *StorageService
	Cfg        *config.Config
	Redis      *redis.Client
	DB         *gorm.DB
}

func NewBuilderService(
	courseRepo *repository.CourseRepository,
	pageRepo *repository.PageRepository,
	widgetRepo *repository.WidgetRepository,
	storage *StorageService,
	cfg *config.Config,
	rdb *redis.Client,
	db *gorm.DB,
) *BuilderService {
	return &BuilderService{
		CourseRepo: courseRepo,
		PageRepo:   pageRepo,
		WidgetRepo: widgetRepo,
		Storage:    storage,
		Cfg:        cfg,
		Redis:      rdb,
		DB:         db,
	}
}

type PageRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	ContentType model.ContentType      `json:"contentType"`
	OrderIndex  *int                   `json:"orderIndex"`
	IsPreview   *bool                  `json:"isPreview"`
	Settings    map[string]interface{} `json:"settings"`
}

type WidgetRequest struct {
	WidgetType model.WidgetType       `json:"widgetType"`
	WidgetData datatypes.JSON         `json:"widgetData"`
	OrderIndex *int                   `json:"orderIndex"`
	IsActive   *bool                  `json:"isActive"`
	Settings   map[string]interface{} `json:"settings"`
}

// ReorderItem is one (id, order_index) pair of a bulk reorder request.
// Both fields are required; the caller asserts the complete final order.
type ReorderItem struct {
	ID         uint `json:"id" binding:"required"`
	OrderIndex *int `json:"order_index" binding:"required"`
}

const outlineCacheKeyPrefix = "course_outline:"

// requireCourseOwner loads a course and verifies the caller may mutate
// its tree. Defense in depth: the role middleware has already gated the
// route, this pins the specific course to the specific caller.
func (s *BuilderService) requireCourseOwner(callerID uint, role model.UserRole, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !course.IsOwnedBy(callerID, role) {
		return nil, util.ErrNotCourseOwner
	}
	return course, nil
}

// invalidateOutline drops the cached learner-facing outline after any
// tree mutation. Failures only get logged; the cache is best-effort.
func (s *BuilderService) invalidateOutline(courseID uint) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf("%s%d", outlineCacheKeyPrefix, courseID)
	if err := s.Redis.Del(context.Background(), key).Err(); err != nil && err != redis.Nil {
		logger.Log.Warn("failed to invalidate outline cache",
			zap.Uint("courseId", courseID), zap.Error(err))
	}
}

// --- ordering helpers -------------------------------------------------

// planMove returns the new order_index for every sibling when one item
// moves to a target slot: siblings keep their relative order and fill
// 0..N-1 around the target. Calling it twice with the same target is a
// no-op the second time.
func planMove(orderedIDs []uint, movedID uint, target int) map[uint]int {
	if target < 0 {
		target = 0
	}
	if target > len(orderedIDs)-1 {
		target = len(orderedIDs) - 1
	}

	assigned := make(map[uint]int, len(orderedIDs))
	next := 0
	for _, id := range orderedIDs {
		if id == movedID {
			continue
		}
		if next == target {
			next++
		}
		assigned[id] = next
		next++
	}
	assigned[movedID] = target
	return assigned
}

func (s *BuilderService) resequencePages(tx *gorm.DB, courseID uint) error {
	var pages []model.CoursePage
	if err := tx.Where("course_id = ?", courseID).
		Order("order_index ASC").Find(&pages).Error; err != nil {
		return err
	}
	for i, page := range pages {
		if page.OrderIndex == i {
			continue
		}
		if err := tx.Model(&model.CoursePage{}).Where("id = ?", page.ID).
			Update("order_index", i).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *BuilderService) resequenceWidgets(tx *gorm.DB, pageID uint) error {
	var widgets []model.Widget
	if err := tx.Where("page_id = ?", pageID).
		Order("order_index ASC").Find(&widgets).Error; err != nil {
		return err
	}
	for i, widget := range widgets {
		if widget.OrderIndex == i {
			continue
		}
		if err := tx.Model(&model.Widget{}).Where("id = ?", widget.ID).
			Update("order_index", i).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *BuilderService) movePage(tx *gorm.DB, courseID, pageID uint, target int) error {
	var pages []model.CoursePage
	if err := tx.Where("course_id = ?", courseID).
		Order("order_index ASC").Find(&pages).Error; err != nil {
		return err
	}
	ids := make([]uint, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	for id, idx := range planMove(ids, pageID, target) {
		if err := tx.Model(&model.CoursePage{}).Where("id = ?", id).
			Update("order_index", idx).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *BuilderService) moveWidget(tx *gorm.DB, pageID, widgetID uint, target int) error {
	var widgets []model.Widget
	if err := tx.Where("page_id = ?", pageID).
		Order("order_index ASC").Find(&widgets).Error; err != nil {
		return err
	}
	ids := make([]uint, len(widgets))
	for i, w := range widgets {
		ids[i] = w.ID
	}
	for id, idx := range planMove(ids, widgetID, target) {
		if err := tx.Model(&model.Widget{}).Where("id = ?", id).
			Update("order_index", idx).Error; err != nil {
			return err
		}
	}
	return nil
}

// --- pages ------------------------------------------------------------

func (s *BuilderService) CreatePage(callerID uint, role model.UserRole, courseID uint, req PageRequest) (*model.CoursePage, error) {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, &model.ValidationError{Fields: []string{"title is required"}}
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = model.ContentLesson
	}
	if !model.IsValidContentType(contentType) {
		return nil, &model.ValidationError{Fields: []string{fmt.Sprintf("unknown content type %q", contentType)}}
	}

	page := &model.CoursePage{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		ContentType: contentType,
		Settings:    req.Settings,
	}
	if req.IsPreview != nil {
		page.IsPreview = *req.IsPreview
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.CoursePage{}).
			Where("course_id = ?", courseID).Count(&count).Error; err != nil {
			return err
		}
		page.OrderIndex = int(count)
		if err := tx.Create(page).Error; err != nil {
			return err
		}
		if req.OrderIndex != nil && *req.OrderIndex != page.OrderIndex {
			if err := s.movePage(tx, courseID, page.ID, *req.OrderIndex); err != nil {
				return err
			}
			return tx.First(page, page.ID).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOutline(courseID)
	return page, nil
}

func (s *BuilderService) UpdatePage(callerID uint, role model.UserRole, courseID, pageID uint, req PageRequest) (*model.CoursePage, error) {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return nil, err
	}
	page, err := s.PageRepo.FindInCourse(pageID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPageNotFound
		}
		return nil, err
	}

	if req.Title != "" {
		page.Title = req.Title
	}
	if req.Description != "" {
		page.Description = req.Description
	}
	if req.ContentType != "" {
		if !model.IsValidContentType(req.ContentType) {
			return nil, &model.ValidationError{Fields: []string{fmt.Sprintf("unknown content type %q", req.ContentType)}}
		}
		page.ContentType = req.ContentType
	}
	if req.IsPreview != nil {
		page.IsPreview = *req.IsPreview
	}
	if req.Settings != nil {
		page.Settings = req.Settings
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(page).Error; err != nil {
			return err
		}
		if req.OrderIndex != nil && *req.OrderIndex != page.OrderIndex {
			if err := s.movePage(tx, courseID, page.ID, *req.OrderIndex); err != nil {
				return err
			}
			return tx.First(page, page.ID).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOutline(courseID)
	return page, nil
}

// DeletePage soft-deletes the page and all its widgets, then compacts
// the surviving siblings back to a contiguous 0-based sequence.
func (s *BuilderService) DeletePage(callerID uint, role model.UserRole, courseID, pageID uint) error {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return err
	}
	if _, err := s.PageRepo.FindInCourse(pageID, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrPageNotFound
		}
		return err
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("page_id = ?", pageID).Delete(&model.Widget{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.CoursePage{}, pageID).Error; err != nil {
			return err
		}
		return s.resequencePages(tx, courseID)
	})
	if err != nil {
		return err
	}

	s.invalidateOutline(courseID)
	return nil
}

// ReorderPages applies a caller-asserted complete ordering. Every live
// page of the course must appear with an explicit order_index.
func (s *BuilderService) ReorderPages(callerID uint, role model.UserRole, courseID uint, items []ReorderItem) error {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return err
	}
	if len(items) == 0 {
		return util.ErrInvalidReorder
	}
	for _, item := range items {
		if item.ID == 0 || item.OrderIndex == nil {
			return util.ErrInvalidReorder
		}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var pages []model.CoursePage
		if err := tx.Where("course_id = ?", courseID).Find(&pages).Error; err != nil {
			return err
		}
		live := make(map[uint]bool, len(pages))
		for _, page := range pages {
			live[page.ID] = true
		}
		if err := checkReorderPermutation(items, live, util.ErrPageNotFound); err != nil {
			return err
		}
		for _, item := range items {
			err := tx.Model(&model.CoursePage{}).
				Where("id = ?", item.ID).
				Update("order_index", *item.OrderIndex).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateOutline(courseID)
	return nil
}

// checkReorderPermutation requires the caller-asserted ordering to be a
// bijection over the current siblings: every live sibling exactly once,
// indices exactly 0..N-1. Anything else would persist gaps or
// duplicate order_index values.
func checkReorderPermutation(items []ReorderItem, live map[uint]bool, notFound error) error {
	seenID := make(map[uint]bool, len(items))
	for _, item := range items {
		if seenID[item.ID] {
			return util.ErrInvalidReorder
		}
		if !live[item.ID] {
			return notFound
		}
		seenID[item.ID] = true
	}
	if len(items) != len(live) {
		return util.ErrInvalidReorder
	}
	seenIndex := make(map[int]bool, len(items))
	for _, item := range items {
		if *item.OrderIndex < 0 || *item.OrderIndex >= len(items) || seenIndex[*item.OrderIndex] {
			return util.ErrInvalidReorder
		}
		seenIndex[*item.OrderIndex] = true
	}
	return nil
}

// PublishPage flips is_published on, gated on the page having at least
// one active widget. No partial state change on failure.
func (s *BuilderService) PublishPage(callerID uint, role model.UserRole, courseID, pageID uint) (*model.CoursePage, error) {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return nil, err
	}
	page, err := s.PageRepo.FindInCourse(pageID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPageNotFound
		}
		return nil, err
	}

	widgets, err := s.WidgetRepo.ListByPage(pageID)
	if err != nil {
		return nil, err
	}
	check := *page
	check.Widgets = widgets
	if !check.CanBePublished() {
		return nil, util.ErrPublishBlocked
	}

	page.IsPublished = true
	if err := s.PageRepo.Save(page); err != nil {
		return nil, err
	}

	s.invalidateOutline(courseID)
	return page, nil
}

// UnpublishPage succeeds unconditionally.
func (s *BuilderService) UnpublishPage(callerID uint, role model.UserRole, courseID, pageID uint) (*model.CoursePage, error) {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return nil, err
	}
	page, err := s.PageRepo.FindInCourse(pageID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPageNotFound
		}
		return nil, err
	}

	page.IsPublished = false
	if err := s.PageRepo.Save(page); err != nil {
		return nil, err
	}

	s.invalidateOutline(courseID)
	return page, nil
}

// DuplicatePage deep-copies a page and its widgets onto the end of the
// course's page order. The copy is always unpublished and not a preview,
// regardless of the original's flags.
func (s *BuilderService) DuplicatePage(callerID uint, role model.UserRole, courseID, pageID uint) (*model.CoursePage, error) {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return nil, err
	}
	page, err := s.PageRepo.FindInCourse(pageID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPageNotFound
		}
		return nil, err
	}

	widgets, err := s.WidgetRepo.ListByPage(pageID)
	if err != nil {
		return nil, err
	}

	settings := datatypes.JSONMap{}
	for k, v := range page.Settings {
		if k == "publish_at" {
			continue
		}
		settings[k] = v
	}
	copyPage := &model.CoursePage{
		CourseID:    courseID,
		Title:       page.Title + " (Copy)",
		Description: page.Description,
		ContentType: page.ContentType,
		IsPublished: false,
		IsPreview:   false,
		Settings:    settings,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.CoursePage{}).
			Where("course_id = ?", courseID).Count(&count).Error; err != nil {
			return err
		}
		copyPage.OrderIndex = int(count)
		if err := tx.Create(copyPage).Error; err != nil {
			return err
		}
		for _, widget := range widgets {
			copyWidget := model.Widget{
				PageID:     copyPage.ID,
				CourseID:   courseID,
				WidgetType: widget.WidgetType,
				WidgetData: widget.WidgetData,
				OrderIndex: widget.OrderIndex,
				IsActive:   widget.IsActive,
				Settings:   widget.Settings,
			}
			if err := tx.Create(&copyWidget).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOutline(courseID)
	return copyPage, nil
}

// --- widgets ----------------------------------------------------------

func (s *BuilderService) AddWidget(ctx context.Context, callerID uint, role model.UserRole, courseID, pageID uint, req WidgetRequest, file *multipart.FileHeader) (*model.Widget, error) {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return nil, err
	}
	if _, err := s.PageRepo.FindInCourse(pageID, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPageNotFound
		}
		return nil, err
	}
	if !model.IsValidWidgetType(req.WidgetType) {
		return nil, &model.ValidationError{Fields: []string{fmt.Sprintf("unknown widget type %q", req.WidgetType)}}
	}

	data := req.WidgetData

	// An accompanying upload is stored first and its metadata folded
	// into the payload, so e.g. an image widget's url requirement is
	// satisfied by the upload itself. Storage failure aborts the create.
	if file != nil {
		uploaded, err := s.storeWidgetFile(ctx, req.WidgetType, file)
		if err != nil {
			return nil, err
		}
		data, err = model.MergeUploadedFile(data, *uploaded)
		if err != nil {
			return nil, err
		}
	}

	if err := model.ValidateWidgetData(req.WidgetType, data); err != nil {
		return nil, err
	}

	widget := &model.Widget{
		PageID:     pageID,
		CourseID:   courseID,
		WidgetType: req.WidgetType,
		WidgetData: data,
		IsActive:   true,
		Settings:   req.Settings,
	}
	if req.IsActive != nil {
		widget.IsActive = *req.IsActive
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Widget{}).
			Where("page_id = ?", pageID).Count(&count).Error; err != nil {
			return err
		}
		widget.OrderIndex = int(count)
		if err := tx.Create(widget).Error; err != nil {
			return err
		}
		if req.OrderIndex != nil && *req.OrderIndex != widget.OrderIndex {
			if err := s.moveWidget(tx, pageID, widget.ID, *req.OrderIndex); err != nil {
				return err
			}
			return tx.First(widget, widget.ID).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOutline(courseID)
	return widget, nil
}

func (s *BuilderService) UpdateWidget(callerID uint, role model.UserRole, courseID, pageID, widgetID uint, req WidgetRequest) (*model.Widget, error) {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return nil, err
	}
	widget, err := s.WidgetRepo.FindInPage(widgetID, pageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrWidgetNotFound
		}
		return nil, err
	}
	if widget.CourseID != courseID {
		return nil, util.ErrWidgetNotFound
	}

	if req.WidgetData != nil {
		if err := model.ValidateWidgetData(widget.WidgetType, req.WidgetData); err != nil {
			return nil, err
		}
		widget.WidgetData = req.WidgetData
	}
	if req.IsActive != nil {
		widget.IsActive = *req.IsActive
	}
	if req.Settings != nil {
		widget.Settings = req.Settings
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(widget).Error; err != nil {
			return err
		}
		if req.OrderIndex != nil && *req.OrderIndex != widget.OrderIndex {
			if err := s.moveWidget(tx, pageID, widget.ID, *req.OrderIndex); err != nil {
				return err
			}
			return tx.First(widget, widget.ID).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOutline(courseID)
	return widget, nil
}

func (s *BuilderService) DeleteWidget(callerID uint, role model.UserRole, courseID, pageID, widgetID uint) error {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return err
	}
	widget, err := s.WidgetRepo.FindInPage(widgetID, pageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrWidgetNotFound
		}
		return err
	}
	if widget.CourseID != courseID {
		return util.ErrWidgetNotFound
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Widget{}, widgetID).Error; err != nil {
			return err
		}
		return s.resequenceWidgets(tx, pageID)
	})
	if err != nil {
		return err
	}

	s.invalidateOutline(courseID)
	return nil
}

func (s *BuilderService) ReorderWidgets(callerID uint, role model.UserRole, courseID, pageID uint, items []ReorderItem) error {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return err
	}
	if _, err := s.PageRepo.FindInCourse(pageID, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrPageNotFound
		}
		return err
	}
	if len(items) == 0 {
		return util.ErrInvalidReorder
	}
	for _, item := range items {
		if item.ID == 0 || item.OrderIndex == nil {
			return util.ErrInvalidReorder
		}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		widgets, err := s.WidgetRepo.ListByPage(pageID)
		if err != nil {
			return err
		}
		live := make(map[uint]bool, len(widgets))
		for _, widget := range widgets {
			live[widget.ID] = true
		}
		if err := checkReorderPermutation(items, live, util.ErrWidgetNotFound); err != nil {
			return err
		}
		for _, item := range items {
			err := tx.Model(&model.Widget{}).
				Where("id = ?", item.ID).
				Update("order_index", *item.OrderIndex).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateOutline(courseID)
	return nil
}

// GetCourseTree returns the instructor's editing view: all live pages
// and widgets, including unpublished pages and inactive widgets.
func (s *BuilderService) GetCourseTree(callerID uint, role model.UserRole, courseID uint) (*model.Course, error) {
	if _, err := s.requireCourseOwner(callerID, role, courseID); err != nil {
		return nil, err
	}
	return s.CourseRepo.FindWithTree(courseID)
}

// --- file attachment --------------------------------------------------

// storedFilename builds a collision-free object name for an upload,
// keeping the original extension.
func storedFilename(prefix, ext string) string {
	return prefix + "/" + time.Now().Format("20060102150405") + "_" + uuid.NewString() + ext
}

// storeWidgetFile uploads a widget attachment through the storage
// collaborator. Video attachments additionally get a probed duration
// and a generated thumbnail, matching the resource upload pipeline.
func (s *BuilderService) storeWidgetFile(ctx context.Context, widgetType model.WidgetType, file *multipart.FileHeader) (*model.UploadedFile, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailure, err)
	}
	defer src.Close()

	allowedTypes := []string{util.MimePDF, util.MimeVideo, util.MimeImage, "text/plain", util.MimeOctetStream}
	switch widgetType {
	case model.WidgetImage:
		allowedTypes = []string{util.MimeImage}
	case model.WidgetVideo:
		allowedTypes = []string{util.MimeVideo, util.MimeOctetStream}
	}
	mimeType, err := util.ValidateMimeType(src, allowedTypes)
	if err != nil {
		return nil, err
	}
	if seeker, ok := src.(io.Seeker); ok {
		seeker.Seek(0, io.SeekStart)
	}

	ext := filepath.Ext(file.Filename)
	filename := storedFilename("widgets", ext)

	uploaded := &model.UploadedFile{
		Path:             filename,
		OriginalFilename: file.Filename,
		Size:             file.Size,
		MimeType:         mimeType,
	}

	if widgetType == model.WidgetVideo {
		return s.storeVideoFile(ctx, src, file, filename, uploaded)
	}

	url, err := s.Storage.Upload(ctx, filename, src, file.Size, mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailure, err)
	}
	uploaded.URL = url
	return uploaded, nil
}

// storeVideoFile spools the upload to a temp file so ffmpeg can probe
// duration and grab a thumbnail frame before the upload itself.
func (s *BuilderService) storeVideoFile(ctx context.Context, src multipart.File, file *multipart.FileHeader, filename string, uploaded *model.UploadedFile) (*model.UploadedFile, error) {
	ext := filepath.Ext(file.Filename)
	tempDir := filepath.Join(s.Cfg.Storage.LocalPath, "temp")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailure, err)
	}

	videoPath := filepath.Join(tempDir, fmt.Sprintf("temp_widget_%d%s", time.Now().UnixNano(), ext))
	defer os.Remove(videoPath)

	dst, err := os.Create(videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailure, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailure, err)
	}
	dst.Close()

	url, err := s.Storage.UploadFile(ctx, filename, videoPath, uploaded.MimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailure, err)
	}
	uploaded.URL = url

	if info, err := util.GetVideoInfo(videoPath); err == nil {
		uploaded.Duration = info.Duration
	}

	thumbnailFilename := storedFilename("thumbnails", ".jpg")
	thumbnailPath := filepath.Join(tempDir, filepath.Base(thumbnailFilename))
	if err := util.GenerateThumbnail(videoPath, thumbnailPath, "3"); err != nil {
		logger.Log.Warn("failed to generate widget video thumbnail", zap.Error(err))
		return uploaded, nil
	}
	defer os.Remove(thumbnailPath)

	thumbnailURL, err := s.Storage.UploadFile(ctx, thumbnailFilename, thumbnailPath, "image/jpeg")
	if err != nil {
		logger.Log.Warn("failed to upload widget video thumbnail", zap.Error(err))
		return uploaded, nil
	}
	uploaded.Thumbnail = thumbnailURL
	return uploaded, nil
}

// --- scheduled publishing ---------------------------------------------

// ProcessScheduledPublishes publishes pages whose settings carry a
// publish_at timestamp that has passed, applying the same active-widget
// gate as an explicit publish. Runs from the app's minute ticker.
func (s *BuilderService) ProcessScheduledPublishes() error {
	var pages []model.CoursePage
	if err := s.DB.Where("is_published = ?", false).Find(&pages).Error; err != nil {
		return err
	}

	now := time.Now()
	for i := range pages {
		page := &pages[i]
		raw, ok := page.Settings["publish_at"]
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		publishAt, err := time.Parse(time.RFC3339, str)
		if err != nil || publishAt.After(now) {
			continue
		}

		widgets, err := s.WidgetRepo.ListByPage(page.ID)
		if err != nil {
			return err
		}
		check := *page
		check.Widgets = widgets
		if !check.CanBePublished() {
			logger.Log.Warn("scheduled publish skipped: page has no active widgets",
				zap.Uint("pageId", page.ID))
			continue
		}

		page.IsPublished = true
		delete(page.Settings, "publish_at")
		if err := s.PageRepo.Save(page); err != nil {
			return err
		}
		s.invalidateOutline(page.CourseID)
		logger.Log.Info("page published on schedule",
			zap.Uint("pageId", page.ID), zap.Uint("courseId", page.CourseID))
	}
	return nil
}
