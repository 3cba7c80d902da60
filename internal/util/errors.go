package util

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotCourseOwner   = errors.New("caller is not the course owner")
	ErrCourseNotFound   = errors.New("course not found")
	ErrPageNotFound     = errors.New("page not found")
	ErrWidgetNotFound   = errors.New("widget not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrPublishBlocked   = errors.New("page cannot be published without at least one active widget")
	ErrEmptyCourse      = errors.New("course has no pages to capture")
	ErrNotEnrolled      = errors.New("no active enrollment for this course")
	ErrInvalidReorder   = errors.New("reorder request is missing id/order_index pairs")
	ErrStorageFailure   = errors.New("file storage failed")
	ErrInvalidFileExt   = errors.New("file type not allowed")
)
