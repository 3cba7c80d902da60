package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

type WidgetType string

const (
	WidgetText       WidgetType = "text"
	WidgetImage      WidgetType = "image"
	WidgetVideo      WidgetType = "video"
	WidgetMCQ        WidgetType = "mcq"
	WidgetPoll       WidgetType = "poll"
	WidgetFile       WidgetType = "file"
	WidgetCode       WidgetType = "code"
	WidgetEmbed      WidgetType = "embed"
	WidgetQuiz       WidgetType = "quiz"
	WidgetAssignment WidgetType = "assignment"
)

func IsValidWidgetType(t WidgetType) bool {
	switch t {
	case WidgetText, WidgetImage, WidgetVideo, WidgetMCQ, WidgetPoll,
		WidgetFile, WidgetCode, WidgetEmbed, WidgetQuiz, WidgetAssignment:
		return true
	}
	return false
}

// Widget is a single typed content unit inside a page. WidgetData holds
// the type-specific payload as JSON; DecodeWidgetData turns it into the
// matching payload struct.
type Widget struct {
	BaseModel
	PageID     uint              `gorm:"index;not null" json:"pageId"`
	CourseID   uint              `gorm:"index;not null" json:"courseId"`
	WidgetType WidgetType        `gorm:"size:20;not null" json:"widgetType"`
	WidgetData datatypes.JSON    `gorm:"type:json" json:"widgetData"`
	OrderIndex int               `gorm:"not null;default:0" json:"orderIndex"`
	IsActive   bool              `gorm:"default:true" json:"isActive"`
	Settings   datatypes.JSONMap `gorm:"type:json" json:"settings"`
}

func (Widget) TableName() string {
	return "widgets"
}

// IsValid re-runs the type-specific payload check against the persisted
// payload.
func (w *Widget) IsValid() bool {
	return ValidateWidgetData(w.WidgetType, w.WidgetData) == nil
}

// ValidationError carries field-level messages so the editing UI can
// highlight the exact problem rather than a generic bad request.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func newValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// WidgetPayload is the decoded form of a widget's data. Each widget type
// has its own payload struct with its own minimal required-field rule.
type WidgetPayload interface {
	Validate() *ValidationError
}

type TextData struct {
	Content string `json:"content"`
	Format  string `json:"format,omitempty"`
}

func (d TextData) Validate() *ValidationError {
	if strings.TrimSpace(d.Content) == "" {
		return newValidationError("content is required for text widgets")
	}
	return nil
}

// MediaData backs image, video and file widgets. The URL is either
// supplied directly or filled in by an uploaded-file merge before
// validation runs.
type MediaData struct {
	URL              string `json:"url"`
	Path             string `json:"path,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	Size             int64  `json:"size,omitempty"`
	MimeType         string `json:"mime_type,omitempty"`
	Caption          string `json:"caption,omitempty"`
	Thumbnail        string `json:"thumbnail,omitempty"`
	Duration         float64 `json:"duration,omitempty"`
}

func (d MediaData) validateURL(kind string) *ValidationError {
	if strings.TrimSpace(d.URL) == "" {
		return newValidationError(fmt.Sprintf("url is required for %s widgets", kind))
	}
	return nil
}

type ImageData struct{ MediaData }

func (d ImageData) Validate() *ValidationError { return d.validateURL("image") }

type VideoData struct{ MediaData }

func (d VideoData) Validate() *ValidationError { return d.validateURL("video") }

type FileData struct{ MediaData }

func (d FileData) Validate() *ValidationError { return d.validateURL("file") }

// ChoiceData backs mcq and poll widgets.
type ChoiceData struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correct_option,omitempty"`
	AllowMultiple bool     `json:"allow_multiple,omitempty"`
}

func (d ChoiceData) validate(kind string) *ValidationError {
	var fields []string
	if strings.TrimSpace(d.Question) == "" {
		fields = append(fields, fmt.Sprintf("question is required for %s widgets", kind))
	}
	if len(d.Options) < 2 {
		fields = append(fields, fmt.Sprintf("%s widgets need at least 2 options", kind))
	}
	if len(fields) > 0 {
		return newValidationError(fields...)
	}
	return nil
}

type MCQData struct{ ChoiceData }

func (d MCQData) Validate() *ValidationError { return d.validate("mcq") }

type PollData struct{ ChoiceData }

func (d PollData) Validate() *ValidationError { return d.validate("poll") }

type CodeData struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

func (d CodeData) Validate() *ValidationError {
	if strings.TrimSpace(d.Code) == "" {
		return newValidationError("code is required for code widgets")
	}
	return nil
}

type EmbedData struct {
	EmbedCode string `json:"embed_code"`
	Provider  string `json:"provider,omitempty"`
}

func (d EmbedData) Validate() *ValidationError {
	if strings.TrimSpace(d.EmbedCode) == "" {
		return newValidationError("embed_code is required for embed widgets")
	}
	return nil
}

// OpaqueData backs quiz and assignment widgets. Their payload shape is
// owned by the quiz subsystem, so no check happens at this layer.
type OpaqueData struct {
	Raw json.RawMessage `json:"-"`
}

func (d OpaqueData) Validate() *ValidationError { return nil }

// DecodeWidgetData decodes raw payload JSON into the payload struct for
// the given widget type. The switch is exhaustive over the closed type
// set; an unknown type is a validation failure, not a panic.
func DecodeWidgetData(t WidgetType, raw datatypes.JSON) (WidgetPayload, error) {
	if len(raw) == 0 {
		raw = datatypes.JSON("{}")
	}
	switch t {
	case WidgetText:
		var d TextData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case WidgetImage:
		var d ImageData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case WidgetVideo:
		var d VideoData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case WidgetMCQ:
		var d MCQData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case WidgetPoll:
		var d PollData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case WidgetFile:
		var d FileData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case WidgetCode:
		var d CodeData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case WidgetEmbed:
		var d EmbedData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case WidgetQuiz, WidgetAssignment:
		return OpaqueData{Raw: json.RawMessage(raw)}, nil
	default:
		return nil, newValidationError(fmt.Sprintf("unknown widget type %q", t))
	}
}

// ValidateWidgetData runs the type-specific required-field rule. A nil
// return means the payload is acceptable for persistence.
func ValidateWidgetData(t WidgetType, raw datatypes.JSON) error {
	payload, err := DecodeWidgetData(t, raw)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			return ve
		}
		return newValidationError("widget_data is not valid JSON for its type")
	}
	if ve := payload.Validate(); ve != nil {
		return ve
	}
	return nil
}

// UploadedFile describes a file stored by the storage collaborator on
// behalf of a widget create request.
type UploadedFile struct {
	URL              string  `json:"url"`
	Path             string  `json:"path"`
	OriginalFilename string  `json:"original_filename"`
	Size             int64   `json:"size"`
	MimeType         string  `json:"mime_type"`
	Thumbnail        string  `json:"thumbnail,omitempty"`
	Duration         float64 `json:"duration,omitempty"`
}

// MergeUploadedFile folds stored-file metadata into a widget payload.
// It runs before type validation so that, e.g., an image widget's url
// requirement is satisfied by the upload itself.
func MergeUploadedFile(raw datatypes.JSON, f UploadedFile) (datatypes.JSON, error) {
	data := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
	}
	data["url"] = f.URL
	data["path"] = f.Path
	data["original_filename"] = f.OriginalFilename
	data["size"] = f.Size
	data["mime_type"] = f.MimeType
	if f.Thumbnail != "" {
		data["thumbnail"] = f.Thumbnail
	}
	if f.Duration > 0 {
		data["duration"] = f.Duration
	}
	merged, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(merged), nil
}
