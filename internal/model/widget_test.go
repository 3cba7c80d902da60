package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestValidateWidgetData(t *testing.T) {
	tests := []struct {
		name       string
		widgetType WidgetType
		data       string
		wantErr    bool
		wantField  string
	}{
		{
			name:       "text with content",
			widgetType: WidgetText,
			data:       `{"content":"Hello"}`,
		},
		{
			name:       "text without content",
			widgetType: WidgetText,
			data:       `{"format":"markdown"}`,
			wantErr:    true,
			wantField:  "content is required for text widgets",
		},
		{
			name:       "text with whitespace content",
			widgetType: WidgetText,
			data:       `{"content":"   "}`,
			wantErr:    true,
			wantField:  "content is required for text widgets",
		},
		{
			name:       "image with url",
			widgetType: WidgetImage,
			data:       `{"url":"/uploads/a.png"}`,
		},
		{
			name:       "image without url",
			widgetType: WidgetImage,
			data:       `{"caption":"a cat"}`,
			wantErr:    true,
			wantField:  "url is required for image widgets",
		},
		{
			name:       "video without url",
			widgetType: WidgetVideo,
			data:       `{}`,
			wantErr:    true,
			wantField:  "url is required for video widgets",
		},
		{
			name:       "mcq with two options",
			widgetType: WidgetMCQ,
			data:       `{"question":"2+2?","options":["3","4"],"correct_option":1}`,
		},
		{
			name:       "mcq with one option",
			widgetType: WidgetMCQ,
			data:       `{"question":"2+2?","options":["4"]}`,
			wantErr:    true,
			wantField:  "mcq widgets need at least 2 options",
		},
		{
			name:       "mcq missing question and options",
			widgetType: WidgetMCQ,
			data:       `{}`,
			wantErr:    true,
			wantField:  "question is required for mcq widgets",
		},
		{
			name:       "poll with two options",
			widgetType: WidgetPoll,
			data:       `{"question":"Tabs or spaces?","options":["tabs","spaces"]}`,
		},
		{
			name:       "code with snippet",
			widgetType: WidgetCode,
			data:       `{"code":"fmt.Println(42)","language":"go"}`,
		},
		{
			name:       "code without snippet",
			widgetType: WidgetCode,
			data:       `{"language":"go"}`,
			wantErr:    true,
			wantField:  "code is required for code widgets",
		},
		{
			name:       "embed with code",
			widgetType: WidgetEmbed,
			data:       `{"embed_code":"<iframe src=\"x\"></iframe>"}`,
		},
		{
			name:       "embed without code",
			widgetType: WidgetEmbed,
			data:       `{}`,
			wantErr:    true,
			wantField:  "embed_code is required for embed widgets",
		},
		{
			name:       "quiz payload is opaque",
			widgetType: WidgetQuiz,
			data:       `{"anything":"goes","even":[1,2,3]}`,
		},
		{
			name:       "assignment payload is opaque",
			widgetType: WidgetAssignment,
			data:       `{}`,
		},
		{
			name:       "unknown type",
			widgetType: WidgetType("hologram"),
			data:       `{}`,
			wantErr:    true,
			wantField:  `unknown widget type "hologram"`,
		},
		{
			name:       "malformed json",
			widgetType: WidgetText,
			data:       `{"content":`,
			wantErr:    true,
			wantField:  "widget_data is not valid JSON for its type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWidgetData(tt.widgetType, datatypes.JSON(tt.data))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.wantField)
		})
	}
}

func TestValidateWidgetDataEmptyPayload(t *testing.T) {
	// An absent payload decodes as {} and fails the same required-field
	// rules as an explicit empty object.
	err := ValidateWidgetData(WidgetText, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "content is required for text widgets")

	// Opaque types accept an absent payload.
	assert.NoError(t, ValidateWidgetData(WidgetQuiz, nil))
}

func TestMergeUploadedFile(t *testing.T) {
	uploaded := UploadedFile{
		URL:              "/uploads/widgets/123_abc.png",
		Path:             "widgets/123_abc.png",
		OriginalFilename: "diagram.png",
		Size:             2048,
		MimeType:         "image/png",
	}

	merged, err := MergeUploadedFile(datatypes.JSON(`{"caption":"flow diagram"}`), uploaded)
	require.NoError(t, err)

	// The merge must satisfy the image url requirement while keeping the
	// caller's own fields.
	require.NoError(t, ValidateWidgetData(WidgetImage, merged))

	payload, err := DecodeWidgetData(WidgetImage, merged)
	require.NoError(t, err)
	img := payload.(ImageData)
	assert.Equal(t, "/uploads/widgets/123_abc.png", img.URL)
	assert.Equal(t, "diagram.png", img.OriginalFilename)
	assert.Equal(t, int64(2048), img.Size)
	assert.Equal(t, "flow diagram", img.Caption)
}

func TestMergeUploadedFileVideoMetadata(t *testing.T) {
	uploaded := UploadedFile{
		URL:       "/uploads/widgets/9_xyz.mp4",
		Path:      "widgets/9_xyz.mp4",
		MimeType:  "video/mp4",
		Thumbnail: "/uploads/thumbnails/9_xyz.jpg",
		Duration:  93.5,
	}

	merged, err := MergeUploadedFile(nil, uploaded)
	require.NoError(t, err)

	payload, err := DecodeWidgetData(WidgetVideo, merged)
	require.NoError(t, err)
	video := payload.(VideoData)
	assert.Equal(t, "/uploads/thumbnails/9_xyz.jpg", video.Thumbnail)
	assert.InDelta(t, 93.5, video.Duration, 0.001)
}

func TestWidgetIsValid(t *testing.T) {
	w := &Widget{
		WidgetType: WidgetText,
		WidgetData: datatypes.JSON(`{"content":"hi"}`),
	}
	assert.True(t, w.IsValid())

	w.WidgetData = datatypes.JSON(`{}`)
	assert.False(t, w.IsValid())
}
