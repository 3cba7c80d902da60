package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageCanBePublished(t *testing.T) {
	page := &CoursePage{}
	assert.False(t, page.CanBePublished(), "empty page")

	page.Widgets = []Widget{{IsActive: false}, {IsActive: false}}
	assert.False(t, page.CanBePublished(), "only inactive widgets")

	page.Widgets = append(page.Widgets, Widget{IsActive: true})
	assert.True(t, page.CanBePublished(), "one active widget is enough")
}
