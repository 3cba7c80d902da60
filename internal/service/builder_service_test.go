package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"course_builder_backend/internal/model"
	"course_builder_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCreatePageAppends(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	for i := 0; i < 3; i++ {
		page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
		require.NoError(t, err)
		assert.Equal(t, i, page.OrderIndex)
	}

	_, indexes := pageOrder(t, db, course.ID)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestCreatePageInsertAtPosition(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	first, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "First"})
	require.NoError(t, err)
	second, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Second"})
	require.NoError(t, err)

	inserted, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{
		Title:      "Inserted",
		OrderIndex: intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted.OrderIndex)

	ids, indexes := pageOrder(t, db, course.ID)
	assert.Equal(t, []uint{inserted.ID, first.ID, second.ID}, ids)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestCreatePageValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	_, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "   "})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{
		Title:       "Ok",
		ContentType: model.ContentType("webinar"),
	})
	require.ErrorAs(t, err, &verr)
}

func TestDeletePageClosesGap(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	var pages []*model.CoursePage
	for i := 0; i < 4; i++ {
		page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
		require.NoError(t, err)
		pages = append(pages, page)
	}
	seedWidget(t, db, course.ID, pages[1].ID, 0, true)

	require.NoError(t, svc.DeletePage(instructor.ID, instructor.Role, course.ID, pages[1].ID))

	ids, indexes := pageOrder(t, db, course.ID)
	assert.Equal(t, []uint{pages[0].ID, pages[2].ID, pages[3].ID}, ids)
	assert.Equal(t, []int{0, 1, 2}, indexes)

	// The deleted page's widgets are gone from live queries too.
	var widgetCount int64
	require.NoError(t, db.Model(&model.Widget{}).Where("page_id = ?", pages[1].ID).Count(&widgetCount).Error)
	assert.Zero(t, widgetCount)
}

func TestUpdatePageMoveIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	var pages []*model.CoursePage
	for i := 0; i < 3; i++ {
		page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
		require.NoError(t, err)
		pages = append(pages, page)
	}

	// Move the last page to the front, twice. The second move must not
	// change anything.
	for i := 0; i < 2; i++ {
		_, err := svc.UpdatePage(instructor.ID, instructor.Role, course.ID, pages[2].ID, PageRequest{
			OrderIndex: intPtr(0),
		})
		require.NoError(t, err)

		ids, indexes := pageOrder(t, db, course.ID)
		assert.Equal(t, []uint{pages[2].ID, pages[0].ID, pages[1].ID}, ids)
		assert.Equal(t, []int{0, 1, 2}, indexes)
	}
}

func TestMoveTargetIsClamped(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	var pages []*model.CoursePage
	for i := 0; i < 3; i++ {
		page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
		require.NoError(t, err)
		pages = append(pages, page)
	}

	// Out-of-range target moves to the end instead of erroring.
	_, err := svc.UpdatePage(instructor.ID, instructor.Role, course.ID, pages[0].ID, PageRequest{
		OrderIndex: intPtr(99),
	})
	require.NoError(t, err)

	ids, indexes := pageOrder(t, db, course.ID)
	assert.Equal(t, []uint{pages[1].ID, pages[2].ID, pages[0].ID}, ids)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestReorderPages(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	var pages []*model.CoursePage
	for i := 0; i < 3; i++ {
		page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
		require.NoError(t, err)
		pages = append(pages, page)
	}

	err := svc.ReorderPages(instructor.ID, instructor.Role, course.ID, []ReorderItem{
		{ID: pages[0].ID, OrderIndex: intPtr(2)},
		{ID: pages[1].ID, OrderIndex: intPtr(0)},
		{ID: pages[2].ID, OrderIndex: intPtr(1)},
	})
	require.NoError(t, err)

	ids, indexes := pageOrder(t, db, course.ID)
	assert.Equal(t, []uint{pages[1].ID, pages[2].ID, pages[0].ID}, ids)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestReorderPagesRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)
	page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
	require.NoError(t, err)

	err = svc.ReorderPages(instructor.ID, instructor.Role, course.ID, nil)
	assert.ErrorIs(t, err, util.ErrInvalidReorder)

	err = svc.ReorderPages(instructor.ID, instructor.Role, course.ID, []ReorderItem{{ID: page.ID}})
	assert.ErrorIs(t, err, util.ErrInvalidReorder)

	// Unknown page id rolls the whole reorder back.
	err = svc.ReorderPages(instructor.ID, instructor.Role, course.ID, []ReorderItem{
		{ID: page.ID, OrderIndex: intPtr(1)},
		{ID: 9999, OrderIndex: intPtr(0)},
	})
	assert.ErrorIs(t, err, util.ErrPageNotFound)

	_, indexes := pageOrder(t, db, course.ID)
	assert.Equal(t, []int{0}, indexes)
}

func TestReorderPagesRequiresFullPermutation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	var pages []*model.CoursePage
	for i := 0; i < 3; i++ {
		page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
		require.NoError(t, err)
		pages = append(pages, page)
	}

	// Duplicate and out-of-range indices would persist gaps.
	err := svc.ReorderPages(instructor.ID, instructor.Role, course.ID, []ReorderItem{
		{ID: pages[0].ID, OrderIndex: intPtr(0)},
		{ID: pages[1].ID, OrderIndex: intPtr(0)},
		{ID: pages[2].ID, OrderIndex: intPtr(5)},
	})
	assert.ErrorIs(t, err, util.ErrInvalidReorder)

	// A subset of the siblings is not a complete ordering.
	err = svc.ReorderPages(instructor.ID, instructor.Role, course.ID, []ReorderItem{
		{ID: pages[0].ID, OrderIndex: intPtr(1)},
		{ID: pages[1].ID, OrderIndex: intPtr(0)},
	})
	assert.ErrorIs(t, err, util.ErrInvalidReorder)

	// Listing the same page twice is rejected as well.
	err = svc.ReorderPages(instructor.ID, instructor.Role, course.ID, []ReorderItem{
		{ID: pages[0].ID, OrderIndex: intPtr(0)},
		{ID: pages[0].ID, OrderIndex: intPtr(1)},
		{ID: pages[2].ID, OrderIndex: intPtr(2)},
	})
	assert.ErrorIs(t, err, util.ErrInvalidReorder)

	ids, indexes := pageOrder(t, db, course.ID)
	assert.Equal(t, []uint{pages[0].ID, pages[1].ID, pages[2].ID}, ids)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestReorderWidgetsRequiresFullPermutation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)
	page := seedPage(t, db, course.ID, 0)
	w0 := seedWidget(t, db, course.ID, page.ID, 0, true)
	w1 := seedWidget(t, db, course.ID, page.ID, 1, true)
	w2 := seedWidget(t, db, course.ID, page.ID, 2, true)

	err := svc.ReorderWidgets(instructor.ID, instructor.Role, course.ID, page.ID, []ReorderItem{
		{ID: w0.ID, OrderIndex: intPtr(0)},
		{ID: w1.ID, OrderIndex: intPtr(0)},
		{ID: w2.ID, OrderIndex: intPtr(5)},
	})
	assert.ErrorIs(t, err, util.ErrInvalidReorder)

	err = svc.ReorderWidgets(instructor.ID, instructor.Role, course.ID, page.ID, []ReorderItem{
		{ID: w2.ID, OrderIndex: intPtr(0)},
	})
	assert.ErrorIs(t, err, util.ErrInvalidReorder)

	ids, indexes := widgetOrder(t, db, page.ID)
	assert.Equal(t, []uint{w0.ID, w1.ID, w2.ID}, ids)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestPublishGating(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)
	page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
	require.NoError(t, err)

	// No widgets at all.
	_, err = svc.PublishPage(instructor.ID, instructor.Role, course.ID, page.ID)
	assert.ErrorIs(t, err, util.ErrPublishBlocked)

	// Only an inactive widget still blocks.
	seedWidget(t, db, course.ID, page.ID, 0, false)
	_, err = svc.PublishPage(instructor.ID, instructor.Role, course.ID, page.ID)
	assert.ErrorIs(t, err, util.ErrPublishBlocked)

	var stored model.CoursePage
	require.NoError(t, db.First(&stored, page.ID).Error)
	assert.False(t, stored.IsPublished)

	// One active widget unblocks.
	seedWidget(t, db, course.ID, page.ID, 1, true)
	published, err := svc.PublishPage(instructor.ID, instructor.Role, course.ID, page.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)

	// Unpublish never gates.
	unpublished, err := svc.UnpublishPage(instructor.ID, instructor.Role, course.ID, page.ID)
	require.NoError(t, err)
	assert.False(t, unpublished.IsPublished)
}

func TestDuplicatePage(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{
		Title:     "Joins",
		IsPreview: boolPtr(true),
	})
	require.NoError(t, err)
	seedWidget(t, db, course.ID, page.ID, 0, true)
	inactive := seedWidget(t, db, course.ID, page.ID, 1, false)

	require.NoError(t, db.Model(&model.CoursePage{}).Where("id = ?", page.ID).Update("is_published", true).Error)

	copyPage, err := svc.DuplicatePage(instructor.ID, instructor.Role, course.ID, page.ID)
	require.NoError(t, err)

	assert.Equal(t, "Joins (Copy)", copyPage.Title)
	assert.False(t, copyPage.IsPublished)
	assert.False(t, copyPage.IsPreview)
	assert.Equal(t, 1, copyPage.OrderIndex)

	copyIDs, copyIndexes := widgetOrder(t, db, copyPage.ID)
	require.Len(t, copyIDs, 2)
	assert.Equal(t, []int{0, 1}, copyIndexes)

	// Widget activity flags carry over.
	var copied []model.Widget
	require.NoError(t, db.Where("page_id = ?", copyPage.ID).Order("order_index ASC").Find(&copied).Error)
	assert.True(t, copied[0].IsActive)
	assert.False(t, copied[1].IsActive)
	assert.Equal(t, inactive.WidgetData, copied[1].WidgetData)
}

func TestAddWidgetValidatesPayload(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)
	page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
	require.NoError(t, err)

	_, err = svc.AddWidget(context.Background(), instructor.ID, instructor.Role, course.ID, page.ID, WidgetRequest{
		WidgetType: model.WidgetMCQ,
		WidgetData: datatypes.JSON(`{"question":"?","options":["only one"]}`),
	}, nil)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "mcq widgets need at least 2 options")

	_, err = svc.AddWidget(context.Background(), instructor.ID, instructor.Role, course.ID, page.ID, WidgetRequest{
		WidgetType: model.WidgetType("hologram"),
		WidgetData: datatypes.JSON(`{}`),
	}, nil)
	require.ErrorAs(t, err, &verr)

	widget, err := svc.AddWidget(context.Background(), instructor.ID, instructor.Role, course.ID, page.ID, WidgetRequest{
		WidgetType: model.WidgetMCQ,
		WidgetData: datatypes.JSON(`{"question":"?","options":["a","b"],"correct_option":0}`),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, widget.OrderIndex)
	assert.True(t, widget.IsActive)
}

func TestWidgetOrderingAcrossOperations(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)
	page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
	require.NoError(t, err)

	var widgets []*model.Widget
	for i := 0; i < 3; i++ {
		w, err := svc.AddWidget(context.Background(), instructor.ID, instructor.Role, course.ID, page.ID, WidgetRequest{
			WidgetType: model.WidgetText,
			WidgetData: datatypes.JSON(`{"content":"x"}`),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, i, w.OrderIndex)
		widgets = append(widgets, w)
	}

	// Delete the middle widget: survivors compact to 0,1.
	require.NoError(t, svc.DeleteWidget(instructor.ID, instructor.Role, course.ID, page.ID, widgets[1].ID))
	ids, indexes := widgetOrder(t, db, page.ID)
	assert.Equal(t, []uint{widgets[0].ID, widgets[2].ID}, ids)
	assert.Equal(t, []int{0, 1}, indexes)

	// Move the last to the front via update.
	_, err = svc.UpdateWidget(instructor.ID, instructor.Role, course.ID, page.ID, widgets[2].ID, WidgetRequest{
		OrderIndex: intPtr(0),
	})
	require.NoError(t, err)
	ids, indexes = widgetOrder(t, db, page.ID)
	assert.Equal(t, []uint{widgets[2].ID, widgets[0].ID}, ids)
	assert.Equal(t, []int{0, 1}, indexes)
}

func TestUpdateWidgetValidatesAgainstStoredType(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)
	page, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{Title: "Lesson"})
	require.NoError(t, err)
	widget := seedWidget(t, db, course.ID, page.ID, 0, true)

	_, err = svc.UpdateWidget(instructor.ID, instructor.Role, course.ID, page.ID, widget.ID, WidgetRequest{
		WidgetData: datatypes.JSON(`{"format":"markdown"}`),
	})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	updated, err := svc.UpdateWidget(instructor.ID, instructor.Role, course.ID, page.ID, widget.ID, WidgetRequest{
		WidgetData: datatypes.JSON(`{"content":"updated"}`),
		IsActive:   boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestOwnershipEnforcement(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	owner := seedUser(t, db, model.Instructor)
	other := seedUser(t, db, model.Instructor)
	admin := seedUser(t, db, model.Admin)
	course := seedCourse(t, db, owner.ID)

	_, err := svc.CreatePage(other.ID, other.Role, course.ID, PageRequest{Title: "Nope"})
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	_, err = svc.GetCourseTree(other.ID, other.Role, course.ID)
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	// Admins bypass ownership.
	_, err = svc.CreatePage(admin.ID, admin.Role, course.ID, PageRequest{Title: "Admin page"})
	require.NoError(t, err)

	_, err = svc.CreatePage(owner.ID, owner.Role, 9999, PageRequest{Title: "Ghost"})
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestProcessScheduledPublishes(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBuilder(db)
	instructor := seedUser(t, db, model.Instructor)
	course := seedCourse(t, db, instructor.ID)

	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	future := time.Now().Add(time.Hour).Format(time.RFC3339)

	due, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{
		Title:    "Due",
		Settings: map[string]interface{}{"publish_at": past},
	})
	require.NoError(t, err)
	seedWidget(t, db, course.ID, due.ID, 0, true)

	notDue, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{
		Title:    "Not due",
		Settings: map[string]interface{}{"publish_at": future},
	})
	require.NoError(t, err)
	seedWidget(t, db, course.ID, notDue.ID, 0, true)

	gated, err := svc.CreatePage(instructor.ID, instructor.Role, course.ID, PageRequest{
		Title:    "Due but empty",
		Settings: map[string]interface{}{"publish_at": past},
	})
	require.NoError(t, err)

	require.NoError(t, svc.ProcessScheduledPublishes())

	var stored model.CoursePage
	require.NoError(t, db.First(&stored, due.ID).Error)
	assert.True(t, stored.IsPublished)
	_, hasKey := stored.Settings["publish_at"]
	assert.False(t, hasKey)

	require.NoError(t, db.First(&stored, notDue.ID).Error)
	assert.False(t, stored.IsPublished)

	require.NoError(t, db.First(&stored, gated.ID).Error)
	assert.False(t, stored.IsPublished)
}

func TestStoredFilenameIsUnique(t *testing.T) {
	first := storedFilename("widgets", ".png")
	second := storedFilename("widgets", ".png")

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "widgets/"))
	assert.True(t, strings.HasSuffix(first, ".png"))
}
