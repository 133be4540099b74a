package form

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/models"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

var users = []models.User{
	{ID: 1, Username: "normal_user"},
	{ID: 2, Username: "admin_user"},
}

func TestDisplayDefaultDateTime(t *testing.T) {
	loc := tokyo(t)
	// UTC 16:30 は東京では翌日
	now := time.Date(2021, 1, 4, 16, 30, 0, 0, time.UTC)
	assert.Equal(t, "2021-01-05T00:00", DisplayDefaultDateTime(now, loc))
}

func TestDefaultTaskForm_New(t *testing.T) {
	f := DefaultTaskForm(true, nil, time.UTC)
	assert.Empty(t, f.ID)
	assert.False(t, f.Closed)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T00:00$`, f.ExecutionTime)
}

func TestDefaultTaskForm_Edit(t *testing.T) {
	loc := tokyo(t)
	exec := time.Date(2021, 1, 5, 1, 0, 0, 0, time.UTC)
	task := &models.Task{
		ID:            7,
		Title:         models.Ptr("write"),
		ExecutionTime: &exec,
		DurationMin:   models.Ptr(int64(30)),
		Closed:        models.Ptr(true),
		User:          &models.UserRef{ID: 1},
		Tags:          []models.Tag{{ID: 3}, {ID: 4}},
	}

	f := DefaultTaskForm(false, task, loc)

	assert.Equal(t, TaskForm{
		ID:            "7",
		Title:         "write",
		ExecutionTime: "2021-01-05T10:00",
		DurationMin:   "30",
		Closed:        true,
		User:          "1",
		Tags:          []string{"3", "4"},
	}, f)
}

func TestTaskFormEntity(t *testing.T) {
	loc := tokyo(t)
	base := models.Task{ID: 7, CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	f := TaskForm{
		ID:            "7",
		Title:         "write",
		ExecutionTime: "2021-01-05T10:00",
		DurationMin:   "45",
		User:          "2",
		Tags:          []string{"3", "", " 4 "},
	}

	got, err := f.Entity(base, users, loc)
	require.NoError(t, err)

	assert.Equal(t, 7, got.ID)
	assert.Equal(t, "write", *got.Title)
	assert.Nil(t, got.Description)
	assert.Equal(t, time.Date(2021, 1, 5, 1, 0, 0, 0, time.UTC), *got.ExecutionTime)
	assert.EqualValues(t, 45, *got.DurationMin)
	assert.False(t, *got.Closed)
	assert.Equal(t, &models.UserRef{ID: 2, Login: "admin_user"}, got.User)
	assert.Equal(t, []models.Tag{{ID: 3}, {ID: 4}}, got.Tags)
	assert.Equal(t, base.CreatedAt, got.CreatedAt)
}

func TestTaskFormEntity_EmptyValues(t *testing.T) {
	got, err := TaskForm{Title: "t"}.Entity(models.DefaultTask(), users, time.UTC)
	require.NoError(t, err)

	assert.Zero(t, got.ID)
	assert.Nil(t, got.ExecutionTime)
	assert.Nil(t, got.DurationMin)
	assert.Nil(t, got.User)
	assert.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
}

func TestTaskFormEntity_Errors(t *testing.T) {
	tests := []struct {
		name string
		form TaskForm
		want error
	}{
		{"unknown user", TaskForm{User: "99"}, ErrUnknownUser},
		{"bad duration", TaskForm{DurationMin: "ten"}, ErrInvalidNumber},
		{"bad id", TaskForm{ID: "x"}, ErrInvalidNumber},
		{"bad tag", TaskForm{Tags: []string{"a"}}, ErrInvalidNumber},
		{"bad time", TaskForm{ExecutionTime: "05/01/2021"}, ErrInvalidDateTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.Entity(models.Task{}, users, time.UTC)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTagForm(t *testing.T) {
	tag := &models.Tag{ID: 3, Name: models.Ptr("work"), User: &models.UserRef{ID: 1}}
	f := DefaultTagForm(false, tag)
	assert.Equal(t, TagForm{ID: "3", Name: "work", User: "1"}, f)

	f.Name = "home"
	got, err := f.Entity(*tag, users)
	require.NoError(t, err)
	assert.Equal(t, "home", *got.Name)
	assert.Equal(t, "normal_user", got.User.Login)

	assert.Equal(t, TagForm{}, DefaultTagForm(true, tag))

	_, err = TagForm{User: "5"}.Entity(models.Tag{}, users)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestFormEntity_EmptyTextIsNull(t *testing.T) {
	base := models.Task{ID: 1, Title: models.Ptr("old"), Description: models.Ptr("old")}
	got, err := TaskForm{}.Entity(base, users, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, got.Title)
	assert.Nil(t, got.Description)

	got, err = TaskForm{Title: "t", Description: "d"}.Entity(base, users, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "t", *got.Title)
	assert.Equal(t, "d", *got.Description)

	tag, err := TagForm{}.Entity(models.Tag{ID: 2, Name: models.Ptr("old")}, users)
	require.NoError(t, err)
	assert.Nil(t, tag.Name)
}
