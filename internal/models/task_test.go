package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskEqual(t *testing.T) {
	task1 := &Task{ID: 1, Title: Ptr("a")}
	task2 := &Task{}
	assert.False(t, task1.Equal(task2))

	task2.ID = task1.ID
	assert.True(t, task1.Equal(task2))

	task2 = &Task{ID: 2}
	assert.False(t, task1.Equal(task2))

	assert.False(t, (&Task{}).Equal(&Task{}), "unsaved tasks are never equal")
	assert.False(t, task1.Equal(nil))
}

func TestTaskTags(t *testing.T) {
	task := &Task{ID: 1}
	tag := Tag{ID: 10, Name: Ptr("work")}

	task.AddTag(tag)
	task.AddTag(tag)
	assert.Equal(t, []int{10}, task.TagIDs())

	task.RemoveTag(10)
	assert.False(t, task.HasTag(10))
	assert.Empty(t, task.Tags)

	task.SetTags([]Tag{{ID: 3}, {ID: 4}, {ID: 3}})
	assert.Equal(t, []int{3, 4}, task.TagIDs())

	task.SetTags(nil)
	assert.NotNil(t, task.Tags)
	assert.Empty(t, task.Tags)
}

func TestTaskDefaults(t *testing.T) {
	task := DefaultTask()
	require.NotNil(t, task.Closed)
	assert.False(t, task.IsClosed())
	assert.Zero(t, task.OwnerID())

	task.User = &UserRef{ID: 5}
	assert.Equal(t, 5, task.OwnerID())
}

func TestTaskJSON_NullsAndTags(t *testing.T) {
	var patch Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"title":null,"closed":true}`), &patch))
	assert.Equal(t, 3, patch.ID)
	assert.Nil(t, patch.Title)
	assert.Nil(t, patch.Tags, "absent tags must stay nil")
	require.NotNil(t, patch.Closed)
	assert.True(t, *patch.Closed)

	require.NoError(t, json.Unmarshal([]byte(`{"tags":[]}`), &patch))
	assert.NotNil(t, patch.Tags, "explicit empty tags clears the set")
}

func TestTagEqual(t *testing.T) {
	tag1 := &Tag{ID: 1}
	tag2 := &Tag{ID: 1}
	assert.True(t, tag1.Equal(tag2))
	assert.False(t, tag1.Equal(&Tag{ID: 2}))
	assert.False(t, (&Tag{}).Equal(&Tag{}))
}

func TestTaskRemoveTag_DoesNotTouchCopies(t *testing.T) {
	var orig Task
	orig.SetTags([]Tag{{ID: 1}, {ID: 2}, {ID: 3}})

	cp := orig
	cp.RemoveTag(1)

	assert.Equal(t, []int{1, 2, 3}, orig.TagIDs())
	assert.Equal(t, []int{2, 3}, cp.TagIDs())
}

func TestTaskClone(t *testing.T) {
	orig := Task{
		ID:     1,
		Title:  Ptr("a"),
		Closed: Ptr(false),
		User:   &UserRef{ID: 5},
		Tags:   []Tag{{ID: 2, Name: Ptr("work")}},
	}

	cp := orig.Clone()
	assert.Equal(t, orig, cp)

	*cp.Title = "b"
	*cp.Closed = true
	cp.User.ID = 6
	*cp.Tags[0].Name = "home"
	cp.Tags[0].ID = 9

	assert.Equal(t, "a", *orig.Title)
	assert.False(t, orig.IsClosed())
	assert.Equal(t, 5, orig.OwnerID())
	assert.Equal(t, "work", *orig.Tags[0].Name)
	assert.Equal(t, []int{2}, orig.TagIDs())

	assert.Nil(t, Task{}.Clone().Tags, "nil tags stay nil")
}

func TestTagClone(t *testing.T) {
	orig := Tag{ID: 1, Name: Ptr("work"), Tasks: []Task{{ID: 3, Title: Ptr("t")}}}

	cp := orig.Clone()
	*cp.Name = "home"
	*cp.Tasks[0].Title = "changed"

	assert.Equal(t, "work", *orig.Name)
	assert.Equal(t, "t", *orig.Tasks[0].Title)
}
