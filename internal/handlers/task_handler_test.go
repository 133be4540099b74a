package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/models"
	"task-manager/testutil"
)

func decodeTasks(t *testing.T, body []byte) []models.Task {
	t.Helper()
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(body, &tasks))
	return tasks
}

func TestCreateTask_Success(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", token, map[string]any{
		"title":         "Write report",
		"description":   "quarterly",
		"executionTime": "2021-03-14T09:30:00Z",
		"durationMin":   45,
	})

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created models.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	assert.NotZero(t, created.ID, "Expected a non-zero Task ID")
	assert.Equal(t, fmt.Sprintf("/api/tasks/%d", created.ID), resp.Header().Get("Location"))
	assert.Equal(t, "taskManagerApp.task.created", resp.Header().Get("X-TaskManager-Alert"))
	assert.Equal(t, "Write report", *created.Title)
	assert.Equal(t, int64(45), *created.DurationMin)
	assert.False(t, *created.Closed, "closed defaults to false")
	assert.True(t, time.Date(2021, 3, 14, 9, 30, 0, 0, time.UTC).Equal(*created.ExecutionTime))
	require.NotNil(t, created.User)
	assert.Equal(t, 1, created.User.ID)
	assert.Equal(t, "normal_user", created.User.Login)
	assert.Empty(t, created.Tags)
}

func TestCreateTask_WithIDRejected(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", token, map[string]any{"id": 99, "title": "x"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "error.idexists", resp.Header().Get("X-TaskManager-Error"))
}

func TestCreateTask_Unauthorized(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", "", map[string]any{"title": "x"})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateTask_WithTags(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	work := testutil.CreateTestTag(t, r, token, "work")
	home := testutil.CreateTestTag(t, r, token, "home")

	created := testutil.CreateTestTask(t, r, token, map[string]any{
		"title": "tagged",
		"tags":  []map[string]any{{"id": work.ID}, {"id": home.ID}, {"id": work.ID}},
	})

	require.Len(t, created.Tags, 2, "duplicate tag ids are stored once")
	assert.ElementsMatch(t, []int{work.ID, home.ID}, created.TagIDs())
}

func TestCreateTask_UnknownTag(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "tagged",
		"tags":  []map[string]any{{"id": 12345}},
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestCreateTask_OtherUsersTagForbidden(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	userToken, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)
	adminToken, err := testutil.LoginAndGetToken(t, r, testutil.AdminEmail, testutil.AdminPassword)
	require.NoError(t, err)

	adminTag := testutil.CreateTestTag(t, r, adminToken, "admin only")

	resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tasks", userToken, map[string]any{
		"title": "sneaky",
		"tags":  []map[string]any{{"id": adminTag.ID}},
	})

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCreateTask_AdminAssignsUser(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	adminToken, err := testutil.LoginAndGetToken(t, r, testutil.AdminEmail, testutil.AdminPassword)
	require.NoError(t, err)
	userToken, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	created := testutil.CreateTestTask(t, r, adminToken, map[string]any{"title": "for user", "user": map[string]any{"id": 1}})
	assert.Equal(t, 1, created.User.ID)

	// 一般ユーザーが user を指定しても自分の所有になる
	own := testutil.CreateTestTask(t, r, userToken, map[string]any{"title": "mine", "user": map[string]any{"id": 2}})
	assert.Equal(t, 1, own.User.ID)
}

func TestGetTasks_PagingHeaders(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		testutil.CreateTestTask(t, r, token, map[string]any{"title": fmt.Sprintf("task %d", i)})
	}

	resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tasks?page=1&size=2&sort=id,desc", token, nil)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "5", resp.Header().Get("X-Total-Count"))
	link := resp.Header().Get("Link")
	assert.Contains(t, link, `page=2&size=2`)
	assert.Contains(t, link, `rel="next"`)
	assert.Contains(t, link, `rel="prev"`)
	assert.Contains(t, link, `rel="last"`)

	tasks := decodeTasks(t, resp.Body.Bytes())
	require.Len(t, tasks, 2)
	assert.Equal(t, "task 2", *tasks[0].Title)
	assert.Equal(t, "task 1", *tasks[1].Title)
}

func TestGetTasks_InvalidSort(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tasks?sort=password,asc", token, nil)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "error.badsort", resp.Header().Get("X-TaskManager-Error"))
}

func TestGetTasks_EagerLoad(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	tag := testutil.CreateTestTag(t, r, token, "work")
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "tagged", "tags": []map[string]any{{"id": tag.ID}}})

	eager := decodeTasks(t, testutil.DoJSON(t, r, http.MethodGet, "/api/tasks", token, nil).Body.Bytes())
	require.Len(t, eager, 1)
	assert.Len(t, eager[0].Tags, 1)

	lazy := decodeTasks(t, testutil.DoJSON(t, r, http.MethodGet, "/api/tasks?eagerload=false", token, nil).Body.Bytes())
	require.Len(t, lazy, 1)
	assert.Nil(t, lazy[0].Tags)
}

func TestGetTasks_UserSeesOnlyOwn(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	userToken, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)
	adminToken, err := testutil.LoginAndGetToken(t, r, testutil.AdminEmail, testutil.AdminPassword)
	require.NoError(t, err)

	testutil.CreateTestTask(t, r, userToken, map[string]any{"title": "user task"})
	testutil.CreateTestTask(t, r, adminToken, map[string]any{"title": "admin task"})

	userTasks := decodeTasks(t, testutil.DoJSON(t, r, http.MethodGet, "/api/tasks", userToken, nil).Body.Bytes())
	require.Len(t, userTasks, 1)
	assert.Equal(t, "user task", *userTasks[0].Title)

	allTasks := decodeTasks(t, testutil.DoJSON(t, r, http.MethodGet, "/api/tasks", adminToken, nil).Body.Bytes())
	assert.Len(t, allTasks, 2)
}

func TestGetTask_NotFoundAndForbidden(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	userToken, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)
	adminToken, err := testutil.LoginAndGetToken(t, r, testutil.AdminEmail, testutil.AdminPassword)
	require.NoError(t, err)

	adminTask := testutil.CreateTestTask(t, r, adminToken, map[string]any{"title": "admin task"})

	resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/999", userToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = testutil.DoJSON(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d", adminTask.ID), userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/abc", userToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateTask_Success(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	tag := testutil.CreateTestTag(t, r, token, "work")
	created := testutil.CreateTestTask(t, r, token, map[string]any{
		"title":       "before",
		"description": "keep?",
		"tags":        []map[string]any{{"id": tag.ID}},
	})

	resp := testutil.DoJSON(t, r, http.MethodPut, fmt.Sprintf("/api/tasks/%d", created.ID), token, map[string]any{
		"id":     created.ID,
		"title":  "after",
		"closed": true,
	})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var updated models.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "after", *updated.Title)
	assert.Nil(t, updated.Description, "PUT replaces every field")
	assert.True(t, updated.IsClosed())
	assert.Empty(t, updated.Tags)
	assert.Equal(t, 1, updated.User.ID)
	assert.Equal(t, "taskManagerApp.task.updated", resp.Header().Get("X-TaskManager-Alert"))
}

func TestUpdateTask_IDChecks(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)
	created := testutil.CreateTestTask(t, r, token, map[string]any{"title": "t"})
	path := fmt.Sprintf("/api/tasks/%d", created.ID)

	resp := testutil.DoJSON(t, r, http.MethodPut, path, token, map[string]any{"title": "no id"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "error.idnull", resp.Header().Get("X-TaskManager-Error"))

	resp = testutil.DoJSON(t, r, http.MethodPut, path, token, map[string]any{"id": created.ID + 1, "title": "wrong id"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "error.idinvalid", resp.Header().Get("X-TaskManager-Error"))

	resp = testutil.DoJSON(t, r, http.MethodPut, "/api/tasks/999", token, map[string]any{"id": 999, "title": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPatchTask_MergesNonNullFields(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	tag := testutil.CreateTestTag(t, r, token, "work")
	created := testutil.CreateTestTask(t, r, token, map[string]any{
		"title":       "before",
		"description": "kept",
		"durationMin": 30,
		"tags":        []map[string]any{{"id": tag.ID}},
	})
	path := fmt.Sprintf("/api/tasks/%d", created.ID)

	resp := testutil.DoJSON(t, r, http.MethodPatch, path, token, map[string]any{"id": created.ID, "closed": true})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var patched models.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &patched))
	assert.Equal(t, "before", *patched.Title)
	assert.Equal(t, "kept", *patched.Description)
	assert.Equal(t, int64(30), *patched.DurationMin)
	assert.True(t, patched.IsClosed())
	assert.Equal(t, []int{tag.ID}, patched.TagIDs(), "tags untouched when absent")

	resp = testutil.DoJSON(t, r, http.MethodPatch, path, token, map[string]any{"id": created.ID, "tags": []any{}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &patched))
	assert.Empty(t, patched.Tags, "empty tags list clears the set")
}

func TestPatchTask_NegativeDuration(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)
	created := testutil.CreateTestTask(t, r, token, map[string]any{"title": "t"})

	resp := testutil.DoJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", created.ID), token, map[string]any{"id": created.ID, "durationMin": -5})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDeleteTask(t *testing.T) {
	_, r, taskRepo, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)
	created := testutil.CreateTestTask(t, r, token, map[string]any{"title": "bye"})

	resp := testutil.DoJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "taskManagerApp.task.deleted", resp.Header().Get("X-TaskManager-Alert"))

	exists, err := taskRepo.ExistsByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	resp = testutil.DoJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTasksByPeriod(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	testutil.CreateTestTask(t, r, token, map[string]any{"title": "monday", "executionTime": "2021-03-08T10:00:00Z"})
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "sunday", "executionTime": "2021-03-14T23:59:59Z"})
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "next monday", "executionTime": "2021-03-15T00:00:00Z"})
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "april", "executionTime": "2021-04-01T00:00:00Z"})
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "no time"})

	titles := func(path string) []string {
		resp := testutil.DoJSON(t, r, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		var out []string
		for _, task := range decodeTasks(t, resp.Body.Bytes()) {
			out = append(out, *task.Title)
		}
		return out
	}

	assert.Equal(t, []string{"sunday"}, titles("/api/tasks/tasks-by-day/2021-03-14/1"))
	assert.Equal(t, []string{"monday", "sunday"}, titles("/api/tasks/tasks-by-week/2021-W10/1"))
	assert.Equal(t, []string{"monday", "sunday", "next monday"}, titles("/api/tasks/tasks-by-month/2021-03/1"))

	resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/tasks-by-week/2021-10/1", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "error.badperiod", resp.Header().Get("X-TaskManager-Error"))
}

func TestTasksByTitleAndUser(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	testutil.CreateTestTask(t, r, token, map[string]any{"title": "Buy milk"})
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "buy bread"})
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "100% done"})

	resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/tasks-by-title/BUY/1", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeTasks(t, resp.Body.Bytes()), 2)

	resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/tasks-by-title/%25/1", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeTasks(t, resp.Body.Bytes()), 1, "wildcards are matched literally")

	resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/user-tasks/1", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "3", resp.Header().Get("X-Total-Count"))

	resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/user-tasks/2", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestTasksByTitle_EncodedPath(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	testutil.CreateTestTask(t, r, token, map[string]any{"title": "in/out"})
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "Äpfel kaufen"})
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "a+b"})

	tests := []struct {
		path string
		want string
	}{
		{"/api/tasks/tasks-by-title/in%2Fout/1", "in/out"},
		{"/api/tasks/tasks-by-title/%C3%A4pfel/1", "Äpfel kaufen"},
		{"/api/tasks/tasks-by-title/%C3%84PFEL/1", "Äpfel kaufen"},
		{"/api/tasks/tasks-by-title/a%2Bb/1", "a+b"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := testutil.DoJSON(t, r, http.MethodGet, tt.path, token, nil)
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
			tasks := decodeTasks(t, resp.Body.Bytes())
			require.Len(t, tasks, 1)
			assert.Equal(t, tt.want, *tasks[0].Title)
		})
	}
}

func TestUpdateTags(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	a := testutil.CreateTestTag(t, r, token, "a")
	b := testutil.CreateTestTag(t, r, token, "b")
	created := testutil.CreateTestTask(t, r, token, map[string]any{"title": "t", "tags": []map[string]any{{"id": a.ID}}})

	resp := testutil.DoJSON(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/update-tags", created.ID), token,
		[]map[string]any{{"id": b.ID}})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var updated models.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, []int{b.ID}, updated.TagIDs())
}

func TestRelReports(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	work := testutil.CreateTestTag(t, r, token, "work")
	home := testutil.CreateTestTag(t, r, token, "home")
	empty := testutil.CreateTestTag(t, r, token, "errands")
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "w1", "closed": true, "tags": []map[string]any{{"id": work.ID}}})
	testutil.CreateTestTask(t, r, token, map[string]any{"title": "w2", "tags": []map[string]any{{"id": work.ID}, {"id": home.ID}}})

	resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/rel/1", token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var groups []models.TagTasks
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &groups))
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"errands", "home", "work"}, []string{groups[0].TagName, groups[1].TagName, groups[2].TagName})
	assert.Empty(t, groups[0].Tasks)
	assert.Len(t, groups[1].Tasks, 1)
	assert.Len(t, groups[2].Tasks, 2)

	resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/rel/1/solved", token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var counts []models.TagResolution
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &counts))
	assert.Equal(t, []models.TagResolution{
		{TagID: empty.ID, TagName: "errands"},
		{TagID: home.ID, TagName: "home", Unresolved: 1},
		{TagID: work.ID, TagName: "work", Resolved: 1, Unresolved: 1},
	}, counts)

	resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tasks/rel/2/solved", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
