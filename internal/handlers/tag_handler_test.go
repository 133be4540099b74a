package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/models"
	"task-manager/testutil"
)

func TestCreateTag_Success(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tags", token, map[string]any{"name": "work"})

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created models.Tag
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, "work", *created.Name)
	assert.Equal(t, 1, created.OwnerID())
	assert.Equal(t, fmt.Sprintf("/api/tags/%d", created.ID), resp.Header().Get("Location"))
	assert.Equal(t, "taskManagerApp.tag.created", resp.Header().Get("X-TaskManager-Alert"))
}

func TestCreateTag_WithIDRejected(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	resp := testutil.DoJSON(t, r, http.MethodPost, "/api/tags", token, map[string]any{"id": 3, "name": "work"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "error.idexists", resp.Header().Get("X-TaskManager-Error"))
	assert.Equal(t, "tag", resp.Header().Get("X-TaskManager-Params"))
}

func TestGetTags_SortedAndScoped(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	userToken, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)
	adminToken, err := testutil.LoginAndGetToken(t, r, testutil.AdminEmail, testutil.AdminPassword)
	require.NoError(t, err)

	testutil.CreateTestTag(t, r, userToken, "beta")
	testutil.CreateTestTag(t, r, userToken, "alpha")
	testutil.CreateTestTag(t, r, adminToken, "gamma")

	resp := testutil.DoJSON(t, r, http.MethodGet, "/api/tags?sort=name,asc", userToken, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "2", resp.Header().Get("X-Total-Count"))
	var tags []models.Tag
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tags))
	require.Len(t, tags, 2)
	assert.Equal(t, "alpha", *tags[0].Name)
	assert.Equal(t, "beta", *tags[1].Name)

	resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tags", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "3", resp.Header().Get("X-Total-Count"))

	resp = testutil.DoJSON(t, r, http.MethodGet, "/api/tags?sort=title,asc", userToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetTag_IncludesTasks(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	tag := testutil.CreateTestTag(t, r, token, "work")
	task := testutil.CreateTestTask(t, r, token, map[string]any{"title": "t", "tags": []map[string]any{{"id": tag.ID}}})

	resp := testutil.DoJSON(t, r, http.MethodGet, fmt.Sprintf("/api/tags/%d", tag.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var got models.Tag
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, task.ID, got.Tasks[0].ID)
	assert.Nil(t, got.Tasks[0].Tags, "nested tasks carry no tags")
}

func TestUpdateAndPatchTag(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)
	tag := testutil.CreateTestTag(t, r, token, "old")
	path := fmt.Sprintf("/api/tags/%d", tag.ID)

	resp := testutil.DoJSON(t, r, http.MethodPut, path, token, map[string]any{"id": tag.ID, "name": "new"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var updated models.Tag
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "new", *updated.Name)
	assert.Equal(t, 1, updated.OwnerID())

	// name が無い PATCH は何も変えない
	resp = testutil.DoJSON(t, r, http.MethodPatch, path, token, map[string]any{"id": tag.ID})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "new", *updated.Name)

	resp = testutil.DoJSON(t, r, http.MethodPut, path, token, map[string]any{"name": "no id"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTag_OtherUserForbidden(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	userToken, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)
	adminToken, err := testutil.LoginAndGetToken(t, r, testutil.AdminEmail, testutil.AdminPassword)
	require.NoError(t, err)

	adminTag := testutil.CreateTestTag(t, r, adminToken, "admin")
	path := fmt.Sprintf("/api/tags/%d", adminTag.ID)

	assert.Equal(t, http.StatusForbidden, testutil.DoJSON(t, r, http.MethodGet, path, userToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, testutil.DoJSON(t, r, http.MethodDelete, path, userToken, nil).Code)
	assert.Equal(t, http.StatusForbidden,
		testutil.DoJSON(t, r, http.MethodPut, path, userToken, map[string]any{"id": adminTag.ID, "name": "mine"}).Code)
}

func TestDeleteTag_DetachesTasks(t *testing.T) {
	_, r, taskRepo, _ := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.UserEmail, testutil.UserPassword)
	require.NoError(t, err)

	tag := testutil.CreateTestTag(t, r, token, "temp")
	task := testutil.CreateTestTask(t, r, token, map[string]any{"title": "t", "tags": []map[string]any{{"id": tag.ID}}})

	resp := testutil.DoJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/tags/%d", tag.ID), token, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	reloaded, err := taskRepo.FindByID(t.Context(), task.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Tags)

	resp = testutil.DoJSON(t, r, http.MethodGet, fmt.Sprintf("/api/tags/%d", tag.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
