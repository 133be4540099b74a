package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"task-manager/internal/metrics"
	"task-manager/internal/models"
	"task-manager/internal/services"
)

const taskEntity = "task"

// TaskHandler はTask関連のハンドラーを管理します。
type TaskHandler struct {
	taskService *services.TaskService
	appName     string
}

// NewTaskHandler は新しいTaskHandlerを作成します。
func NewTaskHandler(taskService *services.TaskService, appName string) *TaskHandler {
	return &TaskHandler{taskService: taskService, appName: appName}
}

// CreateTaskHandler は新しいTaskを作成します。
func (h *TaskHandler) CreateTaskHandler(c *gin.Context) {
	var newTask models.Task
	if err := c.ShouldBindJSON(&newTask); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	created, err := h.taskService.Create(c.Request.Context(), &newTask, caller)
	metrics.ObserveEntityOp(taskEntity, "create", err)
	if err != nil {
		writeError(c, taskEntity, err)
		return
	}
	setAlert(c, h.appName, taskEntity, "created", created.ID)
	c.Header("Location", fmt.Sprintf("/api/tasks/%d", created.ID))
	c.JSON(http.StatusCreated, created)
}

// UpdateTaskHandler はTaskを丸ごと更新します。
func (h *TaskHandler) UpdateTaskHandler(c *gin.Context) {
	h.update(c, "update", h.taskService.Update)
}

// PatchTaskHandler は指定された項目だけを更新します。
func (h *TaskHandler) PatchTaskHandler(c *gin.Context) {
	h.update(c, "patch", h.taskService.PartialUpdate)
}

type taskUpdateFunc func(ctx context.Context, id int, task *models.Task, caller services.Caller) (*models.Task, error)

func (h *TaskHandler) update(c *gin.Context, op string, apply taskUpdateFunc) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	var task models.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	updated, err := apply(c.Request.Context(), id, &task, caller)
	metrics.ObserveEntityOp(taskEntity, op, err)
	if err != nil {
		writeError(c, taskEntity, err)
		return
	}
	setAlert(c, h.appName, taskEntity, "updated", updated.ID)
	c.JSON(http.StatusOK, updated)
}

// GetTasksHandler はTaskの一覧を返します。
func (h *TaskHandler) GetTasksHandler(c *gin.Context) {
	p, caller, ok := pageAndCaller(c, taskEntity)
	if !ok {
		return
	}
	page, err := h.taskService.List(c.Request.Context(), p, eagerload(c), caller)
	h.writeTaskPage(c, "list", page, err)
}

// GetTaskHandler は指定IDのTaskを返します。
func (h *TaskHandler) GetTaskHandler(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	task, err := h.taskService.Get(c.Request.Context(), id, caller)
	metrics.ObserveEntityOp(taskEntity, "get", err)
	if err != nil {
		writeError(c, taskEntity, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTaskHandler はTaskを削除します。
func (h *TaskHandler) DeleteTaskHandler(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	err := h.taskService.Delete(c.Request.Context(), id, caller)
	metrics.ObserveEntityOp(taskEntity, "delete", err)
	if err != nil {
		writeError(c, taskEntity, err)
		return
	}
	setAlert(c, h.appName, taskEntity, "deleted", id)
	c.Status(http.StatusNoContent)
}

// UserTasksHandler は指定ユーザーのTaskを返します。
func (h *TaskHandler) UserTasksHandler(c *gin.Context) {
	userID, p, caller, ok := h.userQuery(c)
	if !ok {
		return
	}
	page, err := h.taskService.ByUser(c.Request.Context(), userID, p, eagerload(c), caller)
	h.writeTaskPage(c, "by-user", page, err)
}

// TasksByTitleHandler はタイトルで検索します。
func (h *TaskHandler) TasksByTitleHandler(c *gin.Context) {
	userID, p, caller, ok := h.userQuery(c)
	if !ok {
		return
	}
	page, err := h.taskService.ByTitle(c.Request.Context(), userID, c.Param("title"), p, eagerload(c), caller)
	h.writeTaskPage(c, "by-title", page, err)
}

// TasksByDayHandler は日単位で検索します。
func (h *TaskHandler) TasksByDayHandler(c *gin.Context) {
	userID, p, caller, ok := h.userQuery(c)
	if !ok {
		return
	}
	page, err := h.taskService.ByDay(c.Request.Context(), userID, c.Param("day"), p, eagerload(c), caller)
	h.writeTaskPage(c, "by-day", page, err)
}

// TasksByWeekHandler は ISO 週単位で検索します。
func (h *TaskHandler) TasksByWeekHandler(c *gin.Context) {
	userID, p, caller, ok := h.userQuery(c)
	if !ok {
		return
	}
	page, err := h.taskService.ByWeek(c.Request.Context(), userID, c.Param("week"), p, eagerload(c), caller)
	h.writeTaskPage(c, "by-week", page, err)
}

// TasksByMonthHandler は月単位で検索します。
func (h *TaskHandler) TasksByMonthHandler(c *gin.Context) {
	userID, p, caller, ok := h.userQuery(c)
	if !ok {
		return
	}
	page, err := h.taskService.ByMonth(c.Request.Context(), userID, c.Param("month"), p, eagerload(c), caller)
	h.writeTaskPage(c, "by-month", page, err)
}

// UpdateTagsHandler はTaskのタグ集合を置き換えます。
func (h *TaskHandler) UpdateTagsHandler(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	var tags []models.Tag
	if err := c.ShouldBindJSON(&tags); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	task, err := h.taskService.UpdateTags(c.Request.Context(), id, tags, caller)
	metrics.ObserveEntityOp(taskEntity, "update-tags", err)
	if err != nil {
		writeError(c, taskEntity, err)
		return
	}
	setAlert(c, h.appName, taskEntity, "updated", task.ID)
	c.JSON(http.StatusOK, task)
}

// RelHandler はユーザーのTaskをタグごとにまとめて返します。
func (h *TaskHandler) RelHandler(c *gin.Context) {
	userID, ok := parseIntParam(c, "userId")
	if !ok {
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	groups, err := h.taskService.TasksByTag(c.Request.Context(), userID, caller)
	metrics.ObserveEntityOp(taskEntity, "rel", err)
	if err != nil {
		writeError(c, taskEntity, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// SolvedHandler はタグごとの完了・未完了の件数を返します。
func (h *TaskHandler) SolvedHandler(c *gin.Context) {
	userID, ok := parseIntParam(c, "userId")
	if !ok {
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	counts, err := h.taskService.ResolutionByTag(c.Request.Context(), userID, caller)
	metrics.ObserveEntityOp(taskEntity, "solved", err)
	if err != nil {
		writeError(c, taskEntity, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *TaskHandler) userQuery(c *gin.Context) (int, models.Pageable, services.Caller, bool) {
	userID, ok := parseIntParam(c, "userId")
	if !ok {
		return 0, models.Pageable{}, services.Caller{}, false
	}
	p, caller, ok := pageAndCaller(c, taskEntity)
	return userID, p, caller, ok
}

func (h *TaskHandler) writeTaskPage(c *gin.Context, op string, page *models.Page[models.Task], err error) {
	metrics.ObserveEntityOp(taskEntity, op, err)
	if err != nil {
		writeError(c, taskEntity, err)
		return
	}
	writePage(c, page)
}

// pageAndCaller は一覧系ハンドラーで共通の前処理です。
func pageAndCaller(c *gin.Context, entity string) (models.Pageable, services.Caller, bool) {
	p, err := parsePageable(c)
	if err != nil {
		writeError(c, entity, err)
		return p, services.Caller{}, false
	}
	caller, ok := callerFromContext(c)
	return p, caller, ok
}
