package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"task-manager/internal/metrics"
	"task-manager/internal/models"
	"task-manager/internal/services"
)

const tagEntity = "tag"

// TagHandler はTag関連のハンドラーを管理します。
type TagHandler struct {
	tagService *services.TagService
	appName    string
}

func NewTagHandler(tagService *services.TagService, appName string) *TagHandler {
	return &TagHandler{tagService: tagService, appName: appName}
}

// CreateTagHandler は新しいTagを作成します。
func (h *TagHandler) CreateTagHandler(c *gin.Context) {
	var newTag models.Tag
	if err := c.ShouldBindJSON(&newTag); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	created, err := h.tagService.Create(c.Request.Context(), &newTag, caller)
	metrics.ObserveEntityOp(tagEntity, "create", err)
	if err != nil {
		writeError(c, tagEntity, err)
		return
	}
	setAlert(c, h.appName, tagEntity, "created", created.ID)
	c.Header("Location", fmt.Sprintf("/api/tags/%d", created.ID))
	c.JSON(http.StatusCreated, created)
}

// UpdateTagHandler はTagを更新します。
func (h *TagHandler) UpdateTagHandler(c *gin.Context) {
	id, tag, caller, ok := h.bindUpdate(c)
	if !ok {
		return
	}
	updated, err := h.tagService.Update(c.Request.Context(), id, tag, caller)
	h.writeUpdated(c, "update", updated, err)
}

// PatchTagHandler は name が指定された場合のみ更新します。
func (h *TagHandler) PatchTagHandler(c *gin.Context) {
	id, tag, caller, ok := h.bindUpdate(c)
	if !ok {
		return
	}
	updated, err := h.tagService.PartialUpdate(c.Request.Context(), id, tag, caller)
	h.writeUpdated(c, "patch", updated, err)
}

func (h *TagHandler) bindUpdate(c *gin.Context) (int, *models.Tag, services.Caller, bool) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return 0, nil, services.Caller{}, false
	}
	var tag models.Tag
	if err := c.ShouldBindJSON(&tag); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return 0, nil, services.Caller{}, false
	}
	caller, ok := callerFromContext(c)
	return id, &tag, caller, ok
}

func (h *TagHandler) writeUpdated(c *gin.Context, op string, tag *models.Tag, err error) {
	metrics.ObserveEntityOp(tagEntity, op, err)
	if err != nil {
		writeError(c, tagEntity, err)
		return
	}
	setAlert(c, h.appName, tagEntity, "updated", tag.ID)
	c.JSON(http.StatusOK, tag)
}

// GetTagsHandler はTagの一覧を返します。
func (h *TagHandler) GetTagsHandler(c *gin.Context) {
	p, caller, ok := pageAndCaller(c, tagEntity)
	if !ok {
		return
	}
	page, err := h.tagService.List(c.Request.Context(), p, caller)
	metrics.ObserveEntityOp(tagEntity, "list", err)
	if err != nil {
		writeError(c, tagEntity, err)
		return
	}
	writePage(c, page)
}

// GetTagHandler は指定IDのTagを、付いているTaskと一緒に返します。
func (h *TagHandler) GetTagHandler(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	tag, err := h.tagService.Get(c.Request.Context(), id, caller)
	metrics.ObserveEntityOp(tagEntity, "get", err)
	if err != nil {
		writeError(c, tagEntity, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// DeleteTagHandler はTagを削除します。
func (h *TagHandler) DeleteTagHandler(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	err := h.tagService.Delete(c.Request.Context(), id, caller)
	metrics.ObserveEntityOp(tagEntity, "delete", err)
	if err != nil {
		writeError(c, tagEntity, err)
		return
	}
	setAlert(c, h.appName, tagEntity, "deleted", id)
	c.Status(http.StatusNoContent)
}
