package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"task-manager/internal/models"
	"task-manager/internal/repositories"
)

// TaskService はTask関連のビジネスロジックを扱います。
type TaskService struct {
	taskRepo *repositories.TaskRepository
	tagRepo  *repositories.TagRepository
	userRepo *repositories.UserRepository
	loc      *time.Location
}

// NewTaskService は新しいTaskServiceを作成します。loc は日・週・月の区切りに使います。
func NewTaskService(taskRepo *repositories.TaskRepository, tagRepo *repositories.TagRepository, userRepo *repositories.UserRepository, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskService{taskRepo: taskRepo, tagRepo: tagRepo, userRepo: userRepo, loc: loc}
}

// Create は新しいTaskを作成します。admin 以外は常に自分が所有者になります。
func (s *TaskService) Create(ctx context.Context, task *models.Task, caller Caller) (*models.Task, error) {
	if task.ID != 0 {
		return nil, ErrIDExists
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}
	owner, err := resolveOwner(ctx, s.userRepo, task.User, caller)
	if err != nil {
		return nil, err
	}
	task.User = owner
	if task.Closed == nil {
		task.Closed = models.Ptr(false)
	}
	if err := s.checkTags(ctx, task.Tags, caller); err != nil {
		return nil, err
	}
	return s.taskRepo.Create(ctx, task)
}

// Update はTaskを丸ごと置き換えます。所有者は変わりません。
func (s *TaskService) Update(ctx context.Context, id int, task *models.Task, caller Caller) (*models.Task, error) {
	existing, err := s.checkUpdate(ctx, id, task.ID, caller)
	if err != nil {
		return nil, err
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}
	if err := s.checkTags(ctx, task.Tags, caller); err != nil {
		return nil, err
	}
	task.User = existing.User // 元の所有者を保持
	return s.taskRepo.Update(ctx, task)
}

// PartialUpdate は null でない項目だけを既存のTaskに上書きします。
// tags はキーが存在する場合のみ置き換えます。
func (s *TaskService) PartialUpdate(ctx context.Context, id int, patch *models.Task, caller Caller) (*models.Task, error) {
	existing, err := s.checkUpdate(ctx, id, patch.ID, caller)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		existing.Title = patch.Title
	}
	if patch.Description != nil {
		existing.Description = patch.Description
	}
	if patch.ExecutionTime != nil {
		existing.ExecutionTime = patch.ExecutionTime
	}
	if patch.DurationMin != nil {
		existing.DurationMin = patch.DurationMin
	}
	if patch.Closed != nil {
		existing.Closed = patch.Closed
	}
	if patch.Tags != nil {
		if err := s.checkTags(ctx, patch.Tags, caller); err != nil {
			return nil, err
		}
		existing.SetTags(patch.Tags)
	}
	if err := validateTask(existing); err != nil {
		return nil, err
	}
	return s.taskRepo.Update(ctx, existing)
}

// checkUpdate は更新系で共通のIDチェックと認可チェックを行い、既存のTaskを返します。
func (s *TaskService) checkUpdate(ctx context.Context, pathID, bodyID int, caller Caller) (*models.Task, error) {
	if bodyID == 0 {
		return nil, ErrIDNull
	}
	if bodyID != pathID {
		return nil, ErrIDInvalid
	}
	return s.Get(ctx, pathID, caller)
}

// Get は指定IDのTaskを取得し、認可チェックを行います。
func (s *TaskService) Get(ctx context.Context, id int, caller Caller) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(task.OwnerID()) {
		return nil, repositories.ErrForbidden
	}
	return task, nil
}

// Delete はTaskを削除し、認可チェックを行います。
func (s *TaskService) Delete(ctx context.Context, id int, caller Caller) error {
	if _, err := s.Get(ctx, id, caller); err != nil {
		return err
	}
	return s.taskRepo.Delete(ctx, id)
}

// List はTaskの一覧を返します。adminの場合は全Task。
func (s *TaskService) List(ctx context.Context, p models.Pageable, eager bool, caller Caller) (*models.Page[models.Task], error) {
	if caller.IsAdmin() {
		return s.taskRepo.FindAll(ctx, p, eager)
	}
	return s.taskRepo.FindByUserID(ctx, caller.UserID, p, eager)
}

// ByUser は指定ユーザーのTaskを返します。
func (s *TaskService) ByUser(ctx context.Context, userID int, p models.Pageable, eager bool, caller Caller) (*models.Page[models.Task], error) {
	if !caller.CanAccess(userID) {
		return nil, repositories.ErrForbidden
	}
	return s.taskRepo.FindByUserID(ctx, userID, p, eager)
}

// ByTitle はタイトルに title を含む指定ユーザーのTaskを返します。
func (s *TaskService) ByTitle(ctx context.Context, userID int, title string, p models.Pageable, eager bool, caller Caller) (*models.Page[models.Task], error) {
	if !caller.CanAccess(userID) {
		return nil, repositories.ErrForbidden
	}
	return s.taskRepo.FindByUserIDAndTitle(ctx, userID, title, p, eager)
}

// ByDay は "2006-01-02" で指定した日に実行されるTaskを返します。
func (s *TaskService) ByDay(ctx context.Context, userID int, day string, p models.Pageable, eager bool, caller Caller) (*models.Page[models.Task], error) {
	return s.byRange(ctx, userID, day, DayRange, p, eager, caller)
}

// ByWeek は "2021-W01" で指定した ISO 週に実行されるTaskを返します。
func (s *TaskService) ByWeek(ctx context.Context, userID int, week string, p models.Pageable, eager bool, caller Caller) (*models.Page[models.Task], error) {
	return s.byRange(ctx, userID, week, WeekRange, p, eager, caller)
}

// ByMonth は "2006-01" で指定した月に実行されるTaskを返します。
func (s *TaskService) ByMonth(ctx context.Context, userID int, month string, p models.Pageable, eager bool, caller Caller) (*models.Page[models.Task], error) {
	return s.byRange(ctx, userID, month, MonthRange, p, eager, caller)
}

type rangeFunc func(key string, loc *time.Location) (time.Time, time.Time, error)

func (s *TaskService) byRange(ctx context.Context, userID int, key string, toRange rangeFunc, p models.Pageable, eager bool, caller Caller) (*models.Page[models.Task], error) {
	if !caller.CanAccess(userID) {
		return nil, repositories.ErrForbidden
	}
	from, to, err := toRange(key, s.loc)
	if err != nil {
		return nil, err
	}
	return s.taskRepo.FindByUserIDAndExecutionRange(ctx, userID, from, to, p, eager)
}

// UpdateTags はTaskのタグ集合を置き換えます。
func (s *TaskService) UpdateTags(ctx context.Context, taskID int, tags []models.Tag, caller Caller) (*models.Task, error) {
	if _, err := s.Get(ctx, taskID, caller); err != nil {
		return nil, err
	}
	if err := s.checkTags(ctx, tags, caller); err != nil {
		return nil, err
	}
	var t models.Task
	t.SetTags(tags)
	return s.taskRepo.ReplaceTags(ctx, taskID, t.TagIDs())
}

// TasksByTag はユーザーのTaskをタグごとにまとめて返します。
func (s *TaskService) TasksByTag(ctx context.Context, userID int, caller Caller) ([]models.TagTasks, error) {
	tags, tasks, err := s.userTagsAndTasks(ctx, userID, caller)
	if err != nil {
		return nil, err
	}
	out := make([]models.TagTasks, 0, len(tags))
	for _, tag := range tags {
		group := models.TagTasks{TagID: tag.ID, TagName: tagName(tag), Tasks: []models.Task{}}
		for _, task := range tasks {
			if task.HasTag(tag.ID) {
				group.Tasks = append(group.Tasks, task)
			}
		}
		out = append(out, group)
	}
	return out, nil
}

// ResolutionByTag はタグごとの完了・未完了のTask数を返します。
func (s *TaskService) ResolutionByTag(ctx context.Context, userID int, caller Caller) ([]models.TagResolution, error) {
	tags, tasks, err := s.userTagsAndTasks(ctx, userID, caller)
	if err != nil {
		return nil, err
	}
	out := make([]models.TagResolution, 0, len(tags))
	for _, tag := range tags {
		r := models.TagResolution{TagID: tag.ID, TagName: tagName(tag)}
		for _, task := range tasks {
			if !task.HasTag(tag.ID) {
				continue
			}
			if task.IsClosed() {
				r.Resolved++
			} else {
				r.Unresolved++
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// userTagsAndTasks はユーザーのタグを名前、IDの順に並べて、全Taskと一緒に返します。
func (s *TaskService) userTagsAndTasks(ctx context.Context, userID int, caller Caller) ([]models.Tag, []models.Task, error) {
	if !caller.CanAccess(userID) {
		return nil, nil, repositories.ErrForbidden
	}
	tags, err := s.tagRepo.FindAllByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	// 照合順序の違いに左右されないよう Go 側で並べ直す
	slices.SortStableFunc(tags, func(a, b models.Tag) int {
		return cmp.Or(cmp.Compare(tagName(a), tagName(b)), cmp.Compare(a.ID, b.ID))
	})
	tasks, err := s.taskRepo.FindAllByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return tags, tasks, nil
}

// checkTags は参照されたタグが存在し、admin 以外は自分のタグであることを確認します。
func (s *TaskService) checkTags(ctx context.Context, tags []models.Tag, caller Caller) error {
	if len(tags) == 0 {
		return nil
	}
	var t models.Task
	t.SetTags(tags)
	ids := t.TagIDs()
	if slices.Contains(ids, 0) {
		return fmt.Errorf("%w: tag id is required", ErrValidation)
	}
	found, err := s.tagRepo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return fmt.Errorf("%w: %w", ErrValidation, repositories.ErrTagNotFound)
	}
	for _, tag := range found {
		if !caller.CanAccess(tag.OwnerID()) {
			return repositories.ErrForbidden
		}
	}
	return nil
}

func validateTask(task *models.Task) error {
	if task.DurationMin != nil && *task.DurationMin < 0 {
		return fmt.Errorf("%w: durationMin must not be negative", ErrValidation)
	}
	return nil
}

// resolveOwner は作成時の所有者を決めます。admin は user.id で別ユーザーを指定できます。
func resolveOwner(ctx context.Context, userRepo *repositories.UserRepository, requested *models.UserRef, caller Caller) (*models.UserRef, error) {
	id := caller.UserID
	if caller.IsAdmin() && requested != nil && requested.ID != 0 {
		id = requested.ID
	}
	u, err := userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown user %d", ErrValidation, id)
		}
		return nil, err
	}
	return u.Ref(), nil
}

func tagName(tag models.Tag) string {
	if tag.Name == nil {
		return ""
	}
	return *tag.Name
}
