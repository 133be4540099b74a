// Package form は編集フォームの文字列入力とエンティティを相互に変換します。
package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"task-manager/internal/models"
)

// DateTimeLayout はフォームで扱う日時の形式です (datetime-local 相当)。
const DateTimeLayout = "2006-01-02T15:04"

var (
	ErrUnknownUser     = errors.New("unknown user")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrInvalidDateTime = errors.New("invalid date time")
)

// TaskForm はタスク編集フォームの生の入力値です。
type TaskForm struct {
	ID            string
	Title         string
	Description   string
	ExecutionTime string
	DurationMin   string
	Closed        bool
	User          string
	Tags          []string
}

// DisplayDefaultDateTime は今日の 00:00 を loc で返します。
func DisplayDefaultDateTime(now time.Time, loc *time.Location) string {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Format(DateTimeLayout)
}

// DefaultTaskForm はフォームの初期値を返します。
// 新規作成では実行日時を今日の 00:00 にし、編集では entity の値を表示用に変換します。
func DefaultTaskForm(isNew bool, entity *models.Task, loc *time.Location) TaskForm {
	if isNew || entity == nil {
		return TaskForm{ExecutionTime: DisplayDefaultDateTime(time.Now(), loc)}
	}

	f := TaskForm{
		ID:     strconv.Itoa(entity.ID),
		Closed: entity.IsClosed(),
	}
	if entity.Title != nil {
		f.Title = *entity.Title
	}
	if entity.Description != nil {
		f.Description = *entity.Description
	}
	if entity.ExecutionTime != nil {
		f.ExecutionTime = entity.ExecutionTime.In(loc).Format(DateTimeLayout)
	}
	if entity.DurationMin != nil {
		f.DurationMin = strconv.FormatInt(*entity.DurationMin, 10)
	}
	if entity.User != nil {
		f.User = strconv.Itoa(entity.User.ID)
	}
	for _, tag := range entity.Tags {
		f.Tags = append(f.Tags, strconv.Itoa(tag.ID))
	}
	return f
}

// Entity はフォームの値を base に上書きしたタスクを返します。
// 実行日時は loc の時刻として解釈し UTC に変換します。
func (f TaskForm) Entity(base models.Task, users []models.User, loc *time.Location) (models.Task, error) {
	t := base

	if id := strings.TrimSpace(f.ID); id != "" {
		n, err := strconv.Atoi(id)
		if err != nil {
			return models.Task{}, fmt.Errorf("%w: id %q", ErrInvalidNumber, f.ID)
		}
		t.ID = n
	}

	t.Title = optionalString(f.Title)
	t.Description = optionalString(f.Description)
	t.Closed = models.Ptr(f.Closed)

	exec, err := ConvertDateTimeToServer(f.ExecutionTime, loc)
	if err != nil {
		return models.Task{}, err
	}
	t.ExecutionTime = exec

	t.DurationMin = nil
	if d := strings.TrimSpace(f.DurationMin); d != "" {
		n, err := strconv.ParseInt(d, 10, 64)
		if err != nil {
			return models.Task{}, fmt.Errorf("%w: durationMin %q", ErrInvalidNumber, f.DurationMin)
		}
		t.DurationMin = &n
	}

	tags, err := MapIDList(f.Tags)
	if err != nil {
		return models.Task{}, err
	}
	t.Tags = tags

	user, err := findUser(users, f.User)
	if err != nil {
		return models.Task{}, err
	}
	t.User = user
	return t, nil
}

// TagForm はタグ編集フォームの生の入力値です。
type TagForm struct {
	ID   string
	Name string
	User string
}

// DefaultTagForm は編集時に entity の値を返します。
func DefaultTagForm(isNew bool, entity *models.Tag) TagForm {
	if isNew || entity == nil {
		return TagForm{}
	}
	f := TagForm{ID: strconv.Itoa(entity.ID)}
	if entity.Name != nil {
		f.Name = *entity.Name
	}
	if entity.User != nil {
		f.User = strconv.Itoa(entity.User.ID)
	}
	return f
}

func (f TagForm) Entity(base models.Tag, users []models.User) (models.Tag, error) {
	g := base
	if id := strings.TrimSpace(f.ID); id != "" {
		n, err := strconv.Atoi(id)
		if err != nil {
			return models.Tag{}, fmt.Errorf("%w: id %q", ErrInvalidNumber, f.ID)
		}
		g.ID = n
	}
	g.Name = optionalString(f.Name)
	user, err := findUser(users, f.User)
	if err != nil {
		return models.Tag{}, err
	}
	g.User = user
	return g, nil
}

// ConvertDateTimeToServer は loc の "2006-01-02T15:04" を UTC に変換します。空文字は nil です。
func ConvertDateTimeToServer(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateTimeLayout, value, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDateTime, value)
	}
	utc := t.UTC()
	return &utc, nil
}

// MapIDList はIDの文字列を Tag の参照にします。空の要素は無視します。
func MapIDList(ids []string) ([]models.Tag, error) {
	tags := []models.Tag{}
	for _, raw := range ids {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: tag id %q", ErrInvalidNumber, raw)
		}
		tags = append(tags, models.Tag{ID: n})
	}
	return tags, nil
}

func findUser(users []models.User, id string) (*models.UserRef, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	for i := range users {
		if strconv.Itoa(users[i].ID) == id {
			return users[i].Ref(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownUser, id)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
