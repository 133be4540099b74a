package models

// Tag は複数のTaskに付けられるラベルで、ユーザーが所有します。
type Tag struct {
	ID    int      `json:"id,omitempty"`
	Name  *string  `json:"name"`
	User  *UserRef `json:"user,omitempty"`
	Tasks []Task   `json:"tasks,omitempty"` // 詳細取得時のみ。Task.Tags 側には入れない
}

// Equal はIDが割り当て済みで一致する場合のみ true を返します。
func (g *Tag) Equal(other *Tag) bool {
	if g == nil || other == nil {
		return false
	}
	return g.ID != 0 && g.ID == other.ID
}

// OwnerID は所有ユーザーのIDを返します。未設定の場合は 0 です。
func (g *Tag) OwnerID() int {
	if g.User == nil {
		return 0
	}
	return g.User.ID
}

// Clone はポインタ項目とタスクを複製したコピーを返します。
func (g Tag) Clone() Tag {
	c := g
	c.Name = clonePtr(g.Name)
	c.User = clonePtr(g.User)
	if g.Tasks != nil {
		c.Tasks = make([]Task, len(g.Tasks))
		for i, task := range g.Tasks {
			c.Tasks[i] = task.Clone()
		}
	}
	return c
}

// TagTasks はタグごとにまとめたタスク一覧です。
type TagTasks struct {
	TagID   int    `json:"tagId"`
	TagName string `json:"tagName"`
	Tasks   []Task `json:"tasks"`
}

// TagResolution はタグごとの完了・未完了タスク数です。
type TagResolution struct {
	TagID      int    `json:"tagId"`
	TagName    string `json:"tagName"`
	Resolved   int64  `json:"resolved"`
	Unresolved int64  `json:"unresolved"`
}
