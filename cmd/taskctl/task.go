package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"task-manager/internal/client"
	"task-manager/internal/form"
	"task-manager/internal/models"
	"task-manager/internal/store"
)

var _ store.Resource[models.Task] = (*client.TaskResource)(nil)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(
		newTaskListCmd(a),
		newTaskGetCmd(a),
		newTaskCreateCmd(a),
		newTaskEditCmd(a),
		newTaskDeleteCmd(a),
		newTaskTagsCmd(a),
		newTaskPeriodCmd(a, "day", "DATE", "Tasks executed on a day (2006-01-02)", (*client.TaskResource).ByDay),
		newTaskPeriodCmd(a, "week", "WEEK", "Tasks executed in an ISO week (2021-W01)", (*client.TaskResource).ByWeek),
		newTaskPeriodCmd(a, "month", "MONTH", "Tasks executed in a month (2006-01)", (*client.TaskResource).ByMonth),
		newTaskPeriodCmd(a, "search", "TITLE", "Tasks whose title contains TITLE", (*client.TaskResource).ByTitle),
	)
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	var (
		pf   pageFlags
		user int
		lazy bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks visible to the current user.

Example:
  taskctl task list
  taskctl task list --sort title,desc --size 50
  taskctl task list --user 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pf.pageable()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			tasks := a.client.Tasks()

			var page *models.Page[models.Task]
			switch {
			case user != 0:
				page, err = tasks.ByUser(ctx, user, p)
			case lazy:
				page, err = tasks.ListLazy(ctx, p)
			default:
				slice := store.NewTaskSlice(tasks)
				err = slice.FetchAll(ctx, p)
				st := slice.Snapshot()
				page = &models.Page[models.Task]{Content: st.Entities, Total: st.TotalItems, Pageable: p.Normalize()}
			}
			if err != nil {
				return err
			}
			return a.renderTasks(cmd.OutOrStdout(), page)
		},
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&user, "user", 0, "only tasks of this user ID")
	cmd.Flags().BoolVar(&lazy, "lazy", false, "do not load tags")
	return cmd
}

func newTaskGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			slice := store.NewTaskSlice(a.client.Tasks())
			if err := slice.Fetch(cmd.Context(), id); err != nil {
				return err
			}
			st := slice.Snapshot()
			return a.renderTask(cmd.OutOrStdout(), &st.Entity)
		},
	}
}

// taskFlags は create / edit の入力です。指定された項目だけフォームに反映します。
type taskFlags struct {
	title       string
	description string
	at          string
	duration    string
	closed      bool
	user        string
	tags        []string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.title, "title", "", "title")
	fs.StringVar(&f.description, "description", "", "description")
	fs.StringVar(&f.at, "at", "", `execution time "2006-01-02T15:04" in --timezone`)
	fs.StringVar(&f.duration, "duration", "", "duration in minutes")
	fs.BoolVar(&f.closed, "closed", false, "mark as closed")
	fs.StringVar(&f.user, "user", "", "owner user ID (admin only)")
	fs.StringArrayVar(&f.tags, "tag", nil, "tag ID (repeatable)")
}

func (f *taskFlags) apply(cmd *cobra.Command, tf *form.TaskForm) {
	fs := cmd.Flags()
	if fs.Changed("title") {
		tf.Title = f.title
	}
	if fs.Changed("description") {
		tf.Description = f.description
	}
	if fs.Changed("at") {
		tf.ExecutionTime = f.at
	}
	if fs.Changed("duration") {
		tf.DurationMin = f.duration
	}
	if fs.Changed("closed") {
		tf.Closed = f.closed
	}
	if fs.Changed("user") {
		tf.User = f.user
	}
	if fs.Changed("tag") {
		tf.Tags = f.tags
	}
}

// formUsers はフォームのユーザー欄を解決するための一覧を返します。
func (a *app) formUsers(ctx context.Context, userField string) ([]models.User, error) {
	if userField == "" {
		return nil, nil
	}
	return a.client.Users(ctx)
}

func newTaskCreateCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Long: `Create a task. The execution time defaults to today 00:00.

Example:
  taskctl task create --title "Write report" --at 2021-01-05T10:00 --duration 30 --tag 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tf := form.DefaultTaskForm(true, nil, a.loc)
			f.apply(cmd, &tf)

			users, err := a.formUsers(ctx, tf.User)
			if err != nil {
				return err
			}
			task, err := tf.Entity(models.DefaultTask(), users, a.loc)
			if err != nil {
				return err
			}

			slice := store.NewTaskSlice(a.client.Tasks())
			if err := slice.Create(ctx, &task); err != nil {
				return err
			}
			st := slice.Snapshot()
			return a.renderTask(cmd.OutOrStdout(), &st.Entity)
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskEditCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Update a task",
		Long: `Update a task. Fields that are not given keep their current value.

Example:
  taskctl task edit 3 --closed
  taskctl task edit 3 --title "Renamed" --tag 1 --tag 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			slice := store.NewTaskSlice(a.client.Tasks())
			if err := slice.Fetch(ctx, id); err != nil {
				return err
			}
			base := slice.Snapshot().Entity

			tf := form.DefaultTaskForm(false, &base, a.loc)
			f.apply(cmd, &tf)

			users, err := a.formUsers(ctx, tf.User)
			if err != nil {
				return err
			}
			task, err := tf.Entity(base, users, a.loc)
			if err != nil {
				return err
			}
			if err := slice.Update(ctx, &task); err != nil {
				return err
			}
			st := slice.Snapshot()
			return a.renderTask(cmd.OutOrStdout(), &st.Entity)
		},
	}
	f.register(cmd)
	return cmd
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			slice := store.NewTaskSlice(a.client.Tasks())
			if err := slice.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
			return nil
		},
	}
}

func newTaskTagsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags ID [TAG_ID...]",
		Short: "Replace the tags of a task",
		Long: `Replace the tags of a task. Without TAG_ID the task loses all tags.

Example:
  taskctl task tags 3 1 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tags, err := form.MapIDList(args[1:])
			if err != nil {
				return err
			}
			task, err := a.client.Tasks().UpdateTags(cmd.Context(), id, tags)
			if err != nil {
				return err
			}
			return a.renderTask(cmd.OutOrStdout(), task)
		},
	}
}

type taskQuery func(r *client.TaskResource, ctx context.Context, value string, userID int, p models.Pageable) (*models.Page[models.Task], error)

// newTaskPeriodCmd は1つの値とユーザーIDで絞り込む検索コマンドを作ります。
func newTaskPeriodCmd(a *app, name, arg, short string, query taskQuery) *cobra.Command {
	var (
		pf   pageFlags
		user int
	)
	cmd := &cobra.Command{
		Use:   name + " " + arg,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.pageable()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			uid, err := a.userID(ctx, user)
			if err != nil {
				return err
			}
			page, err := query(a.client.Tasks(), ctx, args[0], uid, p)
			if err != nil {
				return err
			}
			return a.renderTasks(cmd.OutOrStdout(), page)
		},
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&user, "user", 0, "user ID (default: current user)")
	return cmd
}
