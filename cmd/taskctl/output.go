package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"task-manager/internal/form"
	"task-manager/internal/models"
)

// render は --output に従って v を出力します。table の場合は table で描画します。
func (a *app) render(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	switch a.output() {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		// キー名を API の JSON と揃える
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

func (a *app) renderTasks(w io.Writer, page *models.Page[models.Task]) error {
	return a.render(w, page.Content, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tTITLE\tEXECUTION\tDURATION\tCLOSED\tUSER\tTAGS")
		for _, t := range page.Content {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\t%s\n",
				t.ID, deref(t.Title), a.formatTime(t.ExecutionTime), formatDuration(t.DurationMin),
				t.IsClosed(), userLogin(t.User), tagNames(t.Tags))
		}
		fmt.Fprintf(tw, "(%d of %d, page %d/%d)\n", len(page.Content), page.Total, page.Pageable.Page+1, max(page.TotalPages(), 1))
	})
}

func (a *app) renderTask(w io.Writer, t *models.Task) error {
	return a.render(w, t, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "ID:\t%d\n", t.ID)
		fmt.Fprintf(tw, "Title:\t%s\n", deref(t.Title))
		fmt.Fprintf(tw, "Description:\t%s\n", deref(t.Description))
		fmt.Fprintf(tw, "Execution:\t%s\n", a.formatTime(t.ExecutionTime))
		fmt.Fprintf(tw, "Duration:\t%s\n", formatDuration(t.DurationMin))
		fmt.Fprintf(tw, "Closed:\t%t\n", t.IsClosed())
		fmt.Fprintf(tw, "User:\t%s\n", userLogin(t.User))
		fmt.Fprintf(tw, "Tags:\t%s\n", tagNames(t.Tags))
	})
}

func (a *app) renderTags(w io.Writer, page *models.Page[models.Tag]) error {
	return a.render(w, page.Content, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tNAME\tUSER")
		for _, g := range page.Content {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", g.ID, deref(g.Name), userLogin(g.User))
		}
		fmt.Fprintf(tw, "(%d of %d)\n", len(page.Content), page.Total)
	})
}

func (a *app) renderTag(w io.Writer, g *models.Tag) error {
	return a.render(w, g, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "ID:\t%d\n", g.ID)
		fmt.Fprintf(tw, "Name:\t%s\n", deref(g.Name))
		fmt.Fprintf(tw, "User:\t%s\n", userLogin(g.User))
		titles := make([]string, 0, len(g.Tasks))
		for _, t := range g.Tasks {
			titles = append(titles, deref(t.Title))
		}
		fmt.Fprintf(tw, "Tasks:\t%s\n", strings.Join(titles, ", "))
	})
}

func (a *app) formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(a.loc).Format(form.DateTimeLayout)
}

func formatDuration(d *int64) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%dm", *d)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func userLogin(u *models.UserRef) string {
	if u == nil {
		return "-"
	}
	if u.Login != "" {
		return u.Login
	}
	return fmt.Sprintf("#%d", u.ID)
}

func tagNames(tags []models.Tag) string {
	names := make([]string, 0, len(tags))
	for _, g := range tags {
		if g.Name != nil {
			names = append(names, *g.Name)
		} else {
			names = append(names, fmt.Sprintf("#%d", g.ID))
		}
	}
	return strings.Join(names, ", ")
}
