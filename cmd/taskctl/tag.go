package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"task-manager/internal/client"
	"task-manager/internal/form"
	"task-manager/internal/models"
	"task-manager/internal/store"
)

var _ store.Resource[models.Tag] = (*client.TagResource)(nil)

func newTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
	}
	cmd.AddCommand(
		newTagListCmd(a),
		newTagGetCmd(a),
		newTagCreateCmd(a),
		newTagEditCmd(a),
		newTagDeleteCmd(a),
	)
	return cmd
}

func newTagListCmd(a *app) *cobra.Command {
	var pf pageFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pf.pageable()
			if err != nil {
				return err
			}
			slice := store.NewTagSlice(a.client.Tags())
			if err := slice.FetchAll(cmd.Context(), p); err != nil {
				return err
			}
			st := slice.Snapshot()
			page := &models.Page[models.Tag]{Content: st.Entities, Total: st.TotalItems, Pageable: p.Normalize()}
			return a.renderTags(cmd.OutOrStdout(), page)
		},
	}
	pf.register(cmd)
	return cmd
}

func newTagGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a tag and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			slice := store.NewTagSlice(a.client.Tags())
			if err := slice.Fetch(cmd.Context(), id); err != nil {
				return err
			}
			st := slice.Snapshot()
			return a.renderTag(cmd.OutOrStdout(), &st.Entity)
		},
	}
}

func newTagCreateCmd(a *app) *cobra.Command {
	var name, user string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tf := form.DefaultTagForm(true, nil)
			tf.Name = name
			tf.User = user

			users, err := a.formUsers(ctx, tf.User)
			if err != nil {
				return err
			}
			tag, err := tf.Entity(models.Tag{}, users)
			if err != nil {
				return err
			}
			slice := store.NewTagSlice(a.client.Tags())
			if err := slice.Create(ctx, &tag); err != nil {
				return err
			}
			st := slice.Snapshot()
			return a.renderTag(cmd.OutOrStdout(), &st.Entity)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "tag name")
	cmd.Flags().StringVar(&user, "user", "", "owner user ID (admin only)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTagEditCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			slice := store.NewTagSlice(a.client.Tags())
			if err := slice.Fetch(ctx, id); err != nil {
				return err
			}
			base := slice.Snapshot().Entity
			base.Tasks = nil

			tf := form.DefaultTagForm(false, &base)
			tf.Name = name
			users, err := a.formUsers(ctx, tf.User)
			if err != nil {
				return err
			}
			tag, err := tf.Entity(base, users)
			if err != nil {
				return err
			}
			if err := slice.Update(ctx, &tag); err != nil {
				return err
			}
			st := slice.Snapshot()
			return a.renderTag(cmd.OutOrStdout(), &st.Entity)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new tag name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTagDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			slice := store.NewTagSlice(a.client.Tags())
			if err := slice.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %d\n", id)
			return nil
		},
	}
}
