package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"task-manager/internal/models"
)

// pageFlags は一覧系コマンドの --page / --size / --sort です。
type pageFlags struct {
	page int
	size int
	sort []string
}

func (p *pageFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&p.page, "page", 0, "page number (0-based)")
	fs.IntVar(&p.size, "size", models.DefaultPageSize, "page size")
	fs.StringArrayVar(&p.sort, "sort", nil, `sort order such as "title,desc" (repeatable)`)
}

func (p *pageFlags) pageable() (models.Pageable, error) {
	orders, err := models.ParseSort(p.sort)
	if err != nil {
		return models.Pageable{}, err
	}
	return models.Pageable{Page: p.page, Size: p.size, Sort: orders}, nil
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// userID は --user が 0 の場合にログイン中のユーザーIDを返します。
func (a *app) userID(ctx context.Context, flag int) (int, error) {
	if flag != 0 {
		return flag, nil
	}
	account, err := a.client.Account(ctx)
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}
