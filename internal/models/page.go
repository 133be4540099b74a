package models

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidSort は sort パラメータの形式が不正な場合のエラーです。
var ErrInvalidSort = errors.New("invalid sort parameter")

// Order は並び順の1項目です。Property はJSONのフィールド名で指定します。
type Order struct {
	Property string
	Desc     bool
}

// Pageable はページング情報です。Page は0始まりです。
type Pageable struct {
	Page int
	Size int
	Sort []Order
}

// Normalize は範囲外の値を既定値に丸めます。
func (p Pageable) Normalize() Pageable {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Pageable) Offset() int {
	n := p.Normalize()
	return n.Page * n.Size
}

// SortParams は "id,asc" 形式のクエリ値に戻します。
func (p Pageable) SortParams() []string {
	params := make([]string, 0, len(p.Sort))
	for _, o := range p.Sort {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		params = append(params, o.Property+","+dir)
	}
	return params
}

// ParseSort は "property,asc|desc" 形式の値を解析します。方向を省略した場合は昇順です。
func ParseSort(values []string) ([]Order, error) {
	var orders []Order
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		prop, dir, _ := strings.Cut(v, ",")
		prop = strings.TrimSpace(prop)
		if prop == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSort, v)
		}
		o := Order{Property: prop}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			o.Desc = true
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidSort, v)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Page はページング済みの結果です。
type Page[T any] struct {
	Content  []T
	Total    int64
	Pageable Pageable
}

// TotalPages は総ページ数を返します。
func (p *Page[T]) TotalPages() int {
	size := p.Pageable.Normalize().Size
	return int((p.Total + int64(size) - 1) / int64(size))
}
