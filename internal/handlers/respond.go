package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"task-manager/internal/logger"
	"task-manager/internal/models"
	"task-manager/internal/repositories"
	"task-manager/internal/services"
)

// アラート用のレスポンスヘッダー
const (
	HeaderAlert      = "X-TaskManager-Alert"
	HeaderError      = "X-TaskManager-Error"
	HeaderParams     = "X-TaskManager-Params"
	HeaderTotalCount = "X-Total-Count"
)

// callerFromContext は AuthMiddleware が設定したユーザー情報を取り出します。
// 取り出せない場合はレスポンスを書き込み、false を返します。
func callerFromContext(c *gin.Context) (services.Caller, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return services.Caller{}, false
	}
	userID, ok := userIDVal.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID type in context"})
		return services.Caller{}, false
	}
	userRole, ok := c.Get("user_role")
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User role not found in context"})
		return services.Caller{}, false
	}
	role, ok := userRole.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user role type in context"})
		return services.Caller{}, false
	}
	return services.Caller{UserID: userID, Role: role}, true
}

// parseIntParam はパスパラメータを数値として読み取ります。
func parseIntParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return id, true
}

// parsePageable は page, size, sort クエリを読み取ります。
func parsePageable(c *gin.Context) (models.Pageable, error) {
	var p models.Pageable
	var err error
	if v := c.Query("page"); v != "" {
		if p.Page, err = strconv.Atoi(v); err != nil || p.Page < 0 {
			return p, fmt.Errorf("%w: page %q", services.ErrValidation, v)
		}
	}
	if v := c.Query("size"); v != "" {
		if p.Size, err = strconv.Atoi(v); err != nil || p.Size < 0 {
			return p, fmt.Errorf("%w: size %q", services.ErrValidation, v)
		}
	}
	if p.Sort, err = models.ParseSort(c.QueryArray("sort")); err != nil {
		return p, err
	}
	return p.Normalize(), nil
}

// eagerload はタグを読み込むかどうかを返します。省略時は true です。
func eagerload(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.DefaultQuery("eagerload", "true"))
	return err != nil || v
}

// writePage は X-Total-Count と Link ヘッダーを付けて一覧を返します。
func writePage[T any](c *gin.Context, page *models.Page[T]) {
	c.Header(HeaderTotalCount, strconv.FormatInt(page.Total, 10))
	if link := linkHeader(c.Request.URL, page); link != "" {
		c.Header("Link", link)
	}
	c.JSON(http.StatusOK, page.Content)
}

// linkHeader は next / prev / last / first のページリンクを組み立てます。
func linkHeader[T any](u *url.URL, page *models.Page[T]) string {
	p := page.Pageable
	last := max(page.TotalPages()-1, 0)

	pageURL := func(n int, rel string) string {
		q := u.Query()
		q.Set("page", strconv.Itoa(n))
		q.Set("size", strconv.Itoa(p.Size))
		target := url.URL{Path: u.Path, RawQuery: q.Encode()}
		return fmt.Sprintf("<%s>; rel=\"%s\"", target.String(), rel)
	}

	var links []string
	if p.Page < last {
		links = append(links, pageURL(p.Page+1, "next"))
	}
	if p.Page > 0 && p.Page <= last {
		links = append(links, pageURL(p.Page-1, "prev"))
	}
	links = append(links, pageURL(last, "last"), pageURL(0, "first"))
	return strings.Join(links, ",")
}

// setAlert はエンティティの作成・更新・削除を通知するヘッダーを付けます。
func setAlert(c *gin.Context, appName, entity, action string, id int) {
	c.Header(HeaderAlert, fmt.Sprintf("%s.%s.%s", appName, entity, action))
	c.Header(HeaderParams, strconv.Itoa(id))
}

// errorKey は X-TaskManager-Error に載せるメッセージキーです。
func errorKey(err error) string {
	switch {
	case errors.Is(err, services.ErrIDExists):
		return "error.idexists"
	case errors.Is(err, services.ErrIDNull):
		return "error.idnull"
	case errors.Is(err, services.ErrIDInvalid):
		return "error.idinvalid"
	case errors.Is(err, services.ErrBadPeriod):
		return "error.badperiod"
	case errors.Is(err, models.ErrInvalidSort):
		return "error.badsort"
	default:
		return "error.validation"
	}
}

// writeError はサービス層のエラーをHTTPステータスに変換して返します。
func writeError(c *gin.Context, entity string, err error) {
	switch {
	case errors.Is(err, services.ErrIDExists),
		errors.Is(err, services.ErrIDNull),
		errors.Is(err, services.ErrIDInvalid),
		errors.Is(err, services.ErrBadPeriod),
		errors.Is(err, services.ErrValidation),
		errors.Is(err, models.ErrInvalidSort):
		c.Header(HeaderError, errorKey(err))
		c.Header(HeaderParams, entity)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request", "details": err.Error()})
	case errors.Is(err, repositories.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, repositories.ErrTaskNotFound),
		errors.Is(err, repositories.ErrTagNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": capitalize(err.Error())})
	case errors.Is(err, repositories.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
	default:
		logger.Errorf("%s request failed: %v", entity, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
