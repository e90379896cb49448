package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

var errInvalidRequest = errors.New("invalid request")

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// respondError はエラーをステータスへ変換して書き込み、gin のエラー一覧にも積んでアクセスログへ渡します。
func respondError(c *gin.Context, err error) {
	mapped := toHTTPError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(mapped.Status, errorResponse{Error: errorBody{Code: mapped.Code, Message: mapped.Message}})
}

func invalidRequest(reason string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", errInvalidRequest, reason)
	}
	return fmt.Errorf("%w: %s: %v", errInvalidRequest, reason, err)
}

// parseDate は YYYY-MM-DD 形式の日付を解釈します。空文字は nil です。
func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, invalidRequest("date must be YYYY-MM-DD", err)
	}
	return &t, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}
