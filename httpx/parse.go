package httpx

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// Parse 依次绑定路径参数（uri tag）、查询参数（form tag）与 JSON Body（json tag）
//
// 路径参数类型不符（如 /article/Europe/abc 绑定到 int64）直接返回错误；
// Body 仅在请求携带内容时解析
func Parse(c *gin.Context, req any) error {
	if len(c.Params) > 0 {
		if err := c.ShouldBindUri(req); err != nil {
			return fmt.Errorf("bind path params: %w", err)
		}
	}

	if len(c.Request.URL.RawQuery) > 0 {
		if err := c.ShouldBindQuery(req); err != nil {
			return fmt.Errorf("bind query: %w", err)
		}
	}

	if c.Request.ContentLength > 0 || c.Request.ContentLength == -1 {
		if err := c.ShouldBindJSON(req); err != nil {
			return fmt.Errorf("bind body: %w", err)
		}
	}
	return nil
}
