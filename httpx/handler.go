package httpx

import (
	"github.com/KOMKZ/go-yogan-articlecache/validator"
	"github.com/gin-gonic/gin"
)

// HandlerFunc 业务处理函数：Req 由 uri/form/json tag 绑定，返回值写入 Response.Data
type HandlerFunc[Req any, Resp any] func(c *gin.Context, req *Req) (*Resp, error)

// Wrap 把 HandlerFunc 适配为 gin.HandlerFunc
//
// 绑定失败返回 ErrValidationFailed（400），校验失败附带字段详情，
// 业务错误统一交给 HandleError
func Wrap[Req any, Resp any](handler HandlerFunc[Req, Resp]) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bind[Req](c)
		if err != nil {
			HandleError(c, err)
			return
		}

		resp, err := handler(c, req)
		if err != nil {
			HandleError(c, err)
			return
		}
		OkJson(c, resp)
	}
}

func bind[Req any](c *gin.Context) (*Req, error) {
	req := new(Req)
	if err := Parse(c, req); err != nil {
		return nil, validator.ErrValidationFailed.Wrap(err)
	}
	if v, ok := any(req).(validator.Validatable); ok {
		if err := validator.ValidateRequest(v); err != nil {
			return nil, err
		}
	}
	return req, nil
}
