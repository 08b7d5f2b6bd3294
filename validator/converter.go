// Package validator 提供统一的参数校验和错误转换
package validator

import (
	"errors"
	"net/http"

	"github.com/KOMKZ/go-yogan-articlecache/errcode"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrValidationFailed 通用校验失败错误（模块码 1，业务码 1010）
var ErrValidationFailed = errcode.Register(errcode.New(1, 1010, "common",
	"error.common.validation_failed", "参数校验失败", http.StatusBadRequest))

// Validatable 可校验接口
type Validatable interface {
	Validate() error
}

// ValidateRequest 通用校验函数
// 字段错误转换为带 fields 数据的 ErrValidationFailed；
// 规则内部错误原样返回
func ValidateRequest(req Validatable) error {
	err := req.Validate()
	if err == nil {
		return nil
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}

	var validationErrs validation.Errors
	if errors.As(err, &validationErrs) {
		return ConvertValidationError(validationErrs)
	}

	// 结构级规则（如"至少一个字段"）
	return ErrValidationFailed.WithMsg(err.Error())
}

// ConvertValidationError 将 ozzo-validation 错误转换为 LayeredError
func ConvertValidationError(validationErrs validation.Errors) error {
	fields := make(map[string]string)
	for field, fieldErr := range validationErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}

	return ErrValidationFailed.WithData("fields", fields)
}
