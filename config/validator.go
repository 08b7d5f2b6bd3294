package config

import "errors"

// Validator 各模块配置实现的校验接口
type Validator interface {
	Validate() error
}

// ValidateAll 依次校验，汇总全部失败项；nil 跳过
func ValidateAll(validators ...Validator) error {
	var errs []error
	for _, v := range validators {
		if v == nil {
			continue
		}
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
