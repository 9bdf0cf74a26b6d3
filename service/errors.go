package service

import (
	"errors"
	"fmt"
)

// 业务错误分类，api 层据此映射 HTTP 状态码
var (
	ErrValidation           = errors.New("参数校验失败")
	ErrReferentialIntegrity = errors.New("存在引用，禁止删除")
	ErrAuthentication       = errors.New("认证失败")
	ErrAuthorization        = errors.New("权限不足")
	ErrNotFound             = errors.New("记录不存在")
	ErrTooManyRequests      = errors.New("请求过于频繁")
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
