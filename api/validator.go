package api

import (
	"genealogy/service"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 在 gin 的校验引擎上注册自定义规则
// password: 至少 8 位，不能全为数字，至少包含一个字母
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return service.ValidatePassword(fl.Field().String()) == nil
	})
}
