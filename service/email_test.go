package service

import (
	"testing"

	"genealogy/config"

	"github.com/stretchr/testify/assert"
)

func newTestEmailService() *EmailService {
	return NewEmailService(&config.EmailConfig{})
}

func TestGenerateResetEmailBody(t *testing.T) {
	s := newTestEmailService()
	body := s.generateResetEmailBody("张三", "888999")
	assert.Contains(t, body, "张三")
	assert.Contains(t, body, "888999")
	assert.Contains(t, body, "10 分钟")
}

func TestSendPasswordResetCode_Disabled(t *testing.T) {
	s := newTestEmailService()
	err := s.SendPasswordResetCode("a@example.com", "张三", "123456")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "邮件服务未启用")
}
