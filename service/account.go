package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"genealogy/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	passwordMinLength   = 8
	passwordResetTTL    = 10 * time.Minute
	passwordResetResend = time.Minute
)

// AccountService 账号、密码与 token 注销
type AccountService struct {
	db     *gorm.DB
	mailer Mailer
}

func NewAccountService(db *gorm.DB, mailer Mailer) *AccountService {
	return &AccountService{db: db, mailer: mailer}
}

// AccountUpdate 管理员可修改的账号字段，nil 表示不修改
type AccountUpdate struct {
	Email       *string
	IsActive    *bool
	IsSuperuser *bool
	Password    *string
}

// ValidatePassword 密码策略：至少 8 位，不能全为数字，至少包含一个字母
func ValidatePassword(password string) error {
	if len([]rune(password)) < passwordMinLength {
		return validationErrorf("密码长度不能少于 %d 位", passwordMinLength)
	}
	allDigits := true
	hasLetter := false
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if allDigits {
		return validationErrorf("密码不能全为数字")
	}
	if !hasLetter {
		return validationErrorf("密码至少包含一个字母")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("密码加密失败: %w", err)
	}
	return string(hashed), nil
}

// Authenticate 校验用户名与密码
func (s *AccountService) Authenticate(username, password string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, validationErrorf("用户名和密码不能为空")
	}

	var account models.Account
	if err := s.db.Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 用户名或密码错误", ErrAuthentication)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: 用户名或密码错误", ErrAuthentication)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: 账号已停用", ErrAuthentication)
	}
	return &account, nil
}

// CreateAccount 创建账号
func (s *AccountService) CreateAccount(username, password, email string, isSuperuser bool) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationErrorf("用户名不能为空")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Account{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, validationErrorf("用户名已存在")
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	account := models.Account{
		Username:    username,
		Password:    hashed,
		Email:       strings.TrimSpace(email),
		IsActive:    true,
		IsSuperuser: isSuperuser,
	}
	if err := s.db.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, validationErrorf("用户名已存在")
		}
		return nil, fmt.Errorf("创建账号失败: %w", err)
	}
	return &account, nil
}

// GetAccount 按ID获取账号
func (s *AccountService) GetAccount(id uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 账号 %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts 分页查询账号，search 匹配用户名或邮箱
func (s *AccountService) ListAccounts(search string, p Page) ([]models.Account, int64, error) {
	query := s.db.Model(&models.Account{})
	if strings.TrimSpace(search) != "" {
		pattern := likePattern(search)
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	return paginate[models.Account](query, &p, "id ASC")
}

// UpdateAccount 修改账号
func (s *AccountService) UpdateAccount(id uint, in AccountUpdate) (*models.Account, error) {
	account, err := s.GetAccount(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Email != nil {
		updates["email"] = strings.TrimSpace(*in.Email)
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.IsSuperuser != nil {
		updates["is_superuser"] = *in.IsSuperuser
	}
	if in.Password != nil {
		if err := ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
		hashed, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}
	if len(updates) == 0 {
		return account, nil
	}

	if err := s.db.Model(account).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新账号失败: %w", err)
	}
	return s.GetAccount(id)
}

// DeleteAccount 删除账号，关联成员保留但解除关联
func (s *AccountService) DeleteAccount(id uint) error {
	if _, err := s.GetAccount(id); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Member{}).Where("account_id = ?", id).Update("account_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Account{}, id).Error
	})
}

// ChangePassword 修改本人密码，需校验原密码
func (s *AccountService) ChangePassword(id uint, oldPassword, newPassword string) error {
	account, err := s.GetAccount(id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(oldPassword)); err != nil {
		return fmt.Errorf("%w: 原密码错误", ErrAuthentication)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.Model(account).Update("password", hashed).Error
}

// RequestPasswordReset 向账号邮箱发送重置验证码
// 邮箱未注册时静默返回，避免暴露账号是否存在
func (s *AccountService) RequestPasswordReset(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return validationErrorf("邮箱不能为空")
	}

	var account models.Account
	if err := s.db.Where("email = ? AND is_active = ?", email, true).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	var existing models.PasswordReset
	err := s.db.Where("account_id = ? AND used = ? AND expires_at > ?", account.ID, false, time.Now()).
		Order("created_at DESC").
		First(&existing).Error
	if err == nil {
		if time.Since(existing.CreatedAt) < passwordResetResend {
			return fmt.Errorf("%w: 请求过于频繁，请稍后再试", ErrTooManyRequests)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	code, err := models.GenerateVerificationCode()
	if err != nil {
		return fmt.Errorf("生成验证码失败: %w", err)
	}
	reset := models.PasswordReset{
		AccountID: account.ID,
		Code:      code,
		Email:     email,
		ExpiresAt: time.Now().Add(passwordResetTTL),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordReset{}).
			Where("account_id = ? AND used = ?", account.ID, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&reset).Error
	})
	if err != nil {
		return fmt.Errorf("保存验证码失败: %w", err)
	}

	if err := s.mailer.SendPasswordResetCode(email, account.Username, code); err != nil {
		s.db.Delete(&reset)
		return err
	}
	return nil
}

// ResetPassword 使用邮箱验证码重置密码
func (s *AccountService) ResetPassword(email, code, newPassword string) error {
	var reset models.PasswordReset
	if err := s.db.Where("email = ? AND code = ?", strings.TrimSpace(email), code).
		Order("created_at DESC").
		First(&reset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationErrorf("验证码错误")
		}
		return err
	}
	if reset.Used {
		return validationErrorf("验证码已被使用")
	}
	if reset.IsExpired() {
		return validationErrorf("验证码已过期，请重新获取")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Account{}).Where("id = ?", reset.AccountID).Update("password", hashed).Error; err != nil {
			return err
		}
		return tx.Model(&models.PasswordReset{}).
			Where("account_id = ? AND used = ?", reset.AccountID, false).
			Update("used", true).Error
	})
}

// RevokeToken 记录已注销的 refresh token
func (s *AccountService) RevokeToken(jti string, expiresAt time.Time) error {
	if jti == "" {
		return validationErrorf("token 缺少 jti")
	}
	token := models.RevokedToken{JTI: jti, ExpiresAt: expiresAt}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&token).Error
}

// IsRevoked 判断 refresh token 是否已注销
func (s *AccountService) IsRevoked(jti string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.RevokedToken{}).Where("jti = ?", jti).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeExpiredTokens 清理已过期的注销记录
func (s *AccountService) PurgeExpiredTokens() (int64, error) {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.RevokedToken{})
	return result.RowsAffected, result.Error
}
