package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerificationCode(t *testing.T) {
	code, err := GenerateVerificationCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)

	digitRegex := regexp.MustCompile(`^\d{6}$`)
	assert.True(t, digitRegex.MatchString(code), "code should be 6 digits")
	assert.True(t, code >= "100000" && code <= "999999")
}

func TestPasswordReset_IsExpired(t *testing.T) {
	now := time.Now()

	p := &PasswordReset{ExpiresAt: now.Add(-time.Hour)}
	assert.True(t, p.IsExpired())

	p2 := &PasswordReset{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, p2.IsExpired())
}

func TestIncome_Amount(t *testing.T) {
	in := &Income{}
	assert.Equal(t, int64(0), in.Amount())

	in.ContributionLevel = &ContributionLevel{Amount: 200}
	assert.Equal(t, int64(200), in.Amount())

	in.Sponsor = &Sponsor{Amount: 1000}
	assert.Equal(t, int64(1200), in.Amount())
}
