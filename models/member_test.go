package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func uintPtr(v uint) *uint { return &v }

func TestMember_ParentIDs(t *testing.T) {
	m := &Member{}
	assert.False(t, m.HasParent())
	assert.Empty(t, m.ParentIDs())

	m.MotherID = uintPtr(3)
	assert.True(t, m.HasParent())
	assert.Equal(t, []uint{3}, m.ParentIDs())

	m.FatherID = uintPtr(4)
	assert.Equal(t, []uint{3, 4}, m.ParentIDs())
}

func TestMember_FirstPartnerID(t *testing.T) {
	m := &Member{}
	_, ok := m.FirstPartnerID()
	assert.False(t, ok)

	m.PartnerIDs = []uint{2, 9}
	id, ok := m.FirstPartnerID()
	assert.True(t, ok)
	assert.Equal(t, uint(2), id)
}

func TestMember_AfterFindDerivesAdmin(t *testing.T) {
	m := &Member{}
	assert.NoError(t, m.AfterFind(nil))
	assert.False(t, m.IsAdmin)

	m.Account = &Account{IsSuperuser: true}
	assert.NoError(t, m.AfterFind(nil))
	assert.True(t, m.IsAdmin)
}

func TestNewPartnership_Canonical(t *testing.T) {
	p := NewPartnership(7, 3)
	assert.Equal(t, uint(3), p.LowID)
	assert.Equal(t, uint(7), p.HighID)
	assert.Equal(t, p, NewPartnership(3, 7))
	assert.Equal(t, uint(7), p.Other(3))
	assert.Equal(t, uint(3), p.Other(7))
}

func TestIsValidEducation(t *testing.T) {
	assert.True(t, IsValidEducation(EducationUniversity))
	assert.False(t, IsValidEducation("kindergarten"))
}
