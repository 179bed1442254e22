package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCents(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{0.3, 30},
		{9.99, 999},
		{14.5, 1450},
		{0.285, 29},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToCents(tt.in), "ToCents(%v)", tt.in)
	}
}

func TestFromCents(t *testing.T) {
	assert.Equal(t, 14.5, FromCents(1450))
	assert.Equal(t, 0.0, FromCents(0))
}

func TestUserIsAdmin(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.IsAdmin())
	assert.False(t, (&User{Role: "user"}).IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
}

func TestMenuItemPatchEmpty(t *testing.T) {
	assert.True(t, MenuItemPatch{}.Empty())

	name := "Caesar"
	assert.False(t, MenuItemPatch{Name: &name}.Empty())
}
