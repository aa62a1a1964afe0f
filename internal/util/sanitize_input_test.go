package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hello  "))
	assert.Equal(t, "&lt;script&gt;", SanitizeInput("<script>"))
	assert.Equal(t, "", SanitizeInput("   "))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.com"}
	for _, s := range valid {
		assert.True(t, IsValidEmail(s), s)
	}

	invalid := []string{"", "plain", "a@b", "a b@c.com", "@example.com"}
	for _, s := range invalid {
		assert.False(t, IsValidEmail(s), s)
	}
}

func TestIsValidMobile(t *testing.T) {
	valid := []string{"+15550001111", "+447911123456", "+91"}
	for _, s := range valid {
		assert.True(t, IsValidMobile(s), s)
	}

	invalid := []string{"", "15550001111", "+0123456", "+1 555 000", "+1234567890123456"}
	for _, s := range invalid {
		assert.False(t, IsValidMobile(s), s)
	}
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("1234"))
	assert.True(t, IsNumeric("0"))
	assert.False(t, IsNumeric(""))
	assert.False(t, IsNumeric("12a4"))
	assert.False(t, IsNumeric("-123"))
}

func TestIsValidPassword(t *testing.T) {
	assert.True(t, IsValidPassword("passw0rd"))
	assert.True(t, IsValidPassword("A1bcdefg"))

	assert.False(t, IsValidPassword("short1a"))
	assert.False(t, IsValidPassword("alllowercase"))
	assert.False(t, IsValidPassword("12345678"))
}
