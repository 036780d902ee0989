package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "plain text", sanitizeUTF8("plain text"))
	assert.Equal(t, "итог 42 €", sanitizeUTF8("итог 42 €"))
	assert.Equal(t, "ab", sanitizeUTF8("a\xffb"))
	assert.Equal(t, "", sanitizeUTF8("\xff\xfe"))
}
