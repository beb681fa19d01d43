package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"docuchat/internal/model"
)

func TestTrimMessages(t *testing.T) {
	messages := []model.Message{
		{Content: "a"}, {Content: "b"}, {Content: "c"},
	}

	assert.Len(t, trimMessages(messages, 0), 3)
	assert.Len(t, trimMessages(messages, 5), 3)

	trimmed := trimMessages(messages, 2)
	assert.Len(t, trimmed, 2)
	assert.Equal(t, "b", trimmed[0].Content)
	assert.Equal(t, "c", trimmed[1].Content)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "42", sessionKey(42))
}

func TestSessionTitle(t *testing.T) {
	assert.Equal(t, "short question", sessionTitle("short question"))

	long := strings.Repeat("x", 60)
	title := sessionTitle(long)
	assert.Equal(t, 41, len([]rune(title)))
	assert.True(t, strings.HasSuffix(title, "…"))
}

func TestGenerateCode(t *testing.T) {
	code, err := generateCode(6)
	assert.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}
}
