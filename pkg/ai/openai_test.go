package ai

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIGeneratorRequiresCredential(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIConfig{})
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestNewOpenAIGeneratorDefaults(t *testing.T) {
	generator, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key"})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", generator.cfg.TextModel)
	require.Equal(t, "gpt-4o", generator.cfg.MultimodalModel)
}

func TestChatPartsMapping(t *testing.T) {
	parts := chatParts([]Part{
		TextPart("题目：测试"),
		ImagePart("https://img.example/answer.png"),
		TextPart("作答文本"),
	})

	require.Len(t, parts, 3)
	require.Equal(t, openai.ChatMessagePartTypeText, parts[0].Type)
	require.Equal(t, "题目：测试", parts[0].Text)
	require.Equal(t, openai.ChatMessagePartTypeImageURL, parts[1].Type)
	require.Equal(t, "https://img.example/answer.png", parts[1].ImageURL.URL)
	require.Equal(t, openai.ChatMessagePartTypeText, parts[2].Type)
}
