package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yikao-labs/shenlun-api/pkg/ai"
)

func TestSystemPromptCarriesRubricAndContract(t *testing.T) {
	system := PromptBuilder{}.SystemPrompt()

	require.Contains(t, system, "要点全面性（40分）")
	require.Contains(t, system, "语言精炼度（30分）")
	require.Contains(t, system, "逻辑结构（20分）")
	require.Contains(t, system, "格式规范（10分）")
	require.Contains(t, system, "comments 必须恰好 2 条")
	require.Contains(t, system, "pointChecklist 建议 8-12 条")
	require.Contains(t, system, `"reportMarkdown": string`)
}

func TestBuildTextPrompt(t *testing.T) {
	prompt := PromptBuilder{}.Build(GradingRequest{
		Topic:        "公共政策执行",
		MaterialText: "材料一……",
		AnswerText:   "数字治理背景下……",
		WordLimit:    300,
	})

	text, ok := prompt.(ai.TextPrompt)
	require.True(t, ok, "text-only request must build a TextPrompt")
	require.Equal(t, PromptBuilder{}.SystemPrompt(), text.System)

	topicAt := strings.Index(text.User, "题目：公共政策执行")
	materialAt := strings.Index(text.User, "材料：\n材料一……")
	limitAt := strings.Index(text.User, "作答字数要求：300字")
	answerAt := strings.Index(text.User, "考生作答：\n数字治理背景下……")

	require.GreaterOrEqual(t, topicAt, 0)
	require.Greater(t, materialAt, topicAt)
	require.Greater(t, limitAt, materialAt)
	require.Greater(t, answerAt, limitAt)
}

func TestBuildTextPromptOmitsWordLimitWhenAbsent(t *testing.T) {
	prompt := PromptBuilder{}.Build(GradingRequest{
		Topic:        DefaultTopic,
		MaterialText: "材料一",
		AnswerText:   "作答",
	})

	text, ok := prompt.(ai.TextPrompt)
	require.True(t, ok)
	require.NotContains(t, text.User, "作答字数要求")
}

func TestBuildMultimodalPromptOrdering(t *testing.T) {
	prompt := PromptBuilder{}.Build(GradingRequest{
		Topic:          "概括材料主要问题",
		MaterialText:   "材料原文",
		MaterialImages: []string{"https://img.example/material.png"},
		AnswerText:     "手写作答补充",
		AnswerImages:   []string{"https://img.example/answer1.png", "https://img.example/answer2.png"},
		WordLimit:      200,
		UseMultimodal:  true,
	})

	multi, ok := prompt.(ai.MultimodalPrompt)
	require.True(t, ok, "request with images must build a MultimodalPrompt")
	require.Equal(t, PromptBuilder{}.SystemPrompt(), multi.System)

	require.Len(t, multi.Parts, 9)
	require.Contains(t, multi.Parts[0].Text, "题目：概括材料主要问题")
	require.Contains(t, multi.Parts[0].Text, "作答字数要求：200字")
	require.Equal(t, "【材料】", multi.Parts[1].Text)
	require.Equal(t, "https://img.example/material.png", multi.Parts[2].Image)
	require.Contains(t, multi.Parts[3].Text, "材料文本：\n材料原文")
	require.Equal(t, "【作答】", multi.Parts[4].Text)
	require.Equal(t, "https://img.example/answer1.png", multi.Parts[5].Image)
	require.Equal(t, "https://img.example/answer2.png", multi.Parts[6].Image)
	require.Contains(t, multi.Parts[7].Text, "作答文本：\n手写作答补充")
	require.Contains(t, multi.Parts[8].Text, "严格输出 JSON")
}

func TestBuildMultimodalPromptEndsWithClosingInstruction(t *testing.T) {
	prompt := PromptBuilder{}.Build(GradingRequest{
		Topic:         DefaultTopic,
		MaterialText:  "材料一",
		AnswerImages:  []string{"https://img.example/answer.png"},
		UseMultimodal: true,
	})

	multi, ok := prompt.(ai.MultimodalPrompt)
	require.True(t, ok)
	last := multi.Parts[len(multi.Parts)-1]
	require.Contains(t, last.Text, "提炼核心要点")
	require.Contains(t, last.Text, "严格输出 JSON")
}
