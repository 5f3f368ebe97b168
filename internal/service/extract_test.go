package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const wellFormedResult = `{
  "totalScore": 85,
  "rankPercentile": 90,
  "dimensions": [
    {"subject": "要点全面性", "A": 34, "fullMark": 40},
    {"subject": "语言精炼度", "A": 26, "fullMark": 30},
    {"subject": "逻辑结构", "A": 17, "fullMark": 20},
    {"subject": "格式规范", "A": 8, "fullMark": 10}
  ],
  "comments": [
    {"title": "要点覆盖较全", "content": "抓住了主要矛盾", "type": "positive"},
    {"title": "语言仍有冗余", "content": "口语化表达偏多", "type": "negative"}
  ],
  "advice": "先列提纲再作答",
  "annotations": [{"originalText": "数字治理", "comment": "概念使用准确"}],
  "pointChecklist": [
    {"materialPoint": "基层负担重", "covered": true, "reason": "已体现，第二段"},
    {"materialPoint": "数据壁垒", "covered": false, "reason": "未提及跨部门共享"}
  ],
  "reportMarkdown": "📊 **综合评分：85/100**"
}`

func TestExtractResultIgnoresSurroundingNoise(t *testing.T) {
	result, err := ExtractResult("prefix noise " + wellFormedResult + " trailing noise")
	require.NoError(t, err)
	require.Equal(t, 85, result.TotalScore)
	require.Equal(t, 90, result.RankPercentile)
	require.Len(t, result.Dimensions, 4)
	require.Equal(t, "要点全面性", result.Dimensions[0].Subject)
	require.Equal(t, 34.0, result.Dimensions[0].Score)
	require.Len(t, result.Comments, 2)
	require.Len(t, result.PointChecklist, 2)
}

func TestExtractResultFromCodeFence(t *testing.T) {
	result, err := ExtractResult("```json\n" + wellFormedResult + "\n```")
	require.NoError(t, err)
	require.Equal(t, 85, result.TotalScore)
}

func TestExtractResultNoJSONFound(t *testing.T) {
	raw := "很抱歉，我无法按要求输出。"
	_, err := ExtractResult(raw)
	require.ErrorIs(t, err, ErrNoJSONFound)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	require.Equal(t, raw, extractionErr.Raw)
}

func TestExtractResultBraceOrder(t *testing.T) {
	_, err := ExtractResult("} mismatched {")
	require.ErrorIs(t, err, ErrNoJSONFound)
}

func TestExtractResultInvalidJSON(t *testing.T) {
	raw := `{"totalScore": 85, "dimensions": [`
	_, err := ExtractResult(raw + "}")
	require.ErrorIs(t, err, ErrInvalidJSON)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	require.NotEmpty(t, extractionErr.Raw)
}

func TestExtractResultToleratesMissingOptionalFields(t *testing.T) {
	result, err := ExtractResult(`{"totalScore": 70, "rankPercentile": 60, "dimensions": [], "comments": [], "advice": ""}`)
	require.NoError(t, err)
	require.Equal(t, 70, result.TotalScore)
	require.Nil(t, result.PointChecklist)
	require.Empty(t, result.ReportMarkdown)
	require.Nil(t, result.Annotations)
}
