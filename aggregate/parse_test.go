package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/hupe1980/chatnorm/internal/testutil"
	"github.com/hupe1980/chatnorm/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TextCompletion(t *testing.T) {
	c := testutil.NewCompletion().Content("Hello there").Finish("stop").Usage(10, 3, 13).Build()

	resp, err := Parse(c)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Text())
	assert.Equal(t, model.FinishReasonStop, resp.FinishReason)
	assert.NotNil(t, resp.ToolCalls)
	assert.Empty(t, resp.ToolCalls)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, model.Usage{PromptTokens: 10, CompletionTokens: 3, TotalTokens: 13}, *resp.Usage)
	assert.Nil(t, resp.ReasoningContent)
}

func TestParse_WellFormedArgumentsMatchStructuredDecode(t *testing.T) {
	args := `{"city":"Berlin","days":3,"opts":{"metric":true,"fields":["temp","wind"]}}`
	c := testutil.NewCompletion().
		ToolCall("call_1", "get_weather", args).
		Finish("tool_calls").
		Build()

	resp, err := Parse(c)
	require.NoError(t, err)

	var want map[string]any
	require.NoError(t, json.Unmarshal([]byte(args), &want))
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", resp.ToolCalls[0].Name)
	assert.Equal(t, want, resp.ToolCalls[0].Arguments)
	assert.Equal(t, model.FinishReasonToolCalls, resp.FinishReason)
	assert.Nil(t, resp.Content)
}

func TestParse_StructuredArgumentsUsedAsIs(t *testing.T) {
	c := testutil.NewCompletion().
		RawToolCall("call_1", "lookup", json.RawMessage(`{"id":7}`)).
		Build()

	resp, err := Parse(c)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(7)}, resp.ToolCalls[0].Arguments)
}

func TestParse_MalformedArgumentsKeepTheCall(t *testing.T) {
	c := testutil.NewCompletion().
		ToolCall("call_1", "broken", `{"a":`).
		ToolCall("call_2", "repairable", `{"a":1,"b":2`).
		ToolCall("call_3", "empty", "").
		RawToolCall("call_4", "array", json.RawMessage(`[1,2]`)).
		RawToolCall("call_5", "missing", nil).
		Build()

	resp, err := Parse(c)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 5)

	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "broken", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{}, resp.ToolCalls[0].Arguments)

	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, resp.ToolCalls[1].Arguments)

	for _, tc := range resp.ToolCalls[2:] {
		assert.NotNil(t, tc.Arguments, tc.ID)
		assert.Empty(t, tc.Arguments, tc.ID)
	}
}

func TestParse_DefaultsAndAbsentFields(t *testing.T) {
	c := testutil.NewCompletion().Content("").Build()

	resp, err := Parse(c)
	require.NoError(t, err)
	assert.Equal(t, model.FinishReasonStop, resp.FinishReason)
	assert.Nil(t, resp.Usage, "absent usage must not become zeros")
	assert.Nil(t, resp.ReasoningContent)
	require.NotNil(t, resp.Content, "content is passed through verbatim")
	assert.Equal(t, "", *resp.Content)
}

func TestParse_ProviderFinishReasonPassedThrough(t *testing.T) {
	resp, err := Parse(testutil.NewCompletion().Content("x").Finish("content_filter").Build())
	require.NoError(t, err)
	assert.Equal(t, "content_filter", resp.FinishReason)
}

func TestParse_ReasoningContent(t *testing.T) {
	resp, err := Parse(testutil.NewCompletion().Content("42").Reasoning("6*7").Build())
	require.NoError(t, err)
	require.NotNil(t, resp.ReasoningContent)
	assert.Equal(t, "6*7", *resp.ReasoningContent)

	resp, err = Parse(testutil.NewCompletion().Content("42").Reasoning("").Build())
	require.NoError(t, err)
	assert.Nil(t, resp.ReasoningContent)
}

func TestParse_NoChoices(t *testing.T) {
	_, err := Parse(testutil.NewCompletion().NoChoices().Build())
	assert.ErrorIs(t, err, ErrNoChoices)

	_, err = Parse(nil)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestDecodeArguments(t *testing.T) {
	assert.Equal(t, map[string]any{}, DecodeArguments(""))
	assert.Equal(t, map[string]any{}, DecodeArguments(`{"a":`))
	assert.Equal(t, map[string]any{}, DecodeArguments("garbage"))
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, DecodeArguments(`{"a":1,"b":2}`))
	assert.Equal(t, map[string]any{"q": "hel"}, DecodeArguments(`{"q":"hel`))
}
