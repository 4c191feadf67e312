package completion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChunk_DistinguishesAbsentFields(t *testing.T) {
	ck, err := DecodeChunk([]byte(`{"id":"c","choices":[{"index":0,"delta":null,"finish_reason":null}]}`))
	require.NoError(t, err)
	require.Len(t, ck.Choices, 1)
	assert.Nil(t, ck.Choices[0].Delta)
	assert.Nil(t, ck.Choices[0].FinishReason)
	assert.Nil(t, ck.Usage)

	ck, err = DecodeChunk([]byte(`{"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`))
	require.NoError(t, err)
	assert.Empty(t, ck.Choices)
	require.NotNil(t, ck.Usage)
	assert.Equal(t, int64(7), ck.Usage.TotalTokens)
}

func TestDecodeChunk_ToolCallFragment(t *testing.T) {
	ck, err := DecodeChunk([]byte(`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":2,"id":"call_1","function":{"name":"f","arguments":"{\"a\":"}}]}}]}`))
	require.NoError(t, err)
	tc := ck.Choices[0].Delta.ToolCalls[0]
	assert.Equal(t, int64(2), tc.Index)
	assert.Equal(t, "call_1", tc.ID)
	require.NotNil(t, tc.Function)
	assert.Equal(t, "f", tc.Function.Name)
	assert.Equal(t, `{"a":`, tc.Function.Arguments)
}

func TestDecodeCompletion(t *testing.T) {
	c, err := DecodeCompletion([]byte(`{
		"id":"cmpl-1",
		"choices":[{"index":0,"finish_reason":"tool_calls","message":{
			"role":"assistant","content":null,"reasoning_content":"think",
			"tool_calls":[{"id":"call_1","type":"function","function":{"name":"f","arguments":{"x":1}}}]}}]
	}`))
	require.NoError(t, err)
	require.Len(t, c.Choices, 1)
	msg := c.Choices[0].Message
	assert.Nil(t, msg.Content)
	require.NotNil(t, msg.ReasoningContent)
	assert.Equal(t, "think", *msg.ReasoningContent)
	assert.JSONEq(t, `{"x":1}`, string(msg.ToolCalls[0].Function.Arguments))
	assert.Nil(t, c.Usage)

	_, err = DecodeCompletion([]byte(`{"choices":`))
	assert.Error(t, err)
}

func TestSliceStream(t *testing.T) {
	boom := errors.New("boom")
	s := NewSliceStream(Chunk{ID: "a"}, Chunk{ID: "b"}).FailWith(boom)

	assert.Equal(t, Chunk{}, s.Current())
	require.True(t, s.Next())
	assert.Equal(t, "a", s.Current().ID)
	assert.NoError(t, s.Err())
	require.True(t, s.Next())
	assert.Equal(t, "b", s.Current().ID)
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), boom)

	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
}

func TestSliceStream_CloseStopsIteration(t *testing.T) {
	s := NewSliceStream(Chunk{ID: "a"}, Chunk{ID: "b"})
	require.True(t, s.Next())
	require.NoError(t, s.Close())
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}
