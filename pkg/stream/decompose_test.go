package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rhuss/dialekt/pkg/api"
)

func textResponse(choices ...api.Choice) *api.ChatCompletionResponse {
	return &api.ChatCompletionResponse{
		ID:      "chatcmpl-test",
		Object:  api.ObjectChatCompletion,
		Created: 1700000000,
		Model:   "qwen/x",
		Choices: choices,
	}
}

func textChoice(index int, text, finish string) api.Choice {
	return api.Choice{
		Index:        index,
		Message:      api.Message{Role: api.RoleAssistant, Content: api.NewTextContent(text)},
		FinishReason: finish,
	}
}

func weatherCall() api.ToolCall {
	return api.ToolCall{
		Index: 0, ID: "call_1", Type: api.ToolTypeFunction,
		Function: api.FunctionCall{Name: "get_weather", Arguments: api.RawArguments(`{"location":"NY"}`)},
	}
}

func TestDecomposerSingleChoice(t *testing.T) {
	chunks := NewDecomposer(textResponse(textChoice(0, "Hello big world", "stop"))).All()

	require.Len(t, chunks, 5)
	assert.Equal(t, api.RoleAssistant, chunks[0].Choices[0].Delta.Role)
	assert.Nil(t, chunks[0].Choices[0].Delta.Content)

	var fragments []string
	for _, c := range chunks[1:4] {
		require.NotNil(t, c.Choices[0].Delta.Content)
		fragments = append(fragments, *c.Choices[0].Delta.Content)
	}
	assert.Equal(t, []string{"Hello ", "big ", "world"}, fragments)

	last := chunks[4].Choices[0]
	assert.True(t, last.Delta.IsEmpty())
	require.NotNil(t, last.FinishReason)
	assert.Equal(t, "stop", *last.FinishReason)

	for _, c := range chunks {
		assert.Equal(t, "chatcmpl-test", c.ID)
		assert.Equal(t, api.ObjectChatCompletionChunk, c.Object)
		assert.Equal(t, int64(1700000000), c.Created)
		assert.Equal(t, "qwen/x", c.Model)
	}
}

func TestDecomposerToolCallsOnly(t *testing.T) {
	resp := textResponse(api.Choice{
		Message:      api.Message{Role: api.RoleAssistant, ToolCalls: []api.ToolCall{weatherCall()}},
		FinishReason: api.FinishReasonToolCalls,
	})

	chunks := NewDecomposer(resp).All()

	require.Len(t, chunks, 3)
	assert.Equal(t, api.RoleAssistant, chunks[0].Choices[0].Delta.Role)
	require.Len(t, chunks[1].Choices[0].Delta.ToolCalls, 1)
	assert.Equal(t, "get_weather", chunks[1].Choices[0].Delta.ToolCalls[0].Function.Name)
	assert.Nil(t, chunks[1].Choices[0].FinishReason)
	assert.Equal(t, "tool_calls", *chunks[2].Choices[0].FinishReason)
}

func TestDecomposerTrailingSpace(t *testing.T) {
	chunks := NewDecomposer(textResponse(textChoice(0, "a  b ", "stop"))).All()

	var got []string
	for _, c := range chunks {
		if p := c.Choices[0].Delta.Content; p != nil {
			got = append(got, *p)
		}
	}
	assert.Equal(t, []string{"a ", " ", "b "}, got)
}

func TestDecomposerEmptyContent(t *testing.T) {
	chunks := NewDecomposer(textResponse(textChoice(0, "", ""))).All()

	require.Len(t, chunks, 2)
	assert.Equal(t, "stop", *chunks[1].Choices[0].FinishReason)
}

func TestDecomposerLockstep(t *testing.T) {
	// Listed out of order to check index ordering.
	resp := textResponse(
		textChoice(1, "one two three", "length"),
		textChoice(0, "hi", "stop"),
	)

	chunks := NewDecomposer(resp).All()

	// Choice 1 needs role + 3 fragments + finish = 5 ticks.
	require.Len(t, chunks, 5)
	require.Len(t, chunks[0].Choices, 2)
	assert.Equal(t, 0, chunks[0].Choices[0].Index)
	assert.Equal(t, 1, chunks[0].Choices[1].Index)

	// Choice 0 finishes on the third tick and is absent afterwards.
	require.Len(t, chunks[2].Choices, 2)
	assert.Equal(t, "stop", *chunks[2].Choices[0].FinishReason)
	require.Len(t, chunks[3].Choices, 1)
	assert.Equal(t, 1, chunks[3].Choices[0].Index)
	assert.Equal(t, "length", *chunks[4].Choices[0].FinishReason)
}

func TestDecomposerDoesNotModifyResponse(t *testing.T) {
	resp := textResponse(textChoice(0, "a b", "stop"))
	NewDecomposer(resp).All()
	assert.Equal(t, "a b", resp.Choices[0].Message.Content.String())
}

func TestDecomposerCompletenessProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(t, "choices")
		choices := make([]api.Choice, n)
		texts := make([]string, n)
		for i := range choices {
			words := rapid.SliceOfN(rapid.StringMatching(`[a-z]{0,6}`), 0, 8).Draw(t, "words")
			texts[i] = strings.Join(words, " ")
			choices[i] = textChoice(i, texts[i], "stop")
			if rapid.Bool().Draw(t, "tools") {
				choices[i].Message.ToolCalls = []api.ToolCall{weatherCall()}
			}
		}

		chunks := NewDecomposer(textResponse(choices...)).All()

		content := make([]strings.Builder, n)
		finishes := make([]int, n)
		lastSeen := make([]int, n)
		finishAt := make([]int, n)
		for pos, c := range chunks {
			for _, cc := range c.Choices {
				if cc.Delta.Content != nil {
					content[cc.Index].WriteString(*cc.Delta.Content)
				}
				lastSeen[cc.Index] = pos
				if cc.FinishReason != nil {
					finishes[cc.Index]++
					finishAt[cc.Index] = pos
				}
			}
		}
		for i := range n {
			if content[i].String() != texts[i] {
				t.Fatalf("choice %d content = %q, want %q", i, content[i].String(), texts[i])
			}
			if finishes[i] != 1 {
				t.Fatalf("choice %d has %d finish chunks", i, finishes[i])
			}
			if finishAt[i] != lastSeen[i] {
				t.Fatalf("choice %d finish at %d, last seen at %d", i, finishAt[i], lastSeen[i])
			}
		}
	})
}
