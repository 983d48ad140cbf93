package stream

import (
	"cmp"
	"slices"
	"strings"

	"github.com/rhuss/dialekt/pkg/api"
)

// phase is the position of one choice in its delta sequence.
type phase int

const (
	phaseRole phase = iota
	phaseContent
	phaseToolCalls
	phaseFinish
	phaseDone
)

// choiceState walks one choice through Role → Content → ToolCalls → Done.
// States without a payload are skipped.
type choiceState struct {
	index     int
	phase     phase
	role      api.MessageRole
	fragments []string
	toolCalls []api.ToolCall
	finish    string
}

func newChoiceState(c api.Choice) *choiceState {
	role := c.Message.Role
	if role == "" {
		role = api.RoleAssistant
	}
	finish := c.FinishReason
	if finish == "" {
		finish = api.FinishReasonStop
	}
	return &choiceState{
		index:     c.Index,
		phase:     phaseRole,
		role:      role,
		fragments: splitFragments(c.Message.Content),
		toolCalls: c.Message.ToolCalls,
		finish:    finish,
	}
}

// step emits the delta for the current state and advances. ok is false once
// the choice is done.
func (s *choiceState) step() (api.ChunkChoice, bool) {
	out := api.ChunkChoice{Index: s.index}

	switch s.phase {
	case phaseRole:
		out.Delta.Role = s.role
		s.phase = phaseContent
		if len(s.fragments) == 0 {
			s.advancePastContent()
		}
	case phaseContent:
		frag := s.fragments[0]
		s.fragments = s.fragments[1:]
		out.Delta.Content = &frag
		if len(s.fragments) == 0 {
			s.advancePastContent()
		}
	case phaseToolCalls:
		out.Delta.ToolCalls = s.toolCalls
		s.phase = phaseFinish
	case phaseFinish:
		finish := s.finish
		out.FinishReason = &finish
		s.phase = phaseDone
	default:
		return out, false
	}
	return out, true
}

func (s *choiceState) advancePastContent() {
	if len(s.toolCalls) > 0 {
		s.phase = phaseToolCalls
		return
	}
	s.phase = phaseFinish
}

// splitFragments splits content after each space, keeping the space on the
// fragment it ends. Absent or empty content yields no fragments.
func splitFragments(content *api.Content) []string {
	if content == nil {
		return nil
	}
	text := content.String()
	if text == "" {
		return nil
	}
	parts := strings.SplitAfter(text, " ")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// Decomposer turns a complete response into its streaming delta chunks.
//
// Every choice advances one state per call to Next, in lockstep with its
// siblings; the combined chunk lists the choices that are still active in
// index order. The chunk that carries a choice's finish_reason is the last
// one mentioning that choice.
type Decomposer struct {
	id      string
	model   string
	created int64
	choices []*choiceState
}

// NewDecomposer creates a Decomposer over resp. The response is not modified.
func NewDecomposer(resp *api.ChatCompletionResponse) *Decomposer {
	d := &Decomposer{
		id:      resp.ID,
		model:   resp.Model,
		created: resp.Created,
		choices: make([]*choiceState, 0, len(resp.Choices)),
	}
	for _, c := range resp.Choices {
		d.choices = append(d.choices, newChoiceState(c))
	}
	slices.SortStableFunc(d.choices, func(a, b *choiceState) int {
		return cmp.Compare(a.index, b.index)
	})
	return d
}

// Next returns the next chunk, or false when every choice is done.
func (d *Decomposer) Next() (*api.ChatCompletionChunk, bool) {
	var choices []api.ChunkChoice
	for _, s := range d.choices {
		if c, ok := s.step(); ok {
			choices = append(choices, c)
		}
	}
	if len(choices) == 0 {
		return nil, false
	}
	return &api.ChatCompletionChunk{
		ID:      d.id,
		Object:  api.ObjectChatCompletionChunk,
		Created: d.created,
		Model:   d.model,
		Choices: choices,
	}, true
}

// All drains the decomposer.
func (d *Decomposer) All() []*api.ChatCompletionChunk {
	var out []*api.ChatCompletionChunk
	for {
		chunk, ok := d.Next()
		if !ok {
			return out
		}
		out = append(out, chunk)
	}
}
