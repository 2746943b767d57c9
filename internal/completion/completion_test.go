package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nadzzz/mediai/internal/message"
)

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]message.ChatMessage{
		{Role: message.RoleSystem, Content: "be brief"},
		{Role: message.RoleUser, Content: "hi"},
		{Role: message.RoleSystem, Content: "no jargon"},
	})
	assert.Equal(t, "be brief\n\nno jargon", system)
	assert.Equal(t, []message.ChatMessage{{Role: message.RoleUser, Content: "hi"}}, rest)
}

func TestAlternate(t *testing.T) {
	tests := []struct {
		name string
		in   []message.ChatMessage
		want []message.ChatMessage
	}{
		{
			name: "greeting dropped",
			in: []message.ChatMessage{
				{Role: message.RoleAssistant, Content: "Hello, what brings you in?"},
				{Role: message.RoleUser, Content: "I have a headache"},
			},
			want: []message.ChatMessage{
				{Role: message.RoleUser, Content: "I have a headache"},
			},
		},
		{
			name: "consecutive user turns merged",
			in: []message.ChatMessage{
				{Role: message.RoleAssistant, Content: "Hello"},
				{Role: message.RoleUser, Content: "I have a headache"},
				{Role: message.RoleUser, Content: "since yesterday"},
				{Role: message.RoleAssistant, Content: "Rest."},
				{Role: message.RoleAssistant, Content: "Any fever?"},
				{Role: message.RoleUser, Content: "No"},
			},
			want: []message.ChatMessage{
				{Role: message.RoleUser, Content: "I have a headache\n\nsince yesterday"},
				{Role: message.RoleAssistant, Content: "Rest.\n\nAny fever?"},
				{Role: message.RoleUser, Content: "No"},
			},
		},
		{
			name: "only assistant",
			in:   []message.ChatMessage{{Role: message.RoleAssistant, Content: "Hello"}},
			want: []message.ChatMessage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Alternate(tt.in))
		})
	}
}

func TestAlternate_LeavesInputUntouched(t *testing.T) {
	in := []message.ChatMessage{
		{Role: message.RoleUser, Content: "a"},
		{Role: message.RoleUser, Content: "b"},
	}
	_ = Alternate(in)
	assert.Equal(t, "a", in[0].Content)
}
