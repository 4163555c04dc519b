package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMetaSections(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no markers", "  You get 10 days of sick leave.  ", "You get 10 days of sick leave."},
		{"next step", "You get 10 days.\nNext step: talk to HR.", "You get 10 days."},
		{"next steps upper", "You get 10 days.\n\nNEXT STEPS: talk to HR.", "You get 10 days."},
		{"suggested follow-ups", "Answer.\nSuggested follow-ups:\n- one?", "Answer."},
		{"suggested follow ups", "Answer.\nsuggested follow ups\n- one?", "Answer."},
		{"suggested questions", "Answer. Suggested questions: what?", "Answer."},
		{"suggestions", "Answer.\nSuggestions: ask", "Answer."},
		{"follow-up questions", "Answer.\nFollow-up questions: a?", "Answer."},
		{
			"earliest marker wins",
			"Answer.\nSuggestions: x\nNext step: y",
			"Answer.",
		},
		{
			"earliest marker wins regardless of list order",
			"Answer.\nNext step: y\nSuggested follow-up: x",
			"Answer.",
		},
		{"marker at start", "Next step: call HR", ""},
		{"keeps plain next step wording", "The next step is to file a form.", "The next step is to file a form."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMetaSections(tt.in))
		})
	}
}
