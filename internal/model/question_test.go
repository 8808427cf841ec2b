package model

import (
	"errors"
	"testing"
)

func options(n, correct int) []Option {
	opts := make([]Option, n)
	for i := range opts {
		opts[i] = Option{Text: "option"}
	}
	if correct >= 0 && correct < n {
		opts[correct].IsCorrect = true
	}
	return opts
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"two options one correct", options(2, 0), nil},
		{"six options one correct", options(6, 5), nil},
		{"one option", options(1, 0), ErrOptionCountOutOfRange},
		{"seven options", options(7, 0), ErrOptionCountOutOfRange},
		{"no correct option", options(4, -1), ErrNotExactlyOneCorrect},
		{
			"two correct options",
			[]Option{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}, {Text: "c"}},
			ErrNotExactlyOneCorrect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Question{Text: "q", Options: tt.opts}
			if err := q.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCorrectIndex(t *testing.T) {
	q := Question{Options: options(4, 2)}
	if got := q.CorrectIndex(); got != 2 {
		t.Errorf("CorrectIndex = %d, want 2", got)
	}

	malformed := Question{Options: options(3, -1)}
	if got := malformed.CorrectIndex(); got != -1 {
		t.Errorf("CorrectIndex = %d, want -1 for malformed question", got)
	}
}

func TestForStudentStripsCorrectness(t *testing.T) {
	q := Question{
		Text:     "What is 2+2?",
		Category: "arithmetic",
		Options: []Option{
			{Text: "3"},
			{Text: "4", IsCorrect: true},
			{Text: "5"},
		},
	}

	s := q.ForStudent()
	if s.Text != q.Text || s.Category != q.Category {
		t.Error("text or category not carried over")
	}
	if len(s.Options) != 3 {
		t.Fatalf("options = %d, want 3", len(s.Options))
	}
	for i, opt := range s.Options {
		if opt != q.Options[i].Text {
			t.Errorf("option %d = %q, want %q", i, opt, q.Options[i].Text)
		}
	}
}
