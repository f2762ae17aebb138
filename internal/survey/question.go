package survey

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Bounds declared by the AskUserQuestion tool contract.
const (
	MinQuestions = 1
	MaxQuestions = 4
	MinOptions   = 2
	MaxOptions   = 4
	MaxHeaderLen = 12
)

// Option is a single fixed choice offered by a question.
type Option struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Question is one entry of an AskUserQuestion invocation.
type Question struct {
	Question    string   `json:"question"`
	Header      string   `json:"header"`
	Options     []Option `json:"options"`
	MultiSelect bool     `json:"multiSelect"`
}

// rawQuestion mirrors Question with a pointer multiSelect so a missing field
// can be told apart from an explicit false: the contract has no implicit
// default and the model must always supply it.
type rawQuestion struct {
	Question    string   `json:"question"`
	Header      string   `json:"header"`
	Options     []Option `json:"options"`
	MultiSelect *bool    `json:"multiSelect"`
}

// ParseQuestions decodes and validates the JSON arguments of an
// AskUserQuestion tool invocation.
func ParseQuestions(arguments string) ([]Question, error) {
	var payload struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(arguments), &payload); err != nil {
		return nil, fmt.Errorf("decode AskUserQuestion arguments: %w", err)
	}

	if n := len(payload.Questions); n < MinQuestions || n > MaxQuestions {
		return nil, fmt.Errorf("expected %d-%d questions, got %d", MinQuestions, MaxQuestions, n)
	}

	questions := make([]Question, 0, len(payload.Questions))
	for i, raw := range payload.Questions {
		if raw.Question == "" {
			return nil, fmt.Errorf("question %d: empty question text", i)
		}
		if raw.Header == "" {
			return nil, fmt.Errorf("question %d: empty header", i)
		}
		if utf8.RuneCountInString(raw.Header) > MaxHeaderLen {
			return nil, fmt.Errorf("question %d: header %q exceeds %d characters", i, raw.Header, MaxHeaderLen)
		}
		if n := len(raw.Options); n < MinOptions || n > MaxOptions {
			return nil, fmt.Errorf("question %d: expected %d-%d options, got %d", i, MinOptions, MaxOptions, n)
		}
		for j, opt := range raw.Options {
			if opt.Label == "" {
				return nil, fmt.Errorf("question %d option %d: empty label", i, j)
			}
		}
		if raw.MultiSelect == nil {
			return nil, fmt.Errorf("question %d: multiSelect is required", i)
		}
		questions = append(questions, Question{
			Question:    raw.Question,
			Header:      raw.Header,
			Options:     raw.Options,
			MultiSelect: *raw.MultiSelect,
		})
	}
	return questions, nil
}

// AnswerKey returns the synthetic per-question key used in an Answers record.
func AnswerKey(index int) string {
	return fmt.Sprintf("question_%d", index)
}

// ValidateAnswers checks a finalized Answers record against the question set:
// exactly one non-empty entry per question index, list values only for
// multi-select questions.
func ValidateAnswers(questions []Question, answers Answers) error {
	if len(answers) != len(questions) {
		return fmt.Errorf("expected %d answers, got %d", len(questions), len(answers))
	}
	for i, q := range questions {
		value, ok := answers[AnswerKey(i)]
		if !ok {
			return fmt.Errorf("missing answer for %s", AnswerKey(i))
		}
		switch v := value.(type) {
		case string:
			if v == "" {
				return fmt.Errorf("%s: empty answer", AnswerKey(i))
			}
		case []string:
			if len(v) == 0 {
				return fmt.Errorf("%s: empty answer list", AnswerKey(i))
			}
			if !q.MultiSelect {
				return fmt.Errorf("%s: list answer for single-select question", AnswerKey(i))
			}
		case []any:
			// JSON-decoded list from the REST submission path.
			if len(v) == 0 {
				return fmt.Errorf("%s: empty answer list", AnswerKey(i))
			}
			if !q.MultiSelect {
				return fmt.Errorf("%s: list answer for single-select question", AnswerKey(i))
			}
			for _, item := range v {
				s, ok := item.(string)
				if !ok || s == "" {
					return fmt.Errorf("%s: answer list entries must be non-empty strings", AnswerKey(i))
				}
			}
		default:
			return fmt.Errorf("%s: unsupported answer type %T", AnswerKey(i), value)
		}
	}
	return nil
}
