package survey

import "errors"

var (
	// ErrNoQuestions is returned when a panel is built from an empty set.
	ErrNoQuestions = errors.New("survey has no questions")
	// ErrIncomplete is returned by Submit while any question is unanswered.
	ErrIncomplete = errors.New("survey has unanswered questions")
)

// Key is a navigation key event fed into the panel. The "Other" text field
// handles Escape on its own (relinquishing focus) and never forwards it here.
type Key string

const (
	KeyUp    Key = "up"
	KeyDown  Key = "down"
	KeyLeft  Key = "left"
	KeyRight Key = "right"
	KeySpace Key = "space"
	KeyEnter Key = "enter"
	KeyTab   Key = "tab"
)

// Panel collects answers for one AskUserQuestion invocation. It shows one
// question at a time, tracks which option is keyboard-focused, and only
// releases a finalized Answers record once every question is answered.
// The focus order per question is the fixed options followed by a trailing
// "Other" slot.
type Panel struct {
	questions []Question
	current   int
	focused   int
	answers   []Answer
}

// NewPanel builds the working state for a validated question set.
func NewPanel(questions []Question) (*Panel, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return &Panel{
		questions: append([]Question(nil), questions...),
		answers:   make([]Answer, len(questions)),
	}, nil
}

// Questions returns the question set backing the panel.
func (p *Panel) Questions() []Question {
	return append([]Question(nil), p.questions...)
}

// CurrentIndex returns the displayed question index.
func (p *Panel) CurrentIndex() int { return p.current }

// FocusedOption returns the keyboard-focused slot within the current
// question; the value len(options) denotes the trailing "Other" slot.
func (p *Panel) FocusedOption() int { return p.focused }

// Answers returns a copy of the per-question working answers.
func (p *Panel) Answers() []Answer {
	return append([]Answer(nil), p.answers...)
}

// Answered reports whether question i has a non-empty answer.
func (p *Panel) Answered(i int) bool {
	if i < 0 || i >= len(p.answers) {
		return false
	}
	return !p.answers[i].Empty()
}

// AllAnswered reports whether every question has a non-empty answer.
func (p *Panel) AllAnswered() bool {
	for i := range p.answers {
		if p.answers[i].Empty() {
			return false
		}
	}
	return true
}

// SetCurrent switches the displayed question (tab click) and resets focus.
func (p *Panel) SetCurrent(i int) {
	if i < 0 || i >= len(p.questions) {
		return
	}
	p.current = i
	p.focused = 0
}

// SelectOption applies a pointer click on a fixed option of question q. For
// single-select questions the chosen label replaces the whole answer,
// discarding any prior "Other" text; for multi-select it toggles the label
// and leaves a coexisting "Other" entry untouched.
func (p *Panel) SelectOption(q, opt int) {
	if q < 0 || q >= len(p.questions) {
		return
	}
	question := p.questions[q]
	if opt < 0 || opt >= len(question.Options) {
		return
	}
	label := question.Options[opt].Label
	answer := &p.answers[q]
	if question.MultiSelect {
		answer.toggleLabel(label)
		return
	}
	*answer = Answer{Labels: []string{label}}
}

// ToggleOther applies a pointer click on the "Other" slot of question q.
func (p *Panel) ToggleOther(q int) {
	if q < 0 || q >= len(p.questions) {
		return
	}
	answer := &p.answers[q]
	if p.questions[q].MultiSelect {
		if answer.HasCustom {
			answer.HasCustom = false
			answer.Custom = ""
		} else {
			answer.HasCustom = true
		}
		return
	}
	*answer = Answer{HasCustom: true, Custom: answer.Custom}
}

// SetOtherText edits the free text of the "Other" entry for question q.
// Editing selects the entry without re-toggling it; in multi-select an empty
// text removes the entry again.
func (p *Panel) SetOtherText(q int, text string) {
	if q < 0 || q >= len(p.questions) {
		return
	}
	answer := &p.answers[q]
	if p.questions[q].MultiSelect {
		if text == "" {
			answer.HasCustom = false
			answer.Custom = ""
			return
		}
		answer.HasCustom = true
		answer.Custom = text
		return
	}
	*answer = Answer{HasCustom: true, Custom: text}
}

// HandleKey advances the panel state for one key event. It returns true when
// the event requests submission and every question is answered; the caller
// then collects the record via Submit.
func (p *Panel) HandleKey(key Key) bool {
	question := p.questions[p.current]
	// Fixed options plus the trailing "Other" slot.
	totalSlots := len(question.Options) + 1

	switch key {
	case KeyUp:
		p.focused = (p.focused - 1 + totalSlots) % totalSlots
	case KeyDown:
		p.focused = (p.focused + 1) % totalSlots
	case KeyLeft:
		if len(p.questions) > 1 {
			p.current = (p.current - 1 + len(p.questions)) % len(p.questions)
			p.focused = 0
		}
	case KeyRight:
		if len(p.questions) > 1 {
			p.current = (p.current + 1) % len(p.questions)
			p.focused = 0
		}
	case KeySpace:
		p.activateFocused()
	case KeyEnter:
		if p.AllAnswered() {
			return true
		}
		p.activateFocused()
	case KeyTab:
		if p.AllAnswered() {
			return true
		}
		for i := 0; i < len(p.questions); i++ {
			next := (p.current + 1 + i) % len(p.questions)
			if !p.Answered(next) {
				p.current = next
				p.focused = 0
				break
			}
		}
	}
	return false
}

func (p *Panel) activateFocused() {
	if p.focused < len(p.questions[p.current].Options) {
		p.SelectOption(p.current, p.focused)
		return
	}
	p.ToggleOther(p.current)
}

// Submit flattens the working answers into the finalized record. Custom
// entries are emitted as their raw text. The caller discards the panel after
// a successful submit.
func (p *Panel) Submit() (Answers, error) {
	if !p.AllAnswered() {
		return nil, ErrIncomplete
	}
	record := make(Answers, len(p.questions))
	for i, q := range p.questions {
		record[AnswerKey(i)] = p.answers[i].flatten(q.MultiSelect)
	}
	return record, nil
}
