package survey

// Answers is the finalized record handed back to the conversation as the
// tool result: one entry per question keyed question_<index>, holding a
// single string or, for multi-select questions, a list of strings.
type Answers map[string]any

// Answer is the working state for one question while the panel is open.
// Chosen option labels and the free-text "Other" entry live in separate
// fields, so an option label can never collide with a marker prefix and
// toggling an option never disturbs the custom entry.
type Answer struct {
	Labels    []string `json:"labels,omitempty"`
	HasCustom bool     `json:"hasCustom,omitempty"`
	Custom    string   `json:"custom,omitempty"`
}

// Empty reports whether the question is still unanswered. An "Other" entry
// that is toggled open but has no text yet does not count as an answer.
func (a Answer) Empty() bool {
	return len(a.Labels) == 0 && (!a.HasCustom || a.Custom == "")
}

// toggleLabel flips the presence of an option label in a multi-select answer.
func (a *Answer) toggleLabel(label string) {
	for i, l := range a.Labels {
		if l == label {
			a.Labels = append(a.Labels[:i], a.Labels[i+1:]...)
			return
		}
	}
	a.Labels = append(a.Labels, label)
}

// flatten renders the answer into its Answers-record value. The custom entry
// is emitted last as raw text, mirroring the on-screen order (options first,
// "Other" at the bottom).
func (a Answer) flatten(multiSelect bool) any {
	if !multiSelect {
		if a.HasCustom && a.Custom != "" {
			return a.Custom
		}
		if len(a.Labels) > 0 {
			return a.Labels[0]
		}
		return ""
	}
	values := append([]string(nil), a.Labels...)
	if a.HasCustom && a.Custom != "" {
		values = append(values, a.Custom)
	}
	return values
}
