package model

// EmptyContentPlaceholder replaces empty message content; several
// OpenAI-compatible backends reject messages whose content is "".
const EmptyContentPlaceholder = "(empty)"

// SanitizeMessages returns a copy of msgs in which empty content is replaced
// by EmptyContentPlaceholder. Assistant turns that carry tool calls are left
// untouched: providers send them with null content.
func SanitizeMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		if m.Content == "" && !(m.Role == "assistant" && len(m.ToolCalls) > 0) {
			m.Content = EmptyContentPlaceholder
		}
		out[i] = m
	}
	return out
}

// ClampMaxTokens guarantees a positive completion budget.
func ClampMaxTokens(n int64) int64 {
	if n < 1 {
		return 1
	}
	return n
}

// Resolve fills the zero fields of req from the given defaults.
func (r Request) Resolve(defaultModel string, maxTokens int64, temperature float64) Request {
	if r.Model == "" {
		r.Model = defaultModel
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = maxTokens
	}
	r.MaxTokens = ClampMaxTokens(r.MaxTokens)
	if r.Temperature == nil {
		t := temperature
		r.Temperature = &t
	}
	return r
}
