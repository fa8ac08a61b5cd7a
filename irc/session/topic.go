package session

import "time"

// Topic is the topic of one channel. Text, UpdatedBy and UpdatedAt only
// change together.
type Topic struct {
	Text      string
	UpdatedBy string
	UpdatedAt time.Time
}

// Set replaces the topic text
func (t *Topic) Set(text, by string, at time.Time) {
	t.Text = text
	t.UpdatedBy = by
	t.UpdatedAt = at
}

// Unset clears the topic text, keeping who cleared it and when
func (t *Topic) Unset(by string, at time.Time) {
	t.Set("", by, at)
}

// IsEmpty reports whether no topic is set
func (t *Topic) IsEmpty() bool {
	return t.Text == ""
}
