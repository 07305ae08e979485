package models

import "time"

// Idea is one generated suggestion. Feedbacks is a sub-resource owned by the
// idea store; the feedback aggregator only touches it through the store.
type Idea struct {
	ID        string          `bson:"_id" json:"id"`
	Category  string          `bson:"category" json:"category"`
	Content   string          `bson:"content" json:"content"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	Feedbacks []FeedbackEntry `bson:"feedbacks" json:"feedbacks"`
}

// Preview returns the first n runes of the idea text, with an ellipsis when
// the text was cut.
func (i *Idea) Preview(n int) string {
	r := []rune(i.Content)
	if len(r) <= n {
		return i.Content
	}
	return string(r[:n]) + "..."
}
