package models

import "time"

// FeedbackEntry is one submitter's opinion about one idea. At most one entry
// exists per (idea, fingerprint); resubmissions overwrite it in place.
type FeedbackEntry struct {
	Fingerprint string    `bson:"fingerprint" json:"fingerprint"`
	Rating      *int      `bson:"rating,omitempty" json:"rating,omitempty"`
	Comment     string    `bson:"comment,omitempty" json:"comment,omitempty"`
	Implemented bool      `bson:"implemented" json:"implemented"`
	SubmittedAt time.Time `bson:"submitted_at" json:"submitted_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// Aggregate is the derived summary over an idea's feedback entries.
// It is never stored; ComputeAggregate rebuilds it from the entry set.
type Aggregate struct {
	EntryCount       int      `json:"feedback_count"`
	AverageRating    *float64 `json:"avg_rating"`
	ImplementedCount int      `json:"implemented_count"`
}

func ComputeAggregate(entries []FeedbackEntry) Aggregate {
	agg := Aggregate{EntryCount: len(entries)}

	sum, rated := 0, 0
	for _, e := range entries {
		if e.Rating != nil {
			sum += *e.Rating
			rated++
		}
		if e.Implemented {
			agg.ImplementedCount++
		}
	}
	if rated > 0 {
		avg := float64(sum) / float64(rated)
		agg.AverageRating = &avg
	}
	return agg
}
