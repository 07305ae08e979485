package feedback

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MinRating = 1
	MaxRating = 5

	DefaultCommentMaxLength = 1000
)

// ErrInvalidSubmission is matched by every *ValidationError.
var ErrInvalidSubmission = errors.New("invalid submission")

// ValidationError names the offending field and why it was refused. The
// reason is safe to show to the submitter.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"message"`
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidSubmission }

// markupRe matches the start of an HTML/XML tag, comment or processing
// instruction. A bare "<" or ">" used as a comparison is allowed.
var markupRe = regexp.MustCompile(`<[A-Za-z!/?]`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("safetext", validateSafeText); err != nil {
		panic(fmt.Sprintf("feedback: register safetext validation: %v", err))
	}
	return v
}

// validateSafeText rejects invalid UTF-8, control characters other than
// newline, carriage return and tab, and anything that looks like markup.
func validateSafeText(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) || r == '\u2028' || r == '\u2029' {
			return false
		}
	}
	return !markupRe.MatchString(s)
}

// normalize trims the comment and validates the submission in place. Nothing
// is read from or written to the store before this passes.
func (a *Aggregator) normalize(s *Submission) error {
	if s.IdeaID == "" {
		return &ValidationError{Field: "idea_id", Reason: "is required"}
	}
	if s.Fingerprint == "" {
		return &ValidationError{Field: "fingerprint", Reason: "is required"}
	}
	if s.Rating == nil && s.Comment == nil && s.Implemented == nil {
		return &ValidationError{Field: "rating", Reason: "a rating, comment or implemented flag is required"}
	}

	if s.Rating != nil {
		tag := fmt.Sprintf("min=%d,max=%d", MinRating, MaxRating)
		if err := a.validate.Var(*s.Rating, tag); err != nil {
			return &ValidationError{Field: "rating", Reason: fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)}
		}
	}

	if s.Comment != nil {
		c := strings.TrimSpace(*s.Comment)
		if err := a.validate.Var(c, fmt.Sprintf("max=%d", a.commentMax)); err != nil {
			return &ValidationError{Field: "comment", Reason: fmt.Sprintf("must be at most %d characters", a.commentMax)}
		}
		if err := a.validate.Var(c, "safetext"); err != nil {
			return &ValidationError{Field: "comment", Reason: "contains control characters or markup"}
		}
		s.Comment = &c
	}
	return nil
}
