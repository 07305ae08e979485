package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"ideas-feedback/internal/feedback"
	"ideas-feedback/internal/metrics"
	"ideas-feedback/internal/middleware"
	"ideas-feedback/internal/models"
	"ideas-feedback/internal/notify"
	"ideas-feedback/internal/repository"
	"ideas-feedback/internal/token"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	previewRunes   = 150
	maxRequestBody = 16 << 10
)

// IdeaReader is the read side of the idea store used to render previews.
type IdeaReader interface {
	GetIdea(ctx context.Context, id string) (*models.Idea, error)
}

type FeedbackHandler struct {
	codec      *token.Codec
	ideas      IdeaReader
	aggregator *feedback.Aggregator
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	log        zerolog.Logger

	fingerprintSalt string
	trustProxy      bool
}

type FeedbackDeps struct {
	Codec           *token.Codec
	Ideas           IdeaReader
	Aggregator      *feedback.Aggregator
	Notifier        notify.Notifier
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger
	FingerprintSalt string
	TrustProxy      bool
}

func NewFeedbackHandler(d FeedbackDeps) *FeedbackHandler {
	return &FeedbackHandler{
		codec:           d.Codec,
		ideas:           d.Ideas,
		aggregator:      d.Aggregator,
		notifier:        d.Notifier,
		metrics:         d.Metrics,
		log:             d.Logger,
		fingerprintSalt: d.FingerprintSalt,
		trustProxy:      d.TrustProxy,
	}
}

// --- Request / Response types ---

type SubmitFeedbackRequest struct {
	Token       string  `json:"token"`
	Rating      *int    `json:"rating"`
	Comment     *string `json:"comment"`
	Implemented *bool   `json:"implemented"`
}

type IdeaPreviewResponse struct {
	IdeaID           string   `json:"idea_id"`
	Category         string   `json:"category"`
	Preview          string   `json:"preview"`
	FeedbackCount    int      `json:"feedback_count"`
	AvgRating        *float64 `json:"avg_rating"`
	ImplementedCount int      `json:"implemented_count"`
}

type SubmitFeedbackResponse struct {
	Status           string   `json:"status"`
	Message          string   `json:"message"`
	FeedbackCount    int      `json:"feedback_count"`
	AvgRating        *float64 `json:"avg_rating"`
	ImplementedCount int      `json:"implemented_count"`
}

// --- GET /feedback/{token} ---

func (h *FeedbackHandler) ShowIdea(w http.ResponseWriter, r *http.Request) {
	ideaID, ok := h.verify(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}

	idea, err := h.ideas.GetIdea(r.Context(), ideaID)
	if err != nil {
		h.writeStoreError(w, ideaID, err)
		return
	}

	agg, err := h.aggregator.GetAggregate(r.Context(), ideaID)
	if err != nil {
		h.writeStoreError(w, ideaID, err)
		return
	}

	writeJSON(w, http.StatusOK, IdeaPreviewResponse{
		IdeaID:           idea.ID,
		Category:         idea.Category,
		Preview:          idea.Preview(previewRunes),
		FeedbackCount:    agg.EntryCount,
		AvgRating:        roundRating(agg.AverageRating),
		ImplementedCount: agg.ImplementedCount,
	})
}

// --- POST /api/feedback ---

func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	ideaID, ok := h.verify(w, req.Token)
	if !ok {
		return
	}

	fp := feedback.Fingerprint(h.fingerprintSalt, middleware.ClientIP(r, h.trustProxy), r.UserAgent())
	res, err := h.aggregator.Submit(r.Context(), feedback.Submission{
		IdeaID:      ideaID,
		Fingerprint: fp,
		Rating:      req.Rating,
		Comment:     req.Comment,
		Implemented: req.Implemented,
	})
	if err != nil {
		var verr *feedback.ValidationError
		if errors.As(err, &verr) {
			h.countSubmission(metrics.OutcomeRejected)
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": verr.Error(),
				"field": verr.Field,
			})
			return
		}
		h.writeStoreError(w, ideaID, err)
		return
	}

	status, message, outcome := http.StatusCreated, "thank you for your feedback", metrics.OutcomeCreated
	if res.Resubmission {
		status, message, outcome = http.StatusOK, "feedback already submitted, updated", metrics.OutcomeUpdated
	}
	h.countSubmission(outcome)

	// Fire notification in a background goroutine (non-blocking)
	if h.notifier != nil {
		entry, resub := res.Entry, res.Resubmission
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			message := formatNotification(ideaID, entry, resub)
			if err := h.notifier.Publish(ctx, message); err != nil {
				h.log.Error().Err(err).Str("idea_id", ideaID).Msg("publishing notification failed")
			}
		}()
	}

	writeJSON(w, status, SubmitFeedbackResponse{
		Status:           "success",
		Message:          message,
		FeedbackCount:    res.Aggregate.EntryCount,
		AvgRating:        roundRating(res.Aggregate.AverageRating),
		ImplementedCount: res.Aggregate.ImplementedCount,
	})
}

// verify writes the rejection response itself and reports whether the
// caller may continue. Every rejection looks the same to the client.
func (h *FeedbackHandler) verify(w http.ResponseWriter, raw string) (string, bool) {
	ideaID, err := h.codec.Verify(raw)
	if err != nil {
		if h.metrics != nil {
			h.metrics.TokenRejections.WithLabelValues(rejectReason(err)).Inc()
		}
		writeJSON(w, http.StatusForbidden, map[string]string{"error": token.ErrInvalidToken.Error()})
		return "", false
	}
	return ideaID, true
}

func (h *FeedbackHandler) writeStoreError(w http.ResponseWriter, ideaID string, err error) {
	if errors.Is(err, repository.ErrIdeaNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "idea not found"})
		return
	}
	h.log.Error().Err(err).Str("idea_id", ideaID).Msg("feedback store failure")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func (h *FeedbackHandler) countSubmission(outcome string) {
	if h.metrics != nil {
		h.metrics.Submissions.WithLabelValues(outcome).Inc()
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}

func roundRating(avg *float64) *float64 {
	if avg == nil {
		return nil
	}
	v := math.Round(*avg*10) / 10
	return &v
}

func formatNotification(ideaID string, e models.FeedbackEntry, resubmission bool) string {
	title := "*New Feedback Received*"
	if resubmission {
		title = "*Feedback Updated*"
	}

	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString("Idea: `" + ideaID + "`\n")
	if e.Rating != nil {
		b.WriteString("Rating: " + strings.Repeat("⭐", *e.Rating) + "\n")
	}
	b.WriteString(fmt.Sprintf("Implemented: %t", e.Implemented))
	if e.Comment != "" {
		b.WriteString("\nComment: " + e.Comment)
	}
	return b.String()
}
