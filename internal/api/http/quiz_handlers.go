package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-progress/internal/attempt"
	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/grading"
	"github.com/mind-engage/mindengage-progress/internal/logger"
)

type AttemptService interface {
	StartAttempt(ctx context.Context, quizID, userID int64) (attempt.Started, error)
	StartInfo(ctx context.Context, quizID, userID int64) (attempt.StartInfo, error)
	SubmitAttempt(ctx context.Context, sub attempt.Submission, userID int64) (attempt.Result, error)
	ListMine(ctx context.Context, quizID, userID int64) ([]course.QuizAttempt, error)
}

type AnalyticsService interface {
	Recompute(ctx context.Context, quizID int64) (course.QuizAnalytics, error)
}

// POST /quizzes/{quizID}/attempts
func StartAttemptHandler(svc AttemptService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, err := parseID("quizID", chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		out, err := svc.StartAttempt(r.Context(), quizID, auth.UserFromContext(r.Context()))
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, out)
	}
}

// GET /quizzes/{quizID}/start-info
func StartInfoHandler(svc AttemptService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, err := parseID("quizID", chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		info, err := svc.StartInfo(r.Context(), quizID, auth.UserFromContext(r.Context()))
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		respondJSON(w, http.StatusOK, info)
	}
}

type submitReq struct {
	Answers []grading.Answer `json:"answers"`
	QuizID  numericID        `json:"quizId" validate:"gte=0"`
}

// POST /attempts/{attemptID}/submit  { answers: [{question, answer}], quizId? }
func SubmitAttemptHandler(svc AttemptService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReq
		if err := decodeBody(r, &req); err != nil {
			respondError(w, log, r, err)
			return
		}
		res, err := svc.SubmitAttempt(r.Context(), attempt.Submission{
			AttemptID: chi.URLParam(r, "attemptID"),
			Answers:   req.Answers,
			QuizID:    int64(req.QuizID),
		}, auth.UserFromContext(r.Context()))
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"score":  res.Score,
			"passed": res.Passed,
		})
	}
}

type attemptSummary struct {
	ID            int64                `json:"id"`
	AttemptNumber int                  `json:"attemptNumber"`
	Status        course.AttemptStatus `json:"status"`
	Score         int                  `json:"score"`
	Passed        bool                 `json:"passed"`
	StartedAt     time.Time            `json:"startedAt"`
	CompletedAt   *time.Time           `json:"completedAt,omitempty"`
	TimeSpent     int64                `json:"timeSpent"`
}

// GET /quizzes/{quizID}/attempts
func ListMyAttemptsHandler(svc AttemptService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, err := parseID("quizID", chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		list, err := svc.ListMine(r.Context(), quizID, auth.UserFromContext(r.Context()))
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		out := make([]attemptSummary, 0, len(list))
		for _, a := range list {
			out = append(out, attemptSummary{
				ID:            a.ID,
				AttemptNumber: a.AttemptNumber,
				Status:        a.Status,
				Score:         a.Scoring.Score,
				Passed:        a.Scoring.Passed,
				StartedAt:     a.StartedAt,
				CompletedAt:   a.CompletedAt,
				TimeSpent:     a.TimeSpent,
			})
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// POST /quizzes/{quizID}/analytics/recompute
func RecomputeAnalyticsHandler(svc AnalyticsService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, err := parseID("quizID", chi.URLParam(r, "quizID"))
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		a, err := svc.Recompute(r.Context(), quizID)
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}
