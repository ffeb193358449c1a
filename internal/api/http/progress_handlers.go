package http

import (
	"context"
	"net/http"

	"github.com/mind-engage/mindengage-progress/internal/apperr"
	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/logger"
	"github.com/mind-engage/mindengage-progress/internal/progress"
)

type ProgressService interface {
	GetProgress(ctx context.Context, userID, courseID int64) (progress.View, error)
	RecordLessonProgress(ctx context.Context, u progress.LessonUpdate) (progress.Summary, error)
}

// GET /progress?courseId=...
func GetProgressHandler(svc ProgressService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.UserFromContext(r.Context())
		if uid == 0 {
			respondError(w, log, r, apperr.Unauthorized("authentication required"))
			return
		}
		courseID, err := parseID("courseId", r.URL.Query().Get("courseId"))
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		v, err := svc.GetProgress(r.Context(), uid, courseID)
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

type lessonProgressReq struct {
	CourseID        numericID `json:"courseId" validate:"required,gt=0"`
	LessonID        numericID `json:"lessonId" validate:"required,gt=0"`
	IsCompleted     *bool     `json:"isCompleted"`
	Progress        *float64  `json:"progress" validate:"omitempty,gte=0,lte=100"`
	PositionSeconds *float64  `json:"positionSeconds" validate:"omitempty,gte=0"`
	DurationSeconds *float64  `json:"durationSeconds" validate:"omitempty,gte=0"`
}

// POST /progress  { courseId, lessonId, isCompleted, progress?, positionSeconds?, durationSeconds? }
func PostProgressHandler(svc ProgressService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.UserFromContext(r.Context())
		if uid == 0 {
			respondError(w, log, r, apperr.Unauthorized("authentication required"))
			return
		}
		var req lessonProgressReq
		if err := decodeBody(r, &req); err != nil {
			respondError(w, log, r, err)
			return
		}
		sum, err := svc.RecordLessonProgress(r.Context(), progress.LessonUpdate{
			UserID:          uid,
			CourseID:        int64(req.CourseID),
			LessonID:        int64(req.LessonID),
			IsCompleted:     req.IsCompleted,
			Progress:        req.Progress,
			PositionSeconds: req.PositionSeconds,
			DurationSeconds: req.DurationSeconds,
		})
		if err != nil {
			respondError(w, log, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"progress": sum,
		})
	}
}
