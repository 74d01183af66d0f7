package api

import (
	"net/http"

	"trafikskolan/internal/service"
)

type LessonTypeHandler struct {
	Schedule *service.ScheduleService
}

func NewLessonTypeHandler(schedule *service.ScheduleService) *LessonTypeHandler {
	return &LessonTypeHandler{Schedule: schedule}
}

// ListLessonTypes handles GET /lesson-types for the public booking page.
func (h *LessonTypeHandler) ListLessonTypes(w http.ResponseWriter, r *http.Request) {
	lessonTypes, err := h.Schedule.ListLessonTypes(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	type lessonTypeResponse struct {
		ID              int    `json:"id"`
		Name            string `json:"name"`
		DurationMinutes int    `json:"duration_minutes"`
		Price           int    `json:"price"`
	}
	responses := make([]lessonTypeResponse, 0, len(lessonTypes))
	for _, lt := range lessonTypes {
		responses = append(responses, lessonTypeResponse{
			ID:              lt.ID,
			Name:            lt.Name,
			DurationMinutes: lt.DurationMinutes,
			Price:           lt.Price,
		})
	}
	respond(w, http.StatusOK, responses)
}
