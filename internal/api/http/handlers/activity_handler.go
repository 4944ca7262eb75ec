package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/angocine/internal/api/dto"
	"github.com/spec-kit/angocine/internal/domain"
	"github.com/spec-kit/angocine/internal/service"
)

// ActivityHandler serves profile-scoped watch history and analytics.
type ActivityHandler struct {
	activity *service.ActivityService
}

// NewActivityHandler constructs handler.
func NewActivityHandler(activity *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// History handles GET /api/user/history/:profileId.
func (h *ActivityHandler) History(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}

	page, err := h.activity.History(c.UserContext(), id, c.Params("profileId"), queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		return err
	}
	items := page.Items
	if items == nil {
		items = []domain.WatchEntry{}
	}
	return ok(c, fiber.StatusOK, "Watch history retrieved successfully", fiber.Map{
		"history": items,
		"pagination": dto.Pagination{
			Total: page.Total,
			Page:  page.Page,
			Limit: page.Limit,
			Pages: page.Pages(),
		},
	})
}

// RecordWatch handles POST /api/user/history/:profileId/:movieId.
func (h *ActivityHandler) RecordWatch(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	var req dto.WatchProgressRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	entry, err := h.activity.RecordWatch(c.UserContext(), id, domain.WatchUpdate{
		ProfileID: c.Params("profileId"),
		MovieID:   c.Params("movieId"),
		WatchTime: req.WatchTime,
		Completed: req.Completed,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Watch history updated successfully", entry)
}

// Events handles GET /api/analytics/profiles/:profileId/events.
func (h *ActivityHandler) Events(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}

	events, err := h.activity.Events(c.UserContext(), id, c.Params("profileId"), queryInt(c, "limit", 0))
	if err != nil {
		return err
	}
	if events == nil {
		events = []domain.AnalyticsEvent{}
	}
	return ok(c, fiber.StatusOK, "Analytics events retrieved successfully", events)
}

// RecordEvent handles POST /api/analytics/event.
func (h *ActivityHandler) RecordEvent(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	var req dto.RecordEventRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	event, err := h.activity.RecordEvent(c.UserContext(), id, domain.NewAnalyticsEvent{
		ProfileID: req.ProfileID,
		MovieID:   req.MovieID,
		EventType: req.EventType,
		EventData: req.EventData,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Event recorded successfully", event)
}

// Activity handles GET /api/analytics/activity/:profileId.
func (h *ActivityHandler) Activity(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}

	items, err := h.activity.Activity(c.UserContext(), id, c.Params("profileId"))
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.ActivityItem{}
	}
	return ok(c, fiber.StatusOK, "Activity retrieved successfully", fiber.Map{"activity": items})
}

// WatchTime handles GET /api/analytics/watch-time/:profileId.
func (h *ActivityHandler) WatchTime(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}

	stats, err := h.activity.WatchTime(c.UserContext(), id, c.Params("profileId"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Watch time statistics retrieved successfully", stats)
}
