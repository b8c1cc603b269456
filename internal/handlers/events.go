package handlers

import (
	"net/http"

	"github.com/Pranavsr23/PetalPost/internal/capsule"
	"github.com/Pranavsr23/PetalPost/internal/models"
	"github.com/Pranavsr23/PetalPost/internal/reactor"
	"github.com/labstack/echo/v4"
)

// EventHandler receives note change events and scheduled job triggers as
// webhooks from the store's trigger infrastructure. There is no end-user
// caller behind these routes; a non-2xx response tells the invoker to
// redeliver.
type EventHandler struct {
	reactor *reactor.Reactor
	sweeper *capsule.Sweeper
}

func NewEventHandler(r *reactor.Reactor, s *capsule.Sweeper) *EventHandler {
	return &EventHandler{reactor: r, sweeper: s}
}

// RegisterEventRoutes registers webhook and job routes
func (h *EventHandler) RegisterEventRoutes(g *echo.Group) {
	g.POST("/events/note-created", h.NoteCreated)
	g.POST("/events/note-updated", h.NoteUpdated)
	g.POST("/jobs/time-capsule-sweep", h.TimeCapsuleSweep)
}

type noteCreatedRequest struct {
	SpaceID string       `json:"spaceId" validate:"required"`
	NoteID  string       `json:"noteId" validate:"required"`
	Note    *models.Note `json:"note" validate:"required"`
}

type noteUpdatedRequest struct {
	SpaceID string       `json:"spaceId" validate:"required"`
	NoteID  string       `json:"noteId" validate:"required"`
	Before  *models.Note `json:"before" validate:"required"`
	After   *models.Note `json:"after" validate:"required"`
}

// NoteCreated handles a note-created change event
func (h *EventHandler) NoteCreated(c echo.Context) error {
	var req noteCreatedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid event payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.reactor.OnNoteCreated(c.Request().Context(), reactor.NoteCreatedEvent{
		SpaceID: req.SpaceID,
		NoteID:  req.NoteID,
		Note:    *req.Note,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// NoteUpdated handles a note-updated change event
func (h *EventHandler) NoteUpdated(c echo.Context) error {
	var req noteUpdatedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid event payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.reactor.OnNoteUpdated(c.Request().Context(), reactor.NoteUpdatedEvent{
		SpaceID: req.SpaceID,
		NoteID:  req.NoteID,
		Before:  *req.Before,
		After:   *req.After,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// TimeCapsuleSweep runs one unlock sweep; the scheduler calls this every 15
// minutes with no body.
func (h *EventHandler) TimeCapsuleSweep(c echo.Context) error {
	if err := h.sweeper.Run(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
