package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
)

type RoomHandler struct {
	submitter ports.PassSubmitter
}

func NewRoomHandler(submitter ports.PassSubmitter) *RoomHandler {
	return &RoomHandler{submitter: submitter}
}

// List returns the rooms a pass may name and the selectable durations.
//
// @Summary      List rooms
// @Tags         rooms
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  roomsResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/rooms [get]
func (h *RoomHandler) List(c echo.Context) error {
	rooms, err := h.submitter.ListRooms(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roomsResponse{
		Rooms:           rooms,
		Durations:       domain.DurationPresets,
		DefaultDuration: domain.DefaultDurationMinutes,
	})
}
