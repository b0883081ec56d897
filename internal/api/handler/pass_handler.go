package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/corepass/hallpass/internal/api/metrics"
	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
	"github.com/corepass/hallpass/internal/core/service"
)

const streamHeartbeat = 15 * time.Second

// PassHandler handles HTTP requests for the signed-in user's passes.
//
// A live query and a submission flow both hold per-caller state, so a fresh
// one is built for every stream and every submission.
type PassHandler struct {
	reader   ports.PassReader
	newFlow  func() *service.SubmissionFlow
	newQuery func() *service.PassQueryService
	log      zerolog.Logger
	now      func() time.Time
}

func NewPassHandler(reader ports.PassReader, newFlow func() *service.SubmissionFlow, newQuery func() *service.PassQueryService, log zerolog.Logger) *PassHandler {
	return &PassHandler{
		reader:   reader,
		newFlow:  newFlow,
		newQuery: newQuery,
		log:      log,
		now:      time.Now,
	}
}

// List returns the caller's passes split into active, requested and past.
//
// @Summary      List passes
// @Tags         passes
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  bucketsResponse
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/passes [get]
func (h *PassHandler) List(c echo.Context) error {
	buckets, err := h.reader.Snapshot(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBucketsResponse(buckets, h.now()))
}

// Submit requests a new pass.
//
// @Summary      Request a pass
// @Tags         passes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      submitPassRequest  true  "Rooms and duration"
// @Success      201   {object}  submitPassResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/passes [post]
func (h *PassHandler) Submit(c echo.Context) error {
	var req submitPassRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.PassSubmissionsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	ctx := c.Request().Context()
	flow := h.newFlow()
	if err := flow.LoadRooms(ctx); err != nil {
		metrics.PassSubmissionsTotal.WithLabelValues("error").Inc()
		return err
	}
	flow.SetFrom(req.FromRoom)
	flow.SetTo(req.ToRoom)
	if req.Duration != nil {
		flow.SetDuration(req.Duration)
	}

	if err := flow.Submit(ctx); err != nil {
		metrics.PassSubmissionsTotal.WithLabelValues(submitOutcome(err)).Inc()
		return err
	}

	metrics.PassSubmissionsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, submitPassResponse{Message: flow.Message()})
}

func submitOutcome(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotSignedIn):
		return "unauthenticated"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, domain.ErrSubmissionInFlight):
		return "busy"
	default:
		return "error"
	}
}

// End stops a running pass.
//
// @Summary      End a pass
// @Tags         passes
// @Security     BearerAuth
// @Param        id   path  string  true  "Pass ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/passes/{id}/end [post]
func (h *PassHandler) End(c echo.Context) error {
	if err := h.reader.EndPass(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, domain.ErrPassNotFound) {
			metrics.PassesEndedTotal.WithLabelValues("not_found").Inc()
		} else {
			metrics.PassesEndedTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	metrics.PassesEndedTotal.WithLabelValues("ended").Inc()
	return c.NoContent(http.StatusNoContent)
}

// Progress returns the countdown of one pass at server time.
//
// @Summary      Pass countdown
// @Tags         passes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Pass ID"
// @Success      200  {object}  passResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/passes/{id}/progress [get]
func (h *PassHandler) Progress(c echo.Context) error {
	p, err := h.reader.Find(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	resp := toPassResponse(*p)
	resp.Progress = toProgressResponse(p.Progress(h.now()))
	return c.JSON(http.StatusOK, resp)
}

// Stream pushes the classified passes as server-sent events: one "passes"
// event on connect and one after every change. A read failure is sent as an
// "error" event and ends the stream.
//
// @Summary      Live passes
// @Tags         passes
// @Security     BearerAuth
// @Produce      text/event-stream
// @Success      200  {object}  bucketsResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/passes/stream [get]
func (h *PassHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()

	// Only the newest snapshot matters to a slow client.
	updates := make(chan []domain.Pass, 1)
	failures := make(chan error, 1)
	onChange := func(ps []domain.Pass) {
		select {
		case <-updates:
		default:
		}
		updates <- ps
	}
	onError := func(err error) {
		select {
		case failures <- err:
		default:
		}
	}

	query := h.newQuery()
	sub, err := query.Subscribe(ctx, onChange, onError)
	if err != nil {
		return err
	}
	defer query.Unsubscribe(sub)

	metrics.LiveSubscriptions.Inc()
	defer metrics.LiveSubscriptions.Dec()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ps := <-updates:
			if err := writeEvent(res, "passes", toBucketsResponse(domain.Classify(ps), h.now())); err != nil {
				h.log.Debug().Err(err).Str("subscription", sub.ID()).Msg("stream write failed")
				return nil
			}
		case err := <-failures:
			h.log.Warn().Err(err).Str("subscription", sub.ID()).Msg("live pass query failed")
			_ = writeEvent(res, "error", errorResponse{Error: "store unavailable, reconnect to retry"})
			return nil
		}
	}
}

func writeEvent(res *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
