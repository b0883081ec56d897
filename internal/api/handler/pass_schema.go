package handler

import (
	"time"

	"github.com/corepass/hallpass/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// --- Request / Response types ---

type submitPassRequest struct {
	FromRoom string `json:"from_room"`
	ToRoom   string `json:"to_room"`
	Duration *int   `json:"duration,omitempty" validate:"omitempty,oneof=5 10 15 20 30"`
}

type submitPassResponse struct {
	Message string `json:"message"`
}

type progressResponse struct {
	Fraction         float64 `json:"fraction"`
	Percent          int     `json:"percent"`
	RemainingMinutes int     `json:"remaining_minutes"`
	RemainingSeconds int     `json:"remaining_seconds"`
	Label            string  `json:"label"`
	Clock            string  `json:"clock"`
	Expired          bool    `json:"expired"`
}

type passResponse struct {
	ID           string            `json:"id"`
	FromRoom     string            `json:"from_room"`
	ToRoom       string            `json:"to_room"`
	CreatedAt    time.Time         `json:"created_at"`
	Approved     string            `json:"approved"`
	Status       string            `json:"status"`
	StartTime    *time.Time        `json:"start_time,omitempty"`
	DisplayStart time.Time         `json:"display_start"`
	Duration     *int              `json:"duration,omitempty"`
	Active       bool              `json:"active"`
	Progress     *progressResponse `json:"progress,omitempty"`
}

type bucketsResponse struct {
	Active    *passResponse  `json:"active"`
	Requested []passResponse `json:"requested"`
	Past      []passResponse `json:"past"`
	ServerNow time.Time      `json:"server_now"`
}

type roomsResponse struct {
	Rooms           []string `json:"rooms"`
	Durations       []int    `json:"durations"`
	DefaultDuration int      `json:"default_duration"`
}

// --- Mappers ---

func toProgressResponse(p domain.Progress) *progressResponse {
	return &progressResponse{
		Fraction:         p.Fraction,
		Percent:          p.Percent(),
		RemainingMinutes: p.RemainingMinutes,
		RemainingSeconds: p.RemainingSeconds,
		Label:            p.Label(),
		Clock:            p.Clock(),
		Expired:          p.Expired(),
	}
}

func toPassResponse(p domain.Pass) passResponse {
	return passResponse{
		ID:           p.ID,
		FromRoom:     p.FromRoom,
		ToRoom:       p.ToRoom,
		CreatedAt:    p.CreatedAt,
		Approved:     string(p.Approved),
		Status:       p.Approved.Display(),
		StartTime:    p.StartTime,
		DisplayStart: p.DisplayStart(),
		Duration:     p.Duration,
		Active:       p.Active,
	}
}

func toPassList(ps []domain.Pass) []passResponse {
	out := make([]passResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPassResponse(p))
	}
	return out
}

// toBucketsResponse renders the classified passes. Only the active pass
// carries a countdown.
func toBucketsResponse(b domain.Buckets, now time.Time) bucketsResponse {
	resp := bucketsResponse{
		Requested: toPassList(b.Requested),
		Past:      toPassList(b.Past),
		ServerNow: now.UTC(),
	}
	if b.Active != nil {
		active := toPassResponse(*b.Active)
		active.Progress = toProgressResponse(b.Active.Progress(now))
		resp.Active = &active
	}
	return resp
}
