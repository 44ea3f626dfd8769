package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound       = errors.New("domain: not found")
	ErrInvalidPlan    = errors.New("domain: invalid plan")
	ErrInvalidPick    = errors.New("domain: invalid selector pick")
	ErrInvalidRequest = errors.New("domain: invalid request")
	ErrQuotaUnmet     = errors.New("domain: could not fill the requested quota under current constraints")
	ErrLeaseHeld      = errors.New("domain: a playlist planning/build is already in progress")
	ErrCooldown       = errors.New("domain: one MoodMix build per 24h")
	ErrDuplicateTrack = errors.New("domain: duplicate track")

	ErrPlannerUnavailable = errors.New("planner: model call failed")
)

// LeaseHeldError reports an unexpired plan-then-build lease for a user.
type LeaseHeldError struct {
	UserID       string
	PendingSince time.Time
	RetryAfter   time.Duration
}

func (e *LeaseHeldError) Error() string {
	return fmt.Sprintf("%s (retry after %ds)", ErrLeaseHeld.Error(), int(e.RetryAfter.Seconds()))
}

func (e *LeaseHeldError) Is(target error) bool {
	return target == ErrLeaseHeld
}

// CooldownError reports that the user built a playlist too recently.
type CooldownError struct {
	LastCreatedAt time.Time
	RetryAt       time.Time
	RetryAfter    time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s (retry after %ds)", ErrCooldown.Error(), int(e.RetryAfter.Seconds()))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// QuotaError carries the diagnostics of a preview that could not reach its length.
type QuotaError struct {
	Requested int
	Selected  int
	Debug     Debug
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: selected %d of %d", ErrQuotaUnmet.Error(), e.Selected, e.Requested)
}

func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaUnmet
}

// UpstreamError preserves the status and retry information of a failed call
// to an external service so callers can relay it verbatim.
type UpstreamError struct {
	Service    string
	Status     int
	RetryAfter string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Body)
}
