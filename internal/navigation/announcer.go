package navigation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Announcement is a single spoken-instruction payload.
type Announcement struct {
	Text      string
	StepIndex int
	RouteID   string
}

// AnnouncerConfig holds configuration for the step announcer.
type AnnouncerConfig struct {
	// Logger for announcer operations.
	Logger zerolog.Logger

	// Buffer is the announcement channel capacity (default: 8). Announcements
	// to a full channel are dropped; narration is best-effort.
	Buffer int
}

// Announcer watches a progress subscription and emits a spoken instruction
// each time the current step changes. It is a read-only consumer: it never
// calls back into the tracker.
type Announcer struct {
	logger zerolog.Logger
	out    chan Announcement
}

// NewAnnouncer creates a new step announcer.
func NewAnnouncer(cfg AnnouncerConfig) *Announcer {
	buffer := cfg.Buffer
	if buffer == 0 {
		buffer = 8
	}

	return &Announcer{
		logger: cfg.Logger,
		out:    make(chan Announcement, buffer),
	}
}

// Announcements is the stream of spoken instructions.
func (a *Announcer) Announcements() <-chan Announcement {
	return a.out
}

// Run consumes progress updates until ctx is canceled or the subscription
// closes. An announcement is emitted on every step change and once on
// completion.
func (a *Announcer) Run(ctx context.Context, updates <-chan ProgressUpdate) {
	lastRoute := ""
	lastStep := -1

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			if update.RouteID != lastRoute {
				lastRoute = update.RouteID
				lastStep = -1
			}

			switch {
			case update.Completed:
				a.emit(Announcement{
					Text:      "You have arrived at your destination",
					StepIndex: update.StepIndex,
					RouteID:   update.RouteID,
				})
				lastStep = -1
				lastRoute = ""
			case update.StepIndex != lastStep && update.Step != nil:
				lastStep = update.StepIndex
				a.emit(Announcement{
					Text:      announceText(update),
					StepIndex: update.StepIndex,
					RouteID:   update.RouteID,
				})
			}
		}
	}
}

func (a *Announcer) emit(ann Announcement) {
	select {
	case a.out <- ann:
	default:
		a.logger.Debug().
			Str("route_id", ann.RouteID).
			Int("step_index", ann.StepIndex).
			Msg("announcement dropped, channel full")
	}
}

func announceText(update ProgressUpdate) string {
	if update.DistanceToNextTurnMeters >= 50 {
		return fmt.Sprintf("In %d meters, %s", roundToTens(update.DistanceToNextTurnMeters), lowerFirst(update.Step.Instruction))
	}
	return update.Step.Instruction
}

func roundToTens(meters float64) int {
	return int(meters/10+0.5) * 10
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
