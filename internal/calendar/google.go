package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Google Calendar colour ids; keeps the two modalities visually distinct
// for staff working directly in the calendar UI.
const (
	colorPresencial = "9"  // blueberry
	colorOnline     = "10" // basil
)

// GoogleGateway mirrors reservations into a Google Calendar. Every call is
// bounded by a timeout and retried once on failure; anything that still
// fails surfaces as ErrCalendarUnavailable.
type GoogleGateway struct {
	svc        *gcal.Service
	calendarID string
	timeout    time.Duration
	retries    int
	delay      time.Duration
	log        zerolog.Logger
}

type GoogleConfig struct {
	CalendarID      string
	CredentialsJSON []byte
	Timeout         time.Duration // default 8s
	Retries         int           // default 1
	RetryDelay      time.Duration // default 300ms
}

func NewGoogleGateway(ctx context.Context, cfg GoogleConfig, log zerolog.Logger) (*GoogleGateway, error) {
	if cfg.CalendarID == "" {
		return nil, errors.New("calendar id is required")
	}

	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON(cfg.CredentialsJSON),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 300 * time.Millisecond
	}

	return &GoogleGateway{
		svc:        svc,
		calendarID: cfg.CalendarID,
		timeout:    cfg.Timeout,
		retries:    cfg.Retries,
		delay:      cfg.RetryDelay,
		log:        log,
	}, nil
}

// ListEvents fetches every event overlapping the civil dates from..to in
// one windowed query.
func (g *GoogleGateway) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	windowStart, windowEnd := DayWindow(from, to)

	var items []*gcal.Event
	err := g.withRetry(ctx, func(ctx context.Context) error {
		items = items[:0]
		pageToken := ""
		for {
			call := g.svc.Events.List(g.calendarID).
				TimeMin(windowStart.Format(time.RFC3339)).
				TimeMax(windowEnd.Format(time.RFC3339)).
				SingleEvents(true).
				OrderBy("startTime").
				MaxResults(2500).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			res, err := call.Do()
			if err != nil {
				return err
			}
			items = append(items, res.Items...)

			if res.NextPageToken == "" {
				return nil
			}
			pageToken = res.NextPageToken
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrCalendarUnavailable, err)
	}

	events := make([]Event, 0, len(items))
	for _, item := range items {
		ev, ok := toEvent(item)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// InsertEvent creates the mirror event for a reservation and returns its id.
func (g *GoogleGateway) InsertEvent(ctx context.Context, details EventDetails) (string, error) {
	start, err := SlotStart(details.Date, details.TimeSlot)
	if err != nil {
		return "", err
	}
	duration := details.DurationMinutes
	if duration <= 0 {
		duration = 60
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	color := colorPresencial
	if details.Modality == "online" {
		color = colorOnline
	}

	event := &gcal.Event{
		Summary:     fmt.Sprintf("Consulta (%s): %s", details.Modality, details.Name),
		Description: RenderDescription(details),
		ColorId:     color,
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: TimeZoneName,
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: TimeZoneName,
		},
	}

	var created *gcal.Event
	err = g.withRetry(ctx, func(ctx context.Context) error {
		var err error
		created, err = g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: insert event: %v", ErrCalendarUnavailable, err)
	}

	return created.Id, nil
}

// DeleteEvent removes a mirror event. A 404/410 means the event is already
// gone, which is what the caller wanted.
func (g *GoogleGateway) DeleteEvent(ctx context.Context, eventID string) error {
	err := g.withRetry(ctx, func(ctx context.Context) error {
		err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
		if isGone(err) {
			g.log.Debug().Str("event_id", eventID).Msg("calendar event already deleted")
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: delete event: %v", ErrCalendarUnavailable, err)
	}
	return nil
}

func (g *GoogleGateway) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.delay):
			}
			g.log.Warn().Err(lastErr).Int("attempt", attempt).Msg("retrying calendar call")
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if isGone(err) || !retryable(err) {
			return err
		}
	}
	return lastErr
}

func toEvent(item *gcal.Event) (Event, bool) {
	if item == nil || item.Start == nil {
		return Event{}, false
	}

	start, err := parseEventTime(item.Start)
	if err != nil {
		return Event{}, false
	}
	var end time.Time
	if item.End != nil {
		if t, err := parseEventTime(item.End); err == nil {
			end = t
		}
	}

	return Event{
		ID:          item.Id,
		Start:       start,
		End:         end,
		Summary:     item.Summary,
		Description: item.Description,
	}, true
}

func parseEventTime(edt *gcal.EventDateTime) (time.Time, error) {
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	// All-day events carry a bare date; pin it to the clinic zone.
	return time.ParseInLocation("2006-01-02", edt.Date, Location())
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		// Rate limiting and server-side failures are worth one more try;
		// 4xx responses are not going to change.
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	// Transport-level failure.
	return true
}
