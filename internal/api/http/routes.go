package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/current-weather/internal/common"
	"github.com/i474232898/current-weather/internal/store"
	"github.com/i474232898/current-weather/internal/weather"
)

var validate = validator.New()

// StateHolder is the view of weather.Holder the HTTP layer needs.
type StateHolder interface {
	StartFetch(city string) (weather.FetchState, error)
	Current() (weather.FetchState, bool)
	LastSuccess() (weather.FetchState, bool)
	Subscribe(fn func(weather.FetchState)) (cancel func())
	Done() <-chan struct{}
}

// History serves previously fetched records.
type History interface {
	GetRange(city string, from, to time.Time) ([]weather.FetchedRecord, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, holder StateHolder, history History) {
	v1 := app.Group("/api/v1")

	v1.Post("/weather/fetch", func(c *fiber.Ctx) error {
		req, err := parseFetchRequest(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		st, err := holder.StartFetch(req.City)
		if err != nil {
			if errors.Is(err, weather.ErrEmptyCity) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(currentView(holder, st))
	})

	v1.Get("/weather/state", func(c *fiber.Ctx) error {
		st, ok := holder.Current()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no fetch has been started yet")
		}
		return c.JSON(currentView(holder, st))
	})

	v1.Get("/weather/events", eventsHandler(holder, keepAliveInterval))

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := history.GetRange(req.City, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		entries := make([]fiber.Map, 0, len(records))
		for _, r := range records {
			entries = append(entries, fiber.Map{
				"fetchedAt": r.FetchedAt,
				"weather":   newRecordView(r.Record),
			})
		}

		return c.JSON(fiber.Map{
			"city":    req.City,
			"from":    req.From,
			"to":      req.To,
			"records": entries,
		})
	})
}

func currentView(holder StateHolder, st weather.FetchState) stateView {
	last, ok := holder.LastSuccess()
	return newStateView(st, last, ok)
}

// fetchRequest is the body (or query) of a fetch request.
type fetchRequest struct {
	City string `json:"city" validate:"required"`
}

// parseFetchRequest rejects an empty city before any network call is made.
func parseFetchRequest(c *fiber.Ctx) (fetchRequest, error) {
	var req fetchRequest

	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return req, err
		}
	}
	if req.City == "" {
		req.City = c.Query("city")
	}
	req.City = common.NormalizeCity(req.City)

	if err := validate.Struct(req); err != nil {
		return req, err
	}

	return req, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	City string    `validate:"required"`
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

// bind reads city, from and to. Missing bounds default to the Unix epoch
// and now.
func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.City = common.NormalizeCity(c.Query("city"))
	h.From = time.Unix(0, 0).UTC()
	h.To = time.Now().UTC()

	if s := c.Query("from"); s != "" {
		from, err := parseTime(s)
		if err != nil {
			return err
		}
		h.From = from
	}
	if s := c.Query("to"); s != "" {
		to, err := parseTime(s)
		if err != nil {
			return err
		}
		h.To = to
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
