package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/current-weather/internal/weather"
)

const keepAliveInterval = 15 * time.Second

// eventsHandler streams one "state" server-sent event per transition.
// A slow client only ever sees the newest pending state. The stream ends
// when the client goes away or the holder is closed.
func eventsHandler(holder StateHolder, keepAlive time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		events := make(chan weather.FetchState, 1)
		unsubscribe := holder.Subscribe(func(s weather.FetchState) {
			for {
				select {
				case events <- s:
					return
				default:
				}
				select {
				case <-events:
				default:
				}
			}
		})

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer unsubscribe()

			fmt.Fprint(w, ": connected\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			if st, ok := holder.Current(); ok {
				if err := writeEvent(w, "state", currentView(holder, st)); err != nil {
					return
				}
			}

			ticker := time.NewTicker(keepAlive)
			defer ticker.Stop()

			for {
				select {
				case <-holder.Done():
					return
				case st := <-events:
					if err := writeEvent(w, "state", currentView(holder, st)); err != nil {
						log.Printf("events: client gone: %v", err)
						return
					}
				case <-ticker.C:
					fmt.Fprint(w, ": keep-alive\n\n")
					if err := w.Flush(); err != nil {
						return
					}
				}
			}
		}))

		return nil
	}
}

func writeEvent(w *bufio.Writer, event string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", b)
	return w.Flush()
}
