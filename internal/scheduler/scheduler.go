package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/current-weather/internal/weather"
)

// FetchStarter is the part of the state holder the scheduler drives.
type FetchStarter interface {
	StartFetch(city string) (weather.FetchState, error)
}

// Scheduler periodically refreshes the weather for one city.
type Scheduler struct {
	scheduler *gocron.Scheduler
	holder    FetchStarter
	city      string
	interval  time.Duration
}

// New creates a new Scheduler.
func New(city string, interval time.Duration, holder FetchStarter) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		holder:    holder,
		city:      city,
		interval:  interval,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if s.city == "" {
		log.Println("scheduler: no refresh city configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval < time.Second {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.refresh)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) refresh() {
	st, err := s.holder.StartFetch(s.city)
	if err != nil {
		log.Printf("scheduler: refresh for %q not started: %v", s.city, err)
		return
	}
	log.Printf("scheduler: refresh %d started for %q", st.Seq, s.city)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
