package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/current-weather/internal/weather"
)

type fakeStarter struct {
	mu     sync.Mutex
	cities []string
}

func (f *fakeStarter) StartFetch(city string) (weather.FetchState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cities = append(f.cities, city)
	return weather.LoadingState(city, "id", uint64(len(f.cities)), time.Now()), nil
}

func (f *fakeStarter) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cities...)
}

func TestSchedulerWithoutCityDoesNothing(t *testing.T) {
	f := &fakeStarter{}
	s := New("", time.Second, f)

	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, f.calls())
}

func TestSchedulerRefreshesImmediately(t *testing.T) {
	f := &fakeStarter{}
	s := New("Lisbon", time.Hour, f)

	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(f.calls()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Lisbon"}, f.calls())
}
