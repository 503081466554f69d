package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/current-weather/internal/weather"
)

const londonBody = `{"coord":{"lon":-0.1257,"lat":51.5085},` +
	`"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}],` +
	`"base":"stations",` +
	`"main":{"temp":300.0,"feels_like":301.2,"temp_min":298.0,"temp_max":302.0,"pressure":1012,"humidity":40,"sea_level":1012,"grnd_level":1008},` +
	`"visibility":10000,"wind":{"speed":4.12,"deg":250},"clouds":{"all":0},"dt":1718186400,` +
	`"sys":{"type":2,"id":2075535,"country":"GB","sunrise":1718163800,"sunset":1718223400},` +
	`"timezone":3600,"id":2643743,"name":"London","cod":200}`

// mockEndpoint serves body with status and counts the requests it sees.
type mockEndpoint struct {
	*httptest.Server
	hits    atomic.Int32
	lastURL atomic.Value
}

func newMockEndpoint(t *testing.T, status int, body string) *mockEndpoint {
	t.Helper()
	m := &mockEndpoint{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.hits.Add(1)
		m.lastURL.Store(r.URL)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(m.Close)
	return m
}

func newTestClient(m *mockEndpoint, opts ...Option) *OpenWeatherClient {
	opts = append([]Option{WithBaseURL(m.URL)}, opts...)
	return NewOpenWeatherClient(m.Client(), "test-key", opts...)
}

func TestFetchWeatherSuccess(t *testing.T) {
	m := newMockEndpoint(t, http.StatusOK, londonBody)
	c := newTestClient(m)

	rec, err := c.FetchWeather(context.Background(), "London")
	require.NoError(t, err)

	assert.Equal(t, "London", rec.Name)
	assert.Equal(t, "GB", rec.Sys.Country)
	assert.Equal(t, 300.0, rec.Main.Temp)
	assert.Equal(t, 298.0, rec.Main.TempMin)
	assert.Equal(t, 302.0, rec.Main.TempMax)
	assert.Equal(t, 40.0, rec.Main.Humidity)
	assert.Equal(t, 1012.0, rec.Main.Pressure)
	assert.Equal(t, 1012.0, rec.Main.SeaLevel)
	assert.Equal(t, 1008.0, rec.Main.GrndLevel)
	assert.Equal(t, 4.12, rec.Wind.Speed)
	assert.Equal(t, 250.0, rec.Wind.Deg)
	assert.Equal(t, 3600, rec.Timezone)
	assert.Equal(t, 10000, rec.Visibility)
	assert.Equal(t, weather.ConditionClear, rec.PrimaryCondition())
	assert.Equal(t, "01d", rec.Icon())
	assert.Equal(t, 200, rec.Cod.Int())

	require.Equal(t, int32(1), m.hits.Load())
	u := m.lastURL.Load().(*url.URL)
	assert.Equal(t, "/data/2.5/weather", u.Path)
	assert.Equal(t, "test-key", u.Query().Get("appid"))
	assert.Equal(t, "London", u.Query().Get("q"))
}

func TestFetchWeatherIsDeterministic(t *testing.T) {
	m := newMockEndpoint(t, http.StatusOK, londonBody)
	c := newTestClient(m)

	first, err := c.FetchWeather(context.Background(), "London")
	require.NoError(t, err)
	second, err := c.FetchWeather(context.Background(), "London")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), m.hits.Load())
}

func TestFetchWeatherNon2xx(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"cod":"404","message":"city not found"}`, message: "city not found"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"cod":401,"message":"Invalid API key"}`, message: "Invalid API key"},
		{name: "server error", status: http.StatusBadGateway, body: `<html>bad gateway</html>`},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockEndpoint(t, tt.status, tt.body)
			c := newTestClient(m)

			_, err := c.FetchWeather(context.Background(), "Atlantis")
			require.Error(t, err)
			assert.NotEmpty(t, err.Error())

			var httpErr *weather.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.message, httpErr.Message)
			assert.Equal(t, int32(1), m.hits.Load(), "no retries")
		})
	}
}

func TestFetchWeatherMalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"truncated":  `{"name":"London","main":{"temp":`,
		"wrong type": `{"name":"London","main":"hot"}`,
		"array":      `[1,2,3]`,
		"empty":      ``,
		"null":       `null`,
		"whitespace": "  \n ",
		"trailing":   `{"name":"London","main":{"temp":300}} garbage`,
		"two values": `{"name":"London"}{"name":"Paris"}`,
	} {
		t.Run(name, func(t *testing.T) {
			m := newMockEndpoint(t, http.StatusOK, body)
			c := newTestClient(m)

			_, err := c.FetchWeather(context.Background(), "London")
			require.Error(t, err)

			var decodeErr *weather.DecodeError
			assert.True(t, errors.As(err, &decodeErr), "got %T: %v", err, err)
		})
	}
}

func TestFetchWeatherTransportError(t *testing.T) {
	m := newMockEndpoint(t, http.StatusOK, londonBody)
	c := newTestClient(m)
	m.Close()

	_, err := c.FetchWeather(context.Background(), "London")
	require.Error(t, err)

	var transportErr *weather.TransportError
	assert.True(t, errors.As(err, &transportErr), "got %T: %v", err, err)
}

func TestFetchWeatherHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewOpenWeatherClient(srv.Client(), "test-key", WithBaseURL(srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchWeather(ctx, "London")
	require.Error(t, err)
	assert.Equal(t, "transport", weather.ErrorKind(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	m := newMockEndpoint(t, http.StatusInternalServerError, `{"message":"internal"}`)
	c := newTestClient(m, WithBreaker(BreakerConfig{MaxConsecutiveFailures: 2, OpenTimeout: time.Minute}))

	for i := 0; i < 2; i++ {
		_, err := c.FetchWeather(context.Background(), "London")
		assert.Equal(t, "http", weather.ErrorKind(err))
	}

	_, err := c.FetchWeather(context.Background(), "London")
	require.Error(t, err)
	assert.Equal(t, "transport", weather.ErrorKind(err))
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, int32(2), m.hits.Load())
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	m := newMockEndpoint(t, http.StatusNotFound, `{"cod":"404","message":"city not found"}`)
	c := newTestClient(m, WithBreaker(BreakerConfig{MaxConsecutiveFailures: 1, OpenTimeout: time.Minute}))

	for i := 0; i < 3; i++ {
		_, err := c.FetchWeather(context.Background(), "Atlantis")
		assert.Equal(t, "http", weather.ErrorKind(err))
	}
	assert.Equal(t, int32(3), m.hits.Load())
}

func TestClientNamesItsBreaker(t *testing.T) {
	c := NewOpenWeatherClient(http.DefaultClient, "test-key")
	assert.Equal(t, "openweathermap", c.Name())
	assert.Equal(t, c.Name(), c.circuit.Name())
}

func TestFetchWeatherRequiresAPIKey(t *testing.T) {
	m := newMockEndpoint(t, http.StatusOK, londonBody)
	c := NewOpenWeatherClient(m.Client(), "", WithBaseURL(m.URL))

	_, err := c.FetchWeather(context.Background(), "London")
	require.Error(t, err)
	assert.Zero(t, m.hits.Load())
}

func TestFetchWeatherWithoutHTTPClient(t *testing.T) {
	c := NewOpenWeatherClient(nil, "test-key")

	_, err := c.FetchWeather(context.Background(), "London")
	assert.ErrorIs(t, err, errNoHTTPClient)
}
