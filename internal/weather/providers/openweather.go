package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/current-weather/internal/weather"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBaseURL is the OpenWeatherMap API host.
	DefaultBaseURL     = "https://api.openweathermap.org"
	currentWeatherPath = "/data/2.5/weather"
)

var (
	errEmptyBody    = errors.New("empty response body")
	errNullBody     = errors.New("null response body")
	errTrailingData = errors.New("unexpected data after response body")
)

// OpenWeatherClient fetches current weather by city name from OpenWeatherMap.
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker BreakerConfig
	circuit *gobreaker.CircuitBreaker
}

// Option customizes an OpenWeatherClient.
type Option func(*OpenWeatherClient)

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(c *OpenWeatherClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithBreaker(cfg BreakerConfig) Option {
	return func(c *OpenWeatherClient) {
		c.breaker = cfg
	}
}

// NewOpenWeatherClient builds a client on top of the given transport. The
// same *http.Client is meant to be shared by every caller in the process.
func NewOpenWeatherClient(client *http.Client, apiKey string, opts ...Option) *OpenWeatherClient {
	c := &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		client:  client,
		breaker: DefaultBreakerConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.circuit = newCircuitBreaker(c.Name(), c.breaker)
	return c
}

// Name identifies the upstream in breaker logs.
func (c *OpenWeatherClient) Name() string {
	return "openweathermap"
}

// FetchWeather issues a single GET for city and decodes the response.
// Callers are expected to reject an empty city before calling.
func (c *OpenWeatherClient) FetchWeather(ctx context.Context, city string) (weather.WeatherRecord, error) {
	if c.apiKey == "" {
		return weather.WeatherRecord{}, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("appid", c.apiKey)
	values.Set("q", city)

	u := fmt.Sprintf("%s%s?%s", c.baseURL, currentWeatherPath, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return weather.WeatherRecord{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := doRequest(ctx, c.client, c.circuit, req)
	if err != nil {
		return weather.WeatherRecord{}, err
	}
	defer resp.Body.Close()

	rec, err := decodeRecord(resp.Body)
	if err != nil {
		return weather.WeatherRecord{}, &weather.DecodeError{Err: err}
	}
	return *rec, nil
}

// decodeRecord requires the body to hold exactly one JSON object.
func decodeRecord(r io.Reader) (*weather.WeatherRecord, error) {
	dec := json.NewDecoder(r)

	var rec *weather.WeatherRecord
	if err := dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyBody
		}
		return nil, err
	}
	if rec == nil {
		return nil, errNullBody
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return rec, nil
}
