package httpapi

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsStreamsStateTransitions(t *testing.T) {
	env := newTestEnv(t)
	env.app.Get("/test/events", eventsHandler(env.holder, 20*time.Millisecond))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.ShutdownWithTimeout(time.Second) })

	resp, err := http.Get("http://" + ln.Addr().String() + "/test/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	timer := time.AfterFunc(5*time.Second, func() { resp.Body.Close() })
	defer timer.Stop()

	_, err = env.holder.StartFetch("London")
	require.NoError(t, err)

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		events = append(events, line)
		if strings.Contains(line, `"status":"success"`) {
			break
		}
	}

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Contains(t, last, `"status":"success"`)
	assert.Contains(t, last, `"name":"London"`)
}

func TestEventsStreamEndsWhenHolderCloses(t *testing.T) {
	env := newTestEnv(t)
	env.app.Get("/test/events", eventsHandler(env.holder, time.Hour))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.ShutdownWithTimeout(time.Second) })

	resp, err := http.Get("http://" + ln.Addr().String() + "/test/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	env.holder.Close()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.Discard, reader)
		done <- err
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream still open after holder closed")
	}
}
