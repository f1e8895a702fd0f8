package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(data string) string {
	return `{"chunk":"` + base64.StdEncoding.EncodeToString([]byte(data)) + `"}`
}

func TestRecordingStreamsChunksInOrder(t *testing.T) {
	r := newRecording()
	released := false
	r.stop = func(ctx context.Context) error {
		go func() { _ = r.handle(`{"done":true}`) }()
		return nil
	}
	r.release = func() error { released = true; return nil }

	go func() {
		for _, c := range []string{"one-", "two-", "three"} {
			_ = r.handle(chunk(c))
		}
	}()

	buf := make([]byte, len("one-two-three"))
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, "one-two-three", string(buf))

	require.NoError(t, r.Destroy(context.Background()))
	n, err := r.Read(make([]byte, 1))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, released)
}

func TestRecordingRecorderError(t *testing.T) {
	r := newRecording()
	require.NoError(t, r.handle(`{"error":"NotSupportedError"}`))

	_, err := io.ReadAll(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotSupportedError")
}

func TestRecordingBadPayload(t *testing.T) {
	r := newRecording()
	assert.Error(t, r.handle("not json"))
	assert.Error(t, r.handle(`{"chunk":"***"}`))
}

func TestDestroyStopFailure(t *testing.T) {
	r := newRecording()
	r.stop = func(ctx context.Context) error { return errors.New("page crashed") }

	err := r.Destroy(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page crashed")

	_, readErr := io.ReadAll(r)
	assert.Error(t, readErr)
}

func TestDestroyHonoursContext(t *testing.T) {
	r := newRecording()
	r.stop = func(ctx context.Context) error { return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Destroy(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecorderParams(t *testing.T) {
	p := newRecorderParams(CaptureOptions{
		Audio:              true,
		Video:              true,
		MimeType:           "video/webm;codecs=vp8,opus",
		AudioBitsPerSecond: 128000,
		VideoBitsPerSecond: 2500000,
		FrameSize:          20 * time.Millisecond,
	})
	assert.Equal(t, "video", p.Selector)
	assert.Equal(t, int64(20), p.Timeslice)
	assert.True(t, strings.HasPrefix(p.Binding, "__vidscrapeChunk_"))
	assert.NotEqual(t, newRecorderParams(CaptureOptions{}).Binding, p.Binding)

	expr := p.invocation("(p) => p")
	require.True(t, strings.HasPrefix(expr, "((p) => p)("))

	var decoded recorderParams
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(expr, "((p) => p)("), ")")), &decoded))
	assert.Equal(t, p, decoded)
}

func TestNewEngine(t *testing.T) {
	for name, want := range map[string]string{"": "rod", "rod": "rod", "ChromeDP": "chromedp"} {
		e, err := NewEngine(name)
		require.NoError(t, err)
		assert.Equal(t, want, e.Name())
	}

	_, err := NewEngine("playwright")
	assert.Error(t, err)
}
