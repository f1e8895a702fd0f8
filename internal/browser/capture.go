package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// stopTimeout bounds how long Destroy waits for the recorder's final chunk.
const stopTimeout = 10 * time.Second

// startRecorderJS records the media element named by opts.selector with a
// MediaRecorder and ships every chunk, base64 encoded, through the binding
// opts.binding. Chunks are delivered strictly in order, followed by {done: true}.
const startRecorderJS = `(opts) => {
	const el = document.querySelector(opts.selector);
	if (!el) {
		throw new Error('no media element matches ' + opts.selector);
	}
	const source = el.captureStream ? el.captureStream() : el.mozCaptureStream();
	const tracks = [];
	if (opts.audio) tracks.push(...source.getAudioTracks());
	if (opts.video) tracks.push(...source.getVideoTracks());

	const options = { mimeType: opts.mimeType };
	if (opts.audioBitsPerSecond > 0) options.audioBitsPerSecond = opts.audioBitsPerSecond;
	if (opts.videoBitsPerSecond > 0) options.videoBitsPerSecond = opts.videoBitsPerSecond;
	const recorder = new MediaRecorder(new MediaStream(tracks), options);

	const send = (msg) => window[opts.binding](JSON.stringify(msg));
	const toBase64 = (blob) => new Promise((resolve, reject) => {
		const reader = new FileReader();
		reader.onload = () => {
			const s = String(reader.result);
			const i = s.indexOf(';base64,');
			resolve(i < 0 ? '' : s.slice(i + 8));
		};
		reader.onerror = () => reject(reader.error);
		reader.readAsDataURL(blob);
	});

	let chain = Promise.resolve();
	recorder.ondataavailable = (e) => {
		if (!e.data || e.data.size === 0) return;
		chain = chain.then(() => toBase64(e.data)).then((chunk) => send({ chunk }));
	};
	recorder.onerror = (e) => {
		chain = chain.then(() => send({ error: String(e.error || e) }));
	};
	recorder.onstop = () => {
		chain = chain.then(() => send({ done: true }), (err) => send({ error: String(err) }));
	};

	window[opts.recorderKey] = recorder;
	recorder.start(opts.timeslice);
	return true;
}`

const stopRecorderJS = `(opts) => {
	const recorder = window[opts.recorderKey];
	if (recorder && recorder.state !== 'inactive') {
		recorder.stop();
	}
	return true;
}`

// recorderParams is the argument object of the recorder scripts.
type recorderParams struct {
	Binding            string `json:"binding"`
	RecorderKey        string `json:"recorderKey"`
	Selector           string `json:"selector"`
	Audio              bool   `json:"audio"`
	Video              bool   `json:"video"`
	MimeType           string `json:"mimeType"`
	AudioBitsPerSecond int    `json:"audioBitsPerSecond"`
	VideoBitsPerSecond int    `json:"videoBitsPerSecond"`
	Timeslice          int64  `json:"timeslice"`
}

func newRecorderParams(opts CaptureOptions) recorderParams {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	selector := opts.Selector
	if selector == "" {
		selector = "video"
	}
	return recorderParams{
		Binding:            "__vidscrapeChunk_" + id,
		RecorderKey:        "__vidscrapeRecorder_" + id,
		Selector:           selector,
		Audio:              opts.Audio,
		Video:              opts.Video,
		MimeType:           opts.MimeType,
		AudioBitsPerSecond: opts.AudioBitsPerSecond,
		VideoBitsPerSecond: opts.VideoBitsPerSecond,
		Timeslice:          opts.FrameSize.Milliseconds(),
	}
}

// invocation renders script applied to the params as a JS expression.
func (p recorderParams) invocation(script string) string {
	raw, _ := json.Marshal(p)
	return fmt.Sprintf("(%s)(%s)", script, raw)
}

// recorderMessage is one binding call from the page.
type recorderMessage struct {
	Chunk string `json:"chunk"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// recording turns binding calls into an ordered byte stream.
type recording struct {
	pr *io.PipeReader
	pw *io.PipeWriter

	done     chan struct{}
	doneOnce sync.Once

	// stop asks the page to stop its recorder; release detaches the binding.
	stop    func(ctx context.Context) error
	release func() error
}

func newRecording() *recording {
	pr, pw := io.Pipe()
	return &recording{pr: pr, pw: pw, done: make(chan struct{})}
}

func (r *recording) Read(p []byte) (int, error) {
	return r.pr.Read(p)
}

// handle consumes one binding payload. Writes block until the stream is read.
func (r *recording) handle(payload string) error {
	var msg recorderMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return fmt.Errorf("failed to decode recorder message: %w", err)
	}
	switch {
	case msg.Error != "":
		r.finish(fmt.Errorf("media recorder failed: %s", msg.Error))
	case msg.Done:
		r.finish(nil)
	case msg.Chunk != "":
		data, err := base64.StdEncoding.DecodeString(msg.Chunk)
		if err != nil {
			return fmt.Errorf("failed to decode recorder chunk: %w", err)
		}
		if _, err := r.pw.Write(data); err != nil {
			return fmt.Errorf("failed to write recorder chunk: %w", err)
		}
	}
	return nil
}

func (r *recording) finish(err error) {
	r.doneOnce.Do(func() {
		_ = r.pw.CloseWithError(err)
		close(r.done)
	})
}

// Destroy stops the recorder and waits until its final chunk has been read.
func (r *recording) Destroy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	var errs []error
	if r.stop != nil {
		if err := r.stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop recorder: %w", err))
			r.finish(err)
		}
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("recorder did not flush: %w", ctx.Err()))
		r.finish(ctx.Err())
	}

	if r.release != nil {
		if err := r.release(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release recorder binding: %w", err))
		}
	}
	return errors.Join(errs...)
}
