package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nakulbh/sanka/internal/observability"
	"github.com/nakulbh/sanka/internal/protocol"
)

// Config sets the per-connection relay behavior.
type Config struct {
	SilenceWindow   time.Duration
	RestartAfterTTS time.Duration
	AutoReply       bool
	Voices          []string
	Recipient       string
}

// Relay is the per-connection voice state machine. It owns at most one
// recognition stream at a time, emits interim transcripts as they arrive and
// finalizes an utterance either on a recognizer-reported final or after the
// silence window passes with no new interim.
//
// HandleMessage is called from the connection read loop; results and timers
// arrive on their own goroutines, so all state is guarded by mu.
type Relay struct {
	recognizer Recognizer
	synth      Synthesizer
	cfg        Config
	emit       func(any)
	metrics    *observability.Metrics

	mu          sync.Mutex
	stream      RecognitionStream
	gen         int
	timer       *time.Timer
	timerSeq    int
	lastInterim string
	closed      bool
}

func NewRelay(recognizer Recognizer, synth Synthesizer, cfg Config, emit func(any), metrics *observability.Metrics) *Relay {
	if cfg.SilenceWindow <= 0 {
		cfg.SilenceWindow = 1500 * time.Millisecond
	}
	if cfg.RestartAfterTTS <= 0 {
		cfg.RestartAfterTTS = 500 * time.Millisecond
	}
	return &Relay{
		recognizer: recognizer,
		synth:      synth,
		cfg:        cfg,
		emit:       emit,
		metrics:    metrics,
	}
}

// HandleMessage processes one inbound voice-path message. Unknown events are
// echoed back so clients can probe the connection.
func (r *Relay) HandleMessage(ctx context.Context, req protocol.VoiceRequest) {
	r.count(string(req.Event))

	switch req.Event {
	case protocol.VoiceEventStart:
		r.start(ctx)
	case protocol.VoiceEventAudio:
		r.feed(ctx, req)
	case protocol.VoiceEventStop:
		r.stop()
	case protocol.VoiceEventTTS:
		r.speak(ctx, req.Text)
	default:
		r.emit(protocol.EchoEvent{EchoServer: req.Raw()})
	}
}

// start opens a fresh recognition stream, closing any previous one first.
func (r *Relay) start(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	prev := r.detachLocked()
	r.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	stream, err := r.recognizer.Start(ctx)
	if err != nil {
		log.Printf("recognition start failed: %v", err)
		r.emit(protocol.VoiceErrorEvent{Error: "stt_error", Message: err.Error()})
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = stream.Close()
		return
	}
	r.gen++
	r.stream = stream
	r.lastInterim = ""
	gen := r.gen
	r.mu.Unlock()

	go r.readResults(ctx, stream, gen)
}

func (r *Relay) feed(ctx context.Context, req protocol.VoiceRequest) {
	r.mu.Lock()
	stream := r.stream
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}

	if stream == nil {
		r.start(ctx)
		r.mu.Lock()
		stream = r.stream
		r.mu.Unlock()
		if stream == nil {
			return
		}
	}

	audio, err := req.DecodeAudio()
	if err != nil {
		log.Printf("audio payload rejected: %v", err)
		return
	}
	if len(audio) == 0 {
		return
	}

	if err := stream.Write(ctx, audio); err != nil {
		log.Printf("recognition write failed: %v", err)
		r.mu.Lock()
		if r.stream == stream {
			r.detachLocked()
		}
		r.mu.Unlock()
		_ = stream.Close()
	}
}

// stop closes the active stream and clears pending timers. Safe to call any
// number of times, including with no stream active.
func (r *Relay) stop() {
	r.mu.Lock()
	prev := r.detachLocked()
	r.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
}

// Close shuts the relay down for good. Called on connection close.
func (r *Relay) Close() {
	r.mu.Lock()
	r.closed = true
	prev := r.detachLocked()
	r.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
}

// detachLocked invalidates the current stream and any pending silence timer
// and returns the stream for the caller to close outside the lock.
func (r *Relay) detachLocked() RecognitionStream {
	r.gen++
	r.timerSeq++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	prev := r.stream
	r.stream = nil
	r.lastInterim = ""
	return prev
}

func (r *Relay) readResults(ctx context.Context, stream RecognitionStream, gen int) {
	for res := range stream.Results() {
		r.onResult(ctx, gen, res)
	}
	if err := stream.Err(); err != nil {
		r.mu.Lock()
		stale := gen != r.gen || r.closed
		if !stale {
			r.detachLocked()
		}
		r.mu.Unlock()
		if !stale {
			log.Printf("recognition stream error: %v", err)
			r.emit(protocol.VoiceErrorEvent{Error: "stt_error", Message: err.Error()})
		}
	}
}

func (r *Relay) onResult(ctx context.Context, gen int, res Result) {
	transcript := strings.TrimSpace(res.Transcript)
	if transcript == "" {
		return
	}

	r.mu.Lock()
	if gen != r.gen || r.closed {
		r.mu.Unlock()
		return
	}

	r.emit(protocol.TranscriptEvent{Transcript: transcript, IsFinal: res.Final})
	r.lastInterim = transcript

	if res.Final {
		r.timerSeq++
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}
		r.mu.Unlock()
		r.finalize(ctx, transcript)
		return
	}

	r.timerSeq++
	seq := r.timerSeq
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.cfg.SilenceWindow, func() {
		r.onSilence(ctx, gen, seq)
	})
	r.mu.Unlock()
}

func (r *Relay) onSilence(ctx context.Context, gen, seq int) {
	r.mu.Lock()
	if gen != r.gen || seq != r.timerSeq || r.closed {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	transcript := r.lastInterim
	r.mu.Unlock()

	log.Printf("silence window elapsed, finalizing %q", transcript)
	r.finalize(ctx, transcript)
}

// finalize commits one utterance. In auto-reply mode it also synthesizes the
// canned reply and restarts recognition after the cooldown, because synthesis
// and recognition must not overlap on the audio channel.
func (r *Relay) finalize(ctx context.Context, transcript string) {
	r.emit(protocol.FinalEvent{Final: transcript})
	r.count("final")

	if !r.cfg.AutoReply {
		return
	}

	reply := r.replyFor(transcript)
	audio, voice, err := SynthesizeWithFallback(ctx, r.synth, r.cfg.Voices, reply)
	if err != nil {
		log.Printf("auto reply synthesis failed: %v", err)
		r.emit(protocol.VoiceErrorEvent{Error: "auto_tts_failed", Message: err.Error()})
	} else {
		log.Printf("auto reply synthesized with voice %q", voice)
		r.emit(protocol.AudioEvent{Audio: audio, Text: reply})
	}

	time.AfterFunc(r.cfg.RestartAfterTTS, func() {
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if !closed {
			r.start(ctx)
		}
	})
}

// speak handles an explicit tts request, independent of recognition state.
func (r *Relay) speak(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		r.emit(protocol.VoiceErrorEvent{Error: "invalid_tts_text"})
		return
	}

	audio, voice, err := SynthesizeWithFallback(ctx, r.synth, r.cfg.Voices, text)
	if err != nil {
		var synthErr *SynthesisError
		if errors.As(err, &synthErr) {
			log.Printf("tts exhausted %d voices: %v", len(synthErr.Voices), synthErr.Last)
		}
		r.emit(protocol.VoiceErrorEvent{Error: "tts_failed", Message: err.Error()})
		return
	}
	log.Printf("tts synthesized with voice %q", voice)
	r.emit(protocol.AudioEvent{Audio: audio, Text: text})
}

func (r *Relay) replyFor(transcript string) string {
	return fmt.Sprintf("done %s, have a look. I generated a TODO app for you based on: %q", r.cfg.Recipient, transcript)
}

func (r *Relay) count(event string) {
	if r.metrics == nil {
		return
	}
	r.metrics.VoiceEvents.WithLabelValues(event).Inc()
}
