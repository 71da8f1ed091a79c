package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nakulbh/sanka/internal/observability"
)

// RemoteConfig points the provider at a realtime speech backend.
type RemoteConfig struct {
	APIKey      string
	WSBaseURL   string
	HTTPBaseURL string
	SampleRate  int
	Language    string
}

// RemoteProvider streams recognition over a websocket and synthesizes over
// plain HTTP.
type RemoteProvider struct {
	cfg     RemoteConfig
	client  *http.Client
	metrics *observability.Metrics
}

func NewRemoteProvider(cfg RemoteConfig, metrics *observability.Metrics) *RemoteProvider {
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://api.speechrelay.dev"
	}
	if strings.TrimSpace(cfg.HTTPBaseURL) == "" {
		cfg.HTTPBaseURL = "https://api.speechrelay.dev"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = "en-US"
	}
	return &RemoteProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		metrics: metrics,
	}
}

func (p *RemoteProvider) Start(ctx context.Context) (RecognitionStream, error) {
	u, err := url.Parse(strings.TrimRight(p.cfg.WSBaseURL, "/") + "/v1/speech-to-text/realtime")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("language", p.cfg.Language)
	q.Set("sample_rate", strconv.Itoa(p.cfg.SampleRate))
	q.Set("interim_results", "true")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+p.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		p.countError("stt_dial")
		return nil, fmt.Errorf("dial recognition websocket: %w", err)
	}

	s := &remoteStream{
		conn:       conn,
		sampleRate: p.cfg.SampleRate,
		results:    make(chan Result, 256),
	}
	go s.readLoop()
	return s, nil
}

func (p *RemoteProvider) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"input": map[string]any{"text": text},
		"voice": map[string]any{
			"language_code": p.cfg.Language,
			"name":          voice,
		},
		"audio_config": map[string]any{"audio_encoding": "MP3"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.HTTPBaseURL, "/")+"/v1/text:synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.countError("tts_request")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		p.countError("tts_" + strconv.Itoa(resp.StatusCode))
		return nil, fmt.Errorf("synthesize voice %q: status %d", voice, resp.StatusCode)
	}

	var out struct {
		AudioContent string `json:"audio_content"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode synthesis response: %w", err)
	}
	if out.AudioContent == "" {
		return nil, fmt.Errorf("synthesize voice %q: empty audio content", voice)
	}
	return base64.StdEncoding.DecodeString(out.AudioContent)
}

func (p *RemoteProvider) countError(code string) {
	if p.metrics == nil {
		return
	}
	p.metrics.ProviderErrors.WithLabelValues("speech", code).Inc()
}

type remoteStream struct {
	conn       *websocket.Conn
	sampleRate int

	writeMu   sync.Mutex
	closeOnce sync.Once
	results   chan Result

	errMu sync.Mutex
	err   error
}

func (s *remoteStream) Write(_ context.Context, audio []byte) error {
	payload := map[string]any{
		"message_type": "input_audio_chunk",
		"audio_base64": base64.StdEncoding.EncodeToString(audio),
		"sample_rate":  s.sampleRate,
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(payload)
}

func (s *remoteStream) Results() <-chan Result { return s.results }

func (s *remoteStream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close shuts the websocket down. The results channel stays open until
// readLoop drains out; only readLoop closes it, so a concurrent send can
// never hit a closed channel.
func (s *remoteStream) Close() error {
	var retErr error
	s.closeOnce.Do(func() {
		retErr = s.conn.Close()
	})
	return retErr
}

func (s *remoteStream) readLoop() {
	defer func() {
		s.closeOnce.Do(func() {
			_ = s.conn.Close()
		})
		close(s.results)
	}()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		switch asString(raw["message_type"]) {
		case "partial_transcript":
			s.results <- Result{Transcript: asString(raw["text"])}
		case "final_transcript":
			s.results <- Result{Transcript: asString(raw["text"]), Final: true}
		case "session_started":
			// control event, nothing to forward
		default:
			if msg := asString(raw["error"]); msg != "" {
				s.setErr(fmt.Errorf("recognition backend: %s", msg))
				return
			}
		}
	}
}

func (s *remoteStream) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
