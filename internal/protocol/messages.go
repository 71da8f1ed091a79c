package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CommandRequest is one inbound message on the command pipeline path.
// Tokens ride along with the command so remote clients can be built per call.
type CommandRequest struct {
	Command     string `json:"command"`
	GitHubToken string `json:"github_token,omitempty"`
	VercelToken string `json:"vercel_token,omitempty"`
}

// BotPayload is the body of every outbound pipeline event.
type BotPayload struct {
	Message string `json:"mess"`
	Zip     string `json:"zip,omitempty"`
	Link    string `json:"link,omitempty"`
}

// BotEvent wraps a payload in the envelope the web client expects.
type BotEvent struct {
	Bot BotPayload `json:"bot"`
}

func BotMessage(mess string) BotEvent {
	return BotEvent{Bot: BotPayload{Message: mess}}
}

func BotError(err error) BotEvent {
	return BotEvent{Bot: BotPayload{Message: "Error: " + err.Error()}}
}

var ErrEmptyCommand = errors.New("empty command")

// ParseCommandRequest decodes and validates one command-path message.
func ParseCommandRequest(raw []byte) (CommandRequest, error) {
	var req CommandRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return CommandRequest{}, fmt.Errorf("invalid command message: %w", err)
	}
	if strings.TrimSpace(req.Command) == "" {
		return CommandRequest{}, ErrEmptyCommand
	}
	return req, nil
}

// VoiceEventName identifies voice-path inbound message kinds.
type VoiceEventName string

const (
	VoiceEventStart VoiceEventName = "start"
	VoiceEventAudio VoiceEventName = "audio"
	VoiceEventStop  VoiceEventName = "stop"
	VoiceEventTTS   VoiceEventName = "tts"
)

// VoiceRequest is one inbound message on the voice relay path. Audio is kept
// raw because clients send it either as a base64 string or a byte-value array.
type VoiceRequest struct {
	Event VoiceEventName  `json:"event"`
	Audio json.RawMessage `json:"audio,omitempty"`
	Text  string          `json:"text,omitempty"`

	raw map[string]any
}

// ParseVoiceRequest decodes one voice-path message. Unknown events are kept so
// the relay can echo them back.
func ParseVoiceRequest(raw []byte) (VoiceRequest, error) {
	var req VoiceRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return VoiceRequest{}, fmt.Errorf("invalid voice message: %w", err)
	}
	_ = json.Unmarshal(raw, &req.raw)
	return req, nil
}

// Raw returns the full decoded message for echo responses.
func (r VoiceRequest) Raw() map[string]any { return r.raw }

var ErrUnsupportedAudio = errors.New("unsupported audio payload format")

// DecodeAudio normalizes the audio payload to raw bytes. Accepted encodings:
// base64 string, array of byte values, or nothing.
func (r VoiceRequest) DecodeAudio() ([]byte, error) {
	if len(r.Audio) == 0 {
		return nil, nil
	}

	var b64 string
	if err := json.Unmarshal(r.Audio, &b64); err == nil {
		buf, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode base64 audio: %w", err)
		}
		return buf, nil
	}

	var values []int
	if err := json.Unmarshal(r.Audio, &values); err == nil {
		buf := make([]byte, len(values))
		for i, v := range values {
			buf[i] = byte(v)
		}
		return buf, nil
	}

	return nil, ErrUnsupportedAudio
}

// Voice-path outbound events.

type TranscriptEvent struct {
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"isFinal"`
}

type FinalEvent struct {
	Final string `json:"final"`
}

type AudioEvent struct {
	Audio string `json:"audio"`
	Text  string `json:"text"`
}

type VoiceErrorEvent struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type EchoEvent struct {
	EchoServer map[string]any `json:"echo_server"`
}
