package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCommandRequest(t *testing.T) {
	req, err := ParseCommandRequest([]byte(`{"command":"deploy","vercel_token":"tok"}`))
	if err != nil {
		t.Fatalf("ParseCommandRequest() error = %v", err)
	}
	if req.Command != "deploy" || req.VercelToken != "tok" {
		t.Fatalf("ParseCommandRequest() = %+v, want command/token round trip", req)
	}
}

func TestParseCommandRequestRejectsEmptyCommand(t *testing.T) {
	if _, err := ParseCommandRequest([]byte(`{"command":"  "}`)); !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("ParseCommandRequest() error = %v, want ErrEmptyCommand", err)
	}
	if _, err := ParseCommandRequest([]byte(`not json`)); err == nil {
		t.Fatalf("ParseCommandRequest() expected error for malformed json")
	}
}

func TestDecodeAudioBase64String(t *testing.T) {
	req, err := ParseVoiceRequest([]byte(`{"event":"audio","audio":"aGVsbG8="}`))
	if err != nil {
		t.Fatalf("ParseVoiceRequest() error = %v", err)
	}
	buf, err := req.DecodeAudio()
	if err != nil {
		t.Fatalf("DecodeAudio() error = %v", err)
	}
	if !bytes.Equal(buf, []byte("hello")) {
		t.Fatalf("DecodeAudio() = %q, want %q", buf, "hello")
	}
}

func TestDecodeAudioNumberArray(t *testing.T) {
	req, err := ParseVoiceRequest([]byte(`{"event":"audio","audio":[104,105]}`))
	if err != nil {
		t.Fatalf("ParseVoiceRequest() error = %v", err)
	}
	buf, err := req.DecodeAudio()
	if err != nil {
		t.Fatalf("DecodeAudio() error = %v", err)
	}
	if !bytes.Equal(buf, []byte("hi")) {
		t.Fatalf("DecodeAudio() = %q, want %q", buf, "hi")
	}
}

func TestDecodeAudioRejectsUnknownShape(t *testing.T) {
	req, err := ParseVoiceRequest([]byte(`{"event":"audio","audio":{"chunk":1}}`))
	if err != nil {
		t.Fatalf("ParseVoiceRequest() error = %v", err)
	}
	if _, err := req.DecodeAudio(); !errors.Is(err, ErrUnsupportedAudio) {
		t.Fatalf("DecodeAudio() error = %v, want ErrUnsupportedAudio", err)
	}
}

func TestDecodeAudioMissingPayload(t *testing.T) {
	req, err := ParseVoiceRequest([]byte(`{"event":"audio"}`))
	if err != nil {
		t.Fatalf("ParseVoiceRequest() error = %v", err)
	}
	buf, err := req.DecodeAudio()
	if err != nil || buf != nil {
		t.Fatalf("DecodeAudio() = (%v, %v), want (nil, nil)", buf, err)
	}
}

func TestBotEventWireShape(t *testing.T) {
	raw, err := json.Marshal(BotEvent{Bot: BotPayload{Message: "ok", Link: "https://x"}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"bot":{"mess":"ok","link":"https://x"}}`
	if string(raw) != want {
		t.Fatalf("BotEvent json = %s, want %s", raw, want)
	}

	raw, _ = json.Marshal(BotError(errors.New("boom")))
	if string(raw) != `{"bot":{"mess":"Error: boom"}}` {
		t.Fatalf("BotError json = %s", raw)
	}
}

func TestVoiceRequestKeepsRawForEcho(t *testing.T) {
	req, err := ParseVoiceRequest([]byte(`{"event":"ping","n":1}`))
	if err != nil {
		t.Fatalf("ParseVoiceRequest() error = %v", err)
	}
	if req.Raw()["event"] != "ping" {
		t.Fatalf("Raw() = %v, want original message fields", req.Raw())
	}
}
