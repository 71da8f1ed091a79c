package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
)

// SynthesisError reports that every configured voice failed.
type SynthesisError struct {
	Voices []string
	Last   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("all %d synthesis voices failed, last error: %v", len(e.Voices), e.Last)
}

func (e *SynthesisError) Unwrap() error { return e.Last }

// SynthesizeWithFallback tries the voices in priority order and returns the
// base64 audio from the first that succeeds, together with the voice used.
func SynthesizeWithFallback(ctx context.Context, s Synthesizer, voices []string, text string) (string, string, error) {
	var lastErr error
	for _, voice := range voices {
		audio, err := s.Synthesize(ctx, voice, text)
		if err != nil {
			log.Printf("synthesis voice %q failed: %v", voice, err)
			lastErr = err
			continue
		}
		return base64.StdEncoding.EncodeToString(audio), voice, nil
	}
	return "", "", &SynthesisError{Voices: voices, Last: lastErr}
}
