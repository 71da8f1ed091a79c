package voice

import "context"

// Result is one recognition result from an active stream. Non-final results
// may be revised by later ones.
type Result struct {
	Transcript string
	Final      bool
}

// RecognitionStream is one live speech-to-text stream. Results is closed when
// the stream ends for any reason; Err reports the terminal error afterwards.
type RecognitionStream interface {
	Write(ctx context.Context, audio []byte) error
	Results() <-chan Result
	Err() error
	Close() error
}

// Recognizer opens streaming recognition sessions.
type Recognizer interface {
	Start(ctx context.Context) (RecognitionStream, error)
}

// Synthesizer renders text to audio bytes with one named voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice, text string) ([]byte, error)
}

// Provider bundles both speech directions behind one backend.
type Provider interface {
	Recognizer
	Synthesizer
}
