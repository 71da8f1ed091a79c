package voice

import (
	"context"
	"testing"
	"time"
)

func TestMockStreamFullBufferNeverBlocksClose(t *testing.T) {
	provider := NewMockProvider()
	stream, err := provider.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := stream.Write(context.Background(), []byte{1}); err != nil {
				t.Errorf("Write() error = %v", err)
				return
			}
		}
		if err := stream.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("mock stream wedged with a full results buffer")
	}

	n := 0
	for range stream.Results() {
		n++
	}
	if n == 0 {
		t.Fatalf("no results buffered before close")
	}
}
