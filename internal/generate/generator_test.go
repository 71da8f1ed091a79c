package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubCompleter struct {
	response string
	err      error
	lastUser string
}

func (s *stubCompleter) Complete(_ context.Context, _, user string) (string, error) {
	s.lastUser = user
	return s.response, s.err
}

func TestGenerateParsesPlainJSON(t *testing.T) {
	stub := &stubCompleter{response: `{"files":[{"path":"app/page.tsx","content":"export default function Page() {}"}]}`}
	g := New(stub)

	files, err := g.Generate(context.Background(), "todo")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(files) != 1 || files[0].Path != "app/page.tsx" {
		t.Fatalf("Generate() = %+v", files)
	}
	if files[0].Encoding != "utf-8" {
		t.Fatalf("Encoding = %q, want utf-8 default", files[0].Encoding)
	}
	if !strings.Contains(stub.lastUser, `"todo"`) {
		t.Fatalf("user prompt %q does not name the app", stub.lastUser)
	}
}

func TestGenerateStripsCodeFences(t *testing.T) {
	stub := &stubCompleter{response: "```json\n{\"files\":[{\"path\":\"components/nav.tsx\",\"content\":\"// nav\"}]}\n```"}
	g := New(stub)

	files, err := g.Generate(context.Background(), "blog")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(files) != 1 || files[0].Path != "components/nav.tsx" {
		t.Fatalf("Generate() = %+v", files)
	}
}

func TestGenerateExtractsEmbeddedObject(t *testing.T) {
	stub := &stubCompleter{response: `Here is your app: {"files":[{"path":"app/page.tsx","content":"x"}]} enjoy!`}
	g := New(stub)

	if _, err := g.Generate(context.Background(), "shop"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestGenerateFormatErrors(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"no object", "sorry, I cannot help with that"},
		{"files not array", `{"files":{"path":"a"}}`},
		{"files missing", `{"data":[]}`},
		{"files empty", `{"files":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(&stubCompleter{response: tc.response})
			_, err := g.Generate(context.Background(), "todo")
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("Generate() error = %v, want FormatError", err)
			}
		})
	}
}

func TestGenerateRejectsEscapingPath(t *testing.T) {
	g := New(&stubCompleter{response: `{"files":[{"path":"../evil.tsx","content":"x"}]}`})
	if _, err := g.Generate(context.Background(), "todo"); err == nil {
		t.Fatalf("Generate() expected error for escaping path")
	}
}

func TestGeneratePropagatesCompleterError(t *testing.T) {
	wantErr := errors.New("upstream down")
	g := New(&stubCompleter{err: wantErr})
	if _, err := g.Generate(context.Background(), "todo"); !errors.Is(err, wantErr) {
		t.Fatalf("Generate() error = %v, want wrapped upstream error", err)
	}
}
