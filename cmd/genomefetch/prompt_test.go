package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestPromptConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "no", input: "n\n", want: false},
		{name: "no with spaces", input: "  n \n", want: false},
		{name: "yes", input: "y\n", want: true},
		{name: "empty line", input: "\n", want: true},
		{name: "eof", input: "", want: true},
		{name: "no without newline", input: "n", want: false},
		{name: "uppercase is not no", input: "N\n", want: true},
		{name: "word no is not no", input: "no\n", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			confirm := promptConfirm(strings.NewReader(tt.input), newConsole(&out, false))
			got, err := confirm(context.Background(), 3)
			if err != nil {
				t.Fatalf("confirm: %v", err)
			}
			if got != tt.want {
				t.Fatalf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.HasPrefix(out.String(), confirmQuestion) {
				t.Fatalf("expected question, got %q", out.String())
			}
		})
	}
}

type blockingReader struct{ release chan struct{} }

func (b blockingReader) Read([]byte) (int, error) {
	<-b.release
	return 0, nil
}

func TestPromptConfirmCanceled(t *testing.T) {
	r := blockingReader{release: make(chan struct{})}
	defer close(r.release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	ok, err := promptConfirm(r, newConsole(&out, false))(ctx, 1)
	if err == nil || ok {
		t.Fatalf("expected cancellation, got ok=%v err=%v", ok, err)
	}
}
