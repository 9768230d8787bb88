package ftransfer

import (
	"bufio"
	"errors"
	"strings"
	"testing"
)

func TestReadMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		limit   int
		want    string
		wantErr error
	}{
		{name: "prompt only", input: ">>", limit: 64, want: ">>"},
		{name: "text and prompt", input: "Invalid command\n>>", limit: 64, want: "Invalid command\n>>"},
		{name: "stops at first prompt", input: "a>>b>>", limit: 64, want: "a>>"},
		{name: "single angle is text", input: "x > y\n>>", limit: 64, want: "x > y\n>>"},
		{name: "eof before prompt", input: "Server closed connection.\n", limit: 64, want: "Server closed connection.\n", wantErr: ErrConnectionClosed},
		{name: "empty eof", input: "", limit: 64, wantErr: ErrConnectionClosed},
		{name: "exact limit", input: "abcd>>", limit: 6, want: "abcd>>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readMessage(bufio.NewReader(strings.NewReader(tt.input)), tt.limit)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("readMessage() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadMessage_Overflow(t *testing.T) {
	t.Parallel()
	input := strings.Repeat("x", 100) + ">>"
	_, err := readMessage(bufio.NewReader(strings.NewReader(input)), 10)

	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProtocolError, got %v", err)
	}
	if pe.Limit != 10 || len(pe.Response) != 10 {
		t.Errorf("ProtocolError = %+v", pe)
	}
}

func TestReadMessage_Sequence(t *testing.T) {
	t.Parallel()
	r := bufio.NewReader(strings.NewReader("Welcome\n>>Remote working directory: /tmp\n>>"))

	first, err := readMessage(r, 4096)
	if err != nil || first != "Welcome\n>>" {
		t.Fatalf("first = %q, %v", first, err)
	}
	second, err := readMessage(r, 4096)
	if err != nil || stripPrompt(second) != "Remote working directory: /tmp\n" {
		t.Fatalf("second = %q, %v", second, err)
	}
}

func TestParseWorkingDir(t *testing.T) {
	t.Parallel()
	dir, err := parseWorkingDir("pwd", "Remote working directory: /srv/files\n")
	if err != nil || dir != "/srv/files" {
		t.Errorf("parseWorkingDir() = %q, %v", dir, err)
	}

	_, err = parseWorkingDir("cd nope", "Error: invalid directory\n")
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if ce.Command != "cd nope" || ce.Message != "Error: invalid directory\n" {
		t.Errorf("CommandError = %+v", ce)
	}
	if got := ce.Error(); got != "ftransfer: cd nope failed: Error: invalid directory" {
		t.Errorf("Error() = %q", got)
	}
}

func FuzzReadMessage(f *testing.F) {
	f.Add("hello\n>>", 16)
	f.Add(">>", 2)
	f.Add("no prompt", 4)

	f.Fuzz(func(t *testing.T, input string, limit int) {
		if limit < 2 || limit > 1<<16 {
			return
		}
		got, err := readMessage(bufio.NewReader(strings.NewReader(input)), limit)
		if len(got) > limit {
			t.Fatalf("message of %d bytes exceeds limit %d", len(got), limit)
		}
		if err == nil && !strings.HasSuffix(got, ">>") {
			t.Fatalf("message %q returned without prompt", got)
		}
	})
}
