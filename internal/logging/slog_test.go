package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newBufLogger() (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_AllLevelsReachHandler(t *testing.T) {
	log, buf := newBufLogger()
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=dbg", "a=1",
		"level=INFO", "msg=inf", "b=2",
		"level=WARN", "msg=wrn", "c=3",
		"level=ERROR", "msg=err", "d=4",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestSlogLogger_WithCarriesAttributesToChildren(t *testing.T) {
	log, buf := newBufLogger()

	child := log.With("req_id", "123")
	child.Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	for _, want := range []string{"msg=hello", "req_id=123", "k=v"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}

	// The parent is unaffected by the child's bound attributes.
	buf.Reset()
	log.Info(context.Background(), "plain")
	if strings.Contains(buf.String(), "req_id") {
		t.Fatalf("parent logger leaked child attribute:\n%s", buf.String())
	}
}
