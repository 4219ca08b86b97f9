package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "key", "list-buckets:p1")
	log.Info(ctx, "inf", "bucket", "demo")
	log.Warn(ctx, "wrn", "profile", "p1")
	log.Error(ctx, "err", "task", 3)

	out := buf.String()
	for _, s := range []string{
		"level=DEBUG", "msg=dbg", "key=list-buckets:p1",
		"level=INFO", "msg=inf", "bucket=demo",
		"level=WARN", "msg=wrn", "profile=p1",
		"level=ERROR", "msg=err", "task=3",
	} {
		assert.Contains(t, out, s)
	}
}

func TestSlogLogger_With(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("component", "remote", "profile", "p1").Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	for _, s := range []string{"msg=hello", "component=remote", "profile=p1", "k=v"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestSlogLogger_RedactsSecrets(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("access_key_id", "AKIAEXAMPLE").Warn(context.Background(), "auth",
		"secret_access_key", "wJalrXUtnFEMI", "Passphrase", "hunter2", "profile", "p1")

	out := buf.String()
	assert.NotContains(t, out, "AKIAEXAMPLE")
	assert.NotContains(t, out, "wJalrXUtnFEMI")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "profile=p1")
	assert.Equal(t, 3, strings.Count(out, Redacted))
}

func TestNewSlogHandlerOptions_RedactsGroups(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, NewSlogHandlerOptions(slog.LevelInfo)))

	l.Info("profile", slog.Group("creds", slog.String("session_token", "tok"), slog.String("region", "eu")))

	assert.NotContains(t, buf.String(), "tok ")
	assert.Contains(t, buf.String(), "creds.session_token="+Redacted)
	assert.Contains(t, buf.String(), "creds.region=eu")
}

func TestRedactArgs_NoCopyWhenClean(t *testing.T) {
	args := []any{"bucket", "demo", "key", "a/b.txt"}
	got := redactArgs(args)
	assert.Equal(t, args, got)

	secret := []any{"password", "x", "dangling"}
	got = redactArgs(secret)
	assert.Equal(t, []any{"password", Redacted, "dangling"}, got)
	assert.Equal(t, "x", secret[1])
}
