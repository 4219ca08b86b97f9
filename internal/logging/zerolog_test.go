package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestZerologLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf))

	log.Warn(context.Background(), "decrypt failed", "profile", "p1", "err", errors.New("bad tag"))

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"message":"decrypt failed"`)
	assert.Contains(t, out, `"profile":"p1"`)
	assert.Contains(t, out, `"err":"bad tag"`)
}

func TestZerologLogger_WithAndDanglingKey(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf)).With("component", "upload")

	log.Info(context.Background(), "tick", "dangling")

	out := buf.String()
	assert.Contains(t, out, `"component":"upload"`)
	assert.Contains(t, out, `"dangling":null`)
}

func TestZerologLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	log.Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())
}

func TestZerologLogger_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf)).With("session_token", "tok")

	log.Info(context.Background(), "auth", "secret_access_key", "wJalrXUtnFEMI", "bucket", "demo")

	out := buf.String()
	assert.NotContains(t, out, "wJalrXUtnFEMI")
	assert.NotContains(t, out, `"tok"`)
	assert.Contains(t, out, `"secret_access_key":"`+Redacted+`"`)
	assert.Contains(t, out, `"bucket":"demo"`)
}
