package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

func emit(p *Provider, body string) {
	var rec otellog.Record
	rec.SetBody(otellog.StringValue(body))
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false, Endpoint: "localhost:4318"})
	require.NoError(t, err)

	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutOutput(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "racesim"})
	assert.ErrorIs(t, err, errNoOutput)
}

func TestNew_FileExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "racesim",
		Version:      "test",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
		Attributes:   map[string]string{"race.track": "oval", "race.seed": "42", "race.tag": ""},
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	emit(p, "race started")
	require.NoError(t, p.Flush(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "race started")
	assert.Contains(t, out, "racesim")
	assert.Contains(t, out, "race.track")
	assert.Contains(t, out, "oval")
	assert.NotContains(t, out, "race.tag", "empty attributes are skipped")
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestShutdown_DropsLaterRecords(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, ServiceName: "racesim", BatchTimeout: time.Second, LogWriter: &buf})
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))
	emit(p, "after the flag")
	_ = p.Flush(context.Background())

	assert.NotContains(t, buf.String(), "after the flag")
}
