package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-blackswan/audit-intake/internal/opportunity"
	"github.com/p-blackswan/audit-intake/internal/report"
)

func TestLoadTranscript(t *testing.T) {
	tr, err := LoadTranscript(filepath.Join("testdata", "saas.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", tr.Email)
	assert.Len(t, tr.Messages, 7)
}

func TestLoadTranscript_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTranscript(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("email: a@b.io\n"), 0o644))
	_, err = LoadTranscript(empty)
	assert.ErrorContains(t, err, "no messages")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("messages: [unterminated\n"), 0o644))
	_, err = LoadTranscript(bad)
	assert.ErrorContains(t, err, "parsing transcript")
}

func loadSaaS(t *testing.T) Transcript {
	t.Helper()
	tr, err := LoadTranscript(filepath.Join("testdata", "saas.yaml"))
	require.NoError(t, err)
	return tr
}

func TestReplay_Markdown(t *testing.T) {
	var turns, out bytes.Buffer
	r, err := replay(context.Background(), loadSaaS(t), replayOptions{Format: "markdown"}, &turns, &out, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, "jane.doe@example.com", r.Email)
	assert.Contains(t, turns.String(), "[discovery]")
	assert.Contains(t, turns.String(), "[ready_for_generation]")
	assert.Contains(t, turns.String(), "> confirm")
	assert.Contains(t, out.String(), "# AI Opportunity Assessment")
	assert.Contains(t, out.String(), "## Executive summary")
}

func TestReplay_QuietJSON(t *testing.T) {
	var turns, out bytes.Buffer
	r, err := replay(context.Background(), loadSaaS(t), replayOptions{Format: "json", Quiet: true}, &turns, &out, zerolog.Nop())
	require.NoError(t, err)

	assert.Empty(t, turns.String())
	var decoded report.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.NotEmpty(t, decoded.Opportunities)
}

func TestReplay_XLSX(t *testing.T) {
	var turns, out bytes.Buffer
	_, err := replay(context.Background(), loadSaaS(t), replayOptions{Format: "xlsx", Quiet: true}, &turns, &out, zerolog.Nop())
	require.NoError(t, err)

	f, err := excelize.OpenReader(&out)
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())
}

func TestReplay_UnknownFormat(t *testing.T) {
	var turns, out bytes.Buffer
	_, err := replay(context.Background(), loadSaaS(t), replayOptions{Format: "pdf", Quiet: true}, &turns, &out, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown format")
}

func TestReplay_Incomplete(t *testing.T) {
	tr, err := LoadTranscript(filepath.Join("testdata", "partial.yaml"))
	require.NoError(t, err)

	var turns, out bytes.Buffer
	_, err = replay(context.Background(), tr, replayOptions{}, &turns, &out, zerolog.Nop())
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Empty(t, out.String())

	tr.Email = "owner@example.com"
	_, err = replay(context.Background(), tr, replayOptions{}, &turns, &out, zerolog.Nop())
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.ErrorContains(t, err, "missing")
}

func TestPrintCatalog(t *testing.T) {
	c, err := opportunity.DefaultCatalog()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printCatalog(&buf, c))
	assert.Contains(t, buf.String(), "SLUG")
	assert.Contains(t, buf.String(), c.Templates[0].Slug)
}

func TestReplayCommand_XLSXNeedsOut(t *testing.T) {
	cmd := newReplayCmd()
	cmd.SetArgs([]string{filepath.Join("testdata", "saas.yaml"), "--format", "xlsx"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "needs --out")
}
