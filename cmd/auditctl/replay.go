package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/p-blackswan/audit-intake/internal/conversation"
	"github.com/p-blackswan/audit-intake/internal/opportunity"
	"github.com/p-blackswan/audit-intake/internal/report"
	"github.com/p-blackswan/audit-intake/internal/session"
	"github.com/p-blackswan/audit-intake/pkg/kvstore"
)

// ErrIncomplete is returned when a transcript ends before every required
// field was collected.
var ErrIncomplete = errors.New("audit incomplete")

// Transcript is a scripted intake conversation.
type Transcript struct {
	Email    string   `yaml:"email"`
	Messages []string `yaml:"messages"`
}

// LoadTranscript reads a YAML transcript from path.
func LoadTranscript(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("reading transcript: %w", err)
	}
	var t Transcript
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Transcript{}, fmt.Errorf("parsing transcript %s: %w", path, err)
	}
	if len(t.Messages) == 0 {
		return Transcript{}, fmt.Errorf("transcript %s has no messages", path)
	}
	return t, nil
}

// replayOptions control how a replayed report is written.
type replayOptions struct {
	Format string
	Quiet  bool
}

func newEngine(logger zerolog.Logger) (*conversation.Engine, error) {
	catalog, err := opportunity.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	kv := kvstore.NewMemoryStore(time.Minute)
	return conversation.New(
		session.NewRepository(kv, time.Hour),
		report.NewBuilder(opportunity.NewMatcher(catalog)),
		logger,
	), nil
}

// replay drives t through a fresh in-memory engine, printing each turn to
// turns, then writes the report to out in the requested format.
func replay(ctx context.Context, t Transcript, opts replayOptions, turns, out io.Writer, logger zerolog.Logger) (*report.Report, error) {
	engine, err := newEngine(logger)
	if err != nil {
		return nil, err
	}

	start, err := engine.Start(ctx, conversation.StartRequest{})
	if err != nil {
		return nil, err
	}
	id := start.SessionID
	if !opts.Quiet {
		printLast(turns, start)
	}

	for i, msg := range t.Messages {
		resp, err := engine.Answer(ctx, id, msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i+1, err)
		}
		if !opts.Quiet {
			fmt.Fprintf(turns, "\n> %s\n", msg)
			printLast(turns, resp)
		}
	}

	email := t.Email
	if email == "" {
		got, err := engine.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if c := got.Response.ExtractedInfo.ContactInfo; c != nil {
			email = c.Email
		}
	}
	if email == "" {
		return nil, fmt.Errorf("%w: no email in transcript or conversation", ErrIncomplete)
	}

	res, err := engine.GenerateReport(ctx, conversation.GenerateRequest{SessionID: id, Email: email})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(res.Missing, ", "))
	}
	return res.Report, writeReport(out, *res.Report, opts.Format)
}

func printLast(w io.Writer, resp conversation.Response) {
	msgs := resp.Response.Messages
	if len(msgs) == 0 {
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", resp.CurrentStep, msgs[len(msgs)-1].Content)
}

func writeReport(w io.Writer, r report.Report, format string) error {
	switch format {
	case "", "markdown", "md":
		_, err := io.WriteString(w, report.RenderMarkdown(r))
		return err
	case "html":
		page, err := report.RenderHTML(r)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, page)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "xlsx":
		return report.WriteXLSX(w, r)
	default:
		return fmt.Errorf("unknown format %q (want markdown, html, json or xlsx)", format)
	}
}
