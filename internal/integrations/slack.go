package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	perrors "github.com/p-blackswan/audit-intake/internal/errors"
	"github.com/p-blackswan/audit-intake/internal/report"
)

// SlackNotifier posts new leads to an incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

// NewSlackNotifier creates the Slack integration.
func NewSlackNotifier(webhookURL string, logger zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("component", "slack").Logger(),
	}
}

// Type implements Handler.
func (n *SlackNotifier) Type() JobType { return JobSlack }

// Handle implements Handler.
func (n *SlackNotifier) Handle(ctx context.Context, lead Lead) (Result, error) {
	msg := &slack.WebhookMessage{
		Text:   fmt.Sprintf("New AI audit lead: %s", displayName(lead.Report)),
		Blocks: &slack.Blocks{BlockSet: LeadBlocks(lead)},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.client, msg); err != nil {
		err = classifySlackError(err)
		return failed(err), err
	}
	n.logger.Info().Str("report_id", lead.Report.ID).Msg("lead posted to slack")
	return Result{Success: true}, nil
}

func classifySlackError(err error) error {
	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return fmt.Errorf("slack webhook: %v: %w", err, perrors.ErrRateLimit)
	}
	var sc slack.StatusCodeError
	if errors.As(err, &sc) {
		return perrors.NewAPIError("slack", sc.Code, sc.Status)
	}
	return fmt.Errorf("slack webhook: %v: %w", err, perrors.ErrUnavailable)
}

// LeadBlocks renders a lead as Block Kit blocks.
func LeadBlocks(lead Lead) []slack.Block {
	r := lead.Report

	fields := []*slack.TextBlockObject{
		mrkdwn(fmt.Sprintf("*Name:*\n%s", orDash(r.Name))),
		mrkdwn(fmt.Sprintf("*Company:*\n%s", orDash(r.Company))),
		mrkdwn(fmt.Sprintf("*Email:*\n%s", orDash(r.Email))),
		mrkdwn(fmt.Sprintf("*Industry:*\n%s", orDash(industryOf(r)))),
		mrkdwn(fmt.Sprintf("*Pain score:*\n%d/100", r.PainScore)),
		mrkdwn(fmt.Sprintf("*Est. annual value:*\n$%.0f", r.EstimatedValue)),
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", "New AI audit lead", false, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}

	if top := topOpportunities(r, 3); top != "" {
		blocks = append(blocks, slack.NewSectionBlock(mrkdwn("*Top opportunities*\n"+top), nil, nil))
	}
	if lead.ReportURL != "" {
		blocks = append(blocks, slack.NewContextBlock("report_link",
			mrkdwn(fmt.Sprintf("<%s|View full report>", lead.ReportURL)),
		))
	}
	return blocks
}

func topOpportunities(r report.Report, n int) string {
	var lines []string
	for i, o := range r.Opportunities {
		if i == n {
			break
		}
		lines = append(lines, fmt.Sprintf("• %s ($%.0f/mo, %.0f%% ROI)", o.Name, o.MonthlySavings, o.ROI12m))
	}
	return strings.Join(lines, "\n")
}

func mrkdwn(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject("mrkdwn", s, false, false)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
