package slack

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
)

const (
	defaultPageSize = 100
	titleMaxRunes   = 80
)

var _ source.Adapter = (*Adapter)(nil)

// Adapter implements source.Adapter for Slack channels.
type Adapter struct {
	opts Options
}

// NewAdapter creates a Slack adapter.
func NewAdapter(opts Options) *Adapter {
	return &Adapter{opts: opts.withDefaults()}
}

// SourceType returns domain.SourceTypeSlack.
func (a *Adapter) SourceType() domain.SourceType {
	return domain.SourceTypeSlack
}

func (a *Adapter) client(src *domain.ContentSource) *client {
	return newClient(a.opts, src.Credentials.String("access_token"))
}

// ValidateCredentials calls auth.test.
func (a *Adapter) ValidateCredentials(ctx context.Context, src *domain.ContentSource) (bool, error) {
	if src.Credentials.String("access_token") == "" {
		return false, nil
	}
	if _, err := a.client(src).authTest(ctx); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && authErrors[apiErr.Code] {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FetchContent walks the configured channels one after another. The cursor is
// "channelIndex|slackCursor".
func (a *Adapter) FetchContent(ctx context.Context, src *domain.ContentSource, opts source.FetchOptions) (*source.FetchResult, error) {
	channels := src.Config.Strings("channel_ids")
	idx, slackCursor, err := parseCursor(opts.Cursor)
	if err != nil {
		return nil, err
	}
	if idx >= len(channels) {
		return &source.FetchResult{}, nil
	}
	channel := channels[idx]

	q := historyQuery{channel: channel, cursor: slackCursor, limit: opts.LimitOr(defaultPageSize)}
	if opts.Since != nil {
		q.oldest = formatTS(*opts.Since)
	}
	if opts.Until != nil {
		q.latest = formatTS(*opts.Until)
	}

	c := a.client(src)
	resp, err := c.history(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history of %s: %w", channel, err)
	}

	result := &source.FetchResult{Items: make([]source.RawContentItem, 0, len(resp.Messages))}
	for _, msg := range resp.Messages {
		if skipMessage(msg) {
			continue
		}
		item, err := a.buildItem(ctx, c, src, channel, msg)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *item)
	}

	next := resp.ResponseMetadata.NextCursor
	switch {
	case resp.HasMore && next != "":
		result.HasMore = true
		result.NextCursor = formatCursor(idx, next)
	case idx+1 < len(channels):
		result.HasMore = true
		result.NextCursor = formatCursor(idx+1, "")
	}
	return result, nil
}

// FetchItem fetches one message by "channel:ts".
func (a *Adapter) FetchItem(ctx context.Context, src *domain.ContentSource, externalID string) (*source.RawContentItem, error) {
	channel, ts, ok := strings.Cut(externalID, ":")
	if !ok || channel == "" || ts == "" {
		return nil, fmt.Errorf("invalid slack item id %q", externalID)
	}
	c := a.client(src)
	resp, err := c.history(ctx, historyQuery{channel: channel, latest: ts, oldest: ts, inclusive: true, limit: 1})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "channel_not_found" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch slack message: %w", err)
	}
	for _, msg := range resp.Messages {
		if msg.TS == ts {
			return a.buildItem(ctx, c, src, channel, msg)
		}
	}
	return nil, nil
}

func (a *Adapter) buildItem(ctx context.Context, c *client, src *domain.ContentSource, channel string, msg message) (*source.RawContentItem, error) {
	created := parseTS(msg.TS)
	item := &source.RawContentItem{
		ExternalID:       channel + ":" + msg.TS,
		Type:             domain.ContentTypeMessage,
		Title:            truncateRunes(firstLine(msg.Text), titleMaxRunes),
		Content:          msg.Text,
		AuthorExternalID: msg.User,
		AuthorName:       msg.authorName(),
		URL:              permalink(src.Config.String("workspace_url"), channel, msg.TS),
		SourceCreatedAt:  &created,
		SourceUpdatedAt:  &created,
		Metadata: map[string]any{
			"channel_id": channel,
			"ts":         msg.TS,
		},
	}
	participants := newParticipantSet()
	participants.add(msg, "author")

	if msg.isThreadParent() {
		replies, err := source.DrainPages(ctx, func(ctx context.Context, cursor string) (*source.Page[message], error) {
			resp, err := c.replies(ctx, channel, msg.TS, cursor)
			if err != nil {
				return nil, err
			}
			next := resp.ResponseMetadata.NextCursor
			return &source.Page[message]{Items: resp.Messages, NextCursor: next, HasMore: resp.HasMore && next != ""}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch replies for %s: %w", msg.TS, err)
		}

		var sb strings.Builder
		sb.WriteString(msg.authorName() + ": " + msg.Text)
		count := 0
		for _, r := range replies {
			if r.TS == msg.TS {
				continue // Slack includes the parent in replies
			}
			sb.WriteString("\n" + r.authorName() + ": " + r.Text)
			participants.add(r, "participant")
			count++
			if t := parseTS(r.TS); t.After(*item.SourceUpdatedAt) {
				item.SourceUpdatedAt = &t
			}
		}
		item.Type = domain.ContentTypeThread
		item.Content = sb.String()
		item.Metadata["thread_ts"] = msg.ThreadTS
		item.Metadata["reply_count"] = count
	}
	item.Participants = participants.list
	return item, nil
}

type participantSet struct {
	seen map[string]bool
	list []source.Participant
}

func newParticipantSet() *participantSet {
	return &participantSet{seen: map[string]bool{}}
}

func (p *participantSet) add(m message, role string) {
	if m.User == "" || p.seen[m.User] {
		return
	}
	p.seen[m.User] = true
	p.list = append(p.list, source.Participant{ExternalID: m.User, Name: m.authorName(), Role: role})
}

// skipMessage drops join/leave noise and thread replies, which are folded
// into their parent.
func skipMessage(m message) bool {
	switch m.Subtype {
	case "channel_join", "channel_leave", "channel_topic", "channel_purpose":
		return true
	}
	return m.isReply()
}

func parseCursor(cursor string) (int, string, error) {
	if cursor == "" {
		return 0, "", nil
	}
	idxStr, rest, _ := strings.Cut(cursor, "|")
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return 0, "", fmt.Errorf("invalid cursor %q", cursor)
	}
	return idx, rest, nil
}

func formatCursor(idx int, slackCursor string) string {
	return strconv.Itoa(idx) + "|" + slackCursor
}

func permalink(workspaceURL, channel, ts string) string {
	if workspaceURL == "" {
		return ""
	}
	return strings.TrimRight(workspaceURL, "/") + "/archives/" + channel + "/p" + strings.ReplaceAll(ts, ".", "")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
