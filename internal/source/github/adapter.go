package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
)

const defaultPageSize = 50

var _ source.Adapter = (*Adapter)(nil)

// Options configures the GitHub adapter.
type Options struct {
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	BaseURL string
}

// Adapter implements source.Adapter for GitHub issues and pull requests.
type Adapter struct {
	opts Options
}

// NewAdapter creates a GitHub adapter.
func NewAdapter(opts Options) *Adapter {
	return &Adapter{opts: opts}
}

// SourceType returns domain.SourceTypeGitHub.
func (a *Adapter) SourceType() domain.SourceType {
	return domain.SourceTypeGitHub
}

func (a *Adapter) client(ctx context.Context, src *domain.ContentSource) (*github.Client, error) {
	var hc *http.Client
	if token := src.Credentials.String("access_token"); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(ctx, ts)
	}
	client := github.NewClient(hc)
	if a.opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(a.opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = base
	}
	return client, nil
}

func repoOf(src *domain.ContentSource) (string, string, error) {
	owner, repo := src.Config.String("owner"), src.Config.String("repo")
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("github source %s: owner and repo are required", src.ID)
	}
	return owner, repo, nil
}

func statusCode(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

// ValidateCredentials fetches the authenticated user.
func (a *Adapter) ValidateCredentials(ctx context.Context, src *domain.ContentSource) (bool, error) {
	if src.Credentials.String("access_token") == "" {
		return false, nil
	}
	client, err := a.client(ctx, src)
	if err != nil {
		return false, err
	}
	if _, _, err := client.Users.Get(ctx, ""); err != nil {
		if statusCode(err) == http.StatusUnauthorized {
			return false, nil
		}
		return false, fmt.Errorf("github connection test failed: %w", err)
	}
	return true, nil
}

// FetchContent lists issues and pull requests, most recently updated first.
// The cursor is the page number.
func (a *Adapter) FetchContent(ctx context.Context, src *domain.ContentSource, opts source.FetchOptions) (*source.FetchResult, error) {
	owner, repo, err := repoOf(src)
	if err != nil {
		return nil, err
	}
	page := 1
	if opts.Cursor != "" {
		page, err = strconv.Atoi(opts.Cursor)
		if err != nil || page < 1 {
			return nil, fmt.Errorf("invalid cursor %q", opts.Cursor)
		}
	}
	client, err := a.client(ctx, src)
	if err != nil {
		return nil, err
	}

	listOpts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{Page: page, PerPage: opts.LimitOr(defaultPageSize)},
	}
	if opts.Since != nil {
		listOpts.Since = *opts.Since
	}

	issues, resp, err := client.Issues.ListByRepo(ctx, owner, repo, listOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	result := &source.FetchResult{Items: make([]source.RawContentItem, 0, len(issues))}
	for _, issue := range issues {
		if opts.Until != nil && issue.GetUpdatedAt().Time.After(*opts.Until) {
			continue
		}
		result.Items = append(result.Items, toRawItem(owner, repo, issue))
	}
	if resp != nil && resp.NextPage != 0 {
		result.HasMore = true
		result.NextCursor = strconv.Itoa(resp.NextPage)
	}
	return result, nil
}

// FetchItem fetches one issue or pull request by number.
func (a *Adapter) FetchItem(ctx context.Context, src *domain.ContentSource, externalID string) (*source.RawContentItem, error) {
	owner, repo, err := repoOf(src)
	if err != nil {
		return nil, err
	}
	number, err := strconv.Atoi(externalID)
	if err != nil {
		return nil, fmt.Errorf("invalid issue number %q", externalID)
	}
	client, err := a.client(ctx, src)
	if err != nil {
		return nil, err
	}
	issue, _, err := client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	item := toRawItem(owner, repo, issue)
	return &item, nil
}

func toRawItem(owner, repo string, issue *github.Issue) source.RawContentItem {
	contentType := domain.ContentTypeIssue
	if issue.IsPullRequest() {
		contentType = domain.ContentTypePullRequest
	}
	created := issue.GetCreatedAt().Time
	updated := issue.GetUpdatedAt().Time

	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	author := issue.GetUser()
	item := source.RawContentItem{
		ExternalID:       strconv.Itoa(issue.GetNumber()),
		Type:             contentType,
		Title:            issue.GetTitle(),
		Content:          issue.GetBody(),
		AuthorExternalID: strconv.FormatInt(author.GetID(), 10),
		AuthorName:       author.GetLogin(),
		AuthorEmail:      author.GetEmail(),
		URL:              issue.GetHTMLURL(),
		SourceCreatedAt:  &created,
		SourceUpdatedAt:  &updated,
		Metadata: map[string]any{
			"repository": owner + "/" + repo,
			"number":     issue.GetNumber(),
			"state":      issue.GetState(),
			"comments":   issue.GetComments(),
		},
		Tags: labels,
	}
	if issue.ClosedAt != nil {
		item.Metadata["closed_at"] = issue.GetClosedAt().Time
	}

	if author.GetLogin() != "" {
		item.Participants = append(item.Participants, participant(author, "author"))
	}
	for _, u := range issue.Assignees {
		item.Participants = append(item.Participants, participant(u, "assignee"))
	}
	return item
}

func participant(u *github.User, role string) source.Participant {
	return source.Participant{
		ExternalID: strconv.FormatInt(u.GetID(), 10),
		Name:       u.GetLogin(),
		Email:      u.GetEmail(),
		Role:       role,
	}
}
