package notion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/logger"
	"github.com/timmy/contentsync/internal/source"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

var _ source.Adapter = (*Adapter)(nil)

// Adapter implements source.Adapter for Notion workspaces.
type Adapter struct {
	opts    Options
	limiter *rate.Limiter
	cache   Cache
}

// NewAdapter creates a Notion adapter. A nil cache falls back to an
// in-process MemoryCache.
func NewAdapter(opts Options, cache Cache) *Adapter {
	opts = opts.withDefaults()
	if cache == nil {
		cache = NewMemoryCache()
	}
	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Adapter{
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
		cache:   cache,
	}
}

// SourceType returns domain.SourceTypeNotion.
func (a *Adapter) SourceType() domain.SourceType {
	return domain.SourceTypeNotion
}

func (a *Adapter) client(src *domain.ContentSource) *Client {
	return newClient(a.opts, a.limiter, src.Credentials.String("access_token"))
}

// ValidateCredentials probes GET /users/me.
func (a *Adapter) ValidateCredentials(ctx context.Context, src *domain.ContentSource) (bool, error) {
	if src.Credentials.String("access_token") == "" {
		return false, nil
	}
	if _, err := a.client(src).Me(ctx); err != nil {
		if IsUnauthorized(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FetchContent returns one page of search results converted to items.
// Results are newest first, so paging stops at the first result older than
// opts.Since.
func (a *Adapter) FetchContent(ctx context.Context, src *domain.ContentSource, opts source.FetchOptions) (*source.FetchResult, error) {
	limit := opts.LimitOr(defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	c := a.client(src)
	resp, err := c.Search(ctx, opts.Cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search notion: %w", err)
	}

	sel := newSelection(a, c, src)
	result := &source.FetchResult{Items: make([]source.RawContentItem, 0, len(resp.Results))}
	reachedSince := false
	for i := range resp.Results {
		obj := &resp.Results[i]
		if opts.Since != nil && obj.LastEditedTime.Before(*opts.Since) {
			reachedSince = true
			break
		}
		if opts.Until != nil && obj.LastEditedTime.After(*opts.Until) {
			continue
		}
		if obj.Archived || obj.InTrash {
			continue
		}

		title := objectTitle(obj)
		if err := a.cache.UpsertHierarchy(ctx, hierarchyRecord(src.ID, obj, title)); err != nil {
			logger.CtxWarn(ctx, "Failed to cache notion hierarchy: object_id=%s, error=%v", obj.ID, err)
		}
		if !sel.includes(ctx, obj.ID, obj.Object) {
			continue
		}

		item, err := a.buildItem(ctx, c, src, obj)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Reported back so the sync records it against the object.
			logger.With(logger.Fields{
				"object_id":   obj.ID,
				"object_type": obj.Object,
			}).Warn(ctx, "Failed to build notion object: %v", err)
			result.Failures = append(result.Failures, source.ItemFailure{ExternalID: obj.ID, Message: err.Error()})
			continue
		}
		result.Items = append(result.Items, *item)
	}

	if resp.HasMore && !reachedSince {
		result.HasMore = true
		result.NextCursor = resp.NextCursor
	}
	return result, nil
}

// FetchItem fetches a page by id, falling back to a database with that id.
func (a *Adapter) FetchItem(ctx context.Context, src *domain.ContentSource, externalID string) (*source.RawContentItem, error) {
	c := a.client(src)
	obj, err := c.GetPage(ctx, externalID)
	if IsNotFound(err) {
		obj, err = c.GetDatabase(ctx, externalID)
		if IsNotFound(err) {
			return nil, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notion object: %w", err)
	}
	return a.buildItem(ctx, c, src, obj)
}

func (a *Adapter) buildItem(ctx context.Context, c *Client, src *domain.ContentSource, obj *Object) (*source.RawContentItem, error) {
	if obj.IsDatabase() {
		return a.buildDatabaseItem(ctx, src, obj), nil
	}
	return a.buildPageItem(ctx, c, src, obj)
}

func (a *Adapter) buildPageItem(ctx context.Context, c *Client, src *domain.ContentSource, obj *Object) (*source.RawContentItem, error) {
	props := DecodeProperties(obj.Properties)
	lines, values := PropertyLines(props)

	metadata := map[string]any{
		"notion_object": obj.Object,
		"parent_type":   obj.Parent.Type,
		"parent_id":     obj.Parent.ID(),
	}
	if len(values) > 0 {
		metadata["properties"] = values
	}
	if obj.Parent.Type == "database_id" {
		schema := a.databaseSchema(ctx, c, src.ID, obj.Parent.DatabaseID)
		metadata["database_id"] = obj.Parent.DatabaseID
		if schema != nil {
			metadata["database_title"] = schema.Title
			metadata["property_types"] = map[string]interface{}(schema.PropertyTypes)
		}
	}

	blocks, err := a.fetchBlockTree(ctx, c, obj.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blocks: %w", err)
	}

	var sections []string
	if len(lines) > 0 {
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if body := RenderBlocks(blocks); body != "" {
		sections = append(sections, body)
	}
	content := strings.Join(sections, "\n\n")

	if src.Config.Bool("include_comments", true) {
		comments, err := a.fetchComments(ctx, c, obj.ID)
		if err != nil {
			logger.CtxWarn(ctx, "Failed to fetch notion comments: page_id=%s, error=%v", obj.ID, err)
		} else if len(comments) > 0 {
			content += "\n\n---\nComments:\n" + strings.Join(comments, "\n")
		}
	}

	item := baseItem(obj)
	item.Type = domain.ContentTypeDocument
	item.Title = ExtractTitle(props)
	item.Content = content
	item.Metadata = metadata
	item.Participants = append(item.Participants, peopleParticipants(props)...)
	return item, nil
}

func (a *Adapter) buildDatabaseItem(ctx context.Context, src *domain.ContentSource, obj *Object) *source.RawContentItem {
	schema := DecodeSchema(obj.Properties)
	title := strings.TrimSpace(PlainText(obj.Title))
	if title == "" {
		title = "Untitled"
	}
	a.storeSchema(ctx, src.ID, obj.ID, title, schema)

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	var sections []string
	if desc := strings.TrimSpace(PlainText(obj.Description)); desc != "" {
		sections = append(sections, desc)
	}
	if len(names) > 0 {
		lines := make([]string, 0, len(names))
		for _, name := range names {
			lines = append(lines, "- "+name+" ("+schema[name]+")")
		}
		sections = append(sections, "Properties:\n"+strings.Join(lines, "\n"))
	}

	types := make(map[string]any, len(schema))
	for k, v := range schema {
		types[k] = v
	}

	item := baseItem(obj)
	item.Type = domain.ContentTypeDocument
	item.Title = title
	item.Content = strings.Join(sections, "\n\n")
	item.Metadata = map[string]any{
		"notion_object":  obj.Object,
		"parent_type":    obj.Parent.Type,
		"parent_id":      obj.Parent.ID(),
		"property_types": types,
	}
	return item
}

func baseItem(obj *Object) *source.RawContentItem {
	created := obj.CreatedTime
	edited := obj.LastEditedTime
	item := &source.RawContentItem{
		ExternalID:       obj.ID,
		URL:              obj.URL,
		AuthorExternalID: obj.CreatedBy.ID,
		AuthorName:       obj.CreatedBy.Name,
		AuthorEmail:      obj.CreatedBy.Email(),
		SourceCreatedAt:  &created,
		SourceUpdatedAt:  &edited,
	}
	if obj.CreatedBy.ID != "" {
		item.Participants = []source.Participant{{
			ExternalID: obj.CreatedBy.ID,
			Name:       obj.CreatedBy.DisplayName(),
			Email:      obj.CreatedBy.Email(),
			Role:       "author",
		}}
	}
	return item
}

func peopleParticipants(props map[string]Property) []source.Participant {
	var out []source.Participant
	for _, name := range sortedNames(props) {
		p := props[name]
		if p.Type != "people" {
			continue
		}
		for _, u := range p.People {
			out = append(out, source.Participant{
				ExternalID: u.ID,
				Name:       u.DisplayName(),
				Email:      u.Email(),
				Role:       name,
			})
		}
	}
	return out
}

func objectTitle(obj *Object) string {
	if obj.IsDatabase() {
		return PlainText(obj.Title)
	}
	return ExtractTitle(DecodeProperties(obj.Properties))
}

// databaseSchema reads the cached schema, fetching the database on a miss.
func (a *Adapter) databaseSchema(ctx context.Context, c *Client, sourceID, databaseID string) *domain.NotionDatabaseSchema {
	schema, err := a.cache.GetDatabaseSchema(ctx, sourceID, databaseID)
	if err == nil && schema != nil {
		return schema
	}
	db, err := c.GetDatabase(ctx, databaseID)
	if err != nil {
		logger.CtxWarn(ctx, "Failed to fetch notion database schema: database_id=%s, error=%v", databaseID, err)
		return nil
	}
	title := strings.TrimSpace(PlainText(db.Title))
	return a.storeSchema(ctx, sourceID, db.ID, title, DecodeSchema(db.Properties))
}

func (a *Adapter) storeSchema(ctx context.Context, sourceID, databaseID, title string, schema map[string]string) *domain.NotionDatabaseSchema {
	types := make(domain.JSONMap, len(schema))
	for k, v := range schema {
		types[k] = v
	}
	rec := &domain.NotionDatabaseSchema{
		SourceID:      sourceID,
		DatabaseID:    databaseID,
		Title:         title,
		PropertyTypes: types,
		UpdatedAt:     time.Now(),
	}
	if err := a.cache.UpsertDatabaseSchema(ctx, rec); err != nil {
		logger.CtxWarn(ctx, "Failed to cache notion database schema: database_id=%s, error=%v", databaseID, err)
	}
	return rec
}

// fetchBlockTree drains the children of blockID and recurses into nested
// blocks up to MaxBlockDepth. Child pages and databases are not descended
// into; they are synced as items of their own.
func (a *Adapter) fetchBlockTree(ctx context.Context, c *Client, blockID string, depth int) ([]Block, error) {
	blocks, err := source.DrainPages(ctx, func(ctx context.Context, cursor string) (*source.Page[Block], error) {
		resp, err := c.ListChildren(ctx, blockID, cursor)
		if err != nil {
			return nil, err
		}
		return &source.Page[Block]{Items: resp.Results, NextCursor: resp.NextCursor, HasMore: resp.HasMore}, nil
	})
	if err != nil {
		return nil, err
	}
	if depth+1 >= a.opts.MaxBlockDepth {
		return blocks, nil
	}
	for i := range blocks {
		b := &blocks[i]
		if !b.HasChildren || b.Type == "child_page" || b.Type == "child_database" {
			continue
		}
		children, err := a.fetchBlockTree(ctx, c, b.ID, depth+1)
		if err != nil {
			return nil, err
		}
		b.Children = children
	}
	return blocks, nil
}

func (a *Adapter) fetchComments(ctx context.Context, c *Client, pageID string) ([]string, error) {
	comments, err := source.DrainPages(ctx, func(ctx context.Context, cursor string) (*source.Page[Comment], error) {
		resp, err := c.ListComments(ctx, pageID, cursor)
		if err != nil {
			return nil, err
		}
		return &source.Page[Comment]{Items: resp.Results, NextCursor: resp.NextCursor, HasMore: resp.HasMore}, nil
	})
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(comments))
	for _, cm := range comments {
		text := strings.TrimSpace(PlainText(cm.RichText))
		if text == "" {
			continue
		}
		lines = append(lines, "- "+cm.CreatedBy.DisplayName()+": "+text)
	}
	return lines, nil
}
