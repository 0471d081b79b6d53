package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
)

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-good" {
			_, _ = w.Write([]byte(`{"ok":false,"error":"invalid_auth"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"user_id":"B1","team_id":"T1"}`))
	})
	mux.HandleFunc("/conversations.history", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("channel") == "C1" && q.Get("cursor") == "":
			_, _ = w.Write([]byte(`{"ok":true,"has_more":true,"response_metadata":{"next_cursor":"n1"},"messages":[
				{"type":"message","ts":"1700000000.000100","user":"U1","text":"hello\nworld","user_profile":{"display_name":"ada"}},
				{"type":"message","subtype":"channel_join","ts":"1700000000.000050","user":"U9","text":"joined"}
			]}`))
		case q.Get("channel") == "C1" && q.Get("cursor") == "n1":
			_, _ = w.Write([]byte(`{"ok":true,"has_more":false,"messages":[
				{"type":"message","ts":"1699999999.000100","thread_ts":"1699999999.000100","reply_count":2,"user":"U2","text":"question?"}
			]}`))
		case q.Get("channel") == "C2":
			_, _ = w.Write([]byte(`{"ok":true,"has_more":false,"messages":[]}`))
		default:
			_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
		}
	})
	mux.HandleFunc("/conversations.replies", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"has_more":false,"messages":[
			{"type":"message","ts":"1699999999.000100","thread_ts":"1699999999.000100","user":"U2","text":"question?"},
			{"type":"message","ts":"1700000001.000100","thread_ts":"1699999999.000100","user":"U1","text":"answer"},
			{"type":"message","ts":"1700000002.000100","thread_ts":"1699999999.000100","user":"U3","text":"thanks"}
		]}`))
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSource(token string) *domain.ContentSource {
	return &domain.ContentSource{
		ID:          "s1",
		Type:        domain.SourceTypeSlack,
		Credentials: domain.JSONMap{"access_token": token},
		Config:      domain.JSONMap{"channel_ids": []interface{}{"C1", "C2"}},
	}
}

func TestValidateCredentials(t *testing.T) {
	a := NewAdapter(Options{BaseURL: newTestServer(t).URL})

	ok, err := a.ValidateCredentials(context.Background(), testSource("xoxb-good"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.ValidateCredentials(context.Background(), testSource("xoxb-bad"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchContentWalksChannels(t *testing.T) {
	a := NewAdapter(Options{BaseURL: newTestServer(t).URL})
	src := testSource("xoxb-good")

	var items []source.RawContentItem
	var cursors []string
	_, err := source.WalkPages(context.Background(), "", func(ctx context.Context, cursor string) (*source.FetchResult, error) {
		cursors = append(cursors, cursor)
		return a.FetchContent(ctx, src, source.FetchOptions{Cursor: cursor})
	}, func(p *source.FetchResult) error {
		items = append(items, p.Items...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "0|n1", "1|"}, cursors)
	require.Len(t, items, 2)

	msg := items[0]
	assert.Equal(t, "C1:1700000000.000100", msg.ExternalID)
	assert.Equal(t, domain.ContentTypeMessage, msg.Type)
	assert.Equal(t, "hello", msg.Title)
	assert.Equal(t, "ada", msg.AuthorName)

	thread := items[1]
	assert.Equal(t, domain.ContentTypeThread, thread.Type)
	assert.Equal(t, "U2: question?\nU1: answer\nU3: thanks", thread.Content)
	assert.Equal(t, 2, thread.Metadata["reply_count"])
	assert.Len(t, thread.Participants, 3)
}

func TestFetchItem(t *testing.T) {
	a := NewAdapter(Options{BaseURL: newTestServer(t).URL})
	src := testSource("xoxb-good")

	item, err := a.FetchItem(context.Background(), src, "C9:1.0")
	require.NoError(t, err)
	assert.Nil(t, item)

	_, err = a.FetchItem(context.Background(), src, "garbage")
	assert.Error(t, err)
}

func TestParseTS(t *testing.T) {
	ts := parseTS("1700000000.000100")
	assert.Equal(t, int64(1700000000), ts.Unix())
	assert.Equal(t, 100000, ts.Nanosecond())
	assert.Equal(t, "1700000000.000100", formatTS(ts))
}
