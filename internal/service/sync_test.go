package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/source"
	"github.com/timmy/contentsync/internal/storage"
)

func TestSyncSourceIsIdempotent(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages:      [][]source.RawContentItem{rawItems("a", 3), rawItems("b", 2)},
	}
	proc := newTestProcessor(repo, adapter, nil)
	ctx := context.Background()

	first, err := proc.SyncSource(ctx, "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncRunCompleted, first.Status)
	assert.Equal(t, 5, first.ItemsProcessed)
	assert.Equal(t, 5, repo.itemCount())

	second, err := proc.SyncSource(ctx, "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, second.ItemsProcessed)
	assert.Equal(t, 5, repo.itemCount())

	src := repo.source("src-1")
	assert.Equal(t, domain.SyncStatusIdle, src.SyncStatus)
	assert.Nil(t, src.ErrorMessage)
	assert.NotNil(t, src.LastSyncAt)
	assert.Empty(t, src.LastSyncCursor)
	assert.Len(t, repo.runs, 2)
	assert.Len(t, repo.participants, 5)
}

func TestSyncSourcePartialFailure(t *testing.T) {
	repo := newMemRepo(testSource())
	repo.failExternal["a-3"] = true
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages:      [][]source.RawContentItem{rawItems("a", 5)},
	}
	proc := newTestProcessor(repo, adapter, nil)

	progress, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncRunFailed, progress.Status)
	assert.Equal(t, 4, progress.ItemsProcessed)
	require.Len(t, progress.Errors, 1)
	assert.Equal(t, "a-3", progress.Errors[0].ItemID)
	assert.NotNil(t, progress.CompletedAt)
	assert.Equal(t, 4, repo.itemCount())

	src := repo.source("src-1")
	assert.Equal(t, domain.SyncStatusIdle, src.SyncStatus)
	require.NotNil(t, src.ErrorMessage)
	assert.Equal(t, "Sync completed with 1 errors", *src.ErrorMessage)

	require.Len(t, repo.runs, 1)
	assert.Equal(t, 1, repo.runs[0].FailedItems)
}

func TestSyncSourcePaginationTermination(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages: [][]source.RawContentItem{
			rawItems("a", 2), rawItems("b", 2), rawItems("c", 2), rawItems("d", 1),
		},
	}
	proc := newTestProcessor(repo, adapter, nil)

	var observed []int
	adapter.onFetch = func(call int) {
		if call == 1 {
			return
		}
		p, ok := proc.GetSyncProgress("src-1")
		require.True(t, ok)
		observed = append(observed, p.ItemsProcessed)
	}

	progress, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, adapter.fetchCalls())
	assert.Equal(t, 7, progress.ItemsProcessed)
	assert.Equal(t, []int{2, 4, 6}, observed)
}

func TestSyncSourcePersistsCursorBetweenPages(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages:      [][]source.RawContentItem{rawItems("a", 1), rawItems("b", 1), rawItems("c", 1)},
	}
	proc := newTestProcessor(repo, adapter, nil)

	var cursors []string
	adapter.onFetch = func(call int) {
		cursors = append(cursors, repo.source("src-1").LastSyncCursor)
	}

	_, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "p1", "p2"}, cursors)
	assert.Empty(t, repo.source("src-1").LastSyncCursor)
}

func TestSyncSourceResumesFromCursor(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages:      [][]source.RawContentItem{rawItems("a", 2), rawItems("b", 2), rawItems("c", 2)},
	}
	proc := newTestProcessor(repo, adapter, nil)

	progress, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{Cursor: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 2, adapter.fetchCalls())
	assert.Equal(t, 4, progress.ItemsProcessed)
	assert.Equal(t, "p1", repo.runs[0].StartCursor)
}

func TestSyncSourceAuthShortCircuit(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      false,
		pages:      [][]source.RawContentItem{rawItems("a", 2)},
	}
	proc := newTestProcessor(repo, adapter, nil)

	progress, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuth)
	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "auth", syncErr.Op)

	assert.Equal(t, 0, adapter.fetchCalls())
	require.NotNil(t, progress)
	assert.Equal(t, domain.SyncRunFailed, progress.Status)
	assert.Zero(t, progress.ItemsProcessed)

	require.Len(t, repo.sourcePatches, 2)
	assert.Equal(t, domain.SyncStatusSyncing, *repo.sourcePatches[0].SyncStatus)
	assert.Equal(t, domain.SyncStatusError, *repo.sourcePatches[1].SyncStatus)
	src := repo.source("src-1")
	require.NotNil(t, src.ErrorMessage)
	assert.Equal(t, authFailedMessage, *src.ErrorMessage)
}

func TestSyncSourceAuthProbeError(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		validErr:   errors.New("dial tcp: timeout"),
	}
	proc := newTestProcessor(repo, adapter, nil)

	_, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Equal(t, 0, adapter.fetchCalls())
}

func TestSyncSourceRefreshesCredentials(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &refreshingAdapter{pagedAdapter: pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		pages:      [][]source.RawContentItem{rawItems("a", 2)},
	}}
	proc := newTestProcessor(repo, adapter, nil)

	progress, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncRunCompleted, progress.Status)
	assert.Equal(t, 2, adapter.validCalls)
}

func TestSyncSourceFetchFailure(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		fetchErrAt: 2,
		pages:      [][]source.RawContentItem{rawItems("a", 2), rawItems("b", 2)},
	}
	proc := newTestProcessor(repo, adapter, nil)

	progress, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "fetch", syncErr.Op)
	assert.Equal(t, "src-1", syncErr.SourceID)

	assert.Equal(t, domain.SyncRunFailed, progress.Status)
	assert.Equal(t, 2, progress.ItemsProcessed)
	require.Len(t, progress.Errors, 1)
	assert.Empty(t, progress.Errors[0].ItemID)
	assert.Equal(t, 2, repo.itemCount())

	src := repo.source("src-1")
	assert.Equal(t, domain.SyncStatusError, src.SyncStatus)
	assert.Equal(t, "p1", src.LastSyncCursor)
}

func TestSyncSourceStopsOnCancel(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages:      [][]source.RawContentItem{rawItems("a", 1), rawItems("b", 1), rawItems("c", 1)},
	}
	proc := newTestProcessor(repo, adapter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter.onFetch = func(call int) {
		if call == 2 {
			cancel()
		}
	}

	_, err := proc.SyncSource(ctx, "src-1", source.FetchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, adapter.fetchCalls())
	assert.Equal(t, domain.SyncStatusIdle, repo.source("src-1").SyncStatus)

	progress, ok := proc.GetSyncProgress("src-1")
	require.True(t, ok)
	assert.Equal(t, domain.SyncRunFailed, progress.Status)
	assert.Equal(t, 1, progress.ItemsProcessed)
}

func TestSyncSourceLookupErrors(t *testing.T) {
	repo := newMemRepo(testSource())
	proc := newTestProcessor(repo, &pagedAdapter{sourceType: domain.SourceTypeSlack, valid: true}, nil)

	_, err := proc.SyncSource(context.Background(), "missing", source.FetchOptions{})
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	assert.ErrorIs(t, err, domain.ErrAdapterNotFound)

	_, ok := proc.GetSyncProgress("src-1")
	assert.False(t, ok)
}

func TestSyncSourceSwallowsParticipantFailures(t *testing.T) {
	repo := newMemRepo(testSource())
	repo.failParticipants = true
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages:      [][]source.RawContentItem{rawItems("a", 3)},
	}
	proc := newTestProcessor(repo, adapter, nil)

	progress, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncRunCompleted, progress.Status)
	assert.Equal(t, 3, progress.ItemsProcessed)
}

func TestSyncSourceArchivesRawItems(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages:      [][]source.RawContentItem{rawItems("a", 2)},
	}
	objects := storage.NewMemoryStorage()
	proc := newTestProcessor(repo, adapter, &ContentProcessorConfig{Archive: NewRawArchive(objects, "")})

	_, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"raw/org-1/src-1/a-1.json", "raw/org-1/src-1/a-2.json"}, objects.Keys())
}

func TestSyncSourceRecordsAdapterItemFailures(t *testing.T) {
	repo := newMemRepo(testSource())
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages:      [][]source.RawContentItem{rawItems("a", 2), rawItems("b", 2)},
		failures: map[int][]source.ItemFailure{
			1: {{ExternalID: "b-broken", Message: "failed to fetch blocks: rate limited"}},
		},
	}
	proc := newTestProcessor(repo, adapter, nil)

	progress, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncRunFailed, progress.Status)
	assert.Equal(t, 4, progress.ItemsProcessed)
	require.Len(t, progress.Errors, 1)
	assert.Equal(t, "b-broken", progress.Errors[0].ItemID)
	assert.Contains(t, progress.Errors[0].Message, "rate limited")

	require.Len(t, repo.runs, 1)
	assert.Equal(t, 1, repo.runs[0].FailedItems)
}

func TestSyncSourceClearsCursorAfterLastPageWithErrors(t *testing.T) {
	repo := newMemRepo(testSource())
	repo.failExternal["b-1"] = true
	adapter := &pagedAdapter{
		sourceType: domain.SourceTypeNotion,
		valid:      true,
		pages:      [][]source.RawContentItem{rawItems("a", 2), rawItems("b", 2), rawItems("c", 2)},
	}
	proc := newTestProcessor(repo, adapter, nil)

	progress, err := proc.SyncSource(context.Background(), "src-1", source.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncRunFailed, progress.Status)

	src := repo.source("src-1")
	assert.Empty(t, src.LastSyncCursor)
	assert.Equal(t, domain.SyncStatusIdle, src.SyncStatus)
	require.NotNil(t, src.ErrorMessage)
	assert.Equal(t, "Sync completed with 1 errors", *src.ErrorMessage)
}
