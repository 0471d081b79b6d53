package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/contentsync/internal/domain"
)

type namedAdapter struct {
	typ  domain.SourceType
	name string
}

func (a *namedAdapter) SourceType() domain.SourceType { return a.typ }

func (a *namedAdapter) ValidateCredentials(context.Context, *domain.ContentSource) (bool, error) {
	return true, nil
}

func (a *namedAdapter) FetchContent(context.Context, *domain.ContentSource, FetchOptions) (*FetchResult, error) {
	return &FetchResult{}, nil
}

func (a *namedAdapter) FetchItem(context.Context, *domain.ContentSource, string) (*RawContentItem, error) {
	return nil, nil
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	first := &namedAdapter{typ: domain.SourceTypeNotion, name: "first"}
	second := &namedAdapter{typ: domain.SourceTypeNotion, name: "second"}

	r.Register(first)
	r.Register(second)

	got, err := r.Get(domain.SourceTypeNotion)
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, []domain.SourceType{domain.SourceTypeNotion}, r.List())
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	r.Register(&namedAdapter{typ: domain.SourceTypeVideo})

	_, err := r.Get(domain.SourceTypeLinear)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAdapterNotFound))
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&namedAdapter{typ: domain.SourceTypeVideo})
	r.Register(&namedAdapter{typ: domain.SourceTypeGitHub})
	r.Register(&namedAdapter{typ: domain.SourceTypeSlack})

	assert.Equal(t, []domain.SourceType{
		domain.SourceTypeGitHub,
		domain.SourceTypeSlack,
		domain.SourceTypeVideo,
	}, r.List())
}
