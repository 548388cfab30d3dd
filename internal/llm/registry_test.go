package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedProvider struct {
	name     string
	closeErr error
	closed   bool
}

func (p *namedProvider) Name() string { return p.name }

func (p *namedProvider) Call(context.Context, string, CallOptions) (*Response, error) {
	return &Response{Success: true, ProviderUsed: p.name}, nil
}

func (p *namedProvider) Close() error {
	p.closed = true
	return p.closeErr
}

func TestRegistry_Resolve(t *testing.T) {
	a, b := &namedProvider{name: "a"}, &namedProvider{name: "b"}
	r := NewRegistry(a, b, NewFallbackProvider(0))

	assert.Equal(t, []string{"a", "b", FallbackProviderName}, r.Names())

	got, err := r.Resolve([]string{FallbackProviderName, "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, FallbackProviderName, got[0].Name())
	assert.Equal(t, "a", got[1].Name())

	_, err = r.Resolve([]string{"a", "missing"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "missing")
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	first, second := &namedProvider{name: "a"}, &namedProvider{name: "a"}
	r := NewRegistry(first)
	r.Register(second)

	assert.Equal(t, []string{"a"}, r.Names())
	p, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, second, p)

	_, ok = r.Get("b")
	assert.False(t, ok)
}

func TestRegistry_Close(t *testing.T) {
	boom := errors.New("boom")
	a, b := &namedProvider{name: "a", closeErr: boom}, &namedProvider{name: "b"}
	r := NewRegistry(a, b, NewFallbackProvider(0))

	err := r.Close()
	assert.ErrorIs(t, err, boom)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
