package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fragment stripped", "https://example.com/docs#install", "https://example.com/docs"},
		{"host lowercased", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"default https port", "https://example.com:443/a", "https://example.com/a"},
		{"default http port", "http://example.com:80/a", "http://example.com/a"},
		{"query preserved", "https://example.com/a?b=2&a=1", "https://example.com/a?b=2&a=1"},
		{"custom port kept", "http://example.com:8080/", "http://example.com:8080/"},
		{"empty path is root", "https://example.com", "https://example.com/"},
		{"empty path with query", "https://example.com?q=go", "https://example.com/?q=go"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	got, err := ResolveURL("https://example.com/docs/intro", "../api#top")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api", got)

	got, err = ResolveURL("https://example.com/docs/", "guide")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs/guide", got)

	got, err = ResolveURL("https://example.com/", "https://Other.org/x")
	require.NoError(t, err)
	assert.Equal(t, "https://other.org/x", got)

	_, err = ResolveURL("https://example.com/", "http://[::1")
	require.Error(t, err)
}

func TestInScope(t *testing.T) {
	t.Parallel()

	prefix := "https://example.com"
	assert.True(t, InScope(prefix, "https://example.com"))
	assert.True(t, InScope(prefix, "https://example.com/docs"))
	assert.True(t, InScope(prefix, "https://example.com?x=1"))
	assert.False(t, InScope(prefix, "https://example.com.evil.org/"))
	assert.False(t, InScope(prefix, "https://other.org/"))
	assert.False(t, InScope(prefix, "http://example.com/"))
	assert.False(t, InScope("", "https://example.com/"))
	assert.True(t, InScope("https://example.com/docs/", "https://example.com/docs/a"))
}

func TestHostURLAndDomainHelpers(t *testing.T) {
	t.Parallel()

	host, err := HostURL("https://Docs.Example.com:443/guide/start")
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com", host)

	_, err = HostURL("/relative/path")
	require.Error(t, err)

	assert.Equal(t, "docs_example_com", DomainSafe("https://docs.example.com/x"))
	assert.Equal(t, "unknown", DomainSafe("not a url"))
	assert.Equal(t, "guide", FirstPathSegment("https://example.com/guide/start"))
	assert.Equal(t, "main", FirstPathSegment("https://example.com/"))
	assert.Equal(t, "main", FirstPathSegment("https://example.com"))
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	status := &StatusError{URL: "https://example.com", StatusCode: 503}
	assert.Contains(t, status.Error(), "503")
	assert.True(t, IsTransient(status))

	render := &RenderError{URL: "https://example.com", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, render, context.DeadlineExceeded)
	assert.True(t, IsTransient(render))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(fmt.Errorf("fetch: %w", context.Canceled)))

	malformed := &MalformedRecordError{Line: 3, Err: errors.New("bad json")}
	assert.Contains(t, malformed.Error(), "line 3")
	var target *MalformedRecordError
	assert.True(t, errors.As(fmt.Errorf("read: %w", malformed), &target))
}

func TestStrategyValid(t *testing.T) {
	t.Parallel()

	assert.True(t, StrategyDirect.Valid())
	assert.True(t, StrategyRendered.Valid())
	assert.False(t, Strategy("ftp").Valid())
}
