package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/minerva/core/netutil"
	"github.com/m3rciful/minerva/internal/catalog"
)

// testRegistry points every document topic at base and leaves general as a web page.
func testRegistry(t *testing.T, base string) *catalog.Registry {
	t.Helper()
	var b strings.Builder
	b.WriteString("menu:\n  header: Elige\ntopics:\n")
	for i, k := range catalog.Keys {
		url := fmt.Sprintf("%s/%s.pdf", base, k)
		if k == catalog.KeyGeneral {
			url = base + "/cursos/"
		}
		fmt.Fprintf(&b, "  - key: %s\n    title: %s\n    shortcut: \"%d\"\n    url: %q\n    message: \"{{.URL}}\"\n    keywords: [%s]\n",
			k, k, i+1, url, k)
	}
	reg, err := catalog.Parse([]byte(b.String()))
	require.NoError(t, err)
	return reg
}

func TestRedirectURL(t *testing.T) {
	reg := testRegistry(t, "https://cdn.example.com")
	s := New(reg, Options{})

	u, err := s.RedirectURL(catalog.KeyCajero)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cajero.pdf", u)

	_, err = s.RedirectURL("fontaneria")
	assert.ErrorIs(t, err, catalog.ErrUnknownTopic)
}

func TestFetchCachesAndDeduplicates(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/octet-stream")
		fmt.Fprint(w, "%PDF-1.7 "+r.URL.Path)
	}))
	defer srv.Close()

	s := New(testRegistry(t, srv.URL), Options{Client: srv.Client()})

	var wg sync.WaitGroup
	docs := make([]Document, 8)
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := s.Fetch(context.Background(), catalog.KeyEnfermeria)
			assert.NoError(t, err)
			docs[i] = d
		}(i)
	}
	require.Eventually(t, func() bool { return hits.Load() > 0 }, 2*time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, d := range docs {
		assert.Equal(t, "%PDF-1.7 /enfermeria.pdf", string(d.Data))
		assert.Equal(t, "application/pdf", d.ContentType)
		assert.Equal(t, "enfermeria.pdf", d.Filename)
	}

	_, err := s.Fetch(context.Background(), catalog.KeyEnfermeria)
	require.NoError(t, err)
	assert.LessOrEqual(t, hits.Load(), int32(2), "concurrent fetches share downloads")

	before := hits.Load()
	_, err = s.Fetch(context.Background(), catalog.KeyEnfermeria)
	require.NoError(t, err)
	assert.Equal(t, before, hits.Load(), "cached documents are not downloaded again")

	s.Forget(catalog.KeyEnfermeria)
	_, err = s.Fetch(context.Background(), catalog.KeyEnfermeria)
	require.NoError(t, err)
	assert.Equal(t, before+1, hits.Load())
}

func TestFetchRejectsPages(t *testing.T) {
	s := New(testRegistry(t, "https://cdn.example.com"), Options{})
	_, err := s.Fetch(context.Background(), catalog.KeyGeneral)
	assert.ErrorIs(t, err, ErrNotDocument)
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "cajero"):
			http.Error(w, "gone", http.StatusNotFound)
		default:
			fmt.Fprint(w, strings.Repeat("x", 64))
		}
	}))
	defer srv.Close()

	s := New(testRegistry(t, srv.URL), Options{Client: srv.Client(), MaxBytes: 32})

	_, err := s.Fetch(context.Background(), catalog.KeyCajero)
	var statusErr *netutil.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)

	_, err = s.Fetch(context.Background(), catalog.KeyAdministrativo)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Fetch(context.Background(), "fontaneria")
	assert.ErrorIs(t, err, catalog.ErrUnknownTopic)
}
