package driver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mipimipi/otr/internal/cutlistprovider"
	"github.com/mipimipi/otr/internal/decoder"
	"github.com/mipimipi/otr/internal/recording"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "NoCutlist", KindNoCutlist.String())
	assert.Equal(t, "Other", Kind(99).String())
}

func TestErrorFormattingAndUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Kind: KindIOExternal, Op: "cut", Key: "some-key", Err: inner}

	assert.Contains(t, err.Error(), "some-key")
	assert.Contains(t, err.Error(), "cut")
	assert.Contains(t, err.Error(), "IOExternal")
	assert.ErrorIs(t, err, inner)
}

func TestClassifyDecodeErr(t *testing.T) {
	var e *Error

	err := classifyDecodeErr("k", decoder.ErrChecksumMismatch)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindDecodeVerification, e.Kind)

	err = classifyDecodeErr("k", decoder.ErrKeyExchange)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindProtocolError, e.Kind)

	err = classifyDecodeErr("k", errors.New("disk full"))
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindIOExternal, e.Kind)
}

func TestClassifyProviderErr(t *testing.T) {
	var e *Error

	err := classifyProviderErr("k", "fetch", cutlistprovider.ErrNoCutlist)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindNoCutlist, e.Kind)

	err = classifyProviderErr("k", "submit", cutlistprovider.ErrSubmitFailed)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindCutlistSubmissionFailed, e.Kind)

	err = classifyProviderErr("k", "fetch", cutlistprovider.ErrUnavailable)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindIOExternal, e.Kind)
}

func TestResolveCutlistNoProvider(t *testing.T) {
	d := New(Options{WorkingDir: t.TempDir()})
	dec := &recording.Recording{}

	_, err := d.resolveCutlist(context.Background(), dec)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindNoCutlist, e.Kind)
}

func TestResolveCutlistTriesBestRatingFirst(t *testing.T) {
	validINI := "[General]\nNoOfCuts=1\n\n[Cut0]\nStartFrame=10\nDurationFrames=5\n"
	var requestedIDs []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/getxml.php":
			w.Write([]byte(`<cutlists>
<cutlist><id>1</id><rating>2.0</rating><ratingbyauthor></ratingbyauthor><errors>0</errors></cutlist>
<cutlist><id>2</id><rating>9.0</rating><ratingbyauthor></ratingbyauthor><errors>0</errors></cutlist>
</cutlists>`))
		case r.URL.Path == "/getfile.php":
			requestedIDs = append(requestedIDs, r.URL.Query().Get("id"))
			w.Write([]byte(validINI))
		}
	}))
	t.Cleanup(server.Close)

	client := cutlistprovider.New(cutlistprovider.Options{BaseURL: server.URL})

	d := New(Options{WorkingDir: t.TempDir(), Provider: client})
	dec := &recording.Recording{}

	cl, err := d.resolveCutlist(context.Background(), dec)
	require.NoError(t, err)
	require.Len(t, cl.FrameIntervals, 1)
	require.Len(t, requestedIDs, 1)
	assert.Equal(t, "2", requestedIDs[0], "the highest-rated candidate must be tried first")
}

func TestResolveCutlistSkipsInvalidCandidateAndFallsThrough(t *testing.T) {
	validINI := "[General]\nNoOfCuts=1\n\n[Cut0]\nStartFrame=10\nDurationFrames=5\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/getxml.php":
			w.Write([]byte(`<cutlists>
<cutlist><id>1</id><rating>5.0</rating><ratingbyauthor></ratingbyauthor><errors>0</errors></cutlist>
<cutlist><id>2</id><rating>9.0</rating><ratingbyauthor></ratingbyauthor><errors>0</errors></cutlist>
</cutlists>`))
		case r.URL.Path == "/getfile.php":
			if r.URL.Query().Get("id") == "2" {
				w.Write([]byte("this is not a cut list"))
				return
			}
			w.Write([]byte(validINI))
		}
	}))
	t.Cleanup(server.Close)

	client := cutlistprovider.New(cutlistprovider.Options{BaseURL: server.URL})

	d := New(Options{WorkingDir: t.TempDir(), Provider: client})
	dec := &recording.Recording{}

	cl, err := d.resolveCutlist(context.Background(), dec)
	require.NoError(t, err, "a bad top candidate must fall through to the next one")
	require.Len(t, cl.FrameIntervals, 1)
}

func TestResolveCutlistNoCandidatesIsNoCutlist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(server.Close)

	client := cutlistprovider.New(cutlistprovider.Options{BaseURL: server.URL})

	d := New(Options{WorkingDir: t.TempDir(), Provider: client})
	dec := &recording.Recording{}

	_, err := d.resolveCutlist(context.Background(), dec)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindNoCutlist, e.Kind)
}
