package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overshare-io/overshare/internal/annotate"
	"github.com/overshare-io/overshare/internal/taxonomy"
	"github.com/overshare-io/overshare/internal/testutil"
)

func TestParseOutcome(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		out := ParseOutcome(`{
			"labels": ["Contact&IDs", "Location&Time"],
			"spans_text": [
				{"label": "Contact&IDs", "text": "555-214-7821"},
				{"label": "Location&Time", "text": "noon"}
			],
			"explanations": {"Contact&IDs": "Shares a phone number."}
		}`)
		assert.Equal(t, []taxonomy.Category{taxonomy.ContactIDs, taxonomy.LocationTime}, out.Categories)
		assert.False(t, out.NoRisk)
		require.Len(t, out.Fragments, 2)
		assert.Equal(t, annotate.Hint{Category: taxonomy.ContactIDs, Text: "555-214-7821"}, out.Fragments[0])
		assert.Equal(t, "Shares a phone number.", out.Explanations[taxonomy.ContactIDs])
	})

	t.Run("none sentinel", func(t *testing.T) {
		out := ParseOutcome(`{"labels": ["None"], "spans_text": [], "explanations": {}}`)
		assert.True(t, out.NoRisk)
		assert.Empty(t, out.Categories)
		assert.True(t, out.Empty())
	})

	t.Run("none alongside real label is dropped", func(t *testing.T) {
		out := ParseOutcome(`{"labels": ["None", "Minors"]}`)
		assert.False(t, out.NoRisk)
		assert.Equal(t, []taxonomy.Category{taxonomy.Minors}, out.Categories)
	})

	t.Run("unknown labels dropped", func(t *testing.T) {
		out := ParseOutcome(`{
			"labels": ["Gossip", "Minors"],
			"spans_text": [
				{"label": "Gossip", "text": "whatever"},
				{"label": "None", "text": "nothing"},
				{"label": "Minors", "text": "my toddler"}
			],
			"explanations": {"Gossip": "not a category"}
		}`)
		assert.Equal(t, []taxonomy.Category{taxonomy.Minors}, out.Categories)
		require.Len(t, out.Fragments, 1)
		assert.Equal(t, taxonomy.Minors, out.Fragments[0].Category)
		assert.Empty(t, out.Explanations)
	})

	t.Run("invalid json yields empty outcome", func(t *testing.T) {
		out := ParseOutcome(`not json at all`)
		assert.True(t, out.Empty())
		assert.False(t, out.NoRisk)
	})

	t.Run("schema violation yields empty outcome", func(t *testing.T) {
		out := ParseOutcome(`{"labels": "Contact&IDs"}`)
		assert.True(t, out.Empty())
	})

	t.Run("missing fields tolerated", func(t *testing.T) {
		out := ParseOutcome(`{}`)
		assert.True(t, out.Empty())
		assert.NotNil(t, out.Explanations)
	})
}

const mockReply = `{
	"labels": ["Contact&IDs"],
	"spans_text": [{"label": "Contact&IDs", "text": "555-214-7821"}],
	"explanations": {"Contact&IDs": "Shares a direct phone number."}
}`

func newTestClassifier(t *testing.T, srv *testutil.MockClassifierServer) *OpenAIClassifier {
	t.Helper()
	c, err := NewOpenAIClassifierWithBaseURL("test-key", srv.URL, 8)
	require.NoError(t, err)
	return c
}

func TestOpenAIClassifierClassify(t *testing.T) {
	srv := testutil.NewMockClassifierServer(mockReply)
	t.Cleanup(srv.Close)
	c := newTestClassifier(t, srv)

	out, err := c.Classify(context.Background(), "Call me at 555-214-7821", nil)
	require.NoError(t, err)
	assert.Equal(t, []taxonomy.Category{taxonomy.ContactIDs}, out.Categories)
	require.Len(t, out.Fragments, 1)
	assert.Equal(t, "555-214-7821", out.Fragments[0].Text)
}

func TestOpenAIClassifierCachesRepeatCalls(t *testing.T) {
	srv := testutil.NewMockClassifierServer(mockReply)
	t.Cleanup(srv.Close)
	c := newTestClassifier(t, srv)

	_, err := c.Classify(context.Background(), "same post", nil)
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), "same post", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Requests())

	// A different hint set is a different prompt, therefore a fresh call.
	_, err = c.Classify(context.Background(), "same post",
		[]annotate.Hint{{Category: taxonomy.Minors, Text: "my toddler"}})
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Requests())
}

func TestOpenAIClassifierRetriesTransientFailures(t *testing.T) {
	srv := testutil.NewMockClassifierServer(mockReply).FailFirst(2, 503)
	t.Cleanup(srv.Close)
	c := newTestClassifier(t, srv)

	out, err := c.Classify(context.Background(), "retry me", nil)
	require.NoError(t, err)
	assert.Equal(t, []taxonomy.Category{taxonomy.ContactIDs}, out.Categories)
	assert.Equal(t, 3, srv.Requests())
}

func TestOpenAIClassifierGivesUpAfterRetries(t *testing.T) {
	srv := testutil.NewMockClassifierServer(mockReply).FailFirst(100, 503)
	t.Cleanup(srv.Close)
	c := newTestClassifier(t, srv)

	_, err := c.Classify(context.Background(), "always down", nil)
	require.ErrorIs(t, err, ErrClassifierUnavailable)
	assert.Equal(t, maxRetries, srv.Requests())
}

func TestOpenAIClassifierDoesNotRetryAuthFailures(t *testing.T) {
	srv := testutil.NewMockClassifierServer(mockReply).FailFirst(100, 401)
	t.Cleanup(srv.Close)
	c := newTestClassifier(t, srv)

	_, err := c.Classify(context.Background(), "bad key", nil)
	require.ErrorIs(t, err, ErrClassifierUnavailable)
	assert.Equal(t, 1, srv.Requests())
}

func TestOpenAIClassifierMalformedReplyDegrades(t *testing.T) {
	srv := testutil.NewMockClassifierServer(`the model rambled instead of emitting JSON`)
	t.Cleanup(srv.Close)
	c := newTestClassifier(t, srv)

	out, err := c.Classify(context.Background(), "post", nil)
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

func TestOpenAIClassifierForwardsHints(t *testing.T) {
	srv := testutil.NewMockClassifierServer(mockReply)
	t.Cleanup(srv.Close)
	c := newTestClassifier(t, srv)

	hints := []annotate.Hint{{Category: taxonomy.Credentials, Text: "1140"}}
	_, err := c.Classify(context.Background(), "pickup code is 1140", nil)
	require.NoError(t, err)
	assert.NotContains(t, srv.LastUserContent(), "Candidates JSON")

	_, err = c.Classify(context.Background(), "pickup code is 1140", hints)
	require.NoError(t, err)
	assert.Contains(t, srv.LastUserContent(), "Candidates JSON")
	assert.Contains(t, srv.LastUserContent(), `"1140"`)
}
