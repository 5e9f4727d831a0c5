package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"maizedigest/app/config"
	"maizedigest/app/service/composer"
	"maizedigest/app/service/index"
	"maizedigest/app/service/scoring"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDigestJSON = `{"executive":"Challenge. Solution. Impact.","opening":"An opening paragraph.","main":"The main text."}`

type fakeRetriever struct {
	docs  []scoring.ScoredDocument
	err   error
	calls []int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, k int) ([]scoring.ScoredDocument, error) {
	f.calls = append(f.calls, k)

	if f.err != nil {
		return nil, f.err
	}

	return f.docs, nil
}

type fakeGenerator struct {
	responses []string
	err       error
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	if len(f.responses) == 0 {
		return "", errors.New("fakeGenerator: out of responses")
	}

	response := f.responses[0]
	f.responses = f.responses[1:]

	return response, nil
}

type fakeExporter struct {
	blob  []byte
	err   error
	calls int
}

func (f *fakeExporter) Render(_ *composer.Digest) ([]byte, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return f.blob, nil
}

func testRetriever() *fakeRetriever {
	return &fakeRetriever{
		docs: []scoring.ScoredDocument{
			{
				Document: index.Document{
					ID:       "projectx.txt",
					Content:  "Project X launched in 2024.",
					Metadata: index.Metadata{Source: "projectx.txt"},
				},
				Score: 0.91,
				Year:  2024,
			},
		},
	}
}

func newTestEngine(ret Retriever, gen Generator, exp Exporter) (*Service, *clock.Mock) {
	cfg := &config.Config{
		Chat: config.Chat{AnswerTopK: 3, DigestTopK: 5, SessionTTLMinutes: 30},
	}

	mock := clock.NewMock()
	mock.Set(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))

	return NewEngine(cfg, ret, gen, &composer.Service{}, exp, mock), mock
}

func lastMessage(sess *Session) Message {
	messages := sess.Messages()
	return messages[len(messages)-1]
}

func TestCreateSessionStartsIdleWithGreeting(t *testing.T) {
	engine, _ := newTestEngine(testRetriever(), &fakeGenerator{}, &fakeExporter{})

	sess := engine.CreateSession()

	assert.Equal(t, StateIdle, sess.State())

	messages := sess.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, RoleAssistant, messages[0].Role)
	assert.Contains(t, messages[0].Content, "MAIZE Digest assistant")

	found, ok := engine.Session(sess.ID())
	require.True(t, ok)
	assert.Same(t, sess, found)
}

func TestQueryTransitionsToDigestConfirm(t *testing.T) {
	ret := testRetriever()
	engine, mock := newTestEngine(ret, &fakeGenerator{responses: []string{"Project X is a data platform."}}, &fakeExporter{})
	sess := engine.CreateSession()

	turn := engine.HandleUtterance(context.Background(), sess, "Tell me about Project X")

	assert.Equal(t, StateAwaitingDigestConfirm, sess.State())
	assert.Equal(t, []int{3}, ret.calls)

	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "Project X is a data platform.", turn.Messages[0].Content)
	assert.Equal(t, []string{"projectx.txt"}, turn.Messages[0].Sources)

	// the digest offer arrives on a timer, not in the turn itself
	assert.NotContains(t, lastMessage(sess).Content, "structured Word digest")

	mock.Add(2 * time.Second)

	assert.Equal(t, msgDigestOffer, lastMessage(sess).Content)
}

func TestAnswerGenerationFailureStaysIdle(t *testing.T) {
	engine, mock := newTestEngine(testRetriever(), &fakeGenerator{err: errors.New("llm down")}, &fakeExporter{})
	sess := engine.CreateSession()

	turn := engine.HandleUtterance(context.Background(), sess, "Tell me about Project X")

	assert.Equal(t, StateIdle, sess.State())
	require.Len(t, turn.Messages, 1)
	assert.True(t, turn.Messages[0].Error)

	mock.Add(5 * time.Second)
	assert.Equal(t, msgAnswerError, lastMessage(sess).Content, "no offer after a failed answer")
}

func TestRetrievalFailureStaysIdle(t *testing.T) {
	engine, _ := newTestEngine(&fakeRetriever{err: errors.New("embedder unreachable")}, &fakeGenerator{}, &fakeExporter{})
	sess := engine.CreateSession()

	turn := engine.HandleUtterance(context.Background(), sess, "Tell me about Project X")

	assert.Equal(t, StateIdle, sess.State())
	require.Len(t, turn.Messages, 1)
	assert.True(t, turn.Messages[0].Error)
}

func driveToDigestConfirm(t *testing.T, engine *Service, sess *Session) {
	t.Helper()

	engine.HandleUtterance(context.Background(), sess, "Tell me about Project X")
	require.Equal(t, StateAwaitingDigestConfirm, sess.State())
}

func TestDigestConfirmAffirmative(t *testing.T) {
	ret := testRetriever()
	gen := &fakeGenerator{responses: []string{"the answer", validDigestJSON}}
	engine, mock := newTestEngine(ret, gen, &fakeExporter{})
	sess := engine.CreateSession()

	driveToDigestConfirm(t, engine, sess)

	turn := engine.HandleUtterance(context.Background(), sess, "yes, please")

	assert.Equal(t, StateAwaitingExportConfirm, sess.State())
	assert.Equal(t, []int{3, 5}, ret.calls)

	require.Len(t, turn.Messages, 1)
	require.NotNil(t, turn.Messages[0].Digest)
	assert.Equal(t, "Challenge. Solution. Impact.", turn.Messages[0].Digest.Executive)
	assert.Contains(t, turn.Messages[0].Content, "**Executive Summary**")

	mock.Add(1300 * time.Millisecond)
	assert.Equal(t, msgExportOffer, lastMessage(sess).Content)
}

func TestDigestConfirmDecline(t *testing.T) {
	engine, mock := newTestEngine(testRetriever(), &fakeGenerator{responses: []string{"the answer"}}, &fakeExporter{})
	sess := engine.CreateSession()

	driveToDigestConfirm(t, engine, sess)

	turn := engine.HandleUtterance(context.Background(), sess, "nope")

	assert.Equal(t, StateIdle, sess.State())
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, msgDigestDecline, turn.Messages[0].Content)

	mock.Add(5 * time.Second)
	assert.Equal(t, msgDigestDecline, lastMessage(sess).Content, "stale digest offer must not fire")
}

func TestDigestGenerationFailureAbandonsToIdle(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"the answer"}}
	engine, _ := newTestEngine(testRetriever(), gen, &fakeExporter{})
	sess := engine.CreateSession()

	driveToDigestConfirm(t, engine, sess)

	gen.err = errors.New("llm down")
	turn := engine.HandleUtterance(context.Background(), sess, "yes")

	assert.Equal(t, StateIdle, sess.State())
	require.Len(t, turn.Messages, 1)
	assert.True(t, turn.Messages[0].Error)
	assert.Equal(t, msgDigestError, turn.Messages[0].Content)
}

func TestDigestMalformedOutputCarriesRaw(t *testing.T) {
	raw := "I am not JSON at all"
	gen := &fakeGenerator{responses: []string{"the answer", raw}}
	engine, _ := newTestEngine(testRetriever(), gen, &fakeExporter{})
	sess := engine.CreateSession()

	driveToDigestConfirm(t, engine, sess)

	turn := engine.HandleUtterance(context.Background(), sess, "yes")

	assert.Equal(t, StateIdle, sess.State())
	require.Len(t, turn.Messages, 1)
	assert.True(t, turn.Messages[0].Error)
	assert.Contains(t, turn.Messages[0].Content, "Invalid JSON from model")
	assert.Equal(t, raw, turn.Messages[0].Raw)
}

func driveToExportConfirm(t *testing.T, engine *Service, sess *Session) {
	t.Helper()

	driveToDigestConfirm(t, engine, sess)
	engine.HandleUtterance(context.Background(), sess, "yes")
	require.Equal(t, StateAwaitingExportConfirm, sess.State())
}

func TestExportConfirmAffirmative(t *testing.T) {
	exp := &fakeExporter{blob: []byte("PK-data")}
	gen := &fakeGenerator{responses: []string{"the answer", validDigestJSON}}
	engine, _ := newTestEngine(testRetriever(), gen, exp)
	sess := engine.CreateSession()

	driveToExportConfirm(t, engine, sess)

	turn := engine.HandleUtterance(context.Background(), sess, "Yes!")

	assert.Equal(t, StateIdle, sess.State())
	assert.Equal(t, 1, exp.calls)
	assert.Equal(t, []byte("PK-data"), turn.Document)
	assert.Equal(t, msgExportDone, lastMessage(sess).Content)

	sess.mu.Lock()
	assert.Nil(t, sess.lastDigest, "digest consumed by export")
	sess.mu.Unlock()
}

func TestExportDeclineClearsDigest(t *testing.T) {
	exp := &fakeExporter{}
	gen := &fakeGenerator{responses: []string{"the answer", validDigestJSON}}
	engine, _ := newTestEngine(testRetriever(), gen, exp)
	sess := engine.CreateSession()

	driveToExportConfirm(t, engine, sess)

	turn := engine.HandleUtterance(context.Background(), sess, "nope")

	assert.Equal(t, StateIdle, sess.State())
	assert.Zero(t, exp.calls)
	assert.Nil(t, turn.Document)
	assert.Equal(t, msgExportDecline, turn.Messages[0].Content)

	sess.mu.Lock()
	assert.Nil(t, sess.lastDigest)
	sess.mu.Unlock()
}

func TestExportFailureKeepsDigest(t *testing.T) {
	exp := &fakeExporter{err: errors.New("renderer broke")}
	gen := &fakeGenerator{responses: []string{"the answer", validDigestJSON}}
	engine, _ := newTestEngine(testRetriever(), gen, exp)
	sess := engine.CreateSession()

	driveToExportConfirm(t, engine, sess)

	turn := engine.HandleUtterance(context.Background(), sess, "yes")

	assert.Equal(t, StateIdle, sess.State())
	assert.True(t, turn.Messages[0].Error)
	assert.Nil(t, turn.Document)

	sess.mu.Lock()
	assert.NotNil(t, sess.lastDigest, "failed export must not drop the digest")
	sess.mu.Unlock()
}

func TestEarlyReplySuppressesPendingOffer(t *testing.T) {
	engine, mock := newTestEngine(testRetriever(), &fakeGenerator{responses: []string{"the answer"}}, &fakeExporter{})
	sess := engine.CreateSession()

	driveToDigestConfirm(t, engine, sess)

	// user answers before the 2s offer fires
	engine.HandleUtterance(context.Background(), sess, "nope")
	mock.Add(10 * time.Second)

	for _, msg := range sess.Messages() {
		assert.NotEqual(t, msgDigestOffer, msg.Content)
	}
}

func TestIsAffirmative(t *testing.T) {
	affirmative := []string{"yes", "Yes, please", "YES!", "si", "sì certo", "Sicuro"}
	for _, text := range affirmative {
		assert.True(t, isAffirmative(text), text)
	}

	negative := []string{"no", "nope", "not now", "maybe later", "cancel"}
	for _, text := range negative {
		assert.False(t, isAffirmative(text), text)
	}
}
