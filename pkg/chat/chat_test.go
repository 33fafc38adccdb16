package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedchat/feedchat/internal/models"
)

type fakeEmbedder struct {
	lastQuery string
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.lastQuery = text
	return []float32{1, 0, 0}, nil
}

type fakeSearchStore struct {
	passages []models.Passage
	lastTopK int
}

func (f *fakeSearchStore) Exists(ctx context.Context, id string) (bool, error) { return false, nil }

func (f *fakeSearchStore) Upsert(ctx context.Context, records []models.Record) error { return nil }

func (f *fakeSearchStore) Search(ctx context.Context, embedding []float32, topK int) ([]models.Passage, error) {
	f.lastTopK = topK
	return f.passages, nil
}

func (f *fakeSearchStore) Close() {}

type fakeCompleter struct {
	condensed    string
	answer       string
	answerErr    error
	answerCalls  int
	lastHistory  []models.Turn
	lastPassages []models.Passage
}

func (f *fakeCompleter) Condense(ctx context.Context, history []models.Turn, question string) (string, error) {
	f.lastHistory = append([]models.Turn(nil), history...)
	if f.condensed != "" {
		return f.condensed, nil
	}
	return question, nil
}

func (f *fakeCompleter) Answer(ctx context.Context, question string, passages []models.Passage) (string, error) {
	f.answerCalls++
	f.lastPassages = passages
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return f.answer, nil
}

func passagesWithScores() []models.Passage {
	return []models.Passage{
		{Document: models.Document{Title: "A", URL: "https://x/A", Text: "text a"}, Score: 0.91},
		{Document: models.Document{Title: "B", URL: "https://x/B", Text: "text b"}, Score: 0.85},
		{Document: models.Document{Title: "C", URL: "https://x/C", Text: "text c"}, Score: 0.60},
	}
}

func newEngine(t *testing.T, store *fakeSearchStore, completer *fakeCompleter, answerWithoutContext bool) *Engine {
	t.Helper()
	engine, err := NewWithConfig(EngineConfig{
		Embedder:             &fakeEmbedder{},
		Store:                store,
		Completer:            completer,
		AnswerWithoutContext: answerWithoutContext,
	})
	require.NoError(t, err)
	return engine
}

func TestAskThresholdFilter(t *testing.T) {
	// Scores [0.91, 0.85, 0.60] with cutoff 0.80: only A and B survive.
	store := &fakeSearchStore{passages: passagesWithScores()}
	completer := &fakeCompleter{answer: "the answer"}
	engine := newEngine(t, store, completer, false)

	session := models.NewConversation()
	answer, err := engine.Ask(context.Background(), session, "what about shops?")
	require.NoError(t, err)

	assert.Equal(t, 5, store.lastTopK)
	assert.Equal(t, "the answer", answer.Text)

	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "https://x/A", answer.Citations[0].URL)
	assert.Equal(t, "https://x/B", answer.Citations[1].URL)

	// Synthesis only saw the surviving passages, in rank order.
	require.Len(t, completer.lastPassages, 2)
	assert.Equal(t, float32(0.91), completer.lastPassages[0].Score)
	assert.Equal(t, float32(0.85), completer.lastPassages[1].Score)
}

func TestAskCitationDedup(t *testing.T) {
	store := &fakeSearchStore{passages: []models.Passage{
		{Document: models.Document{Title: "First rank", URL: "https://x/same"}, Score: 0.95},
		{Document: models.Document{Title: "Second rank", URL: "https://x/same"}, Score: 0.90},
	}}
	completer := &fakeCompleter{answer: "ok"}
	engine := newEngine(t, store, completer, false)

	answer, err := engine.Ask(context.Background(), models.NewConversation(), "q")
	require.NoError(t, err)

	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "First rank", answer.Citations[0].Title)
}

func TestAskNoRelevantContextCannedReply(t *testing.T) {
	// Everything below cutoff and AnswerWithoutContext off: the model is
	// not called and the canned reply is returned.
	store := &fakeSearchStore{passages: []models.Passage{
		{Document: models.Document{Title: "C", URL: "https://x/C"}, Score: 0.60},
	}}
	completer := &fakeCompleter{answer: "should not be used"}
	engine := newEngine(t, store, completer, false)

	session := models.NewConversation()
	answer, err := engine.Ask(context.Background(), session, "q")
	require.NoError(t, err)

	assert.Equal(t, 0, completer.answerCalls)
	assert.NotEmpty(t, answer.Text)
	assert.Empty(t, answer.Citations)

	// The turn still lands in the history.
	assert.Equal(t, 2, session.Len())
}

func TestAskNoRelevantContextGeneralAnswer(t *testing.T) {
	store := &fakeSearchStore{passages: nil}
	completer := &fakeCompleter{answer: "general knowledge answer"}
	engine := newEngine(t, store, completer, true)

	answer, err := engine.Ask(context.Background(), models.NewConversation(), "q")
	require.NoError(t, err)

	assert.Equal(t, 1, completer.answerCalls)
	assert.Empty(t, completer.lastPassages)
	assert.Equal(t, "general knowledge answer", answer.Text)
	assert.Empty(t, answer.Citations)
}

func TestAskAppendsTurns(t *testing.T) {
	store := &fakeSearchStore{passages: passagesWithScores()}
	completer := &fakeCompleter{answer: "first answer"}
	engine := newEngine(t, store, completer, false)

	session := models.NewConversation()
	_, err := engine.Ask(context.Background(), session, "first question")
	require.NoError(t, err)

	turns := session.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "first question"}, turns[0])
	assert.Equal(t, models.Turn{Role: models.RoleAssistant, Content: "first answer"}, turns[1])

	// The follow-up condenses against the history recorded so far.
	_, err = engine.Ask(context.Background(), session, "and then?")
	require.NoError(t, err)
	assert.Equal(t, turns[:2], completer.lastHistory)
}

func TestAskCondensedQueryIsEmbedded(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeSearchStore{passages: passagesWithScores()}
	completer := &fakeCompleter{condensed: "standalone question", answer: "ok"}

	engine, err := NewWithConfig(EngineConfig{
		Embedder:  embedder,
		Store:     store,
		Completer: completer,
	})
	require.NoError(t, err)

	_, err = engine.Ask(context.Background(), models.NewConversation(), "and it?")
	require.NoError(t, err)
	assert.Equal(t, "standalone question", embedder.lastQuery)
}

func TestAskSynthesisFailureLeavesHistoryUntouched(t *testing.T) {
	store := &fakeSearchStore{passages: passagesWithScores()}
	completer := &fakeCompleter{answerErr: errors.New("model unavailable")}
	engine := newEngine(t, store, completer, false)

	session := models.NewConversation()
	_, err := engine.Ask(context.Background(), session, "q")
	assert.Error(t, err)
	assert.Equal(t, 0, session.Len())
}

func TestNewWithConfigDefaults(t *testing.T) {
	engine := newEngine(t, &fakeSearchStore{}, &fakeCompleter{}, false)
	assert.Equal(t, 5, engine.config.TopK)
	assert.Equal(t, float32(0.80), engine.config.SimilarityCutoff)

	_, err := NewWithConfig(EngineConfig{})
	assert.Error(t, err)
}
