package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ecommerce-chatbot/internal/repository"
	"ecommerce-chatbot/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testFAQCSV = `question,answer
Do you accept cash as a payment option?,Yes. Cash on delivery is available for orders below Rs. 50000.
How can I track my order?,You can track your order from the Orders section of your account.
What is your policy on defective products?,Defective products can be returned within 30 days for a full refund.
`

func writeFAQFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faq_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestFAQService(store VectorStore, llm LLM) *FAQService {
	cfg := &config.FAQConfig{Collection: "faqs", TopK: 2}
	return NewFAQService(store, NewHashEmbedder(1024), llm, cfg, zap.NewNop())
}

func TestFAQIngestIsIdempotent(t *testing.T) {
	store := newMemoryVectorStore()
	svc := newTestFAQService(store, &fakeLLM{})
	path := writeFAQFile(t, testFAQCSV)

	first, err := svc.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, IngestCreated, first.Status)
	assert.Equal(t, 3, first.Documents)

	second, err := svc.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, IngestSkipped, second.Status)

	assert.Equal(t, 3, store.documentCount("faqs"))
	assert.Equal(t, 1, store.createCalls)
}

func TestFAQIngestSkipsWithoutReadingFile(t *testing.T) {
	store := newMemoryVectorStore()
	svc := newTestFAQService(store, &fakeLLM{})

	_, err := svc.Ingest(context.Background(), writeFAQFile(t, testFAQCSV))
	require.NoError(t, err)

	res, err := svc.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Equal(t, IngestSkipped, res.Status)
}

func TestFAQIngestMissingFile(t *testing.T) {
	svc := newTestFAQService(newMemoryVectorStore(), &fakeLLM{})

	_, err := svc.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataSource)
}

func TestFAQRetrieveBeforeIngest(t *testing.T) {
	svc := newTestFAQService(newMemoryVectorStore(), &fakeLLM{})

	_, err := svc.Retrieve(context.Background(), "How can I track my order?")
	assert.ErrorIs(t, err, repository.ErrCollectionNotFound)
}

func TestFAQRoundTrip(t *testing.T) {
	svc := newTestFAQService(newMemoryVectorStore(), &fakeLLM{})
	_, err := svc.Ingest(context.Background(), writeFAQFile(t, testFAQCSV))
	require.NoError(t, err)

	entries, err := svc.Retrieve(context.Background(), "How can I track my order?")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "id_1", entries[0].ID)
	assert.Equal(t, "You can track your order from the Orders section of your account.", entries[0].Answer)
}

func TestFAQAnswerUsesContext(t *testing.T) {
	llm := &fakeLLM{
		completeFunc: func(_ context.Context, _ CompletionRequest) (string, error) {
			return "Yes, cash on delivery is available.", nil
		},
	}
	svc := newTestFAQService(newMemoryVectorStore(), llm)
	_, err := svc.Ingest(context.Background(), writeFAQFile(t, testFAQCSV))
	require.NoError(t, err)

	answer, err := svc.Answer(context.Background(), "Do you take cash as a payment option?")
	require.NoError(t, err)
	assert.Equal(t, "Yes, cash on delivery is available.", answer)

	require.Len(t, llm.requests, 1)
	prompt := llm.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "Cash on delivery is available for orders below Rs. 50000.")
	assert.Contains(t, prompt, "QUESTION: Do you take cash as a payment option?")
	assert.Contains(t, prompt, `"I don't know"`)
}

func TestFAQAnswerEmptyContextSkipsLLM(t *testing.T) {
	llm := &fakeLLM{}
	svc := newTestFAQService(newMemoryVectorStore(), llm)
	_, err := svc.Ingest(context.Background(), writeFAQFile(t, "question,answer\nIs there a store in Pune?,\n"))
	require.NoError(t, err)

	answer, err := svc.Answer(context.Background(), "Is there a store in Pune?")
	require.NoError(t, err)
	assert.Equal(t, msgFAQNoContext, answer)
	assert.Empty(t, llm.requests)
}

func TestFAQAnswerDegradesWhenUnavailable(t *testing.T) {
	llm := &fakeLLM{
		completeFunc: func(_ context.Context, _ CompletionRequest) (string, error) {
			return "", ErrServiceUnavailable
		},
	}
	svc := newTestFAQService(newMemoryVectorStore(), llm)
	_, err := svc.Ingest(context.Background(), writeFAQFile(t, testFAQCSV))
	require.NoError(t, err)

	answer, err := svc.Answer(context.Background(), "How can I track my order?")
	require.NoError(t, err)
	assert.Equal(t, msgUnavailable, answer)
}

func TestFAQAnswerPropagatesUnexpectedErrors(t *testing.T) {
	boom := errors.New("boom")
	llm := &fakeLLM{
		completeFunc: func(_ context.Context, _ CompletionRequest) (string, error) {
			return "", boom
		},
	}
	svc := newTestFAQService(newMemoryVectorStore(), llm)
	_, err := svc.Ingest(context.Background(), writeFAQFile(t, testFAQCSV))
	require.NoError(t, err)

	_, err = svc.Answer(context.Background(), "How can I track my order?")
	assert.ErrorIs(t, err, boom)
}

func TestReadFAQCSV(t *testing.T) {
	entries, err := ReadFAQCSV(strings.NewReader("answer,category,question\nUse the Orders page.,orders,How can I track my order?\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "id_0", entries[0].ID)
	assert.Equal(t, "How can I track my order?", entries[0].Question)
	assert.Equal(t, "Use the Orders page.", entries[0].Answer)
}

func TestReadFAQCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"missing answer column", "question\nHow can I track my order?\n"},
		{"no rows", "question,answer\n"},
		{"unterminated quote", "question,answer\n\"How can I track,my order\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFAQCSV(strings.NewReader(tt.content))
			assert.ErrorIs(t, err, ErrDataSource)
		})
	}
}
