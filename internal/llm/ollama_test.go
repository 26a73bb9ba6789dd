package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(chatResponse{
			Message: Message{Role: "assistant", Content: "The function parses config files."},
		})
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "llama3.1")
	messages := []Message{
		{Role: "system", Content: "You are a code assistant."},
		{Role: "user", Content: "What does Load do?"},
	}
	answer, err := c.Generate(context.Background(), messages)
	require.NoError(t, err)

	assert.Equal(t, "The function parses config files.", answer)
	assert.Equal(t, "llama3.1", got.Model)
	assert.Equal(t, messages, got.Messages)
	assert.False(t, got.Stream, "responses are requested unstreamed")
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model busy", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "llama3.1")
	_, err := c.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama chat returned 500")
}

func TestIsOpenAIModel(t *testing.T) {
	assert.True(t, IsOpenAIModel("gpt-4o"))
	assert.True(t, IsOpenAIModel("gpt-4o-mini"))
	assert.False(t, IsOpenAIModel("llama3.1"))
	assert.False(t, IsOpenAIModel("qwen2.5-coder"))
	assert.False(t, IsOpenAIModel(""))
}
