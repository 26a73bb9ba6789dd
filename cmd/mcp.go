package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"axon/internal/config"
	"axon/internal/ingest"
	"axon/internal/rag"
	"axon/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing code search and chat tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	repos, err := config.LoadRepositories(cfg.ReposConfigPath)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	retriever := rag.NewRetriever(st, emb, log)
	svc := newService(cfg, st, emb, log)

	s := mcpserver.NewMCPServer("axon", "1.0.0",
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
	)

	s.AddTool(searchCodeTool(), makeSearchCodeHandler(retriever))
	s.AddTool(chatWithCodeTool(), makeChatWithCodeHandler(cfg, retriever))
	s.AddTool(ingestRepositoryTool(), makeIngestHandler(svc, repos))
	s.AddTool(repositoryStatsTool(), makeStatsHandler(st))

	s.AddResource(statsResource(), makeStatsResourceHandler(st))
	s.AddResource(repositoriesResource(), makeRepositoriesResourceHandler(repos))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

var ingestAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(false),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(true),
}

func searchCodeTool() mcp.Tool {
	return mcp.NewTool("search_code",
		mcp.WithDescription("Search indexed repositories for code using semantic similarity. Returns matching chunks with file paths, line ranges, and similarity scores."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query for finding relevant code"),
		),
		mcp.WithString("repos",
			mcp.Description("Comma-separated repository names to search"),
		),
		mcp.WithString("languages",
			mcp.Description("Comma-separated programming languages to search"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of results to return (default 5)"),
		),
	)
}

func chatWithCodeTool() mcp.Tool {
	return mcp.NewTool("chat_with_code",
		mcp.WithDescription("Ask questions about the indexed codebase. Retrieves relevant code chunks and answers with them as context."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Question or message about the code"),
		),
		mcp.WithString("repos",
			mcp.Description("Comma-separated repository names to draw context from"),
		),
		mcp.WithString("languages",
			mcp.Description("Comma-separated programming languages to draw context from"),
		),
		mcp.WithNumber("max_context_chunks",
			mcp.Description("Number of code chunks to include as context (default 5)"),
		),
		mcp.WithString("model",
			mcp.Description("Chat model to use (default from configuration)"),
		),
	)
}

func ingestRepositoryTool() mcp.Tool {
	return mcp.NewTool("ingest_repository",
		mcp.WithDescription("Clone or update a configured repository and index its changed files."),
		mcp.WithToolAnnotation(ingestAnnotation),
		mcp.WithString("repo_name",
			mcp.Required(),
			mcp.Description("Name of the repository to ingest"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Reindex even when the head commit is unchanged"),
		),
	)
}

func repositoryStatsTool() mcp.Tool {
	return mcp.NewTool("get_repository_stats",
		mcp.WithDescription("Get statistics about indexed repositories and stored code chunks."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

func makeSearchCodeHandler(retriever *rag.Retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("top_k", 5)
		if k <= 0 {
			k = 5
		}
		filter := store.SearchFilter{
			Repos:     splitList(req.GetString("repos", "")),
			Languages: splitList(req.GetString("languages", "")),
		}

		results, err := retriever.Search(ctx, query, k, filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(results) == 0 {
			return mcp.NewToolResultText("No code found matching your query."), nil
		}

		return mcp.NewToolResultText(formatSearchResults(results)), nil
	}
}

func makeChatWithCodeHandler(cfg *config.Settings, retriever *rag.Retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message := req.GetString("message", "")
		if message == "" {
			return mcp.NewToolResultError("message is required"), nil
		}
		k := req.GetInt("max_context_chunks", 5)
		if k <= 0 {
			k = 5
		}
		filter := store.SearchFilter{
			Repos:     splitList(req.GetString("repos", "")),
			Languages: splitList(req.GetString("languages", "")),
		}

		chat, err := newChat(cfg, req.GetString("model", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results, err := retriever.Search(ctx, message, k, filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
		}

		msgs := rag.BuildMessages(results, nil, message)
		answer, err := chat.Generate(ctx, msgs)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "**Assistant (%s)**:\n", chat.Model())
		sb.WriteString(answer)
		if len(results) > 0 {
			fmt.Fprintf(&sb, "\n\n**Sources** (%d code chunks):\n", len(results))
			for i, res := range results {
				c := res.Chunk
				fmt.Fprintf(&sb, "%d. %s (lines %d-%d) - Score: %.3f\n", i+1, c.Path, c.StartLine, c.EndLine, res.Score)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeIngestHandler(svc *ingest.Service, repos []config.Repository) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("repo_name", "")
		if name == "" {
			return mcp.NewToolResultError("repo_name is required"), nil
		}
		force := req.GetBool("force", false)

		rc, ok := config.FindRepository(repos, name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("repository %q not found in configuration", name)), nil
		}

		stats, err := svc.ProcessRepository(ctx, rc, force)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ingest failed: %v", err)), nil
		}

		text := fmt.Sprintf("Successfully processed repository %q:\n"+
			"- Files processed: %d\n"+
			"- Files added: %d\n"+
			"- Files modified: %d\n"+
			"- Files deleted: %d\n"+
			"- Chunks added: %d\n"+
			"- Chunks deleted: %d",
			name, stats.FilesProcessed, stats.FilesAdded, stats.FilesModified,
			stats.FilesDeleted, stats.ChunksAdded, stats.ChunksDeleted)
		return mcp.NewToolResultText(text), nil
	}
}

func makeStatsHandler(st store.ChunkStore) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := st.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
		}
		model, err := st.GetMeta(ctx, store.MetaEmbeddingModel)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
		}

		text := fmt.Sprintf("**Vector Store Statistics:**\n"+
			"- Total chunks: %d\n"+
			"- Total repositories: %d\n"+
			"- Languages: %s\n"+
			"- Embedding model: %s",
			stats.TotalChunks, len(stats.ByRepo),
			strings.Join(sortedKeys(stats.ByLanguage), ", "), model)
		return mcp.NewToolResultText(text), nil
	}
}

// --- Resources ---

func statsResource() mcp.Resource {
	return mcp.NewResource("axon://stats", "Vector Store Statistics",
		mcp.WithResourceDescription("Current statistics about the indexed code"),
		mcp.WithMIMEType("application/json"),
	)
}

func makeStatsResourceHandler(st store.ChunkStore) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stats, err := st.Stats(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.MarshalIndent(map[string]any{
			"total_chunks": stats.TotalChunks,
			"repositories": stats.ByRepo,
			"languages":    stats.ByLanguage,
		}, "", "  ")
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(b),
		}}, nil
	}
}

func repositoriesResource() mcp.Resource {
	return mcp.NewResource("axon://repositories", "Repository List",
		mcp.WithResourceDescription("List of configured repositories"),
		mcp.WithMIMEType("application/json"),
	)
}

func makeRepositoriesResourceHandler(repos []config.Repository) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type repoInfo struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Enabled bool   `json:"enabled"`
		}
		out := make([]repoInfo, 0, len(repos))
		for _, r := range repos {
			out = append(out, repoInfo{Name: r.Name, URL: r.URL, Enabled: r.Enabled})
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(b),
		}}, nil
	}
}

// --- Formatting helpers ---

func formatSearchResults(results []rag.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d code chunks:\n\n", len(results))

	for i, res := range results {
		c := res.Chunk
		name := c.Name
		if name == "" {
			name = "N/A"
		}
		fmt.Fprintf(&sb, "## Result %d (Score: %.3f)\n", i+1, res.Score)
		fmt.Fprintf(&sb, "**File**: %s (lines %d-%d)\n", c.Path, c.StartLine, c.EndLine)
		fmt.Fprintf(&sb, "**Repository**: %s\n", c.Repo)
		fmt.Fprintf(&sb, "**Language**: %s\n", c.Language)
		fmt.Fprintf(&sb, "**Type**: %s\n", c.Kind)
		fmt.Fprintf(&sb, "**Name**: %s\n\n", name)
		fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", c.Language, c.Content)
	}

	return sb.String()
}
