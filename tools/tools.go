package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// HandlerFunc renders markdown output for one tool invocation.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool pairs an MCP tool definition with its handler.
type Tool struct {
	Definition mcp.Tool
	Handler    HandlerFunc
}

// All returns every tool backed by the given state.
func All(st *State) []Tool {
	return []Tool{
		searchCrates(st),
		getCrateInfo(st),
		getCrateVersions(st),
		getCrateVersion(st),
		getDependencies(st),
		getDependencyTree(st),
		getReverseDependencies(st),
		getDownloads(st),
		getVersionDownloads(st),
		getOwners(st),
		getCrateAuthors(st),
		getCrateReadme(st),
		getSummary(st),
		getCategories(st),
		getCategory(st),
		getKeywords(st),
		getKeyword(st),
		getUser(st),
		getUserStats(st),
		getCrateFeatures(st),
		getCrateDocs(st),
		getDocItem(st),
		searchDocs(st),
		auditDependencies(st),
		compareCrates(st),
		crateHealthCheck(st),
	}
}
