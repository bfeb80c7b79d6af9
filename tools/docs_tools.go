package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/cratesmcp/docsrs"
)

func getCrateDocs(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_crate_docs",
			mcp.WithDescription("Browse a crate's documentation structure from docs.rs. "+
				"Lists modules, structs, traits, functions, and other items in a module "+
				"with brief descriptions. Use module_path to navigate into sub-modules."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
			mcp.WithString("version", mcp.Description("Version (default: latest)")),
			mcp.WithString("module_path",
				mcp.Description("Module path to browse (e.g. \"de\", \"io::util\"). Omit for crate root.")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}
			version := stringArg(args, "version", "latest")

			krate, err := st.DocsCache.GetOrFetch(ctx, st.DocsRs, name, version)
			if err != nil {
				return "", fmt.Errorf("docs.rs fetch error: %w", err)
			}

			moduleID := krate.Root
			if path := stringArg(args, "module_path", ""); path != "" {
				id, ok := docsrs.ResolveModuleID(krate, path)
				if !ok {
					return "", fmt.Errorf("module %q not found in %s v%s", path, name, version)
				}
				moduleID = id
			}

			return docsrs.FormatModuleListing(krate, moduleID), nil
		},
	}
}

func getDocItem(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_doc_item",
			mcp.WithDescription("Get full documentation for a specific item (function, struct, "+
				"trait, etc.) from docs.rs, including its doc comments."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
			mcp.WithString("version", mcp.Description("Version (default: latest)")),
			mcp.WithString("item_path", mcp.Required(),
				mcp.Description("Item path (e.g. \"Client\", \"de::from_str\", \"Serialize\")")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}
			itemPath, err := requireString(args, "item_path")
			if err != nil {
				return "", err
			}
			version := stringArg(args, "version", "latest")

			krate, err := st.DocsCache.GetOrFetch(ctx, st.DocsRs, name, version)
			if err != nil {
				return "", fmt.Errorf("docs.rs fetch error: %w", err)
			}

			item := docsrs.FindItemByPath(krate, itemPath)
			if item == nil {
				return "", fmt.Errorf("item %q not found in %s v%s", itemPath, name, version)
			}

			return docsrs.FormatItemDetail(krate, item), nil
		},
	}
}

func searchDocs(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("search_docs",
			mcp.WithDescription("Search for items by name within a crate's documentation on "+
				"docs.rs. Returns matching item paths with kinds and summaries."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
			mcp.WithString("version", mcp.Description("Version (default: latest)")),
			mcp.WithString("query", mcp.Required(), mcp.Description("Item name to search for")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of matches (default 20)")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}
			query, err := requireString(args, "query")
			if err != nil {
				return "", err
			}
			version := stringArg(args, "version", "latest")

			krate, err := st.DocsCache.GetOrFetch(ctx, st.DocsRs, name, version)
			if err != nil {
				return "", fmt.Errorf("docs.rs fetch error: %w", err)
			}

			matches := docsrs.SearchItems(krate, query, intArg(args, "limit", 20))

			var b strings.Builder
			fmt.Fprintf(&b, "# Search %q in %s v%s\n\n", query, name, version)
			if len(matches) == 0 {
				b.WriteString("No matching items found.\n")
				return b.String(), nil
			}
			for _, m := range matches {
				if m.Summary == "" {
					fmt.Fprintf(&b, "- `%s` [%s]\n", m.Path, m.Kind)
				} else {
					fmt.Fprintf(&b, "- `%s` [%s] -- %s\n", m.Path, m.Kind, m.Summary)
				}
			}
			return b.String(), nil
		},
	}
}
