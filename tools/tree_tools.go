package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/cratesmcp/crates"
)

const (
	defaultTreeDepth = 3
	maxTreeDepth     = 5
)

// resolvedCrate is one crate's resolved version and dependency list,
// cached during tree traversal so each crate is fetched at most once.
type resolvedCrate struct {
	version string
	deps    []crates.Dependency
}

func getDependencyTree(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_dependency_tree",
			mcp.WithDescription("Get the full transitive dependency tree for a crate, recursively "+
				"resolving dependencies to a configurable depth. Shows the complete dependency "+
				"footprint with version requirements and deduplication markers."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
			mcp.WithString("version", mcp.Description("Version (default: latest)")),
			mcp.WithNumber("max_depth", mcp.Description("Maximum depth to recurse (default: 3, max: 5)")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}
			maxDepth := intArg(args, "max_depth", defaultTreeDepth)
			if maxDepth > maxTreeDepth {
				maxDepth = maxTreeDepth
			}
			if maxDepth < 1 {
				maxDepth = 1
			}

			rootVersion, err := st.resolveVersion(ctx, name, stringArg(args, "version", ""))
			if err != nil {
				return "", err
			}
			rootDeps, err := st.Client.Dependencies(ctx, name, rootVersion)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}
			apiCalls := 2

			resolved := map[string]resolvedCrate{
				name: {version: rootVersion, deps: rootDeps},
			}

			// BFS over normal dependencies, resolving each crate once.
			// Unresolvable crates are skipped and rendered as leaves.
			type queueItem struct {
				name  string
				depth int
			}
			queue := []queueItem{{name, 0}}
			queued := map[string]bool{name: true}
			for len(queue) > 0 {
				item := queue[0]
				queue = queue[1:]
				if item.depth >= maxDepth {
					continue
				}
				for _, dep := range normalDeps(resolved[item.name].deps) {
					if queued[dep.CrateID] {
						continue
					}
					queued[dep.CrateID] = true

					depCrate, err := st.Client.GetCrate(ctx, dep.CrateID)
					if err != nil {
						continue
					}
					apiCalls++
					depVersion := depCrate.Crate.MaxVersion

					depDeps, err := st.Client.Dependencies(ctx, dep.CrateID, depVersion)
					if err != nil {
						depDeps = nil
					}
					apiCalls++

					resolved[dep.CrateID] = resolvedCrate{version: depVersion, deps: depDeps}
					queue = append(queue, queueItem{dep.CrateID, item.depth + 1})
				}
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# Dependency Tree: %s v%s\n\n", name, rootVersion)
			fmt.Fprintf(&b, "%s v%s\n", name, rootVersion)

			treeDepth := 0
			r := &treeRenderer{
				resolved: resolved,
				maxDepth: maxDepth,
				path:     map[string]bool{},
				seen:     map[string]bool{},
				depth:    &treeDepth,
			}
			r.write(&b, name, "", 0)

			fmt.Fprintf(&b, "\n## Summary\n\n")
			fmt.Fprintf(&b, "- **Direct dependencies**: %d\n", len(normalDeps(rootDeps)))
			fmt.Fprintf(&b, "- **Total unique crates in tree**: %d\n", len(resolved)-1)
			fmt.Fprintf(&b, "- **Tree depth**: %d\n", treeDepth)
			fmt.Fprintf(&b, "- **API calls made**: %d\n", apiCalls)
			return b.String(), nil
		},
	}
}

// treeRenderer walks the resolved crate graph depth-first. path tracks
// the current ancestor chain for circular detection; seen marks crates
// already expanded elsewhere so they are not expanded twice.
type treeRenderer struct {
	resolved map[string]resolvedCrate
	maxDepth int
	path     map[string]bool
	seen     map[string]bool
	depth    *int
}

func (r *treeRenderer) write(b *strings.Builder, name, prefix string, depth int) {
	r.path[name] = true
	defer delete(r.path, name)

	deps := normalDeps(r.resolved[name].deps)
	for i, dep := range deps {
		if depth+1 > *r.depth {
			*r.depth = depth + 1
		}

		circular := r.path[dep.CrateID]
		_, ok := r.resolved[dep.CrateID]
		expanded := ok && !circular && !r.seen[dep.CrateID] && depth+1 < r.maxDepth

		suffix := ""
		switch {
		case circular:
			suffix = " (circular)"
		case ok && r.seen[dep.CrateID]:
			suffix = " (seen)"
		}
		optional := ""
		if dep.Optional {
			optional = " (optional)"
		}
		fmt.Fprintf(b, "%s+-- %s %s%s%s\n", prefix, dep.CrateID, dep.Req, optional, suffix)

		if expanded {
			r.seen[dep.CrateID] = true
			childPrefix := prefix + "|   "
			if i == len(deps)-1 {
				childPrefix = prefix + "    "
			}
			r.write(b, dep.CrateID, childPrefix, depth+1)
		}
	}
}

func normalDeps(deps []crates.Dependency) []crates.Dependency {
	out := make([]crates.Dependency, 0, len(deps))
	for _, d := range deps {
		if d.Kind == "normal" || d.Kind == "" {
			out = append(out, d)
		}
	}
	return out
}
