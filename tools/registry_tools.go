package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/cratesmcp/crates"
)

func searchCrates(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("search_crates",
			mcp.WithDescription("Search for Rust crates on crates.io by name or keywords. "+
				"Returns matching crates with versions, download counts, and descriptions."),
			mcp.WithString("query", mcp.Required(),
				mcp.Description("Search query (crate name or keywords)")),
			mcp.WithString("sort",
				mcp.Description("Sort order: relevance, downloads, recent-downloads, recent-updates, new, alpha")),
			mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
			mcp.WithNumber("per_page", mcp.Description("Results per page (default 10, max 100)")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query, err := requireString(args, "query")
			if err != nil {
				return "", err
			}
			perPage := intArg(args, "per_page", 10)
			if perPage > 100 {
				perPage = 100
			}

			page, err := st.Client.Search(ctx, crates.Query{
				Search:  query,
				Sort:    crates.Sort(stringArg(args, "sort", "")),
				Page:    intArg(args, "page", 0),
				PerPage: perPage,
			})
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			summaries := make([]CrateSummary, 0, len(page.Crates))
			for _, c := range page.Crates {
				summaries = append(summaries, CrateSummary{
					Name:        c.Name,
					Description: c.Description,
					MaxVersion:  c.MaxVersion,
					Downloads:   c.Downloads,
				})
			}
			st.SaveSearch(query, summaries)

			var b strings.Builder
			fmt.Fprintf(&b, "# Search Results for %q\n\n", query)
			fmt.Fprintf(&b, "Found %d crates (showing %d)\n\n", page.Meta.Total, len(page.Crates))
			for _, c := range page.Crates {
				fmt.Fprintf(&b, "## %s v%s\n\n", c.Name, c.MaxVersion)
				if c.Description != "" {
					fmt.Fprintf(&b, "%s\n\n", c.Description)
				}
				fmt.Fprintf(&b, "- **Downloads**: %s\n", FormatCount(c.Downloads))
				if c.RecentDownloads > 0 {
					fmt.Fprintf(&b, "- **Recent downloads**: %s\n", FormatCount(c.RecentDownloads))
				}
				b.WriteString("\n")
			}
			return b.String(), nil
		},
	}
}

func getCrateInfo(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_crate_info",
			mcp.WithDescription("Get detailed information about a crate: description, versions, "+
				"downloads, repository, documentation, keywords, and categories."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}

			resp, err := st.Client.GetCrate(ctx, name)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}
			c := resp.Crate

			var b strings.Builder
			fmt.Fprintf(&b, "# %s v%s\n\n", c.Name, c.MaxVersion)
			if c.Description != "" {
				fmt.Fprintf(&b, "> %s\n\n", c.Description)
			}
			fmt.Fprintf(&b, "- **Total downloads**: %s\n", FormatCount(c.Downloads))
			if c.RecentDownloads > 0 {
				fmt.Fprintf(&b, "- **Recent downloads**: %s\n", FormatCount(c.RecentDownloads))
			}
			if c.MaxStableVersion != "" {
				fmt.Fprintf(&b, "- **Latest stable**: %s\n", c.MaxStableVersion)
			}
			fmt.Fprintf(&b, "- **Created**: %s\n", c.CreatedAt.Format("2006-01-02"))
			fmt.Fprintf(&b, "- **Updated**: %s\n", c.UpdatedAt.Format("2006-01-02"))
			if c.Repository != "" {
				fmt.Fprintf(&b, "- **Repository**: %s\n", c.Repository)
			}
			if c.Documentation != "" {
				fmt.Fprintf(&b, "- **Documentation**: %s\n", c.Documentation)
			}
			if c.Homepage != "" {
				fmt.Fprintf(&b, "- **Homepage**: %s\n", c.Homepage)
			}
			if len(c.Keywords) > 0 {
				fmt.Fprintf(&b, "- **Keywords**: %s\n", strings.Join(c.Keywords, ", "))
			}
			if len(c.Categories) > 0 {
				fmt.Fprintf(&b, "- **Categories**: %s\n", strings.Join(c.Categories, ", "))
			}

			if len(resp.Versions) > 0 {
				b.WriteString("\n## Recent Versions\n\n")
				limit := 5
				if len(resp.Versions) < limit {
					limit = len(resp.Versions)
				}
				for _, v := range resp.Versions[:limit] {
					yanked := ""
					if v.Yanked {
						yanked = " (yanked)"
					}
					fmt.Fprintf(&b, "- v%s%s (%s)\n", v.Num, yanked, v.CreatedAt.Format("2006-01-02"))
				}
			}
			return b.String(), nil
		},
	}
}

func getCrateVersions(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_crate_versions",
			mcp.WithDescription("Get the version history of a crate with release dates, "+
				"download counts, and yank status."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
			mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
			mcp.WithNumber("per_page", mcp.Description("Versions per page (default 20)")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}

			page, err := st.Client.Versions(ctx, name, intArg(args, "page", 0), intArg(args, "per_page", 20))
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# %s - Version History\n\n", name)
			fmt.Fprintf(&b, "Total versions: %d\n\n", page.Meta.Total)
			for _, v := range page.Versions {
				yanked := ""
				if v.Yanked {
					yanked = " **(yanked)**"
				}
				fmt.Fprintf(&b, "- **v%s**%s (%s) - %s downloads",
					v.Num, yanked, v.CreatedAt.Format("2006-01-02"), FormatCount(v.Downloads))
				if v.License != "" {
					fmt.Fprintf(&b, " - %s", v.License)
				}
				b.WriteString("\n")
			}
			return b.String(), nil
		},
	}
}

func getDependencies(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_dependencies",
			mcp.WithDescription("Get the dependencies of a specific crate version, grouped by "+
				"kind (normal, dev, build)."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
			mcp.WithString("version", mcp.Description("Version (default: latest)")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}
			version, err := st.resolveVersion(ctx, name, stringArg(args, "version", ""))
			if err != nil {
				return "", err
			}

			deps, err := st.Client.Dependencies(ctx, name, version)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# %s v%s - Dependencies\n\n", name, version)
			if len(deps) == 0 {
				b.WriteString("No dependencies.\n")
				return b.String(), nil
			}

			kinds := []struct {
				kind    string
				heading string
			}{
				{"normal", "Dependencies"},
				{"dev", "Dev Dependencies"},
				{"build", "Build Dependencies"},
			}
			for _, k := range kinds {
				var group []crates.Dependency
				for _, d := range deps {
					if d.Kind == k.kind || (k.kind == "normal" && d.Kind == "") {
						group = append(group, d)
					}
				}
				if len(group) == 0 {
					continue
				}
				fmt.Fprintf(&b, "## %s\n\n", k.heading)
				for _, d := range group {
					optional := ""
					if d.Optional {
						optional = " (optional)"
					}
					fmt.Fprintf(&b, "- `%s` %s%s\n", d.CrateID, d.Req, optional)
				}
				b.WriteString("\n")
			}
			return b.String(), nil
		},
	}
}

func getReverseDependencies(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_reverse_dependencies",
			mcp.WithDescription("Find crates that depend on the given crate. A strong signal "+
				"of how widely a crate is used in the ecosystem."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}

			rdeps, err := st.Client.ReverseDependencies(ctx, name)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# Crates depending on %s\n\n", name)
			fmt.Fprintf(&b, "Total dependents: %d\n\n", rdeps.Meta.Total)
			for _, rd := range rdeps.Dependencies {
				fmt.Fprintf(&b, "- **%s** v%s requires `%s`\n",
					rd.CrateVersion.CrateName, rd.CrateVersion.Num, rd.Dependency.Req)
			}
			return b.String(), nil
		},
	}
}

func getDownloads(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_downloads",
			mcp.WithDescription("Get download statistics for a crate over the last 90 days, "+
				"with a per-version breakdown."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}

			dl, err := st.Client.Downloads(ctx, name)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var total int64
			perVersion := map[int64]int64{}
			for _, vd := range dl.VersionDownloads {
				total += vd.Downloads
				perVersion[vd.Version] += vd.Downloads
			}

			type versionTotal struct {
				id        int64
				downloads int64
			}
			totals := make([]versionTotal, 0, len(perVersion))
			for id, n := range perVersion {
				totals = append(totals, versionTotal{id, n})
			}
			sort.Slice(totals, func(i, j int) bool { return totals[i].downloads > totals[j].downloads })

			var b strings.Builder
			fmt.Fprintf(&b, "# %s - Download Statistics\n\n", name)
			fmt.Fprintf(&b, "**Recent downloads (90 days):** %s\n\n", FormatCount(total))
			b.WriteString("## By Version\n\n")
			limit := 10
			if len(totals) < limit {
				limit = len(totals)
			}
			for _, vt := range totals[:limit] {
				fmt.Fprintf(&b, "- version %d: %s\n", vt.id, FormatCount(vt.downloads))
			}
			return b.String(), nil
		},
	}
}

func getOwners(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_owners",
			mcp.WithDescription("Get the owners and maintainers of a crate."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}

			owners, err := st.Client.Owners(ctx, name)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# %s - Owners\n\n", name)
			for _, o := range owners {
				label := o.Login
				if o.Name != "" {
					label = fmt.Sprintf("%s (%s)", o.Name, o.Login)
				}
				kind := o.Kind
				if kind == "" {
					kind = "user"
				}
				fmt.Fprintf(&b, "- **%s** [%s]\n", label, kind)
			}
			return b.String(), nil
		},
	}
}

func getSummary(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_summary",
			mcp.WithDescription("Get crates.io global statistics: total crates and downloads, "+
				"newest and most downloaded crates, popular keywords and categories."),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			summary, err := st.Client.Summary(ctx)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			b.WriteString("# crates.io Summary\n\n")
			fmt.Fprintf(&b, "- **Total crates**: %s\n", FormatCount(summary.NumCrates))
			fmt.Fprintf(&b, "- **Total downloads**: %s\n\n", FormatCount(summary.NumDownloads))

			writeCrateList := func(heading string, list []crates.Crate) {
				if len(list) == 0 {
					return
				}
				fmt.Fprintf(&b, "## %s\n\n", heading)
				for _, c := range list {
					fmt.Fprintf(&b, "- **%s** v%s (%s downloads)\n",
						c.Name, c.MaxVersion, FormatCount(c.Downloads))
				}
				b.WriteString("\n")
			}
			writeCrateList("Most Downloaded", summary.MostDownloaded)
			writeCrateList("Just Updated", summary.JustUpdated)
			writeCrateList("New Crates", summary.NewCrates)

			if len(summary.PopularKeywords) > 0 {
				b.WriteString("## Popular Keywords\n\n")
				for _, k := range summary.PopularKeywords {
					fmt.Fprintf(&b, "- %s (%d crates)\n", k.Keyword, k.CratesCnt)
				}
				b.WriteString("\n")
			}
			if len(summary.PopularCategories) > 0 {
				b.WriteString("## Popular Categories\n\n")
				for _, c := range summary.PopularCategories {
					fmt.Fprintf(&b, "- %s (%d crates)\n", c.Category, c.CratesCnt)
				}
			}
			return b.String(), nil
		},
	}
}

func getCategories(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_categories",
			mcp.WithDescription("Browse crates.io categories with crate counts."),
			mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
			mcp.WithNumber("per_page", mcp.Description("Categories per page (default 20)")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			page, err := st.Client.Categories(ctx, intArg(args, "page", 0), intArg(args, "per_page", 20))
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			b.WriteString("# crates.io Categories\n\n")
			fmt.Fprintf(&b, "Total categories: %d\n\n", page.Meta.Total)
			for _, c := range page.Categories {
				fmt.Fprintf(&b, "- **%s** (%d crates)", c.Category, c.CratesCnt)
				if c.Description != "" {
					fmt.Fprintf(&b, " - %s", c.Description)
				}
				b.WriteString("\n")
			}
			return b.String(), nil
		},
	}
}

func getKeywords(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_keywords",
			mcp.WithDescription("Browse crates.io keywords with crate counts."),
			mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
			mcp.WithNumber("per_page", mcp.Description("Keywords per page (default 20)")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			page, err := st.Client.Keywords(ctx, intArg(args, "page", 0), intArg(args, "per_page", 20))
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			b.WriteString("# crates.io Keywords\n\n")
			fmt.Fprintf(&b, "Total keywords: %d\n\n", page.Meta.Total)
			for _, k := range page.Keywords {
				fmt.Fprintf(&b, "- **%s** (%d crates)\n", k.Keyword, k.CratesCnt)
			}
			return b.String(), nil
		},
	}
}

func getCrateFeatures(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_crate_features",
			mcp.WithDescription("Get the Cargo feature flags of a crate version and what each "+
				"feature activates. Useful for understanding optional functionality."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
			mcp.WithString("version", mcp.Description("Version (default: latest)")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}
			version, err := st.resolveVersion(ctx, name, stringArg(args, "version", ""))
			if err != nil {
				return "", err
			}

			v, err := st.Client.GetVersion(ctx, name, version)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# %s v%s - Feature Flags\n\n", name, version)
			if len(v.Features) == 0 {
				b.WriteString("No feature flags defined.\n")
				return b.String(), nil
			}

			if defaults, ok := v.Features["default"]; ok {
				b.WriteString("## Default Features\n\n")
				if len(defaults) == 0 {
					b.WriteString("_(none)_\n\n")
				} else {
					for _, f := range defaults {
						fmt.Fprintf(&b, "- `%s`\n", f)
					}
					b.WriteString("\n")
				}
			}

			names := make([]string, 0, len(v.Features))
			for fname := range v.Features {
				if fname != "default" {
					names = append(names, fname)
				}
			}
			sort.Strings(names)

			if len(names) > 0 {
				b.WriteString("## Features\n\n")
				for _, fname := range names {
					activates := v.Features[fname]
					if len(activates) == 0 {
						fmt.Fprintf(&b, "- `%s`\n", fname)
						continue
					}
					quoted := make([]string, len(activates))
					for i, a := range activates {
						quoted[i] = "`" + a + "`"
					}
					fmt.Fprintf(&b, "- `%s` -> %s\n", fname, strings.Join(quoted, ", "))
				}
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "**Total: %d feature flags**\n", len(v.Features))
			return b.String(), nil
		},
	}
}

// resolveVersion returns the requested version or looks up the latest
// published version when none was given.
func (s *State) resolveVersion(ctx context.Context, name, version string) (string, error) {
	if version != "" && version != "latest" {
		return version, nil
	}
	resp, err := s.Client.GetCrate(ctx, name)
	if err != nil {
		return "", fmt.Errorf("crates.io API error: %w", err)
	}
	return resp.Crate.MaxVersion, nil
}
