package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/cratesmcp/crates"
)

func getCrateVersion(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_crate_version",
			mcp.WithDescription("Get detailed metadata for a specific crate version including "+
				"license, MSRV, download count, and yanked status."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name")),
			mcp.WithString("version", mcp.Required(), mcp.Description("Version string (e.g. \"1.0.0\")")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := requireString(args, "name")
			if err != nil {
				return "", err
			}
			version, err := requireString(args, "version")
			if err != nil {
				return "", err
			}

			v, err := st.Client.GetVersion(ctx, name, version)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			yanked := ""
			if v.Yanked {
				yanked = " [YANKED]"
			}
			var b strings.Builder
			fmt.Fprintf(&b, "# %s v%s%s\n\n", name, v.Num, yanked)
			fmt.Fprintf(&b, "- **Released**: %s\n", v.CreatedAt.Format("2006-01-02"))
			fmt.Fprintf(&b, "- **Downloads**: %s\n", FormatCount(v.Downloads))
			if v.License != "" {
				fmt.Fprintf(&b, "- **License**: %s\n", v.License)
			}
			if v.RustVersion != "" {
				fmt.Fprintf(&b, "- **MSRV**: %s\n", v.RustVersion)
			}
			return b.String(), nil
		},
	}
}

func getVersionDownloads(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_version_downloads",
			mcp.WithDescription("Get daily download statistics for a specific crate version. "+
				"Shows the download trend over the last 90 days for that version."),
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

			dl, err := st.Client.VersionDownloads(ctx, name, version)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var total int64
			daily := make([]crates.VersionDownloads, 0, len(dl.VersionDownloads))
			for _, vd := range dl.VersionDownloads {
				total += vd.Downloads
				if vd.Downloads > 0 {
					daily = append(daily, vd)
				}
			}
			sort.Slice(daily, func(i, j int) bool { return daily[i].Date > daily[j].Date })

			var b strings.Builder
			fmt.Fprintf(&b, "# %s v%s - Download Statistics\n\n", name, version)
			fmt.Fprintf(&b, "**Total (last 90 days):** %s\n\n", FormatCount(total))
			if len(daily) > 0 {
				b.WriteString("## Daily Downloads\n\n")
				b.WriteString("| Date | Downloads |\n")
				b.WriteString("|------|----------|\n")
				limit := 30
				if len(daily) < limit {
					limit = len(daily)
				}
				for _, d := range daily[:limit] {
					date := d.Date
					if date == "" {
						date = "unknown"
					}
					fmt.Fprintf(&b, "| %s | %s |\n", date, FormatCount(d.Downloads))
				}
			}
			return b.String(), nil
		},
	}
}

func getCategory(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_category",
			mcp.WithDescription("Get details about a specific crates.io category by slug, "+
				"including its description and crate count."),
			mcp.WithString("slug", mcp.Required(),
				mcp.Description("Category slug (e.g. \"command-line-utilities\", \"cryptography\")")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			slug, err := requireString(args, "slug")
			if err != nil {
				return "", err
			}

			cat, err := st.Client.Category(ctx, slug)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# Category: %s\n\n", cat.Category)
			if cat.Description != "" {
				fmt.Fprintf(&b, "%s\n\n", cat.Description)
			}
			fmt.Fprintf(&b, "**Crates:** %d\n", cat.CratesCnt)
			if cat.Slug != "" {
				fmt.Fprintf(&b, "**Browse:** https://crates.io/categories/%s\n", cat.Slug)
			}
			return b.String(), nil
		},
	}
}

func getKeyword(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_keyword",
			mcp.WithDescription("Get details about a specific crates.io keyword, "+
				"including the number of crates using it."),
			mcp.WithString("id", mcp.Required(),
				mcp.Description("Keyword ID (e.g. \"async\", \"cli\", \"parser\")")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			id, err := requireString(args, "id")
			if err != nil {
				return "", err
			}

			kw, err := st.Client.Keyword(ctx, id)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# Keyword: %s\n\n", kw.Keyword)
			fmt.Fprintf(&b, "**Crates:** %d\n", kw.CratesCnt)
			fmt.Fprintf(&b, "**Browse:** https://crates.io/keywords/%s\n", kw.Keyword)
			return b.String(), nil
		},
	}
}

func getUser(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_user",
			mcp.WithDescription("Get a crates.io user's public profile by GitHub username."),
			mcp.WithString("username", mcp.Required(), mcp.Description("GitHub username")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			username, err := requireString(args, "username")
			if err != nil {
				return "", err
			}

			user, err := st.Client.User(ctx, username)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# User: %s\n\n", user.Login)
			if user.Name != "" {
				fmt.Fprintf(&b, "**Name:** %s\n", user.Name)
			}
			if user.URL != "" {
				fmt.Fprintf(&b, "**Profile:** %s\n", user.URL)
			}
			fmt.Fprintf(&b, "**Crates:** https://crates.io/users/%s\n", user.Login)
			return b.String(), nil
		},
	}
}

func getUserStats(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_user_stats",
			mcp.WithDescription("Get download statistics for a crates.io user. "+
				"Shows total downloads across all of the user's crates."),
			mcp.WithString("username", mcp.Required(), mcp.Description("GitHub username")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			username, err := requireString(args, "username")
			if err != nil {
				return "", err
			}

			user, err := st.Client.User(ctx, username)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}
			stats, err := st.Client.UserStats(ctx, user.ID)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# User Stats: %s\n\n", user.Login)
			if user.Name != "" {
				fmt.Fprintf(&b, "**Name:** %s\n\n", user.Name)
			}
			fmt.Fprintf(&b, "**Total downloads:** %s\n", FormatCount(stats.TotalDownloads))
			return b.String(), nil
		},
	}
}

func getCrateReadme(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_crate_readme",
			mcp.WithDescription("Get the README content for a crate version. Returns the rendered "+
				"README from the crate's published package. Defaults to the latest version."),
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

			readme, err := st.Client.Readme(ctx, name, version)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}
			if strings.TrimSpace(readme) == "" {
				return fmt.Sprintf("No README found for %s v%s", name, version), nil
			}
			return fmt.Sprintf("# %s v%s - README\n\n%s", name, version, readme), nil
		},
	}
}

func getCrateAuthors(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("get_crate_authors",
			mcp.WithDescription("Get the authors recorded for a crate version."),
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

			authors, err := st.Client.Authors(ctx, name, version)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}
			if len(authors) == 0 {
				return fmt.Sprintf("No authors recorded for %s v%s", name, version), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# %s v%s - Authors\n\n", name, version)
			for _, a := range authors {
				fmt.Fprintf(&b, "- %s\n", a)
			}
			return b.String(), nil
		},
	}
}
