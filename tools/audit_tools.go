package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jonwraymond/cratesmcp/osv"
)

// finding is one vulnerability attributed to a dependency.
type finding struct {
	depName string
	vuln    osv.Vulnerability
}

func auditDependencies(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("audit_dependencies",
			mcp.WithDescription("Check a crate and its dependencies against the OSV.dev "+
				"vulnerability database (RustSec + GHSA + NVD). Returns known "+
				"vulnerabilities for each dependency."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name to audit")),
			mcp.WithString("version", mcp.Description("Version to audit (default: latest)")),
			mcp.WithBoolean("include_dev", mcp.Description("Include dev dependencies in the audit")),
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
			includeDev := boolArg(args, "include_dev")

			deps, err := st.Client.Dependencies(ctx, name, version)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}

			var findings []finding
			checked := 0

			// The crate itself first.
			selfResp, err := st.OSV.QueryPackageAny(ctx, name)
			if err != nil {
				return "", fmt.Errorf("OSV.dev API error: %w", err)
			}
			for _, v := range selfResp.Vulns {
				findings = append(findings, finding{depName: name, vuln: v})
			}

			for _, dep := range deps {
				if dep.Kind == "dev" && !includeDev {
					continue
				}
				checked++
				resp, err := st.OSV.QueryPackageAny(ctx, dep.CrateID)
				if err != nil {
					return "", fmt.Errorf("OSV.dev API error: %w", err)
				}
				for _, v := range resp.Vulns {
					findings = append(findings, finding{depName: dep.CrateID, vuln: v})
				}
			}

			return formatFindings(name, version, findings, checked), nil
		},
	}
}

func formatFindings(crateName, version string, findings []finding, depsChecked int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Security Audit: %s v%s\n\n", crateName, version)

	if len(findings) == 0 {
		b.WriteString("No known vulnerabilities found.\n\n")
	} else {
		b.WriteString("## Vulnerabilities Found\n\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "### %s -- %s\n\n", f.depName, f.vuln.ID)
			if f.vuln.Summary != "" {
				fmt.Fprintf(&b, "- **Summary**: %s\n", f.vuln.Summary)
			}
			if len(f.vuln.Severity) > 0 {
				s := f.vuln.Severity[0]
				fmt.Fprintf(&b, "- **Severity**: %s (%s)\n", s.Type, s.Score)
			}
			for _, a := range f.vuln.Affected {
				for _, r := range a.Ranges {
					for _, e := range r.Events {
						if e.Fixed != "" {
							fmt.Fprintf(&b, "- **Fixed in**: %s\n", e.Fixed)
						}
					}
				}
			}
			if ref := advisoryReference(f.vuln.References); ref != "" {
				fmt.Fprintf(&b, "- **Advisory**: %s\n", ref)
			}
			b.WriteString("\n")
		}
	}

	affected := map[string]struct{}{}
	for _, f := range findings {
		affected[f.depName] = struct{}{}
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Dependencies checked**: %d\n", depsChecked)
	fmt.Fprintf(&b, "- **Vulnerabilities found**: %d\n", len(findings))
	fmt.Fprintf(&b, "- **Affected dependencies**: %d\n", len(affected))
	return b.String()
}

func advisoryReference(refs []osv.Reference) string {
	for _, r := range refs {
		if r.Type == "ADVISORY" {
			return r.URL
		}
	}
	if len(refs) > 0 {
		return refs[0].URL
	}
	return ""
}

func compareCrates(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("compare_crates",
			mcp.WithDescription("Compare two to five crates side by side: downloads, versions, "+
				"dependencies, reverse dependencies, license, and freshness."),
			mcp.WithString("crates", mcp.Required(),
				mcp.Description("Comma-separated list of crate names to compare (2-5 crates)")),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			list, err := requireString(args, "crates")
			if err != nil {
				return "", err
			}
			var names []string
			for _, n := range strings.Split(list, ",") {
				if n = strings.TrimSpace(n); n != "" {
					names = append(names, n)
				}
			}
			if len(names) < 2 {
				return "Please provide at least 2 crate names separated by commas.", nil
			}
			if len(names) > 5 {
				return "Please provide at most 5 crate names to compare.", nil
			}

			rows := map[string][]string{}
			labels := []string{
				"Description", "Latest Version", "Total Downloads", "Recent Downloads",
				"Direct Deps", "Reverse Deps", "Last Release", "License", "MSRV",
			}
			push := func(label, value string) {
				if value == "" {
					value = "-"
				}
				rows[label] = append(rows[label], value)
			}

			for _, name := range names {
				resp, err := st.Client.GetCrate(ctx, name)
				if err != nil {
					msg := fmt.Sprintf("error: %v", err)
					for _, label := range labels {
						if label != "Reverse Deps" {
							push(label, msg)
						}
					}
				} else {
					c := resp.Crate
					push("Description", c.Description)
					push("Latest Version", c.MaxVersion)
					push("Total Downloads", FormatCount(c.Downloads))
					if c.RecentDownloads > 0 {
						push("Recent Downloads", FormatCount(c.RecentDownloads))
					} else {
						push("Recent Downloads", "-")
					}
					push("Last Release", c.UpdatedAt.Format("2006-01-02"))

					if deps, err := st.Client.Dependencies(ctx, name, c.MaxVersion); err == nil {
						required := 0
						for _, d := range deps {
							if (d.Kind == "normal" || d.Kind == "") && !d.Optional {
								required++
							}
						}
						push("Direct Deps", fmt.Sprintf("%d", required))
					} else {
						push("Direct Deps", "-")
					}

					if v, err := st.Client.GetVersion(ctx, name, c.MaxVersion); err == nil {
						push("License", v.License)
						push("MSRV", v.RustVersion)
					} else {
						push("License", "-")
						push("MSRV", "-")
					}
				}

				if rdeps, err := st.Client.ReverseDependencies(ctx, name); err == nil {
					push("Reverse Deps", fmt.Sprintf("%d", rdeps.Meta.Total))
				} else {
					push("Reverse Deps", "-")
				}
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# Crate Comparison: %s\n\n", strings.Join(names, " vs "))
			b.WriteString("| |")
			for _, name := range names {
				fmt.Fprintf(&b, " **%s** |", name)
			}
			b.WriteString("\n|---|")
			for range names {
				b.WriteString("---|")
			}
			b.WriteString("\n")
			for _, label := range labels {
				fmt.Fprintf(&b, "| %s |", label)
				for _, v := range rows[label] {
					fmt.Fprintf(&b, " %s |", v)
				}
				b.WriteString("\n")
			}
			return b.String(), nil
		},
	}
}

func crateHealthCheck(st *State) Tool {
	return Tool{
		Definition: mcp.NewTool("crate_health_check",
			mcp.WithDescription("Comprehensive health report for a crate covering maturity, "+
				"adoption, maintenance, security, compatibility, and dependency weight. "+
				"Answers: \"should I use this crate?\""),
			mcp.WithString("name", mcp.Required(), mcp.Description("Crate name to evaluate")),
			mcp.WithString("version", mcp.Description("Version to check (default: latest)")),
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
			version := stringArg(args, "version", "")
			if version == "" || version == "latest" {
				version = c.MaxVersion
			}

			detail, err := st.Client.GetVersion(ctx, name, version)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}
			deps, err := st.Client.Dependencies(ctx, name, version)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}
			rdeps, err := st.Client.ReverseDependencies(ctx, name)
			if err != nil {
				return "", fmt.Errorf("crates.io API error: %w", err)
			}
			vulns, err := st.OSV.QueryPackageAny(ctx, name)
			if err != nil {
				return "", fmt.Errorf("OSV.dev API error: %w", err)
			}

			var required, optional, build int
			for _, d := range deps {
				switch {
				case d.Kind == "build":
					build++
				case d.Optional:
					optional++
				case d.Kind == "normal" || d.Kind == "":
					required++
				}
			}
			yanked := 0
			for _, v := range resp.Versions {
				if v.Yanked {
					yanked++
				}
			}

			now := time.Now()
			ageDays := int(now.Sub(c.CreatedAt).Hours() / 24)
			staleDays := int(now.Sub(c.UpdatedAt).Hours() / 24)

			var b strings.Builder
			fmt.Fprintf(&b, "# Health Check: %s v%s\n\n", name, version)
			if c.Description != "" {
				fmt.Fprintf(&b, "> %s\n\n", c.Description)
			}

			b.WriteString("## Maturity\n\n")
			if ageDays > 365 {
				fmt.Fprintf(&b, "- **Age**: %.1f years\n", float64(ageDays)/365)
			} else {
				fmt.Fprintf(&b, "- **Age**: %d days\n", ageDays)
			}
			fmt.Fprintf(&b, "- **Total versions**: %d\n", len(resp.Versions))
			if yanked > 0 {
				fmt.Fprintf(&b, "- **Yanked versions**: %d\n", yanked)
			}

			b.WriteString("\n## Adoption\n\n")
			fmt.Fprintf(&b, "- **Total downloads**: %s\n", FormatCount(c.Downloads))
			if c.RecentDownloads > 0 {
				fmt.Fprintf(&b, "- **Recent downloads**: %s\n", FormatCount(c.RecentDownloads))
			}
			fmt.Fprintf(&b, "- **Reverse dependencies**: %d\n", rdeps.Meta.Total)

			b.WriteString("\n## Maintenance\n\n")
			var freshness string
			switch {
			case staleDays <= 30:
				freshness = "Active (updated within 30 days)"
			case staleDays <= 90:
				freshness = "Recent (updated within 90 days)"
			case staleDays <= 365:
				freshness = "Aging (no update in 3-12 months)"
			default:
				freshness = "Stale (no update in over a year)"
			}
			fmt.Fprintf(&b, "- **Status**: %s\n", freshness)
			fmt.Fprintf(&b, "- **Last updated**: %s (%d days ago)\n",
				c.UpdatedAt.Format("2006-01-02"), staleDays)

			b.WriteString("\n## Security\n\n")
			if len(vulns.Vulns) == 0 {
				b.WriteString("- **Known vulnerabilities**: None\n")
			} else {
				fmt.Fprintf(&b, "- **Known vulnerabilities**: %d (run `audit_dependencies` for details)\n",
					len(vulns.Vulns))
			}

			b.WriteString("\n## Compatibility\n\n")
			license := detail.License
			if license == "" {
				license = "Not specified"
			}
			msrv := detail.RustVersion
			if msrv == "" {
				msrv = "Not specified"
			}
			fmt.Fprintf(&b, "- **License**: %s\n", license)
			fmt.Fprintf(&b, "- **MSRV**: %s\n", msrv)

			b.WriteString("\n## Dependency Weight\n\n")
			fmt.Fprintf(&b, "- **Required dependencies**: %d\n", required)
			if optional > 0 {
				fmt.Fprintf(&b, "- **Optional dependencies**: %d\n", optional)
			}
			if build > 0 {
				fmt.Fprintf(&b, "- **Build dependencies**: %d\n", build)
			}

			links := []struct{ label, url string }{
				{"Repository", c.Repository},
				{"Documentation", c.Documentation},
				{"Homepage", c.Homepage},
			}
			hasLinks := false
			for _, l := range links {
				if l.url != "" {
					hasLinks = true
				}
			}
			if hasLinks {
				b.WriteString("\n## Links\n\n")
				for _, l := range links {
					if l.url != "" {
						fmt.Fprintf(&b, "- **%s**: %s\n", l.label, l.url)
					}
				}
			}
			return b.String(), nil
		},
	}
}
