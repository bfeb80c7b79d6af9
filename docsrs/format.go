package docsrs

import (
	"fmt"
	"sort"
	"strings"
)

// FormatModuleListing renders a module's public children grouped by kind.
func FormatModuleListing(krate *Crate, moduleID int64) string {
	item := krate.Lookup(moduleID)
	if item == nil {
		return "Module not found in index.\n"
	}
	if item.Inner.Module == nil {
		return "Item is not a module.\n"
	}

	name := "(root)"
	if item.Name != nil && *item.Name != "" {
		name = *item.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Module `%s`\n\n", name)

	if item.Docs != nil {
		if summary := firstSentence(*item.Docs); summary != "" {
			fmt.Fprintf(&b, "%s\n\n", summary)
		}
	}

	groups := map[string][]*Item{}
	for _, childID := range item.Inner.Module.Items {
		child := krate.Lookup(childID)
		if child == nil || !child.IsPublic() {
			continue
		}
		kind := child.Kind()
		if kind == "use" || kind == "other" {
			continue
		}
		groups[kind] = append(groups[kind], child)
	}

	sections := []struct {
		kind    string
		heading string
	}{
		{"module", "Modules"},
		{"trait", "Traits"},
		{"struct", "Structs"},
		{"enum", "Enums"},
		{"function", "Functions"},
		{"type_alias", "Type Aliases"},
		{"constant", "Constants"},
		{"macro", "Macros"},
	}

	for _, s := range sections {
		items := groups[s.kind]
		if len(items) == 0 {
			continue
		}
		sort.Slice(items, func(i, j int) bool {
			return itemName(items[i]) < itemName(items[j])
		})
		fmt.Fprintf(&b, "## %s\n\n", s.heading)
		for _, it := range items {
			summary := ""
			if it.Docs != nil {
				summary = firstSentence(*it.Docs)
			}
			if summary == "" {
				fmt.Fprintf(&b, "- `%s`\n", itemName(it))
			} else {
				fmt.Fprintf(&b, "- `%s` -- %s\n", itemName(it), summary)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatItemDetail renders full documentation for a single item.
func FormatItemDetail(krate *Crate, item *Item) string {
	name := itemName(item)

	var b strings.Builder
	switch item.Kind() {
	case "module":
		return FormatModuleListing(krate, findItemID(krate, item))
	case "function":
		fmt.Fprintf(&b, "# Function `%s`\n\n", name)
	case "struct":
		fmt.Fprintf(&b, "# Struct `%s`\n\n", name)
	case "enum":
		fmt.Fprintf(&b, "# Enum `%s`\n\n", name)
	case "trait":
		fmt.Fprintf(&b, "# Trait `%s`\n\n", name)
	case "type_alias":
		fmt.Fprintf(&b, "# Type Alias `%s`\n\n", name)
	case "constant":
		fmt.Fprintf(&b, "# Constant `%s`\n\n", name)
	case "macro":
		fmt.Fprintf(&b, "# Macro `%s`\n\n", name)
	default:
		fmt.Fprintf(&b, "# `%s`\n\n", name)
	}

	if item.Docs != nil && *item.Docs != "" {
		b.WriteString(*item.Docs)
		b.WriteString("\n")
	} else {
		b.WriteString("No documentation available for this item.\n")
	}

	return b.String()
}

// SearchMatch is a single hit from SearchItems.
type SearchMatch struct {
	Path    string
	Kind    string
	Summary string
}

// SearchItems finds public items whose name contains query
// (case-insensitive), up to limit matches, sorted by path.
func SearchItems(krate *Crate, query string, limit int) []SearchMatch {
	q := strings.ToLower(query)

	matches := make([]SearchMatch, 0, limit)
	for id, entry := range krate.Paths {
		if len(entry.Path) == 0 {
			continue
		}
		last := entry.Path[len(entry.Path)-1]
		if !strings.Contains(strings.ToLower(last), q) {
			continue
		}
		summary := ""
		if item := krate.Index[id]; item != nil && item.Docs != nil {
			summary = firstSentence(*item.Docs)
		}
		matches = append(matches, SearchMatch{
			Path:    strings.Join(entry.Path, "::"),
			Kind:    entry.Kind,
			Summary: summary,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// FindItemByPath resolves an item by its "::"-separated path, matching
// either the full path or a path relative to the crate root.
func FindItemByPath(krate *Crate, path string) *Item {
	want := strings.Split(path, "::")

	for id, entry := range krate.Paths {
		if pathMatches(entry.Path, want) {
			if item := krate.Index[id]; item != nil {
				return item
			}
		}
	}
	return nil
}

// ResolveModuleID resolves a "::"-separated module path to the item ID
// of that module. Returns false when the path does not name a module.
func ResolveModuleID(krate *Crate, path string) (int64, bool) {
	item := FindItemByPath(krate, path)
	if item == nil || item.Inner.Module == nil {
		return 0, false
	}
	id := findItemID(krate, item)
	if id < 0 {
		return 0, false
	}
	return id, true
}

func pathMatches(full, want []string) bool {
	if len(want) == 0 || len(full) < len(want) {
		return false
	}
	// Match the trailing segments so "Client" finds "mycrate::Client".
	offset := len(full) - len(want)
	for i, seg := range want {
		if full[offset+i] != seg {
			return false
		}
	}
	return true
}

func itemName(it *Item) string {
	if it.Name != nil && *it.Name != "" {
		return *it.Name
	}
	return "_"
}

// findItemID does a reverse lookup of an item pointer in the index.
func findItemID(krate *Crate, item *Item) int64 {
	for id, it := range krate.Index {
		if it == item {
			var n int64
			fmt.Sscanf(id, "%d", &n)
			return n
		}
	}
	return -1
}

// firstSentence returns the first sentence (or first line) of a doc
// string, for one-line summaries.
func firstSentence(docs string) string {
	s := strings.TrimSpace(docs)
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ". "); i >= 0 {
		s = s[:i+1]
	}
	return strings.TrimSpace(s)
}
