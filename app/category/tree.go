package category

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory marks a requested type or subtype that is not declared
// in the static category tree. It is fatal for the request; there is no
// silent fallback.
var ErrUnknownCategory = errors.New("unknown category")

// Node is one category in the static tree: an identifier used in routes, a
// display name for feed metadata, the remote path segment, and optional
// ordered sub-categories. Declaration order of Sub is the resolution order.
type Node struct {
	ID   string
	Name string
	Path string
	Sub  []*Node
}

// Target is one concrete list page to fetch: the page URL and the base URL
// against which the page's relative links are resolved.
type Target struct {
	URL  string
	Base string
}

// Tree is an immutable category tree rooted at a site. The index sentinel
// resolves to a dedicated landing page rather than a tree walk.
type Tree struct {
	site     string
	suffix   string
	indexURL string
	index    *Node
	nodes    []*Node
	byID     map[string]*Node
}

// NewTree validates the whole tree at construction: identifiers and path
// segments must be non-empty and identifiers unique per level, so that
// every declared leaf has a resolvable remote path.
func NewTree(site, suffix, indexURL string, index *Node, nodes ...*Node) (*Tree, error) {
	byID := make(map[string]*Node, len(nodes))
	for _, node := range nodes {
		if err := validateNode(node); err != nil {
			return nil, err
		}
		if _, dup := byID[node.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", node.ID)
		}
		byID[node.ID] = node
	}

	return &Tree{
		site:     site,
		suffix:   suffix,
		indexURL: indexURL,
		index:    index,
		nodes:    nodes,
		byID:     byID,
	}, nil
}

func validateNode(node *Node) error {
	if node.ID == "" {
		return fmt.Errorf("category node without id")
	}
	if node.Path == "" {
		return fmt.Errorf("category %q has no path segment", node.ID)
	}

	seen := make(map[string]bool, len(node.Sub))
	for _, sub := range node.Sub {
		if err := validateNode(sub); err != nil {
			return fmt.Errorf("under %q: %w", node.ID, err)
		}
		if seen[sub.ID] {
			return fmt.Errorf("duplicate sub-category id %q under %q", sub.ID, node.ID)
		}
		seen[sub.ID] = true
	}
	return nil
}

// Resolve maps a (type, subtype) pair to the list pages to fetch.
//
// "index" resolves to the landing page. For a declared type, "all" yields
// one target per declared sub-category in declaration order, a named
// subtype yields exactly that one, and a type without sub-categories
// resolves its own segment directly. Anything else is ErrUnknownCategory.
func (t *Tree) Resolve(typ, sub string) ([]Target, *Node, error) {
	if typ == "index" {
		return []Target{{URL: t.indexURL, Base: t.site}}, t.index, nil
	}

	node, ok := t.byID[typ]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no such type %q", ErrUnknownCategory, typ)
	}

	if len(node.Sub) == 0 {
		if sub != "" && sub != "all" {
			return nil, nil, fmt.Errorf("%w: type %q has no sub type %q", ErrUnknownCategory, typ, sub)
		}
		return []Target{t.target(node, nil)}, node, nil
	}

	if sub == "" || sub == "all" {
		targets := make([]Target, 0, len(node.Sub))
		for _, child := range node.Sub {
			targets = append(targets, t.target(node, child))
		}
		return targets, node, nil
	}

	for _, child := range node.Sub {
		if child.ID == sub {
			return []Target{t.target(node, child)}, node, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: no such sub type %q under %q", ErrUnknownCategory, sub, typ)
}

// target joins path segments along the root-to-leaf walk. The base URL for
// relative links is the parent's list directory.
func (t *Tree) target(node, child *Node) Target {
	if child == nil {
		return Target{
			URL:  t.site + "/" + node.Path + t.suffix,
			Base: t.site,
		}
	}
	return Target{
		URL:  t.site + "/" + node.Path + "/" + child.Path + t.suffix,
		Base: t.site + "/" + node.Path,
	}
}

// Types lists the declared top-level category identifiers in declaration
// order, excluding the index sentinel.
func (t *Tree) Types() []string {
	ids := make([]string, 0, len(t.nodes))
	for _, node := range t.nodes {
		ids = append(ids, node.ID)
	}
	return ids
}

// SubCount reports the number of declared sub-categories for a type.
func (t *Tree) SubCount(typ string) int {
	node, ok := t.byID[typ]
	if !ok {
		return 0
	}
	return len(node.Sub)
}
