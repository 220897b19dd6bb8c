package integrity

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidCondition is returned for malformed condition table rows.
var ErrInvalidCondition = errors.New("invalid condition")

// Kind selects how a condition interprets its marker file.
type Kind string

const (
	// KindBaseMissing fires when the marker exists but matches none of the
	// known-good digests (base package reverted or never installed).
	KindBaseMissing Kind = "base_missing"

	// KindIncompatiblePack fires when the marker matches a known-bad digest
	// belonging to a conflicting asset pack.
	KindIncompatiblePack Kind = "incompatible_pack"

	// KindLoadOrder fires when every overlay file is present but the marker
	// is missing or does not carry the digest that correct load order
	// produces. Digests in BadHashes are left to the row that owns them.
	KindLoadOrder Kind = "load_order"
)

// Condition is one row of the declarative installation-health table.
// Paths are slash separated and relative to the installation root.
type Condition struct {
	Key            string   `yaml:"key"`
	Kind           Kind     `yaml:"kind"`
	Path           string   `yaml:"path"`
	RequirePresent []string `yaml:"require_present,omitempty"`
	GoodHashes     []string `yaml:"good_hashes,omitempty"`
	BadHashes      []string `yaml:"bad_hashes,omitempty"`

	// Presentation
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
	URL     string `yaml:"url,omitempty"`
}

// Validate checks the row is well formed for its kind.
func (c Condition) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidCondition)
	}
	if err := validRelPath(c.Path); err != nil {
		return fmt.Errorf("%w: %s: path: %v", ErrInvalidCondition, c.Key, err)
	}
	for _, p := range c.RequirePresent {
		if err := validRelPath(p); err != nil {
			return fmt.Errorf("%w: %s: require_present: %v", ErrInvalidCondition, c.Key, err)
		}
	}
	for _, d := range append(append([]string{}, c.GoodHashes...), c.BadHashes...) {
		if !isDigest(NormalizeDigest(d)) {
			return fmt.Errorf("%w: %s: %q is not a SHA-1 hex digest", ErrInvalidCondition, c.Key, d)
		}
	}

	switch c.Kind {
	case KindBaseMissing:
		if len(c.GoodHashes) == 0 {
			return fmt.Errorf("%w: %s: base_missing needs good_hashes", ErrInvalidCondition, c.Key)
		}
	case KindIncompatiblePack:
		if len(c.BadHashes) == 0 {
			return fmt.Errorf("%w: %s: incompatible_pack needs bad_hashes", ErrInvalidCondition, c.Key)
		}
	case KindLoadOrder:
		if len(c.GoodHashes) == 0 || len(c.RequirePresent) == 0 {
			return fmt.Errorf("%w: %s: load_order needs good_hashes and require_present", ErrInvalidCondition, c.Key)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidCondition, c.Key, c.Kind)
	}
	return nil
}

func validRelPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return errors.New("empty")
	}
	if path.IsAbs(p) || strings.Contains(p, `\`) || strings.Contains(p, ":") {
		return fmt.Errorf("%q must be a slash separated relative path", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%q escapes the installation root", p)
	}
	return nil
}

// ValidateTable validates every row and rejects duplicate keys.
func ValidateTable(conds []Condition) error {
	seen := make(map[string]struct{}, len(conds))
	for _, c := range conds {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Key]; dup {
			return fmt.Errorf("%w: duplicate key %s", ErrInvalidCondition, c.Key)
		}
		seen[c.Key] = struct{}{}
	}
	return nil
}

// Merge appends extra rows to base and drops every key listed in disabled.
// An extra row whose key already exists replaces the base row.
func Merge(base, extra []Condition, disabled []string) []Condition {
	off := make(map[string]struct{}, len(disabled))
	for _, k := range disabled {
		off[k] = struct{}{}
	}

	out := make([]Condition, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))
	for _, c := range append(append([]Condition{}, base...), extra...) {
		if _, skip := off[c.Key]; skip {
			continue
		}
		if i, ok := index[c.Key]; ok {
			out[i] = c
			continue
		}
		index[c.Key] = len(out)
		out = append(out, c)
	}
	return out
}

func containsDigest(list []string, digest string) bool {
	for _, d := range list {
		if NormalizeDigest(d) == digest {
			return true
		}
	}
	return false
}
