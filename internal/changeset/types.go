// Package changeset implements the Structured Change Applier: validating
// the Developer agent's JSON ChangeSet against a schema and the repo's path
// allowlist, then applying each operation idempotently.
package changeset

import "encoding/json"

// Operation names, exactly as they appear on the wire.
const (
	OpCreate            = "create"
	OpReplaceFile       = "replace_file"
	OpUpsertFunctionJS  = "upsert_function_js"
	OpUpsertCSSSelector = "upsert_css_selector"
	OpInsertAfterAnchor = "insert_after_anchor"
	OpInsertBeforeAnchor = "insert_before_anchor"
	OpAppendIfMissing   = "append_if_missing"
	OpEdit              = "edit"
	OpDelete            = "delete"
)

// Edit is one {find, replace} pair for the edit operation.
type Edit struct {
	Find    string `json:"find"`
	Replace string `json:"replace"`
}

// Change is one repository mutation. Not every field applies to every
// operation; §3 of the specification enumerates which fields are required
// per operation.
type Change struct {
	Operation    string `json:"operation"`
	Path         string `json:"path"`
	File         string `json:"file,omitempty"` // legacy alias for Path, normalized away during validation
	Content      string `json:"content,omitempty"`
	FunctionName string `json:"function_name,omitempty"`
	Selector     string `json:"selector,omitempty"`
	Anchor       string `json:"anchor,omitempty"`
	UseRegex     bool   `json:"use_regex,omitempty"`
	Signature    string `json:"signature,omitempty"`
	Edits        []Edit `json:"edits,omitempty"`
}

// ChangeSet is the Developer's entire JSON output: an ordered list of
// changes plus free-form notes.
type ChangeSet struct {
	Changes []Change `json:"changes"`
	Notes   string   `json:"notes,omitempty"`
}

// Parse decodes raw Developer output into a ChangeSet. It does not validate
// semantics — see Validate for that.
func Parse(raw []byte) (*ChangeSet, error) {
	var cs ChangeSet
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

// Normalize accepts both `path` and `file` fields, folding `file` into
// `path` and dropping the `file` key, per the schema-normalization rule.
func (cs *ChangeSet) Normalize() {
	for i := range cs.Changes {
		c := &cs.Changes[i]
		if c.Path == "" && c.File != "" {
			c.Path = c.File
		}
		c.File = ""
	}
}
