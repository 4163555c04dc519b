// Package ingest turns stored policy documents into embedded chunks.
//
// Department and country tags come from the document's filename unless a
// manifest (metadata.csv) in the store names the file explicitly.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"policyassist-backend/models"
)

// ManifestNames are the manifest files looked up in the document store, in order
var ManifestNames = []string{"metadata.csv", "metadata_manifest.csv", "docs_metadata.csv"}

// Metadata is the set of tags attached to every chunk of a document
type Metadata struct {
	PolicyName string
	Department string
	Country    string
	Visibility string
}

// Map converts the tags into chunk metadata for a source key
func (m Metadata) Map(source string) map[string]string {
	meta := map[string]string{
		"source":      source,
		"policy_name": m.PolicyName,
		"department":  m.Department,
		"country":     m.Country,
		"visibility":  m.Visibility,
	}
	if meta["visibility"] == "" {
		meta["visibility"] = models.VisibilityAll
	}
	return meta
}

// Matches reports whether doc was recorded with the same tags
func (m Metadata) Matches(doc *models.PolicyDocument) bool {
	visibility := firstNonEmpty(m.Visibility, models.VisibilityAll)
	return strings.EqualFold(doc.PolicyName, m.PolicyName) &&
		strings.EqualFold(doc.Department, m.Department) &&
		strings.EqualFold(doc.Country, m.Country) &&
		strings.EqualFold(doc.Visibility, visibility)
}

// Manifest maps lower-cased filenames (with and without extension) to
// explicit metadata
type Manifest map[string]Metadata

// Lookup finds the entry for filename, trying the full name first
func (m Manifest) Lookup(filename string) (Metadata, bool) {
	if len(m) == 0 {
		return Metadata{}, false
	}
	name := strings.ToLower(filename)
	if e, ok := m[name]; ok {
		return e, true
	}
	e, ok := m[strings.TrimSuffix(name, path.Ext(name))]
	return e, ok
}

var keyColumns = []string{"filename", "file", "source", "policy_name"}

// LoadManifest reads a CSV manifest. The first header among filename, file,
// source and policy_name identifies the file; department (or dept), country,
// policy_name and visibility columns are optional.
func LoadManifest(r io.Reader) (Manifest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	keyCol := -1
	for _, name := range keyColumns {
		if i, ok := cols[name]; ok {
			keyCol = i
			break
		}
	}
	if keyCol < 0 {
		return nil, fmt.Errorf("manifest has no filename column (want one of %s)", strings.Join(keyColumns, ", "))
	}

	field := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := cols[n]; ok && i < len(row) {
				if v := strings.TrimSpace(row[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	manifest := Manifest{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		if keyCol >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[keyCol])
		if name == "" {
			continue
		}
		manifest[strings.ToLower(name)] = Metadata{
			PolicyName: firstNonEmpty(field(row, "policy_name"), name),
			Department: strings.ToLower(field(row, "department", "dept")),
			Country:    strings.ToLower(field(row, "country")),
			Visibility: strings.ToLower(field(row, "visibility")),
		}
	}
	return manifest, nil
}

var filenameTokens = regexp.MustCompile(`[^a-z0-9]+`)

var departmentTokens = map[string]string{
	"hr":                    "hr",
	"human":                 "hr",
	"humanresources":        "hr",
	"it":                    "it",
	"information":           "it",
	"informationtechnology": "it",
	"finance":               "finance",
	"payroll":               "finance",
	"product":               "product",
	"engineering":           "engineering",
	"eng":                   "engineering",
	"common":                "common",
	"company":               "common",
	"admin":                 "admin",
	"administration":        "admin",
}

func hasToken(tokens []string, want ...string) bool {
	for _, t := range tokens {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}

// InferMetadata tags a document from its filename. The first token naming a
// department wins. Manifest values override inferred ones field by field;
// the policy name defaults to the base name without extension.
func InferMetadata(filename string, manifest Manifest) Metadata {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	lower := strings.ToLower(base)
	tokens := filenameTokens.Split(lower, -1)

	meta := Metadata{PolicyName: strings.TrimSuffix(base, path.Ext(base))}
	for _, t := range tokens {
		if dept, ok := departmentTokens[t]; ok {
			meta.Department = dept
			break
		}
	}

	// India wins when both scopes are named. "non_common" splits into two
	// tokens, so it is matched on the whole name.
	switch {
	case hasToken(tokens, "india", "indian"):
		meta.Country = "india"
	case hasToken(tokens, "foreign", "international", "noncommon"),
		strings.Contains(lower, "non_common"), strings.Contains(lower, "non-common"):
		meta.Country = "foreign"
	}

	if entry, ok := manifest.Lookup(base); ok {
		meta.PolicyName = firstNonEmpty(entry.PolicyName, meta.PolicyName)
		meta.Department = firstNonEmpty(entry.Department, meta.Department)
		meta.Country = firstNonEmpty(entry.Country, meta.Country)
		meta.Visibility = entry.Visibility
	}
	return meta
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
