package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
)

var (
	defaultSeparators  = []string{"\n\n", "\n", " ", ""}
	markdownSeparators = []string{"\n## ", "\n### ", "\n#### ", "\n\n", "\n", " ", ""}
)

// Supported reports whether documents of this kind can be ingested
func Supported(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".txt", ".md", ".csv":
		return true
	}
	return false
}

func splitterFor(filename string) textsplitter.TextSplitter {
	separators := defaultSeparators
	if strings.EqualFold(path.Ext(filename), ".md") {
		separators = markdownSeparators
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(separators),
	)
}

// SplitText cuts document text into overlapping chunks. Blank chunks are dropped.
func SplitText(filename, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts, err := splitterFor(filename).SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", filename, err)
	}
	chunks := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks, nil
}

// ExtractText returns the plain text of a document. CSV rows are rendered
// as "column: value" lines, one block per row; a department or country
// column on the first row is returned as document-level tags.
func ExtractText(filename string, data []byte) (string, Metadata, error) {
	if !strings.EqualFold(path.Ext(filename), ".csv") {
		return string(bytes.TrimPrefix(data, []byte("\ufeff"))), Metadata{}, nil
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return "", Metadata{}, nil
	}
	if err != nil {
		return "", Metadata{}, fmt.Errorf("read %s: %w", filename, err)
	}

	var (
		sb    strings.Builder
		tags  Metadata
		first = true
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", Metadata{}, fmt.Errorf("read %s: %w", filename, err)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		for i, col := range header {
			if i >= len(row) {
				break
			}
			name := strings.TrimSpace(col)
			value := strings.TrimSpace(row[i])
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(name + ": " + value)

			if first {
				switch strings.ToLower(name) {
				case "department":
					tags.Department = strings.ToLower(value)
				case "country":
					tags.Country = strings.ToLower(value)
				}
			}
		}
		first = false
	}
	return sb.String(), tags, nil
}
