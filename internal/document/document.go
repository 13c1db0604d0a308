// Package document converts between raw markdown files and an ordered
// front-matter header plus free-form body. Documents look like:
//
//	---
//	title: Draft report
//	status: today
//	---
//
//	Body text.
//
// A file without the leading fence is a valid document with an empty header.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedDocument indicates a header fence was present but its contents
// were not a YAML mapping.
var ErrMalformedDocument = errors.New("document: malformed header")

const fence = "---"

// Decode splits raw into its header and body.
func Decode(raw []byte) (Header, string, error) {
	text := normalizeNewlines(string(raw))
	if !strings.HasPrefix(text, fence+"\n") && strings.TrimRight(text, " \t\n") != fence {
		return Header{}, trimBody(text), nil
	}
	rest := strings.TrimPrefix(text, fence)
	rest = strings.TrimPrefix(rest, "\n")
	meta, body, ok := splitAtFence(rest)
	if !ok {
		return Header{}, "", fmt.Errorf("%w: unterminated header fence", ErrMalformedDocument)
	}
	header, err := parseHeader(meta)
	if err != nil {
		return Header{}, "", err
	}
	return header, trimBody(body), nil
}

// Encode renders header and body. Empty header values are dropped so
// documents stay minimal; a header with no entries is written without fences.
func Encode(header Header, body string) ([]byte, error) {
	var buf bytes.Buffer
	if header.Len() > 0 {
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range header.entries {
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.key}
			mapping.Content = append(mapping.Content, key, e.value)
		}
		data, err := yaml.Marshal(mapping)
		if err != nil {
			return nil, fmt.Errorf("document: encode header: %w", err)
		}
		buf.WriteString(fence + "\n")
		buf.Write(bytes.TrimRight(data, "\n"))
		buf.WriteString("\n" + fence + "\n")
		if body != "" {
			buf.WriteString("\n")
		}
	}
	if body != "" {
		buf.WriteString(trimBody(body))
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func splitAtFence(rest string) (string, string, bool) {
	offset := 0
	for _, line := range strings.SplitAfter(rest, "\n") {
		if strings.TrimRight(line, " \t\n") == fence {
			return rest[:offset], rest[offset+len(line):], true
		}
		offset += len(line)
	}
	return "", "", false
}

func parseHeader(meta string) (Header, error) {
	if strings.TrimSpace(meta) == "" {
		return Header{}, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(meta), &doc); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Header{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Header{}, fmt.Errorf("%w: header is not a key-value mapping", ErrMalformedDocument)
	}
	var header Header
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return Header{}, fmt.Errorf("%w: non-scalar key at line %d", ErrMalformedDocument, key.Line)
		}
		header.setNode(key.Value, stripPosition(value))
	}
	return header, nil
}

// stripPosition clears line/column info and comments so nodes compare equal
// regardless of where they were read from.
func stripPosition(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	clone := *n
	clone.Line, clone.Column = 0, 0
	clone.HeadComment, clone.LineComment, clone.FootComment = "", "", ""
	if len(n.Content) > 0 {
		clone.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			clone.Content[i] = stripPosition(child)
		}
	}
	return &clone
}

func trimBody(body string) string {
	return strings.TrimRight(strings.TrimLeft(body, "\n"), " \t\n")
}

func normalizeNewlines(content string) string {
	return strings.ReplaceAll(content, "\r\n", "\n")
}
