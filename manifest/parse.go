package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ErrNoProviders is returned by Parse when the input holds no manifest.
var ErrNoProviders = errors.New("no provider manifests found")

// Parse decodes one or more YAML documents into providers. Empty documents
// are skipped; unknown keys are ignored.
func Parse(data []byte) ([]*Provider, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var providers []*Provider
	for doc := 0; ; doc++ {
		var node yaml.Node
		err := decoder.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if isEmptyDocument(&node) {
			continue
		}
		p := &Provider{}
		if err := node.Decode(p); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if p.State == "" {
			p.State = StateReady
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	return providers, nil
}

// ParseAndValidate parses data and validates every provider in it.
func ParseAndValidate(data []byte) ([]*Provider, error) {
	providers, err := Parse(data)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, p := range providers {
		if err := Validate(p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return providers, nil
}

// Bundle concatenates manifest files into a single multi-document stream.
func Bundle(docs ...[]byte) []byte {
	var buf bytes.Buffer
	for _, doc := range docs {
		doc = documentBody(doc)
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}
		buf.WriteString("---\n")
		buf.Write(bytes.TrimLeft(doc, "\r\n"))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func isEmptyDocument(node *yaml.Node) bool {
	if node.Kind == 0 {
		return true
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return true
		}
		inner := node.Content[0]
		return inner.Kind == yaml.ScalarNode && inner.Tag == "!!null"
	}
	return false
}

// documentBody drops the directives, leading comments and start marker that
// head a YAML file. Directives are only valid before the first marker, so
// they cannot survive concatenation.
func documentBody(doc []byte) []byte {
	doc = bytes.TrimSpace(doc)
	for len(doc) > 0 && (doc[0] == '%' || doc[0] == '#') {
		_, rest, _ := bytes.Cut(doc, []byte("\n"))
		doc = bytes.TrimSpace(rest)
	}
	return bytes.TrimPrefix(doc, []byte("---"))
}
