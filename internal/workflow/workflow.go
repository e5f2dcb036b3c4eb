package workflow

import (
	"ansible-matrix/internal/matrix"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is relative to the scripts directory the tool is usually run from.
const DefaultPath = "../.github/workflows/publish-harness.yaml"

var DefaultKeyPath = []string{"jobs", "publish-harness-ansible", "strategy", "matrix", "versions"}

var ErrKeyNotFound = errors.New("key not found")
var ErrNotMapping = errors.New("value is not a mapping")

// Document is a parsed yaml file that can be edited in place without
// disturbing the parts that are not touched.
type Document struct {
	root yaml.Node
}

func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	err := yaml.Unmarshal(data, &doc.root)
	if err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return doc, nil
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (d *Document) top() (*yaml.Node, error) {
	if d.root.Kind != yaml.DocumentNode || len(d.root.Content) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrNotMapping)
	}
	return resolve(d.root.Content[0]), nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// child returns the value node stored under `key` in a mapping node.
func child(mapping *yaml.Node, key string) (*yaml.Node, bool) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1], true
		}
	}
	return nil, false
}

func walk(node *yaml.Node, path []string) (*yaml.Node, error) {
	for i, key := range path {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: %s", ErrNotMapping, strings.Join(path[:i], "."))
		}
		next, ok := child(node, key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, strings.Join(path[:i+1], "."))
		}
		node = resolve(next)
	}
	return node, nil
}

// Lookup returns the node at the given key path.
func (d *Document) Lookup(path []string) (*yaml.Node, error) {
	top, err := d.top()
	if err != nil {
		return nil, err
	}
	return walk(top, path)
}

// Set replaces the value at `path` with `value`. Every key but the last must
// already exist, the last key is added to its parent mapping if missing.
func (d *Document) Set(path []string, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty key path", ErrKeyNotFound)
	}
	parent, err := d.Lookup(path[:len(path)-1])
	if err != nil {
		return err
	}
	if parent.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: %s", ErrNotMapping, strings.Join(path[:len(path)-1], "."))
	}

	var encoded yaml.Node
	err = encoded.Encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", strings.Join(path, "."), err)
	}

	key := path[len(path)-1]
	existing, ok := child(parent, key)
	if ok {
		encoded.HeadComment = existing.HeadComment
		encoded.LineComment = existing.LineComment
		encoded.FootComment = existing.FootComment
		*existing = encoded
		return nil
	}

	parent.Content = append(
		parent.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&encoded,
	)
	return nil
}

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err := enc.Encode(&d.root)
	if err != nil {
		return nil, err
	}
	err = enc.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save overwrites `path` with the document, keeping the file's permissions
// if it already exists.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	mode := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}

// UpdateMatrix loads the workflow at `path`, replaces the value at `keyPath`
// with `pairs` and writes the file back.
func UpdateMatrix(path string, keyPath []string, pairs []matrix.VersionPair) error {
	doc, err := Load(path)
	if err != nil {
		return err
	}
	err = doc.Set(keyPath, pairs)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	err = doc.Save(path)
	if err != nil {
		return err
	}
	slog.Info("workflow matrix updated", "path", path, "key", strings.Join(keyPath, "."), "entries", len(pairs))
	return nil
}
