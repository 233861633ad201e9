package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/discussions/internal/log"
)

// SetFlag sets flags.<name> in the config file, preserving comments and
// every other section.
func SetFlag(configPath, name string, enabled bool) error {
	doc, err := readDocument(configPath)
	if err != nil {
		return err
	}

	flagsNode := ensureMapping(rootMapping(doc), "flags")
	setScalar(flagsNode, name, boolNode(enabled))

	if err := writeDocument(configPath, doc); err != nil {
		return err
	}
	log.Info(log.CatConfig, "Flag saved", "path", configPath, "flag", name, "enabled", enabled)
	return nil
}

// SetCourseFlag sets one course_flags entry in the config file, replacing
// an existing entry for the same course and flag.
func SetCourseFlag(configPath, courseID, name string, enabled bool) error {
	doc, err := readDocument(configPath)
	if err != nil {
		return err
	}

	root := rootMapping(doc)
	seq := mappingValue(root, "course_flags")
	if seq == nil || seq.Kind != yaml.SequenceNode {
		seq = &yaml.Node{Kind: yaml.SequenceNode}
		setScalar(root, "course_flags", seq)
	}

	var entry *yaml.Node
	for _, item := range seq.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		id, flag := mappingValue(item, "course_id"), mappingValue(item, "flag")
		if id != nil && flag != nil && id.Value == courseID && flag.Value == name {
			entry = item
			break
		}
	}
	if entry == nil {
		entry = &yaml.Node{Kind: yaml.MappingNode}
		setScalar(entry, "course_id", &yaml.Node{Kind: yaml.ScalarNode, Value: courseID, Style: yaml.DoubleQuotedStyle})
		setScalar(entry, "flag", &yaml.Node{Kind: yaml.ScalarNode, Value: name})
		seq.Content = append(seq.Content, entry)
	}
	setScalar(entry, "enabled", boolNode(enabled))

	if err := writeDocument(configPath, doc); err != nil {
		return err
	}
	log.Info(log.CatConfig, "Course flag saved", "path", configPath, "course_id", courseID, "flag", name, "enabled", enabled)
	return nil
}

func readDocument(configPath string) (*yaml.Node, error) {
	data, err := os.ReadFile(configPath) //nolint:gosec // G304: operator supplied config path
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	doc := &yaml.Node{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc.Kind = yaml.DocumentNode
	}
	return doc, nil
}

// rootMapping returns the top-level mapping of doc, creating it in an
// empty document.
func rootMapping(doc *yaml.Node) *yaml.Node {
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		doc.Content = []*yaml.Node{{Kind: yaml.MappingNode}}
	}
	return doc.Content[0]
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// setScalar replaces the value under key, or appends key: value.
func setScalar(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
}

// ensureMapping returns the mapping under key, replacing a non-mapping
// value such as `flags: {}` written inline or an empty scalar.
func ensureMapping(m *yaml.Node, key string) *yaml.Node {
	v := mappingValue(m, key)
	if v != nil && v.Kind == yaml.MappingNode {
		v.Style = 0
		return v
	}
	v = &yaml.Node{Kind: yaml.MappingNode}
	setScalar(m, key, v)
	return v
}

func boolNode(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

// writeDocument writes atomically: temp file then rename.
func writeDocument(configPath string, doc *yaml.Node) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".discussions.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
