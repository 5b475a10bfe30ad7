package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/internal/config"
)

// secretKeys are always stored as strings, whatever they look like.
var secretKeys = map[string]bool{
	"llm.api_key":            true,
	"tools.opencage_api_key": true,
}

// configDoc is the YAML file as a generic tree so edits keep keys the user
// wrote and skip the ones they did not.
type configDoc map[string]any

// readConfigDoc loads path. A missing file is an empty document.
func readConfigDoc(path string) (configDoc, error) {
	doc := configDoc{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", framework.ErrConfiguration, path, err)
	}
	if doc == nil {
		doc = configDoc{}
	}
	return doc, nil
}

// check decodes the document into a config.Config, catching unknown keys and
// values of the wrong type before anything is written.
func (d configDoc) check() (config.Config, error) {
	data, err := yaml.Marshal(map[string]any(d))
	if err != nil {
		return config.Config{}, err
	}
	return config.Parse(data)
}

// save validates the document and writes it to path, creating directories.
func (d configDoc) save(path string) error {
	if _, err := d.check(); err != nil {
		return err
	}
	data, err := yaml.Marshal(map[string]any(d))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// lookup walks a dotted key such as "tools.stac_endpoint".
func (d configDoc) lookup(key string) (any, bool) {
	var node any = map[string]any(d)
	for _, part := range strings.Split(key, ".") {
		section, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = section[part]; !ok {
			return nil, false
		}
	}
	return node, true
}

// assign sets a dotted key, creating missing sections. Replacing a scalar
// with a section is refused.
func (d configDoc) assign(key string, value any) error {
	parts := strings.Split(key, ".")
	section := map[string]any(d)
	for _, part := range parts[:len(parts)-1] {
		switch next := section[part].(type) {
		case map[string]any:
			section = next
		case nil:
			child := map[string]any{}
			section[part] = child
			section = child
		default:
			return fmt.Errorf("%w: %s is a value, not a section", framework.ErrConfiguration, part)
		}
	}
	section[parts[len(parts)-1]] = value
	return nil
}

// parseValue turns CLI text into the YAML scalar it names. Secrets and
// numbers with leading zeros stay strings.
func parseValue(key, input string) any {
	if secretKeys[key] || hasLeadingZero(input) {
		return input
	}
	switch input {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(input, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(input, 64); err == nil && !strings.ContainsAny(input, "xXnN") {
		return f
	}
	return input
}

func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// prettyValue prints scalars as-is and sections as YAML.
func prettyValue(v any) string {
	switch value := v.(type) {
	case map[string]any, []any:
		b, _ := yaml.Marshal(value)
		return strings.TrimSpace(string(b))
	default:
		return fmt.Sprint(value)
	}
}
