// Package schema checks a profile against the column types a dataset is
// expected to have.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"csvprofiler/internal/profile"
)

// Expected is a set of expected column types, in declaration order.
//
// File layout (YAML or JSON):
//
//	columns:
//	  id: integer
//	  amount: numeric
//	  name: string
//	strict: true   # report columns missing from this list as errors
type Expected struct {
	Columns []ExpectedColumn
	Strict  bool
}

// ExpectedColumn is one declared column.
type ExpectedColumn struct {
	Name string
	Type profile.ResolvedType
}

type fileDoc struct {
	Columns yaml.Node `yaml:"columns"`
	Strict  bool      `yaml:"strict"`
}

// Load reads an expectation file. JSON is accepted since it is valid YAML.
func Load(path string) (*Expected, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	exp, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", filepath.Base(path), err)
	}
	return exp, nil
}

// Parse decodes an expectation document. Column order follows the document.
func Parse(b []byte) (*Expected, error) {
	b = bytes.TrimPrefix(b, []byte("\xEF\xBB\xBF"))

	var doc fileDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if doc.Columns.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("columns must be a mapping of name to type")
	}

	exp := &Expected{Strict: doc.Strict}
	seen := make(map[string]bool)
	content := doc.Columns.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := strings.TrimSpace(content[i].Value)
		if name == "" {
			return nil, fmt.Errorf("line %d: empty column name", content[i].Line)
		}
		if seen[name] {
			return nil, fmt.Errorf("line %d: column %q declared twice", content[i].Line, name)
		}
		seen[name] = true

		typ, err := profile.ParseResolvedType(strings.ToLower(strings.TrimSpace(content[i+1].Value)))
		if err != nil {
			return nil, fmt.Errorf("line %d: column %q: %w", content[i+1].Line, name, err)
		}
		exp.Columns = append(exp.Columns, ExpectedColumn{Name: name, Type: typ})
	}
	return exp, nil
}

// FromSummary derives an expectation from a profile, for bootstrapping a
// schema file from known good data.
func FromSummary(s *profile.Summary) *Expected {
	exp := &Expected{}
	for _, c := range s.Columns {
		exp.Columns = append(exp.Columns, ExpectedColumn{Name: c.Name, Type: c.Type})
	}
	return exp
}

// MarshalYAML writes the expectation in the file layout Load reads.
func (e *Expected) MarshalYAML() (any, error) {
	cols := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range e.Columns {
		cols.Content = append(cols.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(c.Type)},
		)
	}
	doc := &yaml.Node{Kind: yaml.MappingNode}
	doc.Content = append(doc.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "columns"}, cols,
	)
	if e.Strict {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "strict"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"},
		)
	}
	return doc, nil
}

// MarshalJSON writes columns as an object in declaration order.
func (e *Expected) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`{"columns":{`)
	for i, c := range e.Columns {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(c.Name)
		b.Write(k)
		b.WriteByte(':')
		v, _ := json.Marshal(string(c.Type))
		b.Write(v)
	}
	b.WriteString(`},"strict":`)
	if e.Strict {
		b.WriteString("true}")
	} else {
		b.WriteString("false}")
	}
	return b.Bytes(), nil
}
