package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProductID is a catalog identifier. Sources may encode it as a string or a number;
// numbers are coerced to their shortest decimal form so ids always compare as strings.
type ProductID string

// UnmarshalJSON accepts both string and numeric ids.
func (id *ProductID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("catalog: id must be a string or number: %w", err)
	}
	*id = ProductID(numberString(n.String()))
	return nil
}

// UnmarshalYAML accepts any scalar id.
func (id *ProductID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("catalog: id must be a scalar (line %d)", node.Line)
	}
	if node.Tag == "!!null" {
		*id = ""
		return nil
	}
	value := strings.TrimSpace(node.Value)
	if node.Tag == "!!int" || node.Tag == "!!float" {
		value = numberString(value)
	}
	*id = ProductID(value)
	return nil
}

func numberString(raw string) string {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return raw
}

// Product is a read-only catalog record.
type Product struct {
	ID          ProductID `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string    `json:"name" yaml:"name"`
	Brand       string    `json:"brand,omitempty" yaml:"brand,omitempty"`
	Category    string    `json:"category,omitempty" yaml:"category,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Image       string    `json:"image,omitempty" yaml:"image,omitempty"`

	// key is assigned by the Store once collisions are resolved.
	key string
}

// Key returns the identifier used for selection and lookup: the id when present,
// otherwise the name. Products loaded through a Store may carry a disambiguated key.
func (p Product) Key() string {
	if p.key != "" {
		return p.key
	}
	return naturalKey(p)
}

func naturalKey(p Product) string {
	if id := strings.TrimSpace(string(p.ID)); id != "" {
		return id
	}
	return strings.TrimSpace(p.Name)
}

type payload struct {
	Products []Product `json:"products" yaml:"products"`
}
