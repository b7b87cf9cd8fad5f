package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/model"
)

// Params are query parameters. Nested maps and slices are encoded the way
// the service expects: filters[published]=true, ids[]=a&ids[]=b.
type Params map[string]any

// NoLimit asks the service for a whole collection in one response
func NoLimit() Params {
	return Params{"limit": 0}
}

// With returns a copy of p with key set to value
func (p Params) With(key string, value any) Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[key] = value
	return out
}

func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range p {
		encodeParam(values, k, v)
	}
	return values.Encode()
}

func encodeParam(values url.Values, key string, v any) {
	switch t := v.(type) {
	case nil:
	case map[string]any:
		for _, k := range sortedKeys(t) {
			encodeParam(values, key+"["+k+"]", t[k])
		}
	case map[string]string:
		for k, s := range t {
			values.Add(key+"["+k+"]", s)
		}
	case Params:
		encodeParam(values, key, map[string]any(t))
	case []string:
		for _, s := range t {
			values.Add(key+"[]", s)
		}
	case []any:
		for _, e := range t {
			encodeParam(values, key+"[]", e)
		}
	default:
		values.Add(key, fmt.Sprint(t))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func decoder(raw json.RawMessage) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec
}

// DecodeOne decodes a single attribute map
func DecodeOne(raw json.RawMessage) (model.Attributes, error) {
	var attrs model.Attributes
	if err := decoder(raw).Decode(&attrs); err != nil {
		return nil, errs.Transport("decode", 0, fmt.Errorf("malformed payload: %w", err))
	}
	if attrs == nil {
		return nil, errs.NotFound("decode", nil)
	}
	return attrs, nil
}

// DecodeList decodes a collection. A null body is an empty collection.
func DecodeList(raw json.RawMessage) ([]model.Attributes, error) {
	var list []model.Attributes
	if err := decoder(raw).Decode(&list); err != nil {
		return nil, errs.Transport("decode", 0, fmt.Errorf("malformed collection payload: %w", err))
	}
	return list, nil
}
