package cache

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported format tags. The tag doubles as the file extension of an entry.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"

	// DefaultFormat is the structured codec.
	DefaultFormat = FormatYAML
)

// Codec converts values to and from the bytes stored in an entry file.
// Implementations are pure and safe for concurrent use. Errors are returned as
// *CodecError.
type Codec interface {
	Format() string
	Encode(v any) ([]byte, error)
	// Decode stores the result in the value pointed to by v.
	Decode(data []byte, v any) error
}

var codecs = map[string]Codec{
	FormatYAML: yamlCodec{},
	FormatJSON: jsonCodec{},
}

// LookupCodec returns the codec registered for format.
func LookupCodec(format string) (Codec, error) {
	codec, ok := codecs[format]
	if !ok {
		return nil, &UnsupportedFormatError{Format: format}
	}
	return codec, nil
}

// Formats lists the supported format tags in sorted order.
func Formats() []string {
	formats := make([]string, 0, len(codecs))
	for format := range codecs {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

var errEmptyDocument = errors.New("empty document")

// yamlCodec is the structured codec. YAML is self-describing text, so decoding
// a foreign or corrupt file yields an error instead of running anything.
type yamlCodec struct{}

func (yamlCodec) Format() string { return FormatYAML }

func (yamlCodec) Encode(v any) (data []byte, err error) {
	// yaml.v3 only recovers its own errors; unsupported kinds such as chan or
	// func escape as panics.
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = &CodecError{Format: FormatYAML, Op: OpEncode, Err: fmt.Errorf("%v", r)}
		}
	}()

	node, err := yamlNode(reflect.ValueOf(v))
	if err != nil {
		return nil, &CodecError{Format: FormatYAML, Op: OpEncode, Err: err}
	}
	data, err = yaml.Marshal(node)
	if err != nil {
		return nil, &CodecError{Format: FormatYAML, Op: OpEncode, Err: err}
	}
	return data, nil
}

func (yamlCodec) Decode(data []byte, v any) error {
	// yaml.Unmarshal accepts an empty stream and leaves v untouched, which would
	// hide a truncated file.
	if len(bytes.TrimSpace(data)) == 0 {
		return &CodecError{Format: FormatYAML, Op: OpDecode, Err: errEmptyDocument}
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return &CodecError{Format: FormatYAML, Op: OpDecode, Err: err}
	}
	return nil
}

type jsonCodec struct{}

func (jsonCodec) Format() string { return FormatJSON }

func (jsonCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &CodecError{Format: FormatJSON, Op: OpEncode, Err: err}
	}
	return data, nil
}

func (jsonCodec) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &CodecError{Format: FormatJSON, Op: OpDecode, Err: err}
	}
	return nil
}

var (
	yamlMarshalerType = reflect.TypeOf((*yaml.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// yamlNode builds the node tree for v. Floats held in maps, slices and
// interfaces get an explicit float scalar so 1.0 does not come back as int 1
// when decoded into an interface. Everything else goes through yaml.v3's own
// encoding; struct float fields decode back into their typed fields anyway.
func yamlNode(v reflect.Value) (*yaml.Node, error) {
	if !v.IsValid() {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	if v.Type().Implements(yamlMarshalerType) || v.Type().Implements(textMarshalerType) {
		return fallbackNode(v)
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return yamlNode(reflect.Value{})
		}
		return yamlNode(v.Elem())
	case reflect.Float32, reflect.Float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatYAMLFloat(v.Float(), v.Type().Bits())}, nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() || v.Type().Elem().Kind() == reflect.Uint8 {
			return fallbackNode(v)
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i := 0; i < v.Len(); i++ {
			item, err := yamlNode(v.Index(i))
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, item)
		}
		return seq, nil
	case reflect.Map:
		if v.IsNil() {
			return fallbackNode(v)
		}
		type pair struct{ key, value *yaml.Node }
		pairs := make([]pair, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, err := yamlNode(iter.Key())
			if err != nil {
				return nil, err
			}
			value, err := yamlNode(iter.Value())
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair{key, value})
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i].key.Value < pairs[j].key.Value
		})
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, p := range pairs {
			mapping.Content = append(mapping.Content, p.key, p.value)
		}
		return mapping, nil
	default:
		return fallbackNode(v)
	}
}

func fallbackNode(v reflect.Value) (*yaml.Node, error) {
	node := &yaml.Node{}
	if err := node.Encode(v.Interface()); err != nil {
		return nil, err
	}
	return node, nil
}

// formatYAMLFloat always yields a scalar that yaml resolves as a float.
func formatYAMLFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
