// Package cache implements the result cache that memoizes analytic
// computations: key derivation, a sharded TTL/LRU entry store, single-flight
// coordination of misses and the statistics aggregator.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/felixgeelhaar/concept-analytics/domain/cache"
)

// maxDepth bounds nesting so that cyclic values fail instead of looping.
const maxDepth = 32

var (
	setType         = reflect.TypeOf(cache.Set(nil))
	timeType        = reflect.TypeOf(time.Time{})
	jsonNumberType  = reflect.TypeOf(json.Number(""))
	textMarshalType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Codec derives cache keys from an operation name and its parameters.
//
// Parameters are encoded canonically: map keys are sorted, sets are sorted,
// integral floats encode like integers and strings are NFC-normalized.
// Registered defaults are applied before encoding so that omitting a
// parameter and passing its default produce the same key.
type Codec struct {
	mu       sync.RWMutex
	defaults map[string]map[string]any
}

// NewCodec creates a codec with no registered defaults.
func NewCodec() *Codec {
	return &Codec{defaults: make(map[string]map[string]any)}
}

// RegisterDefaults records the default parameter values of an operation.
func (c *Codec) RegisterDefaults(operation string, defaults map[string]any) {
	cp := make(map[string]any, len(defaults))
	for k, v := range defaults {
		cp[k] = v
	}
	c.mu.Lock()
	c.defaults[operation] = cp
	c.mu.Unlock()
}

// Key derives the key for operation and params.
func (c *Codec) Key(operation string, params map[string]any) (cache.Key, error) {
	if operation == "" {
		return cache.Key{}, cache.ErrInvalidKey
	}

	c.mu.RLock()
	defaults := c.defaults[operation]
	c.mu.RUnlock()

	merged := make(map[string]any, len(params)+len(defaults))
	for k, v := range params {
		if v != nil {
			merged[k] = v
		}
	}
	for k, v := range defaults {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}

	encoded, err := Canonical(merged)
	if err != nil {
		return cache.Key{}, err
	}

	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write(encoded)

	return cache.Key{
		Operation: operation,
		Digest:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Canonical returns the canonical encoding of v.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, "params", reflect.ValueOf(v), 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, path string, v reflect.Value, depth int) error {
	if depth > maxDepth {
		return &cache.KeyDerivationError{Path: path, Kind: "nesting too deep"}
	}
	if !v.IsValid() {
		buf.WriteString("null")
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
	}

	t := v.Type()
	switch {
	case t == setType:
		return encodeSet(buf, path, v, depth)
	case t == timeType:
		buf.WriteString(strconv.Quote(v.Interface().(time.Time).UTC().Format(time.RFC3339Nano)))
		return nil
	case t == jsonNumberType:
		return encodeNumber(buf, path, v.Interface().(json.Number))
	case t.Implements(textMarshalType) && v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface:
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return &cache.KeyDerivationError{Path: path, Kind: t.String()}
		}
		buf.WriteString(strconv.Quote(norm.NFC.String(string(text))))
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return encodeValue(buf, path, v.Elem(), depth+1)
	case reflect.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32:
		return encodeFloat(buf, path, v.Float(), 32)
	case reflect.Float64:
		return encodeFloat(buf, path, v.Float(), 64)
	case reflect.String:
		buf.WriteString(strconv.Quote(norm.NFC.String(v.String())))
	case reflect.Slice, reflect.Array:
		buf.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, fmt.Sprintf("%s[%d]", path, i), v.Index(i), depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case reflect.Map:
		return encodeMap(buf, path, v, depth)
	case reflect.Struct:
		return encodeStruct(buf, path, v, depth)
	default:
		return &cache.KeyDerivationError{Path: path, Kind: v.Kind().String()}
	}
	return nil
}

func encodeFloat(buf *bytes.Buffer, path string, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &cache.KeyDerivationError{Path: path, Kind: "non-finite float"}
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

func encodeNumber(buf *bytes.Buffer, path string, n json.Number) error {
	if i, err := n.Int64(); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return &cache.KeyDerivationError{Path: path, Kind: "malformed number"}
	}
	return encodeFloat(buf, path, f, 64)
}

// encodeSet writes the members of a set in sorted encoded order.
func encodeSet(buf *bytes.Buffer, path string, v reflect.Value, depth int) error {
	members := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		var b bytes.Buffer
		if err := encodeValue(&b, fmt.Sprintf("%s{%d}", path, i), v.Index(i), depth+1); err != nil {
			return err
		}
		members = append(members, b.String())
	}
	sort.Strings(members)
	members = compact(members)
	buf.WriteString("set[")
	buf.WriteString(strings.Join(members, ","))
	buf.WriteByte(']')
	return nil
}

func encodeMap(buf *bytes.Buffer, path string, v reflect.Value, depth int) error {
	// map[K]struct{} is the idiomatic set.
	isSet := v.Type().Elem().Kind() == reflect.Struct && v.Type().Elem().NumField() == 0

	type pair struct {
		key   string
		value string
	}
	pairs := make([]pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var kb bytes.Buffer
		if err := encodeValue(&kb, path+".<key>", iter.Key(), depth+1); err != nil {
			return err
		}
		p := pair{key: kb.String()}
		if !isSet {
			var vb bytes.Buffer
			if err := encodeValue(&vb, path+"."+strings.Trim(p.key, `"`), iter.Value(), depth+1); err != nil {
				return err
			}
			p.value = vb.String()
		}
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	if isSet {
		buf.WriteString("set[")
	} else {
		buf.WriteByte('{')
	}
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(p.key)
		if !isSet {
			buf.WriteByte(':')
			buf.WriteString(p.value)
		}
	}
	if isSet {
		buf.WriteByte(']')
	} else {
		buf.WriteByte('}')
	}
	return nil
}

func encodeStruct(buf *bytes.Buffer, path string, v reflect.Value, depth int) error {
	t := v.Type()
	type field struct {
		name  string
		index int
	}
	fields := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields = append(fields, field{name: name, index: i})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })

	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(f.name))
		buf.WriteByte(':')
		if err := encodeValue(buf, path+"."+f.name, v.Field(f.index), depth+1); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func compact(sorted []string) []string {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
