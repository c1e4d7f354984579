package keys

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Serializer turns a key segment value into a stable string.
type Serializer interface {
	Serialize(v any) string
}

var defaultSerializer Serializer = &reflectSerializer{}

// NewSerializer returns the serializer used for key segments and filter values.
//
// Scalars render as their plain string form. Composite values (slices, arrays,
// maps, structs) carry their length and quote nested strings, so that
// []string{"a,b"} and []string{"a", "b"} never render the same. Map entries
// are sorted. Functions and channels have no stable cross-process identity and
// render as "unsupported:<type>"; they are not valid key segments.
func NewSerializer() Serializer {
	return &reflectSerializer{}
}

type reflectSerializer struct{}

func (s *reflectSerializer) Serialize(v any) string {
	return s.value(v, false)
}

func (s *reflectSerializer) value(v any, nested bool) string {
	if v == nil {
		return "nil"
	}

	switch x := v.(type) {
	case string:
		if nested {
			return strconv.Quote(x)
		}
		return x
	case []byte:
		return s.value(string(x), nested)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case fmt.Stringer:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "nil"
		}
		return s.value(x.String(), nested)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%v", v)
	case reflect.String:
		return s.value(rv.String(), nested)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.value(rv.Elem().Interface(), nested)
	case reflect.Slice:
		if rv.IsNil() {
			return "[]"
		}
		return s.sequence(rv)
	case reflect.Array:
		return s.sequence(rv)
	case reflect.Map:
		return s.mapping(rv)
	case reflect.Struct:
		return s.record(rv)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return "unsupported:" + rv.Type().String()
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "unsupported:" + rv.Type().String()
	}
	return "json:" + string(data)
}

func (s *reflectSerializer) sequence(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.value(rv.Index(i).Interface(), true)
	}
	return fmt.Sprintf("[%d]{%s}", len(parts), strings.Join(parts, ","))
}

func (s *reflectSerializer) mapping(rv reflect.Value) string {
	if rv.IsNil() || rv.Len() == 0 {
		return "{}"
	}

	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := s.value(iter.Key().Interface(), true)
		v := s.value(iter.Value().Interface(), true)
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return fmt.Sprintf("{%d}{%s}", len(pairs), strings.Join(pairs, ","))
}

func (s *reflectSerializer) record(rv reflect.Value) string {
	rt := rv.Type()
	parts := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+"="+s.value(rv.Field(i).Interface(), true))
	}
	return rt.Name() + "{" + strings.Join(parts, ",") + "}"
}
