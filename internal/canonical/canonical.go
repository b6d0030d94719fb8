// Package canonical produces a stable, byte-identical JSON serialization of
// arbitrary Go values. It is the sole hashing substrate for the evidence
// packager and the equality substrate for tool-arg comparisons: two
// semantically equal values must canonicalize to the same string.
package canonical

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Canonicalize serializes v into compact JSON with recursively sorted object
// keys and normalized scalars. The result is deterministic for any two
// semantically equal inputs.
func Canonicalize(v interface{}) string {
	var sb strings.Builder
	writeValue(&sb, v, make(map[uintptr]bool))
	return sb.String()
}

// CanonicalizeAll canonicalizes each value in order and returns the list of
// resulting strings.
func CanonicalizeAll(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Canonicalize(v)
	}
	return out
}

func writeValue(sb *strings.Builder, v interface{}, seen map[uintptr]bool) {
	if v == nil {
		sb.WriteString("null")
		return
	}

	switch val := v.(type) {
	case string:
		writeJSONString(sb, val)
		return
	case bool:
		if val {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
		return
	case *big.Int:
		sb.WriteString(`"`)
		sb.WriteString(val.String())
		sb.WriteString(`"`)
		return
	case json.Number:
		sb.WriteString(string(val))
		return
	case float32:
		writeNumber(sb, float64(val))
		return
	case float64:
		writeNumber(sb, val)
		return
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		fmt.Fprintf(sb, "%d", val)
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			sb.WriteString("null")
			return
		}
		ptr := rv.Pointer()
		if seen[ptr] {
			writeJSONString(sb, "[Circular]")
			return
		}
		seen[ptr] = true
		writeValue(sb, rv.Elem().Interface(), seen)
		delete(seen, ptr)
		return

	case reflect.Map:
		ptr := rv.Pointer()
		if ptr != 0 {
			if seen[ptr] {
				writeJSONString(sb, "[Circular]")
				return
			}
			seen[ptr] = true
			defer delete(seen, ptr)
		}
		writeMap(sb, rv, seen)
		return

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				sb.WriteString("null")
				return
			}
			ptr := rv.Pointer()
			if ptr != 0 {
				if seen[ptr] {
					writeJSONString(sb, "[Circular]")
					return
				}
				seen[ptr] = true
				defer delete(seen, ptr)
			}
		}
		writeArray(sb, rv, seen)
		return

	case reflect.Struct:
		writeStruct(sb, rv, seen)
		return

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		writeJSONString(sb, fmt.Sprintf("[%s]", rv.Kind().String()))
		return

	case reflect.Invalid:
		sb.WriteString("null")
		return

	default:
		// Fallback: round-trip through encoding/json for anything unexpected
		// (e.g. complex numbers never appear in wire data, but stay safe).
		data, err := json.Marshal(v)
		if err != nil {
			writeJSONString(sb, fmt.Sprintf("[%v]", v))
			return
		}
		sb.Write(data)
	}
}

// writeMap canonicalizes a map by sorting its keys lexicographically by
// Unicode code point before emitting entries.
func writeMap(sb *strings.Builder, rv reflect.Value, seen map[uintptr]bool) {
	if rv.Len() == 0 {
		sb.WriteString("{}")
		return
	}

	keys := rv.MapKeys()
	strKeys := make([]string, len(keys))
	for i, k := range keys {
		strKeys[i] = fmt.Sprintf("%v", k.Interface())
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return strKeys[order[i]] < strKeys[order[j]] })

	sb.WriteByte('{')
	for i, idx := range order {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeJSONString(sb, strKeys[idx])
		sb.WriteByte(':')
		writeValue(sb, rv.MapIndex(keys[idx]).Interface(), seen)
	}
	sb.WriteByte('}')
}

func writeArray(sb *strings.Builder, rv reflect.Value, seen map[uintptr]bool) {
	sb.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeValue(sb, rv.Index(i).Interface(), seen)
	}
	sb.WriteByte(']')
}

// writeStruct canonicalizes a struct as an object keyed by its exported field
// names in sorted order, honoring `json:"-"` and `json:"name"` tags so a
// struct canonicalizes the same way its JSON wire form would.
func writeStruct(sb *strings.Builder, rv reflect.Value, seen map[uintptr]bool) {
	t := rv.Type()
	type kv struct {
		key string
		val interface{}
		omit bool
	}
	var entries []kv
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		name := f.Name
		omitempty := false
		if tag, ok := f.Tag.Lookup("json"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, p := range parts[1:] {
				if p == "omitempty" {
					omitempty = true
				}
			}
		}
		fv := rv.Field(i)
		if omitempty && isEmptyValue(fv) {
			continue
		}
		entries = append(entries, kv{key: name, val: fv.Interface()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	sb.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeJSONString(sb, e.key)
		sb.WriteByte(':')
		writeValue(sb, e.val, seen)
	}
	sb.WriteByte('}')
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

// writeNumber emits the minimal decimal form encoding/json produces for a
// float64, so canonicalization agrees with the standard JSON encoder. Values
// encoding/json cannot encode (NaN, ±Inf) fall back to strconv's 'g' form.
func writeNumber(sb *strings.Builder, f float64) {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		sb.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	if data, err := json.Marshal(f); err == nil {
		sb.Write(data)
		return
	}
	sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

func writeJSONString(sb *strings.Builder, s string) {
	data, _ := json.Marshal(s)
	sb.Write(data)
}
