package partition

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// HiveDefaultPartition is the literal Hive convention for a null partition
// value.
const HiveDefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// BuildPath renders a partition key as a Hive-style path
// "field1=value1/field2=value2/...", in the given field order. Each value
// is either nil (encoded as HiveDefaultPartition), an int64 (temporal
// transforms and truncate/bucket outputs), or a string (identity on a
// string source, or a pre-rendered value).
func BuildPath(fieldNames []string, values []interface{}) string {
	parts := make([]string, len(fieldNames))
	for i, name := range fieldNames {
		parts[i] = name + "=" + encodeValue(values[i])
	}
	return strings.Join(parts, "/")
}

func encodeValue(v interface{}) string {
	if v == nil {
		return HiveDefaultPartition
	}
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	case string:
		return url.QueryEscape(n)
	default:
		return url.QueryEscape(fmt.Sprintf("%v", v))
	}
}

// ParsePartitionPath splits a Hive-style partition path into its
// (field name, string value) pairs, inverting the encoding performed by
// BuildPath. Values are returned as strings; the caller, who knows the
// partition spec, is responsible for interpreting them as the appropriate
// type. HiveDefaultPartition decodes to a nil value.
func ParsePartitionPath(path string) ([]string, []interface{}, error) {
	segments := strings.Split(path, "/")
	names := make([]string, 0, len(segments))
	values := make([]interface{}, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		eq := strings.IndexByte(seg, '=')
		if eq < 0 {
			names = append(names, seg)
			values = append(values, nil)
			continue
		}
		name := seg[:eq]
		raw := seg[eq+1:]
		names = append(names, name)
		if raw == HiveDefaultPartition {
			values = append(values, nil)
			continue
		}
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			decoded = raw
		}
		values = append(values, decoded)
	}
	return names, values, nil
}
