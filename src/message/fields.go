package message

import (
	"fmt"
	"math"
)

// fieldCheck reports whether a generically decoded JSON value has the shape a
// body field expects.
type fieldCheck struct {
	field string
	kind  string
	ok    func(interface{}) bool
}

// bodyFields holds the shape of every body field a payload may carry. The
// typed decode converts between JSON strings and numbers without complaint,
// so shapes are checked on the generic form first.
var bodyFields = []fieldCheck{
	{"msg_id", "an unsigned integer", isUnsigned},
	{"in_reply_to", "an unsigned integer", isUnsigned},
	{"message", "an integer", isInteger},
	{"node_id", "a string", isString},
	{"echo", "a string", isString},
	{"id", "a string", isString},
	{"messages", "a list of integers", listOf(isInteger)},
	{"node_ids", "a list of strings", listOf(isString)},
	{"topology", "an object of string lists", objectOf(listOf(isString))},
}

// checkBody validates the shape of the non-null fields of body named in
// fields, and of the correlation ids, and returns the name of the first one
// that does not match. Fields the variant does not read are left alone.
func checkBody(body map[string]interface{}, fields []string) (string, error) {
	read := map[string]bool{"msg_id": true, "in_reply_to": true}
	for _, f := range fields {
		read[f] = true
	}
	for _, check := range bodyFields {
		val, ok := body[check.field]
		if !ok || val == nil || !read[check.field] {
			continue
		}
		if !check.ok(val) {
			return check.field, fmt.Errorf("%s is %s, not %s", check.field, kindOf(val), check.kind)
		}
	}
	return "", nil
}

func isString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func isInteger(v interface{}) bool {
	switch n := v.(type) {
	case int64:
		return true
	case uint64:
		return n <= math.MaxInt64
	case float64:
		return n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64
	}
	return false
}

func isUnsigned(v interface{}) bool {
	switch n := v.(type) {
	case int64:
		return n >= 0
	case uint64:
		return true
	case float64:
		return n == math.Trunc(n) && n >= 0 && n < math.MaxUint64
	}
	return false
}

func listOf(elem func(interface{}) bool) func(interface{}) bool {
	return func(v interface{}) bool {
		list, ok := v.([]interface{})
		if !ok {
			return false
		}
		for _, e := range list {
			if !elem(e) {
				return false
			}
		}
		return true
	}
}

func objectOf(elem func(interface{}) bool) func(interface{}) bool {
	return func(v interface{}) bool {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return false
		}
		for _, e := range obj {
			if !elem(e) {
				return false
			}
		}
		return true
	}
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case int64, uint64, float64:
		return "a number"
	case []interface{}:
		return "a list"
	case map[string]interface{}:
		return "an object"
	}
	return fmt.Sprintf("%T", v)
}
