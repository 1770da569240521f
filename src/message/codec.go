package message

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/ugorji/go/codec"
)

var jsonHandle = newJSONHandle()

func newJSONHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	jh.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return jh
}

func marshal(v interface{}) ([]byte, error) {
	var b []byte
	enc := codec.NewEncoderBytes(&b, jsonHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(b), nil
}

// unmarshal decodes the single JSON value held in data into v. Anything but
// whitespace after that value is an error.
func unmarshal(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, jsonHandle)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if rest := bytes.TrimSpace(data[dec.NumBytesRead():]); len(rest) > 0 {
		return fmt.Errorf("trailing data after JSON value: %q", truncate(rest, 32))
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// decodeObject decodes a line that must hold exactly one JSON object.
func decodeObject(line []byte) (map[string]interface{}, error) {
	var raw interface{}
	if err := unmarshal(line, &raw); err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("line holds %s, not an object", kindOf(raw))
	}
	return obj, nil
}

type route struct {
	Src  string `codec:"src"`
	Dest string `codec:"dest"`
}

// Encode returns the JSON form of env on a single line, without the trailing
// newline. The body holds "type", then "msg_id" and "in_reply_to" when they
// are set, then the fields of the payload.
func Encode(env *Envelope) ([]byte, error) {
	if env.Body.Payload == nil {
		return nil, errors.New("message: envelope has no payload")
	}

	body, err := encodeBody(env.Body)
	if err != nil {
		return nil, err
	}

	head, err := marshal(route{Src: env.Src, Dest: env.Dest})
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(head)+len(body)+9)
	out = append(out, head[:len(head)-1]...)
	out = append(out, `,"body":`...)
	out = append(out, body...)
	out = append(out, '}')
	return out, nil
}

func encodeBody(b Body) ([]byte, error) {
	header := map[string]interface{}{
		"type": b.Payload.Type(),
	}
	if b.MsgID != nil {
		header["msg_id"] = *b.MsgID
	}
	if b.InReplyTo != nil {
		header["in_reply_to"] = *b.InReplyTo
	}

	head, err := marshal(header)
	if err != nil {
		return nil, err
	}

	payload := b.Payload
	if w, ok := payload.(wirer); ok {
		payload = w.wire()
	}
	fields, err := marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("message: encode %q: %v", b.Payload.Type(), err)
	}

	return mergeObjects(head, fields)
}

// mergeObjects splices the members of the JSON object b into the JSON object
// a. Both must be objects and share no keys.
func mergeObjects(a, b []byte) ([]byte, error) {
	if !isObject(a) || !isObject(b) {
		return nil, errors.New("message: payload does not encode to an object")
	}
	inner := bytes.TrimSpace(b[1 : len(b)-1])
	if len(inner) == 0 {
		return a, nil
	}
	out := make([]byte, 0, len(a)+len(inner)+1)
	out = append(out, a[:len(a)-1]...)
	out = append(out, ',')
	out = append(out, inner...)
	out = append(out, '}')
	return out, nil
}

func isObject(b []byte) bool {
	return len(b) >= 2 && b[0] == '{' && b[len(b)-1] == '}'
}

// Route extracts the source and destination of an encoded message without
// decoding its body.
func Route(line []byte) (src, dest string, err error) {
	obj, err := decodeObject(line)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, field := range []string{"src", "dest"} {
		val, ok := obj[field]
		if !ok || val == nil {
			return "", "", fmt.Errorf("%w: %s", ErrMissingField, field)
		}
		if !isString(val) {
			return "", "", fmt.Errorf("%w: %s is %s, not a string", ErrMalformed, field, kindOf(val))
		}
	}
	return obj["src"].(string), obj["dest"].(string), nil
}
