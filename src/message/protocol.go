package message

import (
	"fmt"
	"sort"
)

type variant struct {
	required []string
	decode   func(line []byte) (Payload, error)
}

// Protocol is a closed set of payload variants keyed by their type name.
type Protocol struct {
	name     string
	variants map[string]*variant
}

// NewProtocol returns an empty Protocol. Variants are added with Register.
func NewProtocol(name string) *Protocol {
	return &Protocol{
		name:     name,
		variants: make(map[string]*variant),
	}
}

// Register adds the payload type P to the protocol. P must be a struct type
// whose Type method has a value receiver. required lists the JSON fields that
// must be present and non-null for a body of this type to decode. Register
// panics if the type name is already taken.
func Register[P Payload](p *Protocol, required ...string) {
	var zero P
	typ := zero.Type()
	if _, ok := p.variants[typ]; ok {
		panic(fmt.Sprintf("message: protocol %s already registers %q", p.name, typ))
	}
	p.variants[typ] = &variant{
		required: required,
		decode: func(line []byte) (Payload, error) {
			var frame struct {
				Body P `codec:"body"`
			}
			if err := unmarshal(line, &frame); err != nil {
				return nil, err
			}
			return frame.Body, nil
		},
	}
}

// Merge returns a new Protocol holding the variants of every protocol in ps.
// It panics if two protocols register the same type name.
func Merge(name string, ps ...*Protocol) *Protocol {
	merged := NewProtocol(name)
	for _, p := range ps {
		for typ, v := range p.variants {
			if _, ok := merged.variants[typ]; ok {
				panic(fmt.Sprintf("message: %q registered by more than one protocol", typ))
			}
			merged.variants[typ] = v
		}
	}
	return merged
}

// Name returns the name of the protocol.
func (p *Protocol) Name() string {
	return p.name
}

// Has reports whether typ is a variant of the protocol.
func (p *Protocol) Has(typ string) bool {
	_, ok := p.variants[typ]
	return ok
}

// Types returns the sorted type names of the protocol.
func (p *Protocol) Types() []string {
	types := make([]string, 0, len(p.variants))
	for typ := range p.variants {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Decode parses one line into an Envelope. The returned error is a
// *DecodeError.
func (p *Protocol) Decode(line []byte) (*Envelope, error) {
	frame, err := decodeObject(line)
	if err != nil {
		return nil, p.malformed("", "", err)
	}

	var route [2]string
	for i, field := range []string{"src", "dest"} {
		val, ok := frame[field]
		if !ok || val == nil {
			return nil, p.missing("", field)
		}
		s, ok := val.(string)
		if !ok {
			return nil, p.malformed("", field, fmt.Errorf("%s is %s, not a string", field, kindOf(val)))
		}
		route[i] = s
	}

	rawBody, ok := frame["body"]
	if !ok || rawBody == nil {
		return nil, p.missing("", "body")
	}
	body, ok := rawBody.(map[string]interface{})
	if !ok {
		return nil, p.malformed("", "body", fmt.Errorf("body is %s, not an object", kindOf(rawBody)))
	}

	rawType, ok := body["type"]
	if !ok || rawType == nil {
		return nil, p.missing("", "type")
	}
	typ, ok := rawType.(string)
	if !ok {
		return nil, p.malformed("", "type", fmt.Errorf("type is %s, not a string", kindOf(rawType)))
	}

	v, ok := p.variants[typ]
	if !ok {
		return nil, &DecodeError{Protocol: p.name, Type: typ, Err: ErrUnknownType}
	}

	for _, field := range v.required {
		if val, ok := body[field]; !ok || val == nil {
			return nil, p.missing(typ, field)
		}
	}
	if field, err := checkBody(body, v.required); err != nil {
		return nil, p.malformed(typ, field, err)
	}

	var corr struct {
		Body struct {
			MsgID     *uint64 `codec:"msg_id"`
			InReplyTo *uint64 `codec:"in_reply_to"`
		} `codec:"body"`
	}
	if err := unmarshal(line, &corr); err != nil {
		return nil, p.malformed(typ, "", err)
	}

	payload, err := v.decode(line)
	if err != nil {
		return nil, p.malformed(typ, "", err)
	}

	return NewEnvelope(route[0], route[1], Body{
		MsgID:     corr.Body.MsgID,
		InReplyTo: corr.Body.InReplyTo,
		Payload:   payload,
	}), nil
}

func (p *Protocol) missing(typ, field string) error {
	return &DecodeError{Protocol: p.name, Type: typ, Field: field, Err: ErrMissingField}
}

func (p *Protocol) malformed(typ, field string, cause error) error {
	return &DecodeError{
		Protocol: p.name,
		Type:     typ,
		Field:    field,
		Err:      fmt.Errorf("%w: %v", ErrMalformed, cause),
	}
}
