package message

// Payload is the protocol-specific content of a message body. Type returns
// the snake_case discriminator written to the "type" field.
type Payload interface {
	Type() string
}

// Body groups the correlation fields with the payload. MsgID is set by the
// sender of a message that expects a reply; InReplyTo is set on a reply and
// echoes the MsgID of the request.
type Body struct {
	MsgID     *uint64
	InReplyTo *uint64
	Payload   Payload
}

// Envelope is one message on the wire. Envelopes are treated as immutable
// once built; a reply is always a new Envelope.
type Envelope struct {
	Src  string
	Dest string
	Body Body
}

// NewEnvelope builds an Envelope from its parts.
func NewEnvelope(src, dest string, body Body) *Envelope {
	return &Envelope{
		Src:  src,
		Dest: dest,
		Body: body,
	}
}

// ID returns a pointer to a copy of id, for use in Body correlation fields.
func ID(id uint64) *uint64 {
	return &id
}

// Type returns the discriminator of the payload, or the empty string when
// the envelope has no payload.
func (e *Envelope) Type() string {
	if e.Body.Payload == nil {
		return ""
	}
	return e.Body.Payload.Type()
}

// MsgID returns the message id of the envelope and whether it is set.
func (e *Envelope) MsgID() (uint64, bool) {
	if e.Body.MsgID == nil {
		return 0, false
	}
	return *e.Body.MsgID, true
}

// InReplyTo returns the id of the message this envelope answers and whether
// it is set.
func (e *Envelope) InReplyTo() (uint64, bool) {
	if e.Body.InReplyTo == nil {
		return 0, false
	}
	return *e.Body.InReplyTo, true
}

// Reply builds the answer to e: source and destination are swapped,
// InReplyTo echoes e's MsgID and MsgID is set to msgID.
func (e *Envelope) Reply(msgID uint64, p Payload) *Envelope {
	body := Body{
		MsgID:   ID(msgID),
		Payload: p,
	}
	if id, ok := e.MsgID(); ok {
		body.InReplyTo = ID(id)
	}
	return NewEnvelope(e.Dest, e.Src, body)
}
