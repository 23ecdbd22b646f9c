package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownType      = errors.New("unknown message type")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrSyntax           = errors.New("invalid frame syntax")
)

// Kind discriminates the envelope variants on the wire.
type Kind string

const (
	KindUsers    Kind = "users"
	KindRegister Kind = "register"
	KindMessage  Kind = "message"
)

// Envelope is one decoded wire message. Exactly the fields belonging to its
// Kind are populated: Names for users, Name for register, From/Body for
// message.
type Envelope struct {
	Kind  Kind
	Names []string // users: current online set, in server order
	Name  string   // register
	From  string   // message
	Body  string   // message
}

// wireFrame mirrors the server's JSON frame layout. The field names are a
// wire-compatibility contract with the existing server; do not rename.
// Payloads stay raw until the discriminant tells us their expected shape.
type wireFrame struct {
	MessageType string          `json:"messageType"`
	DataArray   json.RawMessage `json:"dataArray"`
	Data        json.RawMessage `json:"data"`
}

type encodedFrame struct {
	MessageType string   `json:"messageType"`
	DataArray   []string `json:"dataArray,omitempty"`
	Data        *string  `json:"data,omitempty"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// Decode parses one raw text frame into an Envelope. Decoding is strict: a
// recognized type with the wrong payload shape is rejected whole, never
// partially interpreted.
func Decode(raw string) (Envelope, error) {
	var w wireFrame
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	switch Kind(w.MessageType) {
	case KindUsers:
		if present(w.Data) {
			return Envelope{}, fmt.Errorf("%w: users frame carries data", ErrMalformedPayload)
		}
		if !present(w.DataArray) {
			// Absent dataArray means an empty roster.
			return Envelope{Kind: KindUsers}, nil
		}
		var names []string
		if err := json.Unmarshal(w.DataArray, &names); err != nil {
			return Envelope{}, fmt.Errorf("%w: users dataArray must be strings", ErrMalformedPayload)
		}
		return Envelope{Kind: KindUsers, Names: names}, nil

	case KindRegister:
		if present(w.DataArray) {
			return Envelope{}, fmt.Errorf("%w: register frame carries dataArray", ErrMalformedPayload)
		}
		if !present(w.Data) {
			return Envelope{}, fmt.Errorf("%w: register frame missing data", ErrMalformedPayload)
		}
		var name string
		if err := json.Unmarshal(w.Data, &name); err != nil {
			return Envelope{}, fmt.Errorf("%w: register data must be a string", ErrMalformedPayload)
		}
		return Envelope{Kind: KindRegister, Name: name}, nil

	case KindMessage:
		if present(w.Data) {
			return Envelope{}, fmt.Errorf("%w: message frame carries data", ErrMalformedPayload)
		}
		var pair []string
		if present(w.DataArray) {
			if err := json.Unmarshal(w.DataArray, &pair); err != nil {
				return Envelope{}, fmt.Errorf("%w: message dataArray must be strings", ErrMalformedPayload)
			}
		}
		if len(pair) != 2 {
			return Envelope{}, fmt.Errorf("%w: message frame wants [from, body], got %d fields", ErrMalformedPayload, len(pair))
		}
		return Envelope{Kind: KindMessage, From: pair[0], Body: pair[1]}, nil

	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, w.MessageType)
	}
}

// Encode renders a well-formed Envelope as one wire frame. Encoding is total;
// fields not belonging to the Kind are ignored.
func Encode(e Envelope) string {
	w := encodedFrame{MessageType: string(e.Kind)}
	switch e.Kind {
	case KindUsers:
		w.DataArray = e.Names
	case KindRegister:
		name := e.Name
		w.Data = &name
	case KindMessage:
		w.DataArray = []string{e.From, e.Body}
	}
	payload, _ := json.Marshal(w)
	return string(payload)
}
