package router

import (
	"encoding/json"
	"errors"
	"strings"

	"walletdash/pkg/apperror"

	"github.com/tidwall/gjson"
)

// Envelope is a decoded response or push. Status is the top-level
// application success flag; Data carries the payload on success and Message
// the reason on failure.
type Envelope struct {
	Status  bool
	Message string
	Data    json.RawMessage
	raw     []byte
}

type wireEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Decode parses raw. Payloads that are not JSON objects or lack a boolean
// status flag are transport-level garbage and yield a decode error.
func Decode(raw []byte) (*Envelope, error) {
	if !gjson.ValidBytes(raw) {
		return nil, apperror.Decode(errors.New("payload is not valid JSON"))
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, apperror.Decode(errors.New("payload is not a JSON object"))
	}
	if st := root.Get("status"); st.Type != gjson.True && st.Type != gjson.False {
		return nil, apperror.Decode(errors.New("missing boolean status flag"))
	}

	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, apperror.Decode(err)
	}
	return &Envelope{
		Status:  w.Status,
		Message: w.Message,
		Data:    w.Data,
		raw:     append([]byte(nil), raw...),
	}, nil
}

// Get reads a gjson path from the raw payload.
func (e *Envelope) Get(path string) gjson.Result {
	return gjson.GetBytes(e.raw, path)
}

// Failure returns an application error when the status flag is false.
func (e *Envelope) Failure() error {
	if e.Status {
		return nil
	}
	return apperror.Application(e.Message)
}

// DecodeData unmarshals Data into v.
func (e *Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return apperror.Decode(errors.New("missing data field"))
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return apperror.Decode(err)
	}
	return nil
}

// Predicate selects the response that belongs to one outstanding request.
// Predicates must be side-effect free.
type Predicate func(*Envelope) bool

// MatchField matches when data.<field> or the top-level <field> equals value,
// ignoring case. Requester emails are echoed in either place.
func MatchField(field, value string) Predicate {
	paths := []string{"data." + field, field}
	return func(e *Envelope) bool {
		for _, p := range paths {
			if r := e.Get(p); r.Exists() && strings.EqualFold(r.String(), value) {
				return true
			}
		}
		return false
	}
}
