package bias

import (
	"encoding/json"
	"fmt"

	"github.com/micro-nova/bias-go/internal/models"
)

// Wire protocol constants. One HTTP POST to /am carries one batched
// action; every value is tagged with a data type code and answered with
// a per-value result code.
const (
	payloadTypeAction = "ACTION"

	actionRead  = "READ"
	actionWrite = "WRITE"

	// ResultOK is the per-value success code; anything else is a
	// rejection of that element only.
	ResultOK = 10
)

// ReadSpec names one path to read. Subtree asks the device for the whole
// subtree under the path (wire "single": false); the fixed-path polling
// never uses it but the codec supports it.
type ReadSpec struct {
	Path    string
	Subtree bool
}

// Write pairs a path with the typed value to write to it. The value's
// kind must match the type the device expects for that path or the
// device rejects the element.
type Write struct {
	Path  string
	Value models.Value
}

// Result is the per-element outcome of a decoded batch, aligned
// positionally with the request. Err is nil on success and carries a
// *models.RemoteRejection when the device refused the element.
type Result struct {
	Path  string
	Value models.Value
	Err   error
}

type wireData struct {
	Type        int      `json:"type"`
	StringValue *string  `json:"stringValue,omitempty"`
	FloatValue  *float64 `json:"floatValue,omitempty"`
	IntValue    *int     `json:"intValue,omitempty"`
	BoolValue   *bool    `json:"boolValue,omitempty"`
}

type wireRequestValue struct {
	ID     string    `json:"id"`
	Single bool      `json:"single"`
	Data   *wireData `json:"data,omitempty"`
}

type wireRequest struct {
	ClientID string             `json:"clientId"`
	Payload  wireRequestPayload `json:"payload"`
}

type wireRequestPayload struct {
	Type   string            `json:"type"`
	Action wireRequestAction `json:"action"`
}

type wireRequestAction struct {
	Type   string             `json:"type"`
	Values []wireRequestValue `json:"values"`
}

// Response action/payload types are ints on the wire, unlike the request.
type wireResponse struct {
	Version  string              `json:"version"`
	ClientID string              `json:"clientId"`
	Payload  wireResponsePayload `json:"payload"`
	UpdateID int                 `json:"updateId"`
}

type wireResponsePayload struct {
	Type   int                `json:"type"`
	Action wireResponseAction `json:"action"`
}

type wireResponseAction struct {
	Type   int                 `json:"type"`
	Values []wireResponseValue `json:"values"`
}

type wireResponseValue struct {
	ID     string    `json:"id"`
	Data   *wireData `json:"data,omitempty"`
	Result int       `json:"result"`
}

// EncodeRead builds the wire body for one batched read.
func EncodeRead(clientID string, specs []ReadSpec) ([]byte, error) {
	values := make([]wireRequestValue, len(specs))
	for i, s := range specs {
		values[i] = wireRequestValue{ID: s.Path, Single: !s.Subtree}
	}
	return json.Marshal(wireRequest{
		ClientID: clientID,
		Payload: wireRequestPayload{
			Type:   payloadTypeAction,
			Action: wireRequestAction{Type: actionRead, Values: values},
		},
	})
}

// EncodeWrite builds the wire body for one batched write. Each value is
// tagged with the type code derived from its runtime kind.
func EncodeWrite(clientID string, writes []Write) ([]byte, error) {
	values := make([]wireRequestValue, len(writes))
	for i, w := range writes {
		data, err := encodeData(w.Value)
		if err != nil {
			return nil, err
		}
		values[i] = wireRequestValue{ID: w.Path, Single: true, Data: data}
	}
	return json.Marshal(wireRequest{
		ClientID: clientID,
		Payload: wireRequestPayload{
			Type:   payloadTypeAction,
			Action: wireRequestAction{Type: actionWrite, Values: values},
		},
	})
}

func encodeData(v models.Value) (*wireData, error) {
	switch v.Kind {
	case models.KindString:
		s := v.Str
		return &wireData{Type: int(v.Kind), StringValue: &s}, nil
	case models.KindFloat:
		f := v.Flt
		return &wireData{Type: int(v.Kind), FloatValue: &f}, nil
	case models.KindInt:
		n := v.Int
		return &wireData{Type: int(v.Kind), IntValue: &n}, nil
	case models.KindBool:
		b := v.Bool
		return &wireData{Type: int(v.Kind), BoolValue: &b}, nil
	default:
		return nil, &models.ValidationError{Msg: fmt.Sprintf("unsupported value kind %d", v.Kind)}
	}
}

// DecodeBatch parses a wire response body against the ordered paths that
// were requested. The returned slice is aligned with expect. Shape
// problems are call-level *models.ProtocolError; per-value non-success
// codes become element-level *models.RemoteRejection results without
// failing the batch.
func DecodeBatch(body []byte, expect []string) ([]Result, error) {
	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.ProtocolError{Msg: "malformed response body: " + err.Error()}
	}

	values := resp.Payload.Action.Values
	if len(values) != len(expect) {
		return nil, &models.ProtocolError{
			Msg: fmt.Sprintf("response carries %d values, expected %d", len(values), len(expect)),
		}
	}

	out := make([]Result, len(values))
	for i, wv := range values {
		if wv.ID != expect[i] {
			return nil, &models.ProtocolError{
				Msg: fmt.Sprintf("response value %d is for %q, expected %q", i, wv.ID, expect[i]),
			}
		}
		if wv.Result != ResultOK {
			out[i] = Result{Path: wv.ID, Err: &models.RemoteRejection{Path: wv.ID, Code: wv.Result}}
			continue
		}
		r := Result{Path: wv.ID}
		if wv.Data != nil {
			v, err := decodeData(wv.Data)
			if err != nil {
				return nil, err
			}
			r.Value = v
		}
		out[i] = r
	}
	return out, nil
}

// decodeData verifies the type code matches the field actually populated.
func decodeData(d *wireData) (models.Value, error) {
	switch models.Kind(d.Type) {
	case models.KindString:
		if d.StringValue == nil {
			return models.Value{}, &models.ProtocolError{Msg: "string-typed value missing stringValue"}
		}
		return models.StringValue(*d.StringValue), nil
	case models.KindFloat:
		if d.FloatValue == nil {
			return models.Value{}, &models.ProtocolError{Msg: "float-typed value missing floatValue"}
		}
		return models.FloatValue(*d.FloatValue), nil
	case models.KindInt:
		if d.IntValue == nil {
			return models.Value{}, &models.ProtocolError{Msg: "int-typed value missing intValue"}
		}
		return models.IntValue(*d.IntValue), nil
	case models.KindBool:
		if d.BoolValue == nil {
			return models.Value{}, &models.ProtocolError{Msg: "bool-typed value missing boolValue"}
		}
		return models.BoolValue(*d.BoolValue), nil
	default:
		return models.Value{}, &models.ProtocolError{Msg: fmt.Sprintf("unknown data type code %d", d.Type)}
	}
}
