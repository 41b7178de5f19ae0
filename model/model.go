package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RequestPayload is the JSON body accepted by the gateway endpoint.
type RequestPayload struct {
	// Value is decoded loosely so a non-string value can be reported as empty input
	Value    interface{} `json:"value"`
	Option   FlexString  `json:"option,omitempty"`
	Language FlexString  `json:"language,omitempty"`
	Task     FlexString  `json:"task,omitempty"`
	Number   FlexString  `json:"number,omitempty"`
}

// FlexString accepts any JSON value. Strings are kept as-is, numbers and
// booleans keep their literal form, and null, arrays and objects decode to "".
type FlexString string

// UnmarshalJSON never fails on a well-formed value, so a badly typed optional
// field cannot discard the rest of the payload
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*f = ""
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(strconv.FormatBool(v))
	case 'n', '[', '{':
		*f = ""
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
	}
	return nil
}

// String returns the text form of the value
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// ResponseBody is the JSON body returned by the gateway. Exactly one of
// Data or Error is set.
type ResponseBody struct {
	Data  *string `json:"data,omitempty"`
	Error *string `json:"error,omitempty"`
}

// Success builds a body carrying the generated text
func Success(data string) ResponseBody {
	return ResponseBody{Data: &data}
}

// Failure builds a body carrying an error message
func Failure(msg string) ResponseBody {
	return ResponseBody{Error: &msg}
}
