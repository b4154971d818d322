// Package recognize defines the boundary to the service that turns a canvas
// image into evaluated expressions.
package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrStatus is returned when the recognition service answers with a non-2xx
// status.
var ErrStatus = errors.New("recognize: unexpected status")

// Vars maps assigned symbol names to their values.
type Vars map[string]string

// Clone returns an independent copy of the dictionary.
func (v Vars) Clone() Vars {
	out := make(Vars, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Request is the payload sent to the service.
type Request struct {
	Image string `json:"image"`
	Vars  Vars   `json:"dict_of_vars"`
}

// Result is one recognized expression.
type Result struct {
	Expr   string `json:"expr"`
	Result string `json:"result"`
	Assign bool   `json:"assign"`
}

// UnmarshalJSON accepts numeric or boolean results as well as strings.
func (r *Result) UnmarshalJSON(data []byte) error {
	var aux struct {
		Expr   string          `json:"expr"`
		Result json.RawMessage `json:"result"`
		Assign bool            `json:"assign"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Expr = aux.Expr
	r.Assign = aux.Assign
	r.Result = ""

	raw := bytes.TrimSpace(aux.Result)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		return json.Unmarshal(raw, &r.Result)
	}
	r.Result = string(raw)
	return nil
}

// Response is the envelope returned by the service.
type Response struct {
	Message string   `json:"message,omitempty"`
	Status  string   `json:"status,omitempty"`
	Data    []Result `json:"data"`
}

// Recognizer evaluates the expressions drawn on a canvas image.
type Recognizer interface {
	Recognize(ctx context.Context, req Request) ([]Result, error)
}

// Func adapts a function to the Recognizer interface.
type Func func(ctx context.Context, req Request) ([]Result, error)

// Recognize calls f.
func (f Func) Recognize(ctx context.Context, req Request) ([]Result, error) {
	return f(ctx, req)
}

// EncodeDataURL wraps data in a base64 data URL of the given media type.
func EncodeDataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL returns the bytes of a base64 data URL.
func DecodeDataURL(url string) ([]byte, error) {
	head, payload, ok := strings.Cut(url, ",")
	if !ok || !strings.HasPrefix(head, "data:") || !strings.HasSuffix(head, ";base64") {
		return nil, fmt.Errorf("not a base64 data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return data, nil
}

// FormatNumber renders a value without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
