package shared

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxRequestBodySize caps request bodies at 10 MiB; podcast audio payloads
// are the largest thing the API accepts.
const maxRequestBodySize = 10 << 20

// DecodeJSON decodes the request body into dst, rejecting unknown fields and
// oversized bodies.
func DecodeJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}
