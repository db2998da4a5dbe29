package httputil

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/DeBrosOfficial/kvpubsub/pkg/errors"
)

// MaxBodyBytes bounds JSON request bodies accepted by DecodeJSONStrict.
const MaxBodyBytes = 1 << 20

// DecodeJSONStrict decodes the request body into v, rejecting unknown
// fields, trailing garbage and bodies over MaxBodyBytes. Failures come back
// as validation errors on field "body".
func DecodeJSONStrict(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewValidationError("body", "invalid JSON body: "+err.Error(), nil)
	}
	if dec.More() {
		return errors.NewValidationError("body", "unexpected data after JSON object", nil)
	}
	return nil
}

// DecodeBase64 decodes a standard base64 field, reporting failures as a
// validation error on field.
func DecodeBase64(field, s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.NewValidationError(field, "invalid base64 data", nil)
	}
	return data, nil
}

// EncodeBase64 encodes bytes to a base64-encoded string.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
