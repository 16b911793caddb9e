/**
 * @description
 * Canonical signature computation for the payment gateway. The gateway signs (and
 * expects us to sign) the fields of a payload in a canonical text form:
 * keys sorted lexicographically, each pair rendered as `key=value` and joined by
 * `&`, with nested objects/arrays JSON-serialized and null values normalized to
 * the empty string. The signature is the hex HMAC-SHA256 of that string under the
 * shared checksum key.
 *
 * @dependencies
 * - crypto/hmac, crypto/sha256, encoding/hex, encoding/json, sort: Standard Go libraries.
 */
package payosclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Canonicalize renders the gateway's canonical form of a payload's fields.
func Canonicalize(data map[string]interface{}) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]byte, 0, 128)
	for i, k := range keys {
		if i > 0 {
			out = append(out, '&')
		}
		out = append(out, k...)
		out = append(out, '=')
		out = append(out, canonicalValue(data[k])...)
	}
	return string(out)
}

// Sign computes the hex HMAC-SHA256 signature of the canonical form of data
// under the given checksum key.
func Sign(checksumKey string, data map[string]interface{}) string {
	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(Canonicalize(data)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature for data and compares it to
// the supplied one in constant time. It returns the expected signature either
// way so callers can log both sides of a mismatch for audit.
func VerifySignature(checksumKey string, data map[string]interface{}, signature string) (bool, string) {
	expected := Sign(checksumKey, data)
	return hmac.Equal([]byte(expected), []byte(signature)), expected
}

func canonicalValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		if value == "null" || value == "undefined" {
			return ""
		}
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		// JSON numbers decode as float64; render integers without an exponent
		// or trailing zeros so 50000 stays "50000".
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case json.Number:
		return value.String()
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(encoded)
	}
}
