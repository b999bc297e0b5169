// utils/signature.go
package utils

import (
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/sha3"
)

// CanonicalJSON serializes a payload with stable field ordering and compact
// separators. Webhook signatures are computed over this exact byte stream, so
// the canonicalization rule is part of the wire contract: encoding/json sorts
// map keys at every nesting level and emits no whitespace, which matches the
// gateway's json.dumps(sort_keys=True, separators=(',',':')) form.
func CanonicalJSON(payload map[string]interface{}) ([]byte, error) {
	return json.Marshal(payload)
}

// CanonicalizeOpayPayload returns the canonical bytes OPay signs. The gateway
// normalizes the refunded flag to "t"/"f" strings before hashing, regardless
// of how it appears in the delivered payload.
func CanonicalizeOpayPayload(payload map[string]interface{}) ([]byte, error) {
	normalized := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		normalized[k] = v
	}

	refunded := "f"
	switch v := payload["refunded"].(type) {
	case bool:
		if v {
			refunded = "t"
		}
	case string:
		if v == "true" || v == "TRUE" || v == "t" || v == "T" || v == "1" {
			refunded = "t"
		}
	case float64:
		if v == 1 {
			refunded = "t"
		}
	}
	normalized["refunded"] = refunded

	return CanonicalJSON(normalized)
}

// ComputeHMACSHA3512 returns the hex HMAC-SHA3-512 of data under key.
func ComputeHMACSHA3512(key, data []byte) string {
	mac := hmac.New(sha3.New512, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA3512 constant-time compares an expected hex signature against
// the HMAC of data under key.
func VerifyHMACSHA3512(key, data []byte, signature string) bool {
	expected := ComputeHMACSHA3512(key, data)
	return hmac.Equal([]byte(expected), []byte(signature))
}
