package utils

import (
	"strings"
	"testing"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	payload := map[string]interface{}{
		"zeta":   "last",
		"alpha":  "first",
		"middle": map[string]interface{}{"b": 2.0, "a": 1.0},
	}

	got, err := CanonicalJSON(payload)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}

	want := `{"alpha":"first","middle":{"a":1,"b":2},"zeta":"last"}`
	if string(got) != want {
		t.Errorf("canonical form = %s, want %s", got, want)
	}
}

func TestCanonicalizeOpayPayloadRefundedCoercion(t *testing.T) {
	cases := []struct {
		name     string
		refunded interface{}
		want     string
	}{
		{"bool true", true, `"refunded":"t"`},
		{"bool false", false, `"refunded":"f"`},
		{"string true", "true", `"refunded":"t"`},
		{"string f", "f", `"refunded":"f"`},
		{"numeric one", 1.0, `"refunded":"t"`},
		{"numeric zero", 0.0, `"refunded":"f"`},
		{"absent", nil, `"refunded":"f"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := map[string]interface{}{"reference": "ref-1", "status": "SUCCESS"}
			if tc.refunded != nil {
				payload["refunded"] = tc.refunded
			}

			got, err := CanonicalizeOpayPayload(payload)
			if err != nil {
				t.Fatalf("CanonicalizeOpayPayload: %v", err)
			}
			if !strings.Contains(string(got), tc.want) {
				t.Errorf("canonical form %s does not contain %s", got, tc.want)
			}
		})
	}
}

func TestCanonicalizeOpayPayloadDoesNotMutateInput(t *testing.T) {
	payload := map[string]interface{}{"refunded": true}
	if _, err := CanonicalizeOpayPayload(payload); err != nil {
		t.Fatalf("CanonicalizeOpayPayload: %v", err)
	}
	if payload["refunded"] != true {
		t.Errorf("input payload mutated: refunded = %v", payload["refunded"])
	}
}

func TestVerifyHMACSHA3512RoundTrip(t *testing.T) {
	key := []byte("merchant-private-key")
	payload := map[string]interface{}{
		"reference": "ref-42",
		"status":    "SUCCESS",
		"amount":    12345.0,
		"refunded":  false,
	}

	canonical, err := CanonicalizeOpayPayload(payload)
	if err != nil {
		t.Fatalf("CanonicalizeOpayPayload: %v", err)
	}
	signature := ComputeHMACSHA3512(key, canonical)

	if !VerifyHMACSHA3512(key, canonical, signature) {
		t.Error("valid signature rejected")
	}
}

func TestVerifyHMACSHA3512RejectsTamper(t *testing.T) {
	key := []byte("merchant-private-key")
	payload := map[string]interface{}{
		"reference": "ref-42",
		"status":    "SUCCESS",
		"amount":    12345.0,
	}

	canonical, err := CanonicalizeOpayPayload(payload)
	if err != nil {
		t.Fatalf("CanonicalizeOpayPayload: %v", err)
	}
	signature := ComputeHMACSHA3512(key, canonical)

	payload["amount"] = 1.0
	tampered, err := CanonicalizeOpayPayload(payload)
	if err != nil {
		t.Fatalf("CanonicalizeOpayPayload: %v", err)
	}

	if VerifyHMACSHA3512(key, tampered, signature) {
		t.Error("tampered payload accepted")
	}
	if VerifyHMACSHA3512([]byte("wrong-key"), canonical, signature) {
		t.Error("wrong key accepted")
	}
	if VerifyHMACSHA3512(key, canonical, signature[:len(signature)-2]+"00") {
		t.Error("corrupted signature accepted")
	}
}
