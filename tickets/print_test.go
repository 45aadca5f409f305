package tickets

import (
	"strings"
	"testing"
)

func TestQRPayloadRoundTrip(t *testing.T) {
	payload := GenerateQRPayload("shopA", "000042", "ABC123")

	if !strings.HasPrefix(payload, "shopA|000042|ABC123|") {
		t.Fatalf("unexpected payload prefix: %s", payload)
	}
	if !VerifyQRPayload(payload) {
		t.Fatal("freshly generated payload must verify")
	}
}

func TestQRPayloadTamperDetected(t *testing.T) {
	payload := GenerateQRPayload("shopA", "000042", "ABC123")

	tampered := strings.Replace(payload, "000042", "000001", 1)
	if VerifyQRPayload(tampered) {
		t.Fatal("tampered payload must not verify")
	}

	if VerifyQRPayload("no-signature-here") {
		t.Fatal("payload without a signature must not verify")
	}
}
