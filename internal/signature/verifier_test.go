package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testSalt = Salt{Key: "099eb0cd-02cf-4e2a-8aca-3e6c6aff0399", Index: "1"}

func TestSignVerify_Roundtrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(`{"transactionId":"TXN1","code":"PAYMENT_SUCCESS"}`),
		[]byte(`{}`),
		[]byte(``),
		[]byte("not even json \x00\xff binary"),
	}
	for _, payload := range payloads {
		header := Sign(payload, testSalt)
		assert.True(t, Verify(payload, header, testSalt), "payload %q", payload)
	}
}

func TestSign_HeaderShape(t *testing.T) {
	header := Sign([]byte(`{"a":1}`), testSalt)
	parts := strings.Split(header, "###")
	assert.Len(t, parts, 2)
	assert.Len(t, parts[0], 64)
	assert.Equal(t, "1", parts[1])
}

func TestVerify_TamperedPayload(t *testing.T) {
	payload := []byte(`{"transactionId":"TXN1","amount":10000}`)
	header := Sign(payload, testSalt)

	for i := range payload {
		tampered := append([]byte(nil), payload...)
		tampered[i] ^= 0x01
		assert.False(t, Verify(tampered, header, testSalt), "flip at byte %d", i)
	}
}

func TestVerify_WrongSalt(t *testing.T) {
	payload := []byte(`{"transactionId":"TXN1"}`)
	header := Sign(payload, testSalt)

	assert.False(t, Verify(payload, header, Salt{Key: "other-key", Index: "1"}))
	assert.False(t, Verify(payload, header, Salt{Key: testSalt.Key, Index: "2"}))
}

func TestVerify_MalformedHeaders(t *testing.T) {
	payload := []byte(`{"transactionId":"TXN1"}`)
	valid := Sign(payload, testSalt)
	digest := strings.Split(valid, "###")[0]

	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"no separator", digest + "1"},
		{"missing index", digest + "###"},
		{"missing digest", "###1"},
		{"digest too short", digest[:40] + "###1"},
		{"digest too long", digest + "ab###1"},
		{"non-hex digest", strings.Repeat("z", 64) + "###1"},
		{"separator only", "###"},
		{"doubled separator", digest + "######1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(payload, tt.header, testSalt))
		})
	}
}

func TestVerify_CaseInsensitiveDigest(t *testing.T) {
	payload := []byte(`{"transactionId":"TXN1"}`)
	header := Sign(payload, testSalt)
	upper := strings.ToUpper(strings.Split(header, "###")[0]) + "###" + testSalt.Index

	assert.True(t, Verify(payload, upper, testSalt))
}
