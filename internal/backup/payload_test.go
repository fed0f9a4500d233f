package backup

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/drengine/internal/crypto"
)

func testDoc() *payloadDocument {
	return &payloadDocument{
		Version:   payloadVersion,
		CreatedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		Items: map[string][]byte{
			"config": bytes.Repeat([]byte("all work and no play "), 100),
			"state":  []byte(`{"cursor":17}`),
		},
	}
}

func TestEncodeDecode_CompressThenEncrypt(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	doc := testDoc()
	encoded, ratio, err := encodePayload(doc, true, 6, key)
	require.NoError(t, err)

	// Repetitive plaintext compresses well because compression runs before
	// encryption.
	assert.Less(t, ratio, 0.5)

	decoded, err := decodePayload(encoded, true, true, key)
	require.NoError(t, err)
	assert.Equal(t, doc.Items, decoded.Items)
}

func TestEncodeDecode_CompressionOnly(t *testing.T) {
	doc := testDoc()
	encoded, ratio, err := encodePayload(doc, true, 9, nil)
	require.NoError(t, err)
	assert.Greater(t, ratio, 0.0)

	decoded, err := decodePayload(encoded, false, true, nil)
	require.NoError(t, err)
	assert.Equal(t, doc.Items, decoded.Items)
}

func TestDecode_WrongKeyFails(t *testing.T) {
	key1, _ := crypto.GenerateKey()
	key2, _ := crypto.GenerateKey()

	encoded, _, err := encodePayload(testDoc(), false, 6, key1)
	require.NoError(t, err)

	_, err = decodePayload(encoded, true, false, key2)
	require.Error(t, err)
}

func TestDecode_EncryptedWithoutKeyFails(t *testing.T) {
	key, _ := crypto.GenerateKey()
	encoded, _, err := encodePayload(testDoc(), false, 6, key)
	require.NoError(t, err)

	_, err = decodePayload(encoded, true, false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key")
}

func TestChecksum_Stable(t *testing.T) {
	a := checksum([]byte("content"))
	b := checksum([]byte("content"))
	c := checksum([]byte("Content"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
