package backup

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/edvin/drengine/internal/crypto"
)

// payloadDocument is the logical payload holding every collected item.
// It is what gets compressed and then encrypted, in that order; encrypting
// first would leave gzip nothing but high-entropy ciphertext to chew on.
type payloadDocument struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Items     map[string][]byte `json:"items"`
}

const payloadVersion = 1

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// encodePayload runs the forward pipeline: marshal, gzip, seal. The returned
// ratio is compressed/plain size (0 when compression is off).
func encodePayload(doc *payloadDocument, compress bool, level int, key []byte) ([]byte, float64, error) {
	plain, err := json.Marshal(doc)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal payload: %w", err)
	}

	data := plain
	var ratio float64
	if compress {
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, 0, fmt.Errorf("gzip writer: %w", err)
		}
		if _, err := zw.Write(plain); err != nil {
			return nil, 0, fmt.Errorf("compress payload: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, 0, fmt.Errorf("flush compressed payload: %w", err)
		}
		data = buf.Bytes()
		ratio = float64(len(data)) / float64(len(plain))
	}

	if key != nil {
		sealed, err := crypto.Seal(data, key)
		if err != nil {
			return nil, 0, fmt.Errorf("encrypt payload: %w", err)
		}
		data = sealed
	}

	return data, ratio, nil
}

// decodePayload reverses the pipeline: open, gunzip, unmarshal. The record
// flags decide which stages apply.
func decodePayload(data []byte, encrypted, compressed bool, key []byte) (*payloadDocument, error) {
	if encrypted {
		if key == nil {
			return nil, fmt.Errorf("payload is encrypted but no key is loaded")
		}
		plain, err := crypto.Open(data, key)
		if err != nil {
			return nil, fmt.Errorf("decrypt payload: %w", err)
		}
		data = plain
	}

	if compressed {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		plain, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress payload: %w", err)
		}
		if err := zr.Close(); err != nil {
			return nil, fmt.Errorf("close gzip reader: %w", err)
		}
		data = plain
	}

	var doc payloadDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &doc, nil
}
