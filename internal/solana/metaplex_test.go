package solana

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
)

const wrappedSOLMint = "So11111111111111111111111111111111111111112"

func TestMetadataPDA(t *testing.T) {
	pda := MetadataPDA(wrappedSOLMint)
	if pda == "" {
		t.Fatal("no PDA derived for a valid mint")
	}

	decoded, err := base58.Decode(pda)
	if err != nil {
		t.Fatalf("PDA is not base58: %v", err)
	}
	if len(decoded) != 32 {
		t.Fatalf("PDA decodes to %d bytes, want 32", len(decoded))
	}

	// Off-curve is the defining PDA property.
	if isOnCurve(decoded) {
		t.Fatal("derived PDA lies on the curve")
	}

	if again := MetadataPDA(wrappedSOLMint); again != pda {
		t.Fatalf("derivation not deterministic: %s vs %s", pda, again)
	}
}

func TestMetadataPDAInvalidMint(t *testing.T) {
	for _, mint := range []string{"", "not-base58-0OIl", "abc"} {
		if pda := MetadataPDA(mint); pda != "" {
			t.Fatalf("MetadataPDA(%q) = %q, want empty", mint, pda)
		}
	}
}

// buildMetadataAccount assembles a minimal MetadataV1 account image.
func buildMetadataAccount(name, symbol string) string {
	data := make([]byte, 0, 128)
	data = append(data, 4)                  // key: MetadataV1
	data = append(data, make([]byte, 64)...) // updateAuthority + mint

	data = binary.LittleEndian.AppendUint32(data, uint32(len(name)))
	data = append(data, []byte(name)...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(symbol)))
	data = append(data, []byte(symbol)...)

	// Accounts carry more fields (uri, fees, creators); pad so the image
	// clears the minimum size check.
	for len(data) < 120 {
		data = append(data, 0)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func TestParseMetadataAccount(t *testing.T) {
	name, symbol := ParseMetadataAccount(buildMetadataAccount("Demo Token\x00\x00", "DEMO\x00"))
	if name != "Demo Token" {
		t.Fatalf("name = %q, want Demo Token", name)
	}
	if symbol != "DEMO" {
		t.Fatalf("symbol = %q, want DEMO", symbol)
	}
}

func TestParseMetadataAccountRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not base64", "%%%"},
		{"too short", base64.StdEncoding.EncodeToString(make([]byte, 10))},
		{"wrong key", base64.StdEncoding.EncodeToString(make([]byte, 120))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, symbol := ParseMetadataAccount(tt.data)
			if name != "" || symbol != "" {
				t.Fatalf("parsed %q/%q from garbage", name, symbol)
			}
		})
	}
}

func TestParseMetadataAccountOversizedName(t *testing.T) {
	data := make([]byte, 0, 128)
	data = append(data, 4)
	data = append(data, make([]byte, 64)...)
	data = binary.LittleEndian.AppendUint32(data, 4096) // absurd length
	for len(data) < 120 {
		data = append(data, 0)
	}

	name, symbol := ParseMetadataAccount(base64.StdEncoding.EncodeToString(data))
	if name != "" || symbol != "" {
		t.Fatalf("parsed %q/%q despite oversized name length", name, symbol)
	}
}
