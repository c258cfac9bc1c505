package solana

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MetaplexProgramID is the Token Metadata program that owns per-mint
// name/symbol accounts.
const MetaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// MetadataPDA derives the Metaplex metadata account address for a mint.
// Seeds: ["metadata", metaplex_program_id, mint]. Returns "" when the mint
// is not a valid 32-byte base58 key or no bump yields an off-curve point.
func MetadataPDA(mint string) string {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return ""
	}
	programBytes, err := base58.Decode(MetaplexProgramID)
	if err != nil {
		return ""
	}
	if len(mintBytes) != 32 || len(programBytes) != 32 {
		return ""
	}

	seeds := [][]byte{
		[]byte("metadata"),
		programBytes,
		mintBytes,
	}

	return derivePDA(seeds, programBytes)
}

// derivePDA derives a Program Derived Address: for descending bump seeds,
// sha256(seeds || bump || programID || "ProgramDerivedAddress") until the
// hash is off the ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ParseMetadataAccount extracts name and symbol from a base64-encoded
// Metaplex Token Metadata account. Layout:
//   - key: u8 (4 for MetadataV1)
//   - updateAuthority: Pubkey (32 bytes)
//   - mint: Pubkey (32 bytes)
//   - name: u32 length + bytes (max 32)
//   - symbol: u32 length + bytes (max 10)
//
// Returns empty strings when the data does not match that layout.
func ParseMetadataAccount(data string) (name, symbol string) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", ""
	}

	if len(decoded) < 100 {
		return "", ""
	}

	if decoded[0] != 4 { // MetadataV1 key
		return "", ""
	}

	// Skip key(1) + updateAuthority(32) + mint(32)
	offset := 65

	if offset+4 > len(decoded) {
		return "", ""
	}
	nameLen := binary.LittleEndian.Uint32(decoded[offset:])
	offset += 4

	if nameLen > 32 || offset+int(nameLen) > len(decoded) {
		return "", ""
	}
	name = strings.TrimRight(string(decoded[offset:offset+int(nameLen)]), "\x00")
	offset += int(nameLen)

	if offset+4 > len(decoded) {
		return name, ""
	}
	symbolLen := binary.LittleEndian.Uint32(decoded[offset:])
	offset += 4

	if symbolLen > 20 || offset+int(symbolLen) > len(decoded) {
		return name, ""
	}
	symbol = strings.TrimRight(string(decoded[offset:offset+int(symbolLen)]), "\x00")

	return name, symbol
}
