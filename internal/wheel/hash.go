package wheel

import "unicode/utf16"

const (
	fnvOffsetBasis uint32 = 0x811c9dc5
	fnvPrime       uint32 = 0x01000193
)

// Hash は FNV-1a (32bit) を計算する。
// ブラウザ側の実装と一致させるため、rune ではなく UTF-16 コードユニット単位でXORする。
func Hash(s string) uint32 {
	h := fnvOffsetBasis
	for _, unit := range utf16.Encode([]rune(s)) {
		h ^= uint32(unit)
		h *= fnvPrime
	}
	return h
}
