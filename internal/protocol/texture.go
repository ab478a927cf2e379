package protocol

import "unicode/utf16"

// TextureHash is the cell texture hash shared with the browser renderer.
// It follows JavaScript number semantics step for step, including the two
// float multiplications, so both sides pick the same tile for a cell.
func TextureHash(row, col int, key string) int64 {
	h := jsInt32(float64(row)*73856093) ^ jsInt32(float64(col)*19349663)

	for _, c := range utf16.Encode([]rune(key)) {
		h = (h << 5) - h + int32(c)
	}

	h ^= int32(uint32(h) >> 16)
	h = jsInt32(float64(h) * 2246822507)
	h ^= int32(uint32(h) >> 13)
	h = jsInt32(float64(h) * 3266489917)
	h ^= int32(uint32(h) >> 16)

	r := int64(h)
	if r < 0 {
		r = -r
	}
	return r
}

// jsInt32 is ToInt32 for integral doubles below 2^63 in magnitude.
func jsInt32(f float64) int32 {
	return int32(uint32(int64(f)))
}

// TextureVariant picks one of n tile variants for a cell. Unclaimed cells
// hash under "default".
func TextureVariant(row, col int, ownerID, seed string, n int) int {
	if n <= 0 {
		return 0
	}
	if ownerID == "" {
		ownerID = "default"
	}
	return int(TextureHash(row, col, ownerID+"_"+seed) % int64(n))
}
