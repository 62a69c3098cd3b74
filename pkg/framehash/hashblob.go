package framehash

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"videoindex/pkg/phash"
)

// encodePackedHash serializes a hash as the preferred 8-byte packed
// bitstring (spec's "for new implementations starting from an empty index,
// the packed 8-byte form is preferred").
func encodePackedHash(h phash.Hash) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(h))
	return buf
}

var numpyMagic = []byte("\x93NUMPY")

// decodeHashBlob accepts either the packed 8-byte form this package writes,
// or the legacy NumPy .npy-style blob (magic + version + header dict + raw
// row-major bool payload) for interoperability with pre-existing indices.
func decodeHashBlob(blob []byte) (phash.Hash, error) {
	switch {
	case len(blob) == 8:
		return phash.Hash(binary.LittleEndian.Uint64(blob)), nil
	case len(blob) >= len(numpyMagic) && string(blob[:len(numpyMagic)]) == string(numpyMagic):
		return decodeLegacyNumpyHash(blob)
	default:
		return 0, fmt.Errorf("unrecognized hash blob of %d bytes", len(blob))
	}
}

// decodeLegacyNumpyHash parses a minimal subset of the NumPy .npy format:
// magic, 2-byte version, a header-length field (2 bytes for v1.0, 4 bytes
// for v2.0+), an ASCII Python-literal header dict naming shape and dtype,
// and the raw payload. Only one-byte dtypes are supported, bool or uint8
// (e.g. a (64,) or (8,8) bool array): each element becomes one bit,
// row-major, for the first 64 elements. Any other dtype, such as a packed
// uint64, is rejected with an error.
func decodeLegacyNumpyHash(blob []byte) (phash.Hash, error) {
	pos := len(numpyMagic)
	if len(blob) < pos+2 {
		return 0, fmt.Errorf("npy blob too short for version")
	}
	major := blob[pos]
	pos += 2 // major + minor

	var headerLen int
	switch major {
	case 1:
		if len(blob) < pos+2 {
			return 0, fmt.Errorf("npy blob too short for v1 header length")
		}
		headerLen = int(binary.LittleEndian.Uint16(blob[pos:]))
		pos += 2
	default:
		if len(blob) < pos+4 {
			return 0, fmt.Errorf("npy blob too short for v%d header length", major)
		}
		headerLen = int(binary.LittleEndian.Uint32(blob[pos:]))
		pos += 4
	}

	if len(blob) < pos+headerLen {
		return 0, fmt.Errorf("npy blob too short for declared header")
	}
	header := string(blob[pos : pos+headerLen])
	pos += headerLen
	payload := blob[pos:]

	descr, shape, err := parseNumpyHeader(header)
	if err != nil {
		return 0, fmt.Errorf("npy header: %w", err)
	}

	elements := 1
	for _, d := range shape {
		elements *= d
	}
	if elements == 0 {
		elements = 1
	}

	switch descr {
	case "|b1", "b1", "|u1", "u1":
		if len(payload) < elements {
			return 0, fmt.Errorf("npy payload shorter than declared shape")
		}
		var h phash.Hash
		for i := 0; i < elements && i < 64; i++ {
			if payload[i] != 0 {
				h |= 1 << uint(i)
			}
		}
		return h, nil
	default:
		return 0, fmt.Errorf("unsupported npy dtype %q", descr)
	}
}

// parseNumpyHeader extracts the 'descr' and 'shape' entries from a NumPy
// header dict literal, e.g. "{'descr': '|b1', 'fortran_order': False,
// 'shape': (8, 8), }". This is a narrow, purpose-built parser, not a general
// Python literal evaluator.
func parseNumpyHeader(header string) (descr string, shape []int, err error) {
	descr, err = extractQuotedValue(header, "descr")
	if err != nil {
		return "", nil, err
	}

	shapeLiteral, err := extractParenValue(header, "shape")
	if err != nil {
		return "", nil, err
	}
	for _, part := range strings.Split(shapeLiteral, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil {
			return "", nil, fmt.Errorf("invalid shape component %q", part)
		}
		shape = append(shape, n)
	}
	return descr, shape, nil
}

func extractQuotedValue(header, key string) (string, error) {
	idx := strings.Index(header, "'"+key+"'")
	if idx < 0 {
		return "", fmt.Errorf("missing %q key", key)
	}
	rest := header[idx+len(key)+2:]
	start := strings.IndexAny(rest, "'\"")
	if start < 0 {
		return "", fmt.Errorf("malformed %q value", key)
	}
	quote := rest[start]
	rest = rest[start+1:]
	end := strings.IndexByte(rest, quote)
	if end < 0 {
		return "", fmt.Errorf("unterminated %q value", key)
	}
	return rest[:end], nil
}

func extractParenValue(header, key string) (string, error) {
	idx := strings.Index(header, "'"+key+"'")
	if idx < 0 {
		return "", fmt.Errorf("missing %q key", key)
	}
	rest := header[idx+len(key)+2:]
	start := strings.IndexByte(rest, '(')
	if start < 0 {
		return "", fmt.Errorf("malformed %q value", key)
	}
	rest = rest[start+1:]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return "", fmt.Errorf("unterminated %q value", key)
	}
	return rest[:end], nil
}
