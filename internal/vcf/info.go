package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// InfoField returns the value of key in a semicolon-delimited INFO string.
// Flag fields report an empty value and true.
func InfoField(info, key string) (string, bool) {
	if info == "" || info == "." {
		return "", false
	}
	for _, kv := range strings.Split(info, ";") {
		k, v, hasValue := strings.Cut(kv, "=")
		if k != key {
			continue
		}
		if !hasValue {
			return "", true
		}
		return v, true
	}
	return "", false
}

// StructuralInfo holds the SVTYPE and SVLEN of a structural variant.
type StructuralInfo struct {
	Type      string // SVTYPE, e.g. DEL, INS, DUP, INV
	Length    int64  // SVLEN, signed as written
	HasLength bool
}

// ParseStructuralInfo extracts SVTYPE and SVLEN from an INFO string.
// Multi-valued SVLEN keeps the first value. A present but unparsable SVLEN
// is an error.
func ParseStructuralInfo(info string) (StructuralInfo, error) {
	var si StructuralInfo
	si.Type, _ = InfoField(info, "SVTYPE")

	raw, ok := InfoField(info, "SVLEN")
	if !ok {
		return si, nil
	}
	if first, _, found := strings.Cut(raw, ","); found {
		raw = first
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return si, fmt.Errorf("invalid SVLEN %q", raw)
	}
	si.Length = n
	si.HasLength = true
	return si, nil
}
