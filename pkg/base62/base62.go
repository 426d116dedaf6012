// Package base62 provides a fixed-alphabet Base62 codec used to mint short,
// URL-safe tokens (e.g. published ESM blob identifiers).
package base62

import (
	"strings"

	"github.com/eknkc/basex"
)

// Alphabet is the alphabet used for Base62 encoding.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var codec *basex.Encoding

func init() {
	encoding, err := basex.NewEncoding(Alphabet)
	if err != nil {
		panic("unable to initialize base62 encoder")
	}
	codec = encoding
}

// Encode performs Base62 encoding of value.
func Encode(value []byte) string {
	return codec.Encode(value)
}

// Decode performs Base62 decoding of value.
func Decode(value string) ([]byte, error) {
	return codec.Decode(value)
}

// EncodeUint64 encodes n as a compact Base62 token, useful for turning a
// monotonic counter into a short, opaque identifier.
func EncodeUint64(n uint64) string {
	if n == 0 {
		return string(Alphabet[0])
	}
	var buf [11]byte
	i := len(buf)
	base := uint64(len(Alphabet))
	for n > 0 {
		i--
		buf[i] = Alphabet[n%base]
		n /= base
	}
	return string(buf[i:])
}

// Trim removes any leading zero-value alphabet characters, useful when a
// fixed-width encoding (as produced by Encode) is used as a display token.
func Trim(s string) string {
	trimmed := strings.TrimLeft(s, string(Alphabet[0]))
	if trimmed == "" {
		return string(Alphabet[0])
	}
	return trimmed
}
