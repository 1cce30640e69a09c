// Package opaqueid converts database row ids into opaque external
// identifiers and back. Every identifier carries a resource tag so that,
// for example, a book identifier can never be decoded where a library
// identifier is expected: the tag comparison turns any such substitution
// into ErrDecode.
//
// An identifier is a single AES-128 block: the resource tag occupies the
// high 64 bits (bit-reversed), the row id bit pattern the low 64 bits.
// The encrypted block is rendered as little-endian digits over a
// 52-symbol alphabet (a-z, A-Z), which keeps it URL-safe with no padding.
// Encryption is deterministic on purpose: the tag half is a fixed domain
// separator and row ids are not attacker-chosen plaintext, so the same
// (tag, row id) pair always renders as the same string.
package opaqueid

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"math/bits"
	"strings"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrDecode is returned when an identifier cannot be parsed or its tag
// does not match the expected resource kind.
var ErrDecode = errors.New("failed to parse id")

// Tag derives the 64-bit resource tag from a resource's short name by
// placing each ASCII byte in successive little-endian byte positions.
// Fixed per resource kind; never sent over the wire in the clear.
func Tag(name string) uint64 {
	var t uint64
	for i := 0; i < len(name) && i < 8; i++ {
		t |= uint64(name[i]) << (8 * i)
	}
	return t
}

// Codec encrypts and decrypts identifier blocks under the pre-shared
// 128-bit key. Safe for concurrent use.
type Codec struct {
	block cipher.Block
}

// NewCodec builds a Codec from the 16-byte identifier key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 16 {
		return nil, errors.New("id key must be 16 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &Codec{block: block}, nil
}

// Kind is implemented by the zero-size marker types below. Having the
// resource kind in the type parameter stops a book id from being passed
// where a library id is expected at compile time, independent of the
// runtime tag check.
type Kind interface {
	resource() string
}

type (
	// User marks identifiers of user accounts.
	User struct{}
	// Library marks identifiers of libraries.
	Library struct{}
	// Book marks identifiers of books.
	Book struct{}
	// Lending marks identifiers of lendings.
	Lending struct{}
)

func (User) resource() string    { return "user" }
func (Library) resource() string { return "library" }
func (Book) resource() string    { return "book" }
func (Lending) resource() string { return "lending" }

// ID is an opaque external identifier for the resource kind K. It holds
// the encrypted 128-bit block; the row id is only recoverable through
// RowID with the server's codec. IDs are never persisted.
type ID[K Kind] struct {
	hi, lo uint64
}

// New encrypts (tag of K, rowID) into an opaque identifier.
func New[K Kind](rowID int64, c *Codec) ID[K] {
	var k K
	hi, lo := encrypt(Tag(k.resource()), rowID, c.block)
	return ID[K]{hi: hi, lo: lo}
}

// Parse reads the base-52 rendering of an identifier. The tag is not
// checked here; it is only visible after decryption in RowID. An empty
// string parses to the zero block, which no real tag ever matches.
func Parse[K Kind](s string) (ID[K], error) {
	hi, lo, err := decode(s)
	if err != nil {
		return ID[K]{}, err
	}
	return ID[K]{hi: hi, lo: lo}, nil
}

// RowID decrypts the identifier and returns the row id, or ErrDecode if
// the embedded tag is not K's tag.
func (id ID[K]) RowID(c *Codec) (int64, error) {
	var k K
	return decrypt(Tag(k.resource()), id.hi, id.lo, c.block)
}

// String renders the encrypted block as base-52 digits, least
// significant digit first. Trailing zero digits are never trimmed;
// doing so would break the round trip.
func (id ID[K]) String() string {
	return encode(id.hi, id.lo)
}

// MarshalText lets identifiers appear directly in JSON responses.
func (id ID[K]) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses an identifier from a JSON request body.
func (id *ID[K]) UnmarshalText(text []byte) error {
	parsed, err := Parse[K](string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func encrypt(tag uint64, rowID int64, block cipher.Block) (hi, lo uint64) {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], uint64(rowID))
	binary.LittleEndian.PutUint64(b[8:], bits.Reverse64(tag))
	block.Encrypt(b[:], b[:])
	return binary.LittleEndian.Uint64(b[8:]), binary.LittleEndian.Uint64(b[:8])
}

func decrypt(expectedTag, hi, lo uint64, block cipher.Block) (int64, error) {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], lo)
	binary.LittleEndian.PutUint64(b[8:], hi)
	block.Decrypt(b[:], b[:])
	tag := bits.Reverse64(binary.LittleEndian.Uint64(b[8:]))
	if tag != expectedTag {
		return 0, ErrDecode
	}
	return int64(binary.LittleEndian.Uint64(b[:8])), nil
}

// encode writes the 128-bit value as base-52 digits. Zero still yields
// one digit.
func encode(hi, lo uint64) string {
	var sb strings.Builder
	for {
		qhi, rem := hi/52, hi%52
		qlo, r := bits.Div64(rem, lo, 52)
		sb.WriteByte(alphabet[r])
		hi, lo = qhi, qlo
		if hi == 0 && lo == 0 {
			return sb.String()
		}
	}
}

// decode folds base-52 digits back into a 128-bit value, wrapping modulo
// 2^128 like the encoder's inverse. Any character outside the alphabet
// fails the whole parse.
func decode(s string) (hi, lo uint64, err error) {
	for i := len(s) - 1; i >= 0; i-- {
		d := strings.IndexByte(alphabet, s[i])
		if d < 0 {
			return 0, 0, ErrDecode
		}
		carry, mlo := bits.Mul64(lo, 52)
		hi = hi*52 + carry
		lo, carry = bits.Add64(mlo, uint64(d), 0)
		hi += carry
	}
	return hi, lo, nil
}
