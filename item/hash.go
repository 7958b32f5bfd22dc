// Package item implements Rune's canonical item paths and the content
// hashing scheme used to identify functions, types, and instance methods
// without a symbol table lookup at call time.
package item

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Hash is a 64-bit content hash. Two items that produce the same Hash are
// considered the same identity for the purposes of the function table,
// the constant table, and instance dispatch.
type Hash uint64

// tag distinguishes the kind of thing being hashed so that, for example,
// a type named "foo" and a function named "foo" never collide.
type tag byte

const (
	tagComponentCrate tag = iota + 1
	tagComponentStr
	tagComponentID
	tagInstanceFn
	tagProtocol
	tagType
)

// digest accumulates bytes into an xxhash state and folds them into a Hash.
type digest struct {
	h *xxhash.Digest
}

func newDigest() digest {
	return digest{h: xxhash.New()}
}

func (d digest) writeTag(t tag) digest {
	d.h.Write([]byte{byte(t)})
	return d
}

func (d digest) writeString(s string) digest {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
	d.h.Write(lenBuf[:])
	d.h.Write([]byte(s))
	return d
}

func (d digest) writeUint64(v uint64) digest {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	d.h.Write(buf[:])
	return d
}

func (d digest) sum() Hash {
	return Hash(d.h.Sum64())
}

// HashBytes hashes an arbitrary byte slice with a dedicated tag, used for
// well-known protocol hashes (ADD, EQ, INDEX_GET, ...) that are fixed
// across every Unit regardless of item path.
func HashBytes(name string) Hash {
	return newDigest().writeTag(tagProtocol).writeString(name).sum()
}

// HashType hashes a type's fully qualified name, used for Value::Type and
// for Rtti lookups.
func HashType(name string) Hash {
	return newDigest().writeTag(tagType).writeString(name).sum()
}

// Mix composes a type hash and a name hash into an instance-function
// hash, per spec.md §3: instance_fn_hash(type_hash, name_hash) =
// mix(type_hash, name_hash).
func Mix(typeHash, nameHash Hash) Hash {
	return newDigest().writeTag(tagInstanceFn).writeUint64(uint64(typeHash)).writeUint64(uint64(nameHash)).sum()
}

// Well-known protocol hashes. Every VM and every Unit agree on these
// without negotiation because they're pure functions of a fixed name.
var (
	ProtocolAdd           = HashBytes("protocol::ADD")
	ProtocolSub           = HashBytes("protocol::SUB")
	ProtocolMul           = HashBytes("protocol::MUL")
	ProtocolDiv           = HashBytes("protocol::DIV")
	ProtocolRem           = HashBytes("protocol::REM")
	ProtocolEq            = HashBytes("protocol::EQ")
	ProtocolPartialEq     = HashBytes("protocol::PARTIAL_EQ")
	ProtocolCmp           = HashBytes("protocol::CMP")
	ProtocolStringDisplay = HashBytes("protocol::STRING_DISPLAY")
	ProtocolStringDebug   = HashBytes("protocol::STRING_DEBUG")
	ProtocolIndexGet      = HashBytes("protocol::INDEX_GET")
	ProtocolIndexSet      = HashBytes("protocol::INDEX_SET")
	ProtocolIntoIter      = HashBytes("protocol::INTO_ITER")
	ProtocolNext          = HashBytes("protocol::NEXT")
	ProtocolTry           = HashBytes("protocol::TRY")
	ProtocolHash          = HashBytes("protocol::HASH")
	// ProtocolPanic is not a value protocol a type implements; it's the
	// sentinel Call hash the assembler emits for a match with no
	// matching arm, which the VM special-cases (like ProtocolTry) to
	// raise VmError::Panic carrying the unmatched scrutinee rather than
	// perform an ordinary call.
	ProtocolPanic = HashBytes("protocol::PANIC")
)
