/*
Package modbuscore implements the server-side core of the Modbus protocol:
an in-memory register context modelling the four Modbus data banks and a
frame processor that turns raw request frames into protocol-correct
replies, exception replies included.

The package performs no I/O. Transport listeners (TCP, UDP, serial RTU)
read one frame into a [Frame] buffer, call [ProcessFrame] and write the
returned bytes verbatim to the wire; a nil return means send nothing.
Runnable collaborator loops live under examples/.

# Modbus Data Model

	Data table type   | Structure  | Access     | Comments
	Discrete Inputs   | Single bit | Read-only  | Data provided by an IO system
	Coils             | Single bit | Read/Write | Alterable by application program
	Input Registers   | 16bit word | Read-only  | Data provided by an IO system
	Holding Registers | 16bit word | Read/Write | Alterable by application program

"Read-only" describes access from the wire. The local application writes
discrete inputs and input registers through the [Context] API.

# Glossary

  - Bank: one of the four data tables above.
  - Unit id: the logical server address a request targets on a shared link.
  - Broadcast: a request addressed to unit id 0 or 255, never answered.
  - MBAP header: the 6 byte transaction/protocol/length prefix of
    Modbus TCP and UDP frames.
*/
package modbuscore

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
)

// Bank selects one of the four Modbus data tables of a [Context].
type Bank uint8

const (
	BankCoil Bank = iota
	BankDiscrete
	BankHolding
	BankInput
)

func (b Bank) String() string {
	switch b {
	case BankCoil:
		return "coils"
	case BankDiscrete:
		return "discrete inputs"
	case BankHolding:
		return "holding registers"
	case BankInput:
		return "input registers"
	}
	return "unknown bank"
}

var (
	// ErrAddressRange is returned by Context accessors when the requested
	// address range exceeds the bank's configured size. Accessors never
	// grow a bank or wrap around silently.
	ErrAddressRange = errors.New("register address out of range")
	// ErrSnapshotFormat is returned by Restore when the snapshot length or
	// the bank sizes recorded in it do not match the context layout.
	ErrSnapshotFormat = errors.New("snapshot does not match context layout")
	// ErrBankSize is returned by NewContext for a bank size over 65536.
	ErrBankSize = errors.New("bank size exceeds the 16 bit address space")
)

// DefaultBankSize is the number of cells allocated per bank when
// ContextConfig leaves a size at zero.
const DefaultBankSize = 10000

// maxBankSize is the full Modbus address space, 0..65535.
const maxBankSize = 65536

// ContextConfig provides bank sizes to NewContext. A zero size selects
// DefaultBankSize cells for that bank.
type ContextConfig struct {
	Coils     int
	Discretes int
	Holdings  int
	Inputs    int
}

// Context is the in-memory model of the four Modbus data banks. It is
// created once at process start with bank sizes fixed at that point and
// shared by every transport loop for the process lifetime.
//
// Context carries the single exclusive lock protecting all four banks
// together. The accessors themselves never lock: a caller acquires the
// lock once per logical request via Lock and performs every read and
// write of that request under it, so read-then-decide-then-write
// sequences are observed atomically by concurrent requests.
// [ProcessFrame] follows this discipline, and so must external
// collaborators such as a snapshot persister calling Dump or Restore.
type Context struct {
	mu        sync.Mutex
	coils     []bool
	discretes []bool
	holdings  []uint16
	inputs    []uint16
}

// NewContext returns a Context with all cells zeroed.
func NewContext(cfg ContextConfig) (*Context, error) {
	sizes := [4]int{cfg.Coils, cfg.Discretes, cfg.Holdings, cfg.Inputs}
	for i, sz := range sizes {
		if sz < 0 || sz > maxBankSize {
			return nil, ErrBankSize
		}
		if sz == 0 {
			sizes[i] = DefaultBankSize
		}
	}
	return &Context{
		coils:     make([]bool, sizes[0]),
		discretes: make([]bool, sizes[1]),
		holdings:  make([]uint16, sizes[2]),
		inputs:    make([]uint16, sizes[3]),
	}, nil
}

// Lock acquires the context's exclusive lock. Hold it for the whole of
// one logical request.
func (c *Context) Lock() { c.mu.Lock() }

// Unlock releases the lock taken with Lock.
func (c *Context) Unlock() { c.mu.Unlock() }

// bits returns the cells of a bit bank. Selecting a word bank here is a
// programming error, not a runtime condition, hence the panic.
func (c *Context) bits(bank Bank) []bool {
	switch bank {
	case BankCoil:
		return c.coils
	case BankDiscrete:
		return c.discretes
	case BankHolding, BankInput:
		panic("bank " + bank.String() + " holds words, not bits")
	}
	panic("unknown bank")
}

// words returns the cells of a word bank. See bits.
func (c *Context) words(bank Bank) []uint16 {
	switch bank {
	case BankHolding:
		return c.holdings
	case BankInput:
		return c.inputs
	case BankCoil, BankDiscrete:
		panic("bank " + bank.String() + " holds bits, not words")
	}
	panic("unknown bank")
}

// Get returns the word at addr in a word bank (BankHolding or BankInput).
// The caller must hold the context lock; this applies to every accessor
// below and is not restated on each.
func (c *Context) Get(addr uint16, bank Bank) (uint16, error) {
	w := c.words(bank)
	if int(addr) >= len(w) {
		return 0, ErrAddressRange
	}
	return w[addr], nil
}

// GetBool returns the cell at addr in a bit bank (BankCoil or BankDiscrete).
func (c *Context) GetBool(addr uint16, bank Bank) (bool, error) {
	b := c.bits(bank)
	if int(addr) >= len(b) {
		return false, ErrAddressRange
	}
	return b[addr], nil
}

// Set writes the word at addr in a word bank.
func (c *Context) Set(addr uint16, value uint16, bank Bank) error {
	w := c.words(bank)
	if int(addr) >= len(w) {
		return ErrAddressRange
	}
	w[addr] = value
	return nil
}

// SetBool writes the cell at addr in a bit bank.
func (c *Context) SetBool(addr uint16, value bool, bank Bank) error {
	b := c.bits(bank)
	if int(addr) >= len(b) {
		return ErrAddressRange
	}
	b[addr] = value
	return nil
}

// GetBulk returns count consecutive words starting at addr. The first
// element of the result corresponds to the lowest address.
func (c *Context) GetBulk(addr, count uint16, bank Bank) ([]uint16, error) {
	w := c.words(bank)
	if int(addr)+int(count) > len(w) {
		return nil, ErrAddressRange
	}
	out := make([]uint16, count)
	copy(out, w[addr:])
	return out, nil
}

// SetBulk writes values to consecutive words starting at addr. The range
// is validated before the first write so a failure leaves the bank
// untouched.
func (c *Context) SetBulk(addr uint16, values []uint16, bank Bank) error {
	w := c.words(bank)
	if int(addr)+len(values) > len(w) {
		return ErrAddressRange
	}
	copy(w[addr:], values)
	return nil
}

// GetBoolBulk returns count consecutive bit cells starting at addr.
func (c *Context) GetBoolBulk(addr, count uint16, bank Bank) ([]bool, error) {
	b := c.bits(bank)
	if int(addr)+int(count) > len(b) {
		return nil, ErrAddressRange
	}
	out := make([]bool, count)
	copy(out, b[addr:])
	return out, nil
}

// SetBoolBulk writes values to consecutive bit cells starting at addr.
// Fails without partial writes, like SetBulk.
func (c *Context) SetBoolBulk(addr uint16, values []bool, bank Bank) error {
	b := c.bits(bank)
	if int(addr)+len(values) > len(b) {
		return ErrAddressRange
	}
	copy(b[addr:], values)
	return nil
}

// Two-cell and four-cell accessors follow the big-endian word order
// convention: the cell at the lowest address holds the most significant
// word. Getters and setters apply the same order.

// GetUint32 reassembles the two words at addr and addr+1.
func (c *Context) GetUint32(addr uint16, bank Bank) (uint32, error) {
	w, err := c.GetBulk(addr, 2, bank)
	if err != nil {
		return 0, err
	}
	return uint32(w[0])<<16 | uint32(w[1]), nil
}

// SetUint32 stores value into the two words at addr and addr+1.
func (c *Context) SetUint32(addr uint16, value uint32, bank Bank) error {
	return c.SetBulk(addr, []uint16{uint16(value >> 16), uint16(value)}, bank)
}

// GetFloat32 reads an IEEE-754 32 bit float from two consecutive words.
func (c *Context) GetFloat32(addr uint16, bank Bank) (float32, error) {
	u, err := c.GetUint32(addr, bank)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// SetFloat32 stores an IEEE-754 32 bit float into two consecutive words.
func (c *Context) SetFloat32(addr uint16, value float32, bank Bank) error {
	return c.SetUint32(addr, math.Float32bits(value), bank)
}

// GetUint64 reassembles the four words starting at addr.
func (c *Context) GetUint64(addr uint16, bank Bank) (uint64, error) {
	w, err := c.GetBulk(addr, 4, bank)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i, word := range w {
		v |= uint64(word) << (48 - i*16)
	}
	return v, nil
}

// SetUint64 stores value into the four words starting at addr.
func (c *Context) SetUint64(addr uint16, value uint64, bank Bank) error {
	var words [4]uint16
	for i := range words {
		words[i] = uint16(value >> (48 - i*16))
	}
	return c.SetBulk(addr, words[:], bank)
}

// GetFloat64 reads an IEEE-754 64 bit float from four consecutive words.
func (c *Context) GetFloat64(addr uint16, bank Bank) (float64, error) {
	u, err := c.GetUint64(addr, bank)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// SetFloat64 stores an IEEE-754 64 bit float into four consecutive words.
func (c *Context) SetFloat64(addr uint16, value float64, bank Bank) error {
	return c.SetUint64(addr, math.Float64bits(value), bank)
}

// GetBoolsAsBytes packs count cells of a bit bank starting at addr into
// the wire encoding: eight cells per byte, the lowest address in the
// least significant bit, the final byte zero padded.
func (c *Context) GetBoolsAsBytes(addr, count uint16, bank Bank) ([]byte, error) {
	b := c.bits(bank)
	if int(addr)+int(count) > len(b) {
		return nil, ErrAddressRange
	}
	out := make([]byte, (int(count)+7)/8)
	for i := 0; i < int(count); i++ {
		if b[int(addr)+i] {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out, nil
}

// SetBoolsFromBytes writes count cells of a bit bank starting at addr
// from wire-packed data, the inverse of GetBoolsAsBytes. Returns
// io.ErrShortBuffer if data holds fewer than count bits.
func (c *Context) SetBoolsFromBytes(addr, count uint16, data []byte, bank Bank) error {
	b := c.bits(bank)
	if int(addr)+int(count) > len(b) {
		return ErrAddressRange
	}
	if len(data)*8 < int(count) {
		return io.ErrShortBuffer
	}
	for i := 0; i < int(count); i++ {
		b[int(addr)+i] = data[i/8]&(1<<(i%8)) != 0
	}
	return nil
}

// GetWordsAsBytes packs count words of a word bank starting at addr into
// the wire encoding, two big-endian bytes per word.
func (c *Context) GetWordsAsBytes(addr, count uint16, bank Bank) ([]byte, error) {
	w := c.words(bank)
	if int(addr)+int(count) > len(w) {
		return nil, ErrAddressRange
	}
	out := make([]byte, 2*int(count))
	for i := 0; i < int(count); i++ {
		binary.BigEndian.PutUint16(out[2*i:], w[int(addr)+i])
	}
	return out, nil
}

// SetWordsFromBytes writes len(data)/2 words of a word bank starting at
// addr from wire-packed big-endian data, the inverse of GetWordsAsBytes.
// A trailing odd byte is rejected with io.ErrShortBuffer.
func (c *Context) SetWordsFromBytes(addr uint16, data []byte, bank Bank) error {
	if len(data)%2 != 0 {
		return io.ErrShortBuffer
	}
	w := c.words(bank)
	count := len(data) / 2
	if int(addr)+count > len(w) {
		return ErrAddressRange
	}
	for i := 0; i < count; i++ {
		w[int(addr)+i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return nil
}
