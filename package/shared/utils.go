package shared

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/sigurn/crc8"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// NormalizeDecibel maps silence (-Inf) and anything weaker than the floor to
// MINIMUM_POWER_DB. NaN is treated as silence as well.
func NormalizeDecibel(value float64) float64 {
	if math.IsInf(value, -1) || math.IsNaN(value) {
		return MINIMUM_POWER_DB
	}
	if value < MINIMUM_POWER_DB {
		return MINIMUM_POWER_DB
	}
	return value
}

// IsActive reports whether a normalized power reading is above THRESHOLD.
func IsActive(powerDecibel float64) bool {
	return NormalizeDecibel(powerDecibel) > THRESHOLD
}

// ByteToBitArray returns the SUB_CARRIER_SIZE bits of b, most significant first.
func ByteToBitArray(b byte) []int {
	out := make([]int, SUB_CARRIER_SIZE)
	for i := range out {
		out[i] = int(b>>(SUB_CARRIER_SIZE-1-i)) & 1
	}
	return out
}

// BitArrayToByte is the inverse of ByteToBitArray. Any non-zero entry counts
// as a one.
func BitArrayToByte(bitArray []int) byte {
	var b byte
	for i := 0; i < len(bitArray) && i < SUB_CARRIER_SIZE; i++ {
		if bitArray[i] != 0 {
			b |= 1 << (SUB_CARRIER_SIZE - 1 - i)
		}
	}
	return b
}

// FormatSymbol renders a decoded byte as hex, followed by the character for
// printable ASCII values: 0x41[A].
func FormatSymbol(b byte) string {
	s := fmt.Sprintf("0x%x", b)
	if b >= 32 && b < 128 {
		s += fmt.Sprintf("[%c]", b)
	}
	return s
}

// EncodeText converts text to one byte per character using ISO 8859-1.
// Characters outside Latin-1 become the substitute byte 0x1a.
func EncodeText(text string) []byte {
	encoder := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	out, _, err := transform.Bytes(encoder, []byte(text))
	if err != nil {
		// only invalid UTF-8 gets here; send it raw
		return []byte(text)
	}
	return out
}

// DecodeText is the inverse of EncodeText.
func DecodeText(data []byte) string {
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// Comparison summarizes how a received byte stream differs from what was sent.
type Comparison struct {
	Sent        int
	Received    int
	ByteErrors  int
	BitErrors   int
	SentCRC     uint8
	ReceivedCRC uint8
}

// Match reports whether both streams are identical.
func (c Comparison) Match() bool {
	return c.Sent == c.Received && c.ByteErrors == 0 && c.SentCRC == c.ReceivedCRC
}

func (c Comparison) String() string {
	return fmt.Sprintf("sent %d received %d byte errors %d bit errors %d crc %#02x/%#02x",
		c.Sent, c.Received, c.ByteErrors, c.BitErrors, c.SentCRC, c.ReceivedCRC)
}

// CompareBytes compares sent and received position by position. Missing or
// extra bytes count as fully wrong.
func CompareBytes(sent, received []byte) Comparison {
	c := Comparison{
		Sent:        len(sent),
		Received:    len(received),
		SentCRC:     crc8.Checksum(sent, crcTable),
		ReceivedCRC: crc8.Checksum(received, crcTable),
	}
	n := max(len(sent), len(received))
	for i := 0; i < n; i++ {
		var a, b byte
		missing := i >= len(sent) || i >= len(received)
		if i < len(sent) {
			a = sent[i]
		}
		if i < len(received) {
			b = received[i]
		}
		if missing {
			c.ByteErrors++
			c.BitErrors += SUB_CARRIER_SIZE
			continue
		}
		if a != b {
			c.ByteErrors++
			c.BitErrors += bits.OnesCount8(a ^ b)
		}
	}
	return c
}
