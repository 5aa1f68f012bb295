package shared

import (
	"bytes"
	"math"
	"testing"
)

func TestNormalizeDecibel(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"Silence", math.Inf(-1), -99},
		{"NaN", math.NaN(), -99},
		{"Below floor", -150, -99},
		{"Just below floor", -99.0001, -99},
		{"At floor", -99, -99},
		{"Above floor", -98.5, -98.5},
		{"Threshold", -30, -30},
		{"Loud", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDecibel(tt.value); got != tt.expected {
				t.Errorf("NormalizeDecibel(%v) = %v; want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestByteToBitArray(t *testing.T) {
	tests := []struct {
		value    byte
		expected []int
	}{
		{0x00, []int{0, 0, 0, 0, 0, 0, 0, 0}},
		{0xFF, []int{1, 1, 1, 1, 1, 1, 1, 1}},
		{0x80, []int{1, 0, 0, 0, 0, 0, 0, 0}},
		{0x01, []int{0, 0, 0, 0, 0, 0, 0, 1}},
		{0xB2, []int{1, 0, 1, 1, 0, 0, 1, 0}},
	}

	for _, tt := range tests {
		result := ByteToBitArray(tt.value)
		for i := range tt.expected {
			if result[i] != tt.expected[i] {
				t.Fatalf("ByteToBitArray(%#02x) = %v; want %v", tt.value, result, tt.expected)
			}
		}
		if back := BitArrayToByte(result); back != tt.value {
			t.Errorf("BitArrayToByte(%v) = %#02x; want %#02x", result, back, tt.value)
		}
	}
}

func TestFormatSymbol(t *testing.T) {
	tests := map[byte]string{
		0x41: "0x41[A]",
		0x20: "0x20[ ]",
		0x7f: "0x7f[\x7f]",
		0x1f: "0x1f",
		0x05: "0x5",
		0x80: "0x80",
		0xff: "0xff",
	}
	for value, expected := range tests {
		if got := FormatSymbol(value); got != expected {
			t.Errorf("FormatSymbol(%#02x) = %q; want %q", value, got, expected)
		}
	}
}

func TestEncodeText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []byte
	}{
		{"ASCII", "Hi!", []byte{'H', 'i', '!'}},
		{"Latin-1", "café", []byte{'c', 'a', 'f', 0xe9}},
		{"Outside Latin-1", "a€b", []byte{'a', 0x1a, 'b'}},
		{"Empty", "", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeText(tt.text)
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("EncodeText(%q) = %v; want %v", tt.text, got, tt.expected)
			}
		})
	}

	if got := DecodeText([]byte{'c', 'a', 'f', 0xe9}); got != "café" {
		t.Errorf("DecodeText = %q; want café", got)
	}
}

func TestCompareBytes(t *testing.T) {
	same := CompareBytes([]byte("hello"), []byte("hello"))
	if !same.Match() || same.BitErrors != 0 {
		t.Errorf("identical streams: %v", same)
	}

	flipped := CompareBytes([]byte{0x00, 0xFF}, []byte{0x01, 0x0F})
	if flipped.Match() {
		t.Error("different streams reported as match")
	}
	if flipped.ByteErrors != 2 || flipped.BitErrors != 5 {
		t.Errorf("ByteErrors = %d BitErrors = %d; want 2, 5", flipped.ByteErrors, flipped.BitErrors)
	}

	short := CompareBytes([]byte("abc"), []byte("ab"))
	if short.ByteErrors != 1 || short.BitErrors != 8 {
		t.Errorf("missing byte: %v", short)
	}
	if short.SentCRC == short.ReceivedCRC {
		t.Error("crc of different streams should differ")
	}
}

func TestCompareBytesDoesNotModifyInput(t *testing.T) {
	data := []byte{1, 1, 1, 0, 1, 0, 0, 0}
	dataCopy := append([]byte(nil), data...)
	_ = CompareBytes(data, data)
	if !bytes.Equal(data, dataCopy) {
		t.Errorf("CompareBytes should not affect the data")
	}
}
