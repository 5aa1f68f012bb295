// Package capture exports decoded symbols as a pcap file so a receive run can
// be browsed with ordinary packet tools.
//
// Every symbol is one packet on LINKTYPE_USER0:
//
//	byte 0       symbol value
//	byte 1       burst candidates, saturating at 255
//	bytes 2..17  subcarrier phases in degrees, int16 big endian
//	bytes 18..25 receive sample count, uint64 big endian
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"acoustic_modem/package/shared"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const (
	LinkType   = layers.LinkType(147) // LINKTYPE_USER0
	PacketSize = 2 + 2*shared.SUB_CARRIER_SIZE + 8
	snapLength = 65536
)

var ErrMalformedPacket = errors.New("malformed symbol packet")

// Writer appends symbols to a pcap stream.
type Writer struct {
	pw         *pcapgo.Writer
	sampleRate int
	start      time.Time
}

// NewWriter writes the file header. Packet timestamps are start plus the
// symbol's sample position.
func NewWriter(w io.Writer, sampleRate int, start time.Time) (*Writer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLength, LinkType); err != nil {
		return nil, fmt.Errorf("writing pcap header: %w", err)
	}
	return &Writer{pw: pw, sampleRate: sampleRate, start: start}, nil
}

func (w *Writer) WriteSymbol(sym shared.DecodedSymbol) error {
	data := Marshal(sym)
	offset := time.Duration(sym.Sample) * time.Second / time.Duration(w.sampleRate)
	ci := gopacket.CaptureInfo{
		Timestamp:     w.start.Add(offset),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.pw.WritePacket(ci, data); err != nil {
		return fmt.Errorf("writing symbol packet: %w", err)
	}
	return nil
}

// Marshal encodes one packet. Missing phases are written as zero.
func Marshal(sym shared.DecodedSymbol) []byte {
	data := make([]byte, PacketSize)
	data[0] = sym.Symbol
	data[1] = byte(min(max(sym.Candidates, 0), 255))
	for i := 0; i < shared.SUB_CARRIER_SIZE && i < len(sym.Phase); i++ {
		binary.BigEndian.PutUint16(data[2+2*i:], uint16(int16(sym.Phase[i])))
	}
	binary.BigEndian.PutUint64(data[2+2*shared.SUB_CARRIER_SIZE:], uint64(sym.Sample))
	return data
}

func Unmarshal(data []byte) (shared.DecodedSymbol, error) {
	if len(data) != PacketSize {
		return shared.DecodedSymbol{}, fmt.Errorf("%w: %d bytes", ErrMalformedPacket, len(data))
	}
	sym := shared.DecodedSymbol{
		SymbolCandidate: shared.SymbolCandidate{
			Symbol: data[0],
			Phase:  make([]int, shared.SUB_CARRIER_SIZE),
		},
		Candidates: int(data[1]),
	}
	for i := range sym.Phase {
		sym.Phase[i] = int(int16(binary.BigEndian.Uint16(data[2+2*i:])))
	}
	sym.Sample = int64(binary.BigEndian.Uint64(data[2+2*shared.SUB_CARRIER_SIZE:]))
	return sym, nil
}

// ReadSymbols parses a whole capture written by Writer. History is not
// carried in the capture and comes back empty.
func ReadSymbols(r io.Reader) ([]shared.DecodedSymbol, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading pcap header: %w", err)
	}
	if pr.LinkType() != LinkType {
		return nil, fmt.Errorf("unexpected link type %v", pr.LinkType())
	}

	var symbols []shared.DecodedSymbol
	for {
		data, _, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return symbols, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading packet: %w", err)
		}
		sym, err := Unmarshal(data)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
}
