package shared

import (
	"container/list"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Enable easy read/write data between the user and the session
type IOHelper struct {
	sendBuffer     list.List
	sendBufferLock sync.Mutex
	recvBuffer     []DecodedSymbol
	recvBufferLock sync.Mutex
	symbolChan     chan DecodedSymbol
	dropped        int
}

type bufferSlot struct {
	start int
	Data  []byte
}

// Create a new IOHelper. Decoded symbols are also forwarded to symbolChan
// when it is not nil.
func NewIOHelper(symbolChan chan DecodedSymbol) *IOHelper {
	return &IOHelper{symbolChan: symbolChan}
}

// Read the whole file and queue it for transmission
func (io *IOHelper) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	io.WriteBuffer(data)
	return nil
}

// Queue data, the session will fetch and send it later
func (io *IOHelper) WriteBuffer(data []byte) {
	if len(data) == 0 {
		return
	}
	io.sendBufferLock.Lock()
	defer io.sendBufferLock.Unlock()
	io.sendBuffer.PushBack(&bufferSlot{0, append([]byte(nil), data...)})
}

// ReadData returns at most size queued bytes, oldest first
func (io *IOHelper) ReadData(size int) (data []byte) {
	io.sendBufferLock.Lock()
	defer io.sendBufferLock.Unlock()

	for len(data) < size && io.sendBuffer.Len() > 0 {
		slot := io.sendBuffer.Front().Value.(*bufferSlot)
		n := min(size-len(data), len(slot.Data)-slot.start)
		data = append(data, slot.Data[slot.start:slot.start+n]...)
		slot.start += n
		if slot.start == len(slot.Data) {
			io.sendBuffer.Remove(io.sendBuffer.Front())
		}
	}
	return
}

func (io *IOHelper) HasData() bool {
	io.sendBufferLock.Lock()
	defer io.sendBufferLock.Unlock()
	return io.sendBuffer.Len() > 0
}

// WriteSymbol stores a decoded symbol. It is used as the session's
// SymbolHandler and never blocks: when symbolChan is full the symbol is only
// kept in the receive buffer.
func (io *IOHelper) WriteSymbol(sym DecodedSymbol) {
	io.recvBufferLock.Lock()
	io.recvBuffer = append(io.recvBuffer, sym)
	io.recvBufferLock.Unlock()

	if io.symbolChan == nil {
		return
	}
	select {
	case io.symbolChan <- sym:
	default:
		io.recvBufferLock.Lock()
		io.dropped++
		io.recvBufferLock.Unlock()
	}
}

// Symbols returns every decoded symbol so far
func (io *IOHelper) Symbols() []DecodedSymbol {
	io.recvBufferLock.Lock()
	defer io.recvBufferLock.Unlock()
	return append([]DecodedSymbol(nil), io.recvBuffer...)
}

// Received returns the decoded bytes so far
func (io *IOHelper) Received() []byte {
	io.recvBufferLock.Lock()
	defer io.recvBufferLock.Unlock()
	data := make([]byte, len(io.recvBuffer))
	for i, sym := range io.recvBuffer {
		data[i] = sym.Symbol
	}
	return data
}

// Render formats the decoded bytes the way the node prints them: 0x48[H] 0x69[i]
func (io *IOHelper) Render() string {
	var sb strings.Builder
	for _, b := range io.Received() {
		sb.WriteString(FormatSymbol(b))
		sb.WriteByte(' ')
	}
	return sb.String()
}

// Dropped returns how many symbols did not fit in symbolChan
func (io *IOHelper) Dropped() int {
	io.recvBufferLock.Lock()
	defer io.recvBufferLock.Unlock()
	return io.dropped
}

func (io *IOHelper) WriteDataToFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()
	if _, err = file.Write(io.Received()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
