package shannon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/icza/bitio"
)

const (
	tableMagic   = "SFCT"
	tableVersion = uint16(1)

	stageSymbols       = "symbols"
	stageProbabilities = "probabilities"
	stageCodewords     = "codewords"
	stageSeparator     = "separator"

	maxTableStages       = 64
	maxStagePayloadBytes = 1 << 28 // 256 MiB
	maxCodewordBits      = 1<<16 - 1
)

// Wire format (version 1):
//
//	magic[4] = "SFCT"
//	version  = uint16 little-endian
//	stageCnt = uint16 little-endian
//	repeat stageCnt times:
//	  nameLen  = uint8
//	  paramLen = uint16 little-endian
//	  dataLen  = uint32 little-endian
//	  name     = nameLen bytes
//	  params   = paramLen bytes
//	  payload  = dataLen bytes
//
// Stage payloads:
//
//	symbols       uvarint count, then per symbol uvarint length + bytes
//	probabilities count x float64 bits, little-endian
//	codewords     bit stream, MSB first: 32-bit count, then per codeword a
//	              16-bit length followed by its bits
//	separator     raw bytes
//
// Unknown stages are skipped via dataLen framing.
type wireStageHeader struct {
	name     string
	paramLen uint16
	dataLen  uint32
}

func writeBytes(w io.Writer, b []byte) (int64, error) {
	n, err := w.Write(b)
	if err != nil {
		return int64(n), err
	}
	if n != len(b) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

func writeStage(w io.Writer, name string, params []byte, payload []byte) (int64, error) {
	if len(name) == 0 || len(name) > 255 {
		return 0, fmt.Errorf("invalid stage name length: %d", len(name))
	}
	if len(params) > int(^uint16(0)) {
		return 0, fmt.Errorf("stage params too large for %q: %d", name, len(params))
	}
	if len(payload) > maxStagePayloadBytes {
		return 0, fmt.Errorf("stage payload too large for %q: %d", name, len(payload))
	}

	var hdr [7]byte
	hdr[0] = uint8(len(name))
	binary.LittleEndian.PutUint16(hdr[1:3], uint16(len(params)))
	binary.LittleEndian.PutUint32(hdr[3:7], uint32(len(payload)))

	var total int64
	for _, b := range [][]byte{hdr[:], []byte(name), params, payload} {
		n, err := writeBytes(w, b)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readStageHeader(r io.Reader) (wireStageHeader, int64, error) {
	var hdr [7]byte
	n, err := io.ReadFull(r, hdr[:])
	total := int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}
	nameLen := int(hdr[0])
	if nameLen == 0 {
		return wireStageHeader{}, total, fmt.Errorf("stage name length must be > 0")
	}
	dataLen := binary.LittleEndian.Uint32(hdr[3:7])
	if dataLen > maxStagePayloadBytes {
		return wireStageHeader{}, total, fmt.Errorf("stage payload too large: %d", dataLen)
	}

	name := make([]byte, nameLen)
	n, err = io.ReadFull(r, name)
	total += int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}
	return wireStageHeader{
		name:     string(name),
		paramLen: binary.LittleEndian.Uint16(hdr[1:3]),
		dataLen:  dataLen,
	}, total, nil
}

func encodeSymbolsStage(symbols []string) []byte {
	buf := binary.AppendUvarint(nil, uint64(len(symbols)))
	for _, s := range symbols {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

func decodeSymbolsStage(payload []byte) ([]string, error) {
	count, n := binary.Uvarint(payload)
	if n <= 0 {
		return nil, fmt.Errorf("symbols: bad count varint")
	}
	off := n
	// every symbol takes at least one length byte
	if count > uint64(len(payload)-off) {
		return nil, fmt.Errorf("symbols: count %d exceeds payload", count)
	}
	symbols := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		l, n := binary.Uvarint(payload[off:])
		if n <= 0 {
			return nil, fmt.Errorf("symbols: bad length varint for symbol %d", i)
		}
		off += n
		if l > uint64(len(payload)-off) {
			return nil, fmt.Errorf("symbols: symbol %d overruns payload", i)
		}
		symbols = append(symbols, string(payload[off:off+int(l)]))
		off += int(l)
	}
	if off != len(payload) {
		return nil, fmt.Errorf("symbols: %d trailing bytes", len(payload)-off)
	}
	return symbols, nil
}

func encodeProbabilitiesStage(probs []float64) []byte {
	buf := make([]byte, 8*len(probs))
	for i, p := range probs {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(p))
	}
	return buf
}

func decodeProbabilitiesStage(payload []byte) ([]float64, error) {
	if len(payload)%8 != 0 {
		return nil, fmt.Errorf("probabilities: payload length %d not a multiple of 8", len(payload))
	}
	probs := make([]float64, len(payload)/8)
	for i := range probs {
		p := math.Float64frombits(binary.LittleEndian.Uint64(payload[8*i:]))
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("probabilities: value %d out of range: %g", i, p)
		}
		probs[i] = p
	}
	return probs, nil
}

func encodeCodewordsStage(codes []string) ([]byte, error) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	if err := w.WriteBits(uint64(len(codes)), 32); err != nil {
		return nil, err
	}
	for i, c := range codes {
		if len(c) > maxCodewordBits {
			return nil, fmt.Errorf("codeword %d too long: %d bits", i, len(c))
		}
		if err := w.WriteBits(uint64(len(c)), 16); err != nil {
			return nil, err
		}
		for j := 0; j < len(c); j++ {
			if err := w.WriteBool(c[j] == '1'); err != nil {
				return nil, err
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCodewordsStage(payload []byte) ([]string, error) {
	r := bitio.NewReader(bytes.NewReader(payload))
	count, err := r.ReadBits(32)
	if err != nil {
		return nil, fmt.Errorf("codewords: read count: %w", err)
	}
	// every codeword takes at least 17 bits
	if count*17 > uint64(len(payload))*8 {
		return nil, fmt.Errorf("codewords: count %d exceeds payload", count)
	}
	codes := make([]string, 0, count)
	bits := make([]byte, 0, 64)
	for i := uint64(0); i < count; i++ {
		l, err := r.ReadBits(16)
		if err != nil {
			return nil, fmt.Errorf("codewords: read length %d: %w", i, err)
		}
		bits = bits[:0]
		for j := uint64(0); j < l; j++ {
			b, err := r.ReadBool()
			if err != nil {
				return nil, fmt.Errorf("codewords: read codeword %d: %w", i, err)
			}
			if b {
				bits = append(bits, '1')
			} else {
				bits = append(bits, '0')
			}
		}
		codes = append(codes, string(bits))
	}
	return codes, nil
}

// WriteTo serializes the table to w.
func (t *CodeTable) WriteTo(w io.Writer) (int64, error) {
	if t.trie == nil {
		return 0, fmt.Errorf("%w: table is not built", ErrCorruptTable)
	}
	codewords, err := encodeCodewordsStage(t.codes)
	if err != nil {
		return 0, err
	}

	stages := []struct {
		name    string
		payload []byte
	}{
		{stageSymbols, encodeSymbolsStage(t.symbols)},
		{stageProbabilities, encodeProbabilitiesStage(t.probs)},
		{stageCodewords, codewords},
		{stageSeparator, []byte(t.separator)},
	}

	var hdr [8]byte
	copy(hdr[:4], tableMagic)
	binary.LittleEndian.PutUint16(hdr[4:6], tableVersion)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(stages)))
	total, err := writeBytes(w, hdr[:])
	if err != nil {
		return total, err
	}

	for _, stage := range stages {
		n, err := writeStage(w, stage.name, nil, stage.payload)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadFrom replaces t with a table deserialized from r. The table is
// validated as on construction: unique symbols, and non-empty codewords that
// form a prefix code. Validation failures wrap ErrCorruptTable.
func (t *CodeTable) ReadFrom(r io.Reader) (int64, error) {
	var hdr [8]byte
	n, err := io.ReadFull(r, hdr[:])
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("read table header at offset 0: %w", err)
	}
	if string(hdr[:4]) != tableMagic {
		return total, fmt.Errorf("%w: invalid magic %q", ErrCorruptTable, string(hdr[:4]))
	}
	if version := binary.LittleEndian.Uint16(hdr[4:6]); version != tableVersion {
		return total, fmt.Errorf("%w: unsupported version %d", ErrCorruptTable, version)
	}
	stageCount := binary.LittleEndian.Uint16(hdr[6:8])
	if stageCount == 0 || stageCount > maxTableStages {
		return total, fmt.Errorf("%w: invalid stage count %d", ErrCorruptTable, stageCount)
	}

	var (
		symbols   []string
		probs     []float64
		codes     []string
		separator string
	)
	seen := make(map[string]bool, stageCount)

	for i := 0; i < int(stageCount); i++ {
		headerOffset := total
		header, n, err := readStageHeader(r)
		total += n
		if err != nil {
			return total, fmt.Errorf("%w: read stage header at offset %d (stage index %d): %v", ErrCorruptTable, headerOffset, i, err)
		}
		if seen[header.name] {
			return total, fmt.Errorf("%w: duplicate stage %q at stage index %d", ErrCorruptTable, header.name, i)
		}

		// params are reserved; skip them along with unknown stage payloads
		known := false
		switch header.name {
		case stageSymbols, stageProbabilities, stageCodewords, stageSeparator:
			known = true
		}
		skip := int64(header.paramLen)
		if !known {
			skip += int64(header.dataLen)
		}
		skipOffset := total
		skipped, err := io.CopyN(io.Discard, r, skip)
		total += skipped
		if err != nil {
			return total, fmt.Errorf("%w: skip stage %q at offset %d (stage index %d): %v", ErrCorruptTable, header.name, skipOffset, i, err)
		}
		if !known {
			continue
		}

		payloadOffset := total
		payload := make([]byte, header.dataLen)
		n2, err := io.ReadFull(r, payload)
		total += int64(n2)
		if err != nil {
			return total, fmt.Errorf("%w: read stage %q payload at offset %d (stage index %d): %v", ErrCorruptTable, header.name, payloadOffset, i, err)
		}

		switch header.name {
		case stageSymbols:
			symbols, err = decodeSymbolsStage(payload)
		case stageProbabilities:
			probs, err = decodeProbabilitiesStage(payload)
		case stageCodewords:
			codes, err = decodeCodewordsStage(payload)
		case stageSeparator:
			separator = string(payload)
			err = validateSeparator(separator)
		}
		if err != nil {
			return total, fmt.Errorf("%w: decode stage %q at offset %d (stage index %d): %v", ErrCorruptTable, header.name, payloadOffset, i, err)
		}
		seen[header.name] = true
	}

	for _, name := range []string{stageSymbols, stageProbabilities, stageCodewords, stageSeparator} {
		if !seen[name] {
			return total, fmt.Errorf("%w: missing required stage %q", ErrCorruptTable, name)
		}
	}
	if len(symbols) == 0 {
		return total, fmt.Errorf("%w: %v", ErrCorruptTable, ErrEmptyAlphabet)
	}
	if len(probs) != len(symbols) || len(codes) != len(symbols) {
		return total, fmt.Errorf("%w: %d symbols, %d probabilities, %d codewords", ErrCorruptTable, len(symbols), len(probs), len(codes))
	}
	tmp, err := newCodeTable(symbols, probs, codes, separator)
	if err != nil {
		return total, fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}

	*t = *tmp
	return total, nil
}

// ReadCodeTable deserializes a table written by CodeTable.WriteTo.
func ReadCodeTable(r io.Reader) (*CodeTable, error) {
	t := &CodeTable{}
	if _, err := t.ReadFrom(r); err != nil {
		return nil, err
	}
	return t, nil
}
