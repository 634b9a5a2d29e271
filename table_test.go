package shannon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/seiflotfy/shannon/internal/prng"
)

type testStage struct {
	name    string
	params  []byte
	payload []byte
}

// craftTable writes a table header followed by the given stages.
func craftTable(t *testing.T, stages []testStage) []byte {
	t.Helper()
	var buf bytes.Buffer
	var hdr [8]byte
	copy(hdr[:4], tableMagic)
	binary.LittleEndian.PutUint16(hdr[4:6], tableVersion)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(stages)))
	buf.Write(hdr[:])
	for _, s := range stages {
		if _, err := writeStage(&buf, s.name, s.params, s.payload); err != nil {
			t.Fatalf("writeStage(%s): %v", s.name, err)
		}
	}
	return buf.Bytes()
}

func validStages(t *testing.T, symbols []string, probs []float64, codes []string, sep string) []testStage {
	t.Helper()
	cw, err := encodeCodewordsStage(codes)
	if err != nil {
		t.Fatal(err)
	}
	return []testStage{
		{name: stageSymbols, payload: encodeSymbolsStage(symbols)},
		{name: stageProbabilities, payload: encodeProbabilitiesStage(probs)},
		{name: stageCodewords, payload: cw},
		{name: stageSeparator, payload: []byte(sep)},
	}
}

func TestTableRoundTrip(t *testing.T) {
	src := prng.New(3)
	for trial := 0; trial < 30; trial++ {
		n := 1 + src.Intn(50)
		d := mustNormalize(t, labels("sym", n), randomWeights(src, n))
		table := mustBuild(t, d, WithSeparator(" | "))

		var buf bytes.Buffer
		written, err := table.WriteTo(&buf)
		if err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
		if written != int64(buf.Len()) {
			t.Errorf("WriteTo reported %d bytes, buffer has %d", written, buf.Len())
		}

		var got CodeTable
		read, err := got.ReadFrom(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("ReadFrom: %v", err)
		}
		if read != written {
			t.Errorf("ReadFrom consumed %d bytes, expected %d", read, written)
		}
		if got.Separator() != " | " {
			t.Errorf("separator: %q", got.Separator())
		}
		want := table.Entries()
		have := got.Entries()
		if len(want) != len(have) {
			t.Fatalf("trial %d: %d entries, expected %d", trial, len(have), len(want))
		}
		for i := range want {
			if want[i] != have[i] {
				t.Errorf("trial %d entry %d: expected %+v, got %+v", trial, i, want[i], have[i])
			}
		}

		seq := d.Symbols()
		bits, _ := table.EncodeBits(seq)
		back, err := got.DecodeBits(bits)
		if err != nil || len(back) != len(seq) {
			t.Fatalf("decode with deserialized table: %v", err)
		}
	}
}

func TestReadCodeTableUnicodeSymbols(t *testing.T) {
	d, err := FromText("ґанок і їжак")
	if err != nil {
		t.Fatal(err)
	}
	table := mustBuild(t, d)
	var buf bytes.Buffer
	if _, err := table.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCodeTable(&buf)
	if err != nil {
		t.Fatal(err)
	}
	enc, _ := table.EncodeString("їжак")
	dec, err := got.DecodeString(enc)
	if err != nil || dec != "їжак" {
		t.Errorf("DecodeString: %q, %v", dec, err)
	}
}

func TestReadFromSkipsUnknownStages(t *testing.T) {
	stages := validStages(t, []string{"a", "b"}, []float64{0.5, 0.5}, []string{"0", "1"}, " ")
	stages = append([]testStage{{name: "future", params: []byte{1, 2}, payload: []byte("ignored payload")}}, stages...)
	stages = append(stages, testStage{name: "empty-extension"})
	stages[2].params = []byte{9, 9, 9} // params on a known stage are reserved

	got, err := ReadCodeTable(bytes.NewReader(craftTable(t, stages)))
	if err != nil {
		t.Fatalf("ReadCodeTable: %v", err)
	}
	if c, _ := got.Code("b"); c != "1" {
		t.Errorf("Code(b): %q", c)
	}
}

func TestReadFromRejectsCorruptTables(t *testing.T) {
	good := validStages(t, []string{"a", "b", "c"}, []float64{0.5, 0.25, 0.25}, []string{"0", "10", "11"}, " ")
	without := func(name string) []testStage {
		var out []testStage
		for _, s := range good {
			if s.name != name {
				out = append(out, s)
			}
		}
		return out
	}
	replace := func(name string, payload []byte) []testStage {
		out := append([]testStage(nil), good...)
		for i := range out {
			if out[i].name == name {
				out[i].payload = payload
			}
		}
		return out
	}
	prefixCodes, _ := encodeCodewordsStage([]string{"0", "01", "11"})
	emptyCode, _ := encodeCodewordsStage([]string{"0", "", "11"})
	shortCodes, _ := encodeCodewordsStage([]string{"0", "10"})

	tests := []struct {
		name string
		data []byte
	}{
		{"missing symbols", craftTable(t, without(stageSymbols))},
		{"missing codewords", craftTable(t, without(stageCodewords))},
		{"missing separator", craftTable(t, without(stageSeparator))},
		{"duplicate stage", craftTable(t, append(append([]testStage(nil), good...), good[0]))},
		{"prefix violation", craftTable(t, replace(stageCodewords, prefixCodes))},
		{"empty codeword", craftTable(t, replace(stageCodewords, emptyCode))},
		{"count mismatch", craftTable(t, replace(stageCodewords, shortCodes))},
		{"duplicate symbol", craftTable(t, replace(stageSymbols, encodeSymbolsStage([]string{"a", "b", "a"})))},
		{"probability out of range", craftTable(t, replace(stageProbabilities, encodeProbabilitiesStage([]float64{2, 0, 0})))},
		{"ragged probabilities", craftTable(t, replace(stageProbabilities, []byte{1, 2, 3}))},
		{"bit separator", craftTable(t, replace(stageSeparator, []byte("1")))},
		{"symbols overrun", craftTable(t, replace(stageSymbols, []byte{3, 5, 'a'}))},
		{"no stages", craftTable(t, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCodeTable(bytes.NewReader(tt.data)); !errors.Is(err, ErrCorruptTable) {
				t.Errorf("expected ErrCorruptTable, got %v", err)
			}
		})
	}
}

func TestReadFromBadHeader(t *testing.T) {
	table, _ := BuildWeights([]string{"a", "b"}, []float64{1, 3})
	var buf bytes.Buffer
	if _, err := table.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	badMagic := append([]byte("XXXX"), data[4:]...)
	if _, err := ReadCodeTable(bytes.NewReader(badMagic)); !errors.Is(err, ErrCorruptTable) {
		t.Errorf("bad magic: %v", err)
	}

	badVersion := append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(badVersion[4:6], 99)
	if _, err := ReadCodeTable(bytes.NewReader(badVersion)); !errors.Is(err, ErrCorruptTable) {
		t.Errorf("bad version: %v", err)
	}

	if _, err := ReadCodeTable(bytes.NewReader(data[:5])); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("short header: %v", err)
	}

	for cut := 9; cut < len(data); cut += 3 {
		if _, err := ReadCodeTable(bytes.NewReader(data[:cut])); !errors.Is(err, ErrCorruptTable) {
			t.Errorf("truncated at %d: %v", cut, err)
		}
	}
}

func TestReadFromLeavesTableOnError(t *testing.T) {
	table, _ := BuildWeights([]string{"a", "b"}, []float64{1, 1})
	if _, err := table.ReadFrom(bytes.NewReader([]byte("SFCT"))); err == nil {
		t.Fatal("expected error")
	}
	if c, ok := table.Code("a"); !ok || c != "0" {
		t.Errorf("table modified by failed ReadFrom: %q %v", c, ok)
	}
}

func TestWriteToUnbuiltTable(t *testing.T) {
	var table CodeTable
	if _, err := table.WriteTo(io.Discard); !errors.Is(err, ErrCorruptTable) {
		t.Errorf("expected ErrCorruptTable, got %v", err)
	}
}
