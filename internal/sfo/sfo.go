// Package sfo reads and patches PARAM.SFO parameter files.
package sfo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// Magic is "\x00PSF" read as a little-endian uint32.
const Magic = 0x46535000

const (
	headerSize = 20
	indexSize  = 16
	keyMax     = 64
)

// Parameter formats.
const (
	FormatUTF8Special uint16 = 0x0004
	FormatUTF8        uint16 = 0x0204
	FormatInt32       uint16 = 0x0404
)

// AccountIDKey names the owner parameter.
const AccountIDKey = "ACCOUNT_ID"

var (
	ErrBadMagic    = errors.New("not a param.sfo file")
	ErrNoAccountID = errors.New("param.sfo has no ACCOUNT_ID")
)

type header struct {
	Magic           uint32
	Version         uint32
	KeyTableOffset  uint32
	DataTableOffset uint32
	Entries         uint32
}

type index struct {
	KeyOffset  uint16
	Format     uint16
	Length     uint32
	MaxLength  uint32
	DataOffset uint32
}

// Param is one decoded parameter.
type Param struct {
	Key    string
	Format uint16
	Data   []byte
	// MaxLength is the reserved size of Data; 0 means len(Data).
	MaxLength uint32
}

// String returns the text value of a string parameter.
func (p Param) String() string {
	return string(bytes.TrimRight(p.Data, "\x00"))
}

// Uint32 returns the value of an integer parameter.
func (p Param) Uint32() uint32 {
	if len(p.Data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(p.Data)
}

func readHeader(r io.ReaderAt) (header, error) {
	var hdr header
	if err := binary.Read(io.NewSectionReader(r, 0, headerSize), binary.LittleEndian, &hdr); err != nil {
		return hdr, err
	}
	if hdr.Magic != Magic {
		return hdr, ErrBadMagic
	}
	return hdr, nil
}

func readIndex(r io.ReaderAt, i uint32) (index, error) {
	var idx index
	off := int64(headerSize) + int64(indexSize)*int64(i)
	err := binary.Read(io.NewSectionReader(r, off, indexSize), binary.LittleEndian, &idx)
	return idx, err
}

func readKey(r io.ReaderAt, hdr header, idx index) (string, error) {
	buf := make([]byte, keyMax)
	n, err := r.ReadAt(buf, int64(hdr.KeyTableOffset)+int64(idx.KeyOffset))
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	buf = buf[:n]
	if end := bytes.IndexByte(buf, 0); end >= 0 {
		buf = buf[:end]
	}
	return string(buf), nil
}

// Read decodes every parameter of the file at path.
func Read(path string) ([]Param, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	hdr, err := readHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	params := make([]Param, 0, hdr.Entries)
	for i := uint32(0); i < hdr.Entries; i++ {
		idx, err := readIndex(f, i)
		if err != nil {
			return nil, fmt.Errorf("%s: index %d: %w", path, i, err)
		}
		key, err := readKey(f, hdr, idx)
		if err != nil {
			return nil, fmt.Errorf("%s: key %d: %w", path, i, err)
		}
		data := make([]byte, idx.Length)
		if _, err := f.ReadAt(data, int64(hdr.DataTableOffset)+int64(idx.DataOffset)); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, key, err)
		}
		params = append(params, Param{Key: key, Format: idx.Format, Data: data, MaxLength: idx.MaxLength})
	}
	return params, nil
}

// Lookup returns the parameter named key.
func Lookup(params []Param, key string) (Param, bool) {
	for _, p := range params {
		if p.Key == key {
			return p, true
		}
	}
	return Param{}, false
}

// accountOffset finds the file offset of the ACCOUNT_ID value.
func accountOffset(r io.ReaderAt) (int64, error) {
	hdr, err := readHeader(r)
	if err != nil {
		return 0, err
	}
	for i := uint32(0); i < hdr.Entries; i++ {
		idx, err := readIndex(r, i)
		if err != nil {
			return 0, err
		}
		key, err := readKey(r, hdr, idx)
		if err != nil {
			return 0, err
		}
		if key == AccountIDKey {
			return int64(hdr.DataTableOffset) + int64(idx.DataOffset), nil
		}
	}
	return 0, ErrNoAccountID
}

// AccountID returns the owner stored in the file at path.
func AccountID(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	off, err := accountOffset(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	var buf [8]byte
	if _, err := f.ReadAt(buf[:], off); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// SetAccountID rewrites the owner stored in the file at path. It reports
// whether the file changed.
func SetAccountID(path string, id uint64) (bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return false, err
	}
	defer f.Close()
	off, err := accountOffset(f)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	var old [8]byte
	if _, err := f.ReadAt(old[:], off); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if binary.LittleEndian.Uint64(old[:]) == id {
		return false, nil
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	if _, err := f.WriteAt(buf[:], off); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return true, f.Sync()
}

// Encode builds a parameter file. Keys are written in sorted order.
func Encode(params []Param) []byte {
	sorted := make([]Param, len(params))
	copy(sorted, params)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var keys, data bytes.Buffer
	indexes := make([]index, len(sorted))
	for i, p := range sorted {
		maxLen := p.MaxLength
		if maxLen < uint32(len(p.Data)) {
			maxLen = uint32(len(p.Data))
		}
		indexes[i] = index{
			KeyOffset:  uint16(keys.Len()),
			Format:     p.Format,
			Length:     uint32(len(p.Data)),
			MaxLength:  maxLen,
			DataOffset: uint32(data.Len()),
		}
		keys.WriteString(p.Key)
		keys.WriteByte(0)
		data.Write(p.Data)
		data.Write(make([]byte, maxLen-uint32(len(p.Data))))
	}
	for keys.Len()%4 != 0 {
		keys.WriteByte(0)
	}

	keyTable := uint32(headerSize + indexSize*len(sorted))
	hdr := header{
		Magic:           Magic,
		Version:         0x0101,
		KeyTableOffset:  keyTable,
		DataTableOffset: keyTable + uint32(keys.Len()),
		Entries:         uint32(len(sorted)),
	}
	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, hdr)
	for _, idx := range indexes {
		_ = binary.Write(&out, binary.LittleEndian, idx)
	}
	out.Write(keys.Bytes())
	out.Write(data.Bytes())
	return out.Bytes()
}

// StringParam builds a UTF-8 parameter.
func StringParam(key, value string, maxLen uint32) Param {
	return Param{Key: key, Format: FormatUTF8, Data: append([]byte(value), 0), MaxLength: maxLen}
}

// AccountParam builds an ACCOUNT_ID parameter.
func AccountParam(id uint64) Param {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	return Param{Key: AccountIDKey, Format: FormatUTF8Special, Data: buf[:], MaxLength: 8}
}
