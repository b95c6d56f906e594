package blf

import (
	"github.com/vblf/blfdecode/internal/bytesreader"
	"io"
	"time"

	"github.com/lunixbochs/struc"
)

// fileMagic is the 4-byte magic at the start of every BLF file.
var fileMagic = [4]byte{'L', 'O', 'G', 'G'}

// blockMagic is the 4-byte magic that precedes every log object.
var blockMagic = [4]byte{'L', 'O', 'B', 'J'}

// date mirrors the on-disk wall-clock timestamp embedded in the file
// header. All fields are little-endian 16-bit words.
type date struct {
	Year      uint16 `struc:",little"`
	Month     uint16 `struc:",little"`
	DayOfWeek uint16 `struc:",little"`
	Day       uint16 `struc:",little"`
	Hour      uint16 `struc:",little"`
	Minute    uint16 `struc:",little"`
	Second    uint16 `struc:",little"`
	Millisec  uint16 `struc:",little"`
}

// toTime converts d to a UTC time.Time. BLF does not record a time zone;
// the original capture tool wrote local wall-clock fields, which this
// decoder (like the reference implementation) treats as UTC for the
// purposes of computing a nanosecond epoch.
func (d date) toTime() time.Time {
	return time.Date(
		int(d.Year), time.Month(d.Month), int(d.Day),
		int(d.Hour), int(d.Minute), int(d.Second),
		int(d.Millisec)*int(time.Millisecond),
		time.UTC,
	)
}

// fileHeader is the fixed-size portion of the BLF file header, read once at
// Open. Some writers declare a larger HeaderLength and append additional
// fields this decoder does not need; readFileHeader skips past them.
type fileHeader struct {
	Magic           [4]byte
	HeaderLength    uint32 `struc:",little"`
	Unknown1        uint32 `struc:",little"`
	Unknown2        uint32 `struc:",little"`
	Unknown3        uint32 `struc:",little"`
	LenCompressed   uint64 `struc:",little"`
	ObjCount        uint32 `struc:",little"`
	ObjRead         uint32 `struc:",little"`
	LenUncompressed uint64 `struc:",little"`
	StartDate       date
	EndDate         date
	Length3         uint32 `struc:",little"`
}

const fileHeaderFixedSize = 4 + 4*4 + 8 + 4 + 4 + 8 + 16 + 16 + 4

// readFileHeader reads and validates the file header at the start of src.
// It returns the capture's start-of-capture epoch in nanoseconds and the
// byte offset at which the first block header begins.
func readFileHeader(src io.ReaderAt) (startOffsetNS int64, firstBlockOffset int64, err error) {
	buf := make([]byte, fileHeaderFixedSize)
	n, rerr := src.ReadAt(buf, 0)
	if n < fileHeaderFixedSize {
		if rerr == nil || rerr == io.EOF {
			return 0, 0, newError(NotMine, "file shorter than file header", io.ErrUnexpectedEOF)
		}
		return 0, 0, newError(NotMine, "short file header", rerr)
	}

	var hdr fileHeader
	if err := struc.Unpack(bytesreader.New(buf), &hdr); err != nil {
		return 0, 0, newError(NotMine, "unpack file header", err)
	}
	if hdr.Magic != fileMagic {
		return 0, 0, newError(NotMine, "bad file magic", nil)
	}
	if hdr.HeaderLength < fileHeaderFixedSize {
		return 0, 0, newError(BadFile, "file header length too small", nil)
	}

	start := hdr.StartDate.toTime()
	return start.UnixNano(), int64(hdr.HeaderLength), nil
}

// blockHeader precedes every log object.
type blockHeader struct {
	Magic        [4]byte
	HeaderLength uint16 `struc:",little"`
	HeaderType   uint16 `struc:",little"`
	ObjectLength uint32 `struc:",little"`
	ObjectType   uint32 `struc:",little"`
}

const blockHeaderSize = 16

func unpackBlockHeader(buf []byte) (blockHeader, error) {
	if len(buf) < blockHeaderSize {
		return blockHeader{}, newError(BadFile, "short block header", nil)
	}
	var bh blockHeader
	if err := struc.Unpack(bytesreader.New(buf[:blockHeaderSize]), &bh); err != nil {
		return blockHeader{}, newError(BadFile, "unpack block header", err)
	}
	return bh, nil
}

// containerHeader follows a blockHeader whose ObjectType is objTypeLogContainer.
type containerHeader struct {
	CompressionMethod uint16 `struc:",little"`
	Reserved1         uint16 `struc:",little"`
	Reserved2         uint32 `struc:",little"`
	UncompressedSize  uint32 `struc:",little"`
	Reserved4         uint32 `struc:",little"`
}

const containerHeaderSize = 16

func unpackContainerHeader(buf []byte) (containerHeader, error) {
	if len(buf) < containerHeaderSize {
		return containerHeader{}, newError(BadFile, "short log container header", nil)
	}
	var ch containerHeader
	if err := struc.Unpack(bytesreader.New(buf[:containerHeaderSize]), &ch); err != nil {
		return containerHeader{}, newError(BadFile, "unpack log container header", err)
	}
	return ch, nil
}

// Compression identifies how a log container's payload is stored on disk.
type Compression uint16

const (
	CompressionNone Compression = 0
	CompressionZlib Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	default:
		return "unknown"
	}
}
