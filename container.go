package blf

import (
	"io"

	"github.com/vblf/blfdecode/internal/logging"
)

// containerDescriptor locates one log container both in the file and in the
// virtual (uncompressed) address space that spans every container in order.
type containerDescriptor struct {
	fileStart     int64
	fileDataStart int64
	fileLength    int64

	virtStart  int64
	virtLength int64

	compression Compression

	cached           []byte
	snappyCompressed []byte
	lastAccess       int64
}

// containerIndex is the ordered set of containers built at open time.
// Descriptors are simultaneously in file order and virtual order; virtual
// ranges tile [0, total) with no gap and no overlap.
type containerIndex struct {
	descriptors []containerDescriptor
	total       int64
}

// buildContainerIndex scans src starting at firstBlockOffset, appending one
// descriptor per top-level LOG_CONTAINER object. Non-container top-level
// objects are logged and skipped; bytes that do not start a LOBJ magic are
// skipped one at a time, which absorbs trailing writer padding.
func buildContainerIndex(src io.ReaderAt, firstBlockOffset int64, log logging.L) (*containerIndex, error) {
	log = logging.Must(log)
	idx := &containerIndex{}
	p := firstBlockOffset

	for {
		bh, headerBuf, ok, err := peekBlockHeaderAt(src, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Short read at a block boundary: clean end of file.
			return idx, nil
		}
		if bh.Magic != blockMagic {
			p++
			continue
		}
		if bh.HeaderType != 1 {
			return nil, newErrorf(BadFile, nil, "top-level object at offset %d has header type %d, want 1", p, bh.HeaderType)
		}

		step := stepSize(bh)

		if objectType(bh.ObjectType) == objTypeLogContainer {
			d, err := readContainerDescriptor(src, p, bh, headerBuf, idx.total)
			if err != nil {
				return nil, err
			}
			idx.descriptors = append(idx.descriptors, d)
			idx.total += d.virtLength
		} else {
			log.Warnf("blf: skipping unexpected top-level object type %d at offset %d", bh.ObjectType, p)
		}

		p += step
	}
}

// peekBlockHeaderAt reads the blockHeaderSize bytes at off, returning ok=false
// on a clean short read (end of file) and an error only on a genuine I/O
// failure or structurally invalid header.
func peekBlockHeaderAt(src io.ReaderAt, off int64) (blockHeader, []byte, bool, error) {
	buf := make([]byte, blockHeaderSize)
	n, err := src.ReadAt(buf, off)
	if n < blockHeaderSize {
		if err == io.EOF || err == nil {
			return blockHeader{}, nil, false, nil
		}
		return blockHeader{}, nil, false, newError(ShortRead, "reading block header", err)
	}
	bh, uerr := unpackBlockHeader(buf)
	if uerr != nil {
		return blockHeader{}, nil, false, uerr
	}
	return bh, buf, true, nil
}

// stepSize is the distance a scan advances past an object, guarding against
// writers that declare object_length or header_length as zero.
func stepSize(bh blockHeader) int64 {
	step := int64(bh.ObjectLength)
	if int64(bh.HeaderLength) > step {
		step = int64(bh.HeaderLength)
	}
	if step < 16 {
		step = 16
	}
	return step
}

// readContainerDescriptor reads the container header that follows bh at
// blockStart and builds the corresponding descriptor. virtStart is the
// running total of all prior containers' uncompressed sizes.
func readContainerDescriptor(src io.ReaderAt, blockStart int64, bh blockHeader, headerBuf []byte, virtStart int64) (containerDescriptor, error) {
	// The container header begins immediately after the common block header,
	// but some writers declare a larger header_length; skip any extra bytes.
	containerHeaderOffset := blockStart + int64(bh.HeaderLength)

	chBuf := make([]byte, containerHeaderSize)
	n, err := src.ReadAt(chBuf, containerHeaderOffset)
	if n < containerHeaderSize {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return containerDescriptor{}, newError(BadFile, "reading log container header", err)
	}
	ch, err := unpackContainerHeader(chBuf)
	if err != nil {
		return containerDescriptor{}, err
	}

	dataStart := containerHeaderOffset + containerHeaderSize
	length := int64(bh.ObjectLength)
	if length < dataStart-blockStart {
		return containerDescriptor{}, newErrorf(BadFile, nil, "log container at %d has object_length %d shorter than its header", blockStart, bh.ObjectLength)
	}

	return containerDescriptor{
		fileStart:     blockStart,
		fileDataStart: dataStart,
		fileLength:    length,
		virtStart:     virtStart,
		virtLength:    int64(ch.UncompressedSize),
		compression:   Compression(ch.CompressionMethod),
	}, nil
}

// find returns the descriptor index covering virtual offset v, or -1 if v is
// past the end of the indexed range.
func (idx *containerIndex) find(v int64) int {
	if v < 0 || v >= idx.total {
		return -1
	}
	// Linear search: container counts are bounded in practice and this keeps
	// the index a plain slice with no auxiliary structure to keep in sync.
	for i, d := range idx.descriptors {
		if v >= d.virtStart && v < d.virtStart+d.virtLength {
			return i
		}
	}
	return -1
}
