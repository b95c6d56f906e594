package blf

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

// buildSyntheticFile assembles a minimal well-formed BLF byte stream: a file
// header, one uncompressed LOG_CONTAINER, and inside it a single
// CAN_MESSAGE object with a v1 log object header. It exercises the file
// header, container index, virtual reader, and CAN decoder together without
// needing a real capture fixture.
func buildSyntheticFile(t *testing.T) []byte {
	t.Helper()

	const fileHeaderSize = fileHeaderFixedSize // 80
	buf := make([]byte, fileHeaderSize)
	copy(buf[0:4], "LOGG")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(fileHeaderSize)) // HeaderLength
	// StartDate begins at offset 44: Year, Month, DayOfWeek, Day, Hour,
	// Minute, Second, Millisec, each a little-endian uint16.
	binary.LittleEndian.PutUint16(buf[44:46], 2024) // Year
	binary.LittleEndian.PutUint16(buf[46:48], 1)    // Month
	binary.LittleEndian.PutUint16(buf[50:52], 1)    // Day

	// Top-level LOG_CONTAINER block header.
	blockHdr := make([]byte, blockHeaderSize)
	copy(blockHdr[0:4], "LOBJ")
	binary.LittleEndian.PutUint16(blockHdr[4:6], blockHeaderSize) // HeaderLength
	binary.LittleEndian.PutUint16(blockHdr[6:8], 1)               // HeaderType
	binary.LittleEndian.PutUint32(blockHdr[8:12], 80)             // ObjectLength: header(32) + payload(48)
	binary.LittleEndian.PutUint32(blockHdr[12:16], uint32(objTypeLogContainer))

	// LogContainerDescriptor header.
	containerHdr := make([]byte, containerHeaderSize)
	binary.LittleEndian.PutUint16(containerHdr[0:2], uint16(CompressionNone))
	binary.LittleEndian.PutUint32(containerHdr[8:12], 48) // UncompressedSize

	// Inner CAN_MESSAGE object: block header + v1 object header + CAN header.
	innerBlockHdr := make([]byte, blockHeaderSize)
	copy(innerBlockHdr[0:4], "LOBJ")
	binary.LittleEndian.PutUint16(innerBlockHdr[4:6], blockHeaderSize+logObjectHeaderV1Size) // HeaderLength covers the v1 object header
	binary.LittleEndian.PutUint16(innerBlockHdr[6:8], 1) // HeaderType v1
	binary.LittleEndian.PutUint32(innerBlockHdr[8:12], 48)
	binary.LittleEndian.PutUint32(innerBlockHdr[12:16], uint32(objTypeCANMessage))

	objHdrV1 := make([]byte, logObjectHeaderV1Size)
	binary.LittleEndian.PutUint32(objHdrV1[0:4], uint32(tsResolution10us)) // Flags
	binary.LittleEndian.PutUint64(objHdrV1[8:16], 100)                    // ObjectTimestamp: 100 * 10us = 1ms

	canHdr := make([]byte, 16)
	binary.LittleEndian.PutUint16(canHdr[0:2], 3) // Channel
	canHdr[2] = 0                                 // Flags: not RTR, not TX
	canHdr[3] = 4                                 // DLC
	binary.LittleEndian.PutUint32(canHdr[4:8], 0x123)
	copy(canHdr[8:16], []byte{0xAA, 0xBB, 0xCC, 0xDD, 0, 0, 0, 0})

	var out bytes.Buffer
	out.Write(buf)
	out.Write(blockHdr)
	out.Write(containerHdr)
	out.Write(innerBlockHdr)
	out.Write(objHdrV1)
	out.Write(canHdr)
	return out.Bytes()
}

func TestSessionDecodesOneCANMessage(t *testing.T) {
	data := buildSyntheticFile(t)
	s, err := OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer s.Close()

	rec, err := s.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}

	if rec.Encap != EncapSocketCAN {
		t.Errorf("Encap = %v, want EncapSocketCAN", rec.Encap)
	}
	if rec.Direction != DirectionIn {
		t.Errorf("Direction = %v, want DirectionIn", rec.Direction)
	}
	if rec.RelativeNS != 1_000_000 {
		t.Errorf("RelativeNS = %d, want 1000000", rec.RelativeNS)
	}
	wantFrame := []byte{0x00, 0x00, 0x01, 0x23, 0x04, 0, 0, 0, 0xAA, 0xBB, 0xCC, 0xDD}
	if !bytes.Equal(rec.Payload, wantFrame) {
		t.Errorf("Payload = % x, want % x", rec.Payload, wantFrame)
	}
	if rec.VirtOffset != 0 {
		t.Errorf("VirtOffset = %d, want 0", rec.VirtOffset)
	}

	if _, err := s.Next(); err != io.EOF {
		t.Errorf("second Next() = %v, want io.EOF", err)
	}

	ifaces := s.Interfaces()
	if len(ifaces) != 1 || ifaces[0].Channel != 3 || ifaces[0].Encap != EncapSocketCAN {
		t.Errorf("Interfaces() = %+v, want one SocketCAN interface on channel 3", ifaces)
	}
}

// TestSessionDecodesRTRCANMessage exercises spec.md §8 scenario S3: a
// CAN_MESSAGE with id=0x123, the RTR flag set, and dlc=3. The RTR flag both
// ORs SocketCAN's RTR bit into the id and zeroes the emitted length/payload,
// so the expected wire bytes are 40 00 01 23 00 00 00 00.
func TestSessionDecodesRTRCANMessage(t *testing.T) {
	data := buildSyntheticFile(t)

	// canHdr starts after the file header, top block header, container
	// header, inner block header, and v1 object header.
	canHdrOff := fileHeaderFixedSize + blockHeaderSize + containerHeaderSize + blockHeaderSize + logObjectHeaderV1Size
	data[canHdrOff+2] = canMessageFlagRTR // Flags: RTR
	data[canHdrOff+3] = 3                 // DLC

	s, err := OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer s.Close()

	rec, err := s.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	want := []byte{0x40, 0x00, 0x01, 0x23, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(rec.Payload, want) {
		t.Errorf("Payload = % x, want % x", rec.Payload, want)
	}
}

func TestSessionReadAtDoesNotDisturbCursor(t *testing.T) {
	data := buildSyntheticFile(t)
	s, err := OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer s.Close()

	rec, err := s.ReadAt(0)
	if err != nil {
		t.Fatalf("ReadAt(0) failed: %v", err)
	}
	if rec.Encap != EncapSocketCAN {
		t.Errorf("Encap = %v, want EncapSocketCAN", rec.Encap)
	}

	// The sequential cursor should be untouched by ReadAt, so Next() still
	// yields the file's one record rather than immediately hitting EOF.
	rec2, err := s.Next()
	if err != nil {
		t.Fatalf("Next() after ReadAt failed: %v", err)
	}
	if rec2.VirtOffset != 0 {
		t.Errorf("VirtOffset = %d, want 0", rec2.VirtOffset)
	}
}

// TestSessionHandlesPaddedObjectHeader builds a file whose inner object
// declares a header_length larger than sizeof(BlockHeader)+sizeof(v1 log
// object header), with real padding bytes in between. A decoder that derives
// the payload offset from sizeof(BlockHeader)+ohSize instead of the on-disk
// header_length would read the CAN header starting inside the padding.
func TestSessionHandlesPaddedObjectHeader(t *testing.T) {
	const padding = 8
	const innerHeaderLength = blockHeaderSize + logObjectHeaderV1Size + padding

	const fileHeaderSize = fileHeaderFixedSize
	buf := make([]byte, fileHeaderSize)
	copy(buf[0:4], "LOGG")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(fileHeaderSize))
	binary.LittleEndian.PutUint16(buf[44:46], 2024)
	binary.LittleEndian.PutUint16(buf[46:48], 1)
	binary.LittleEndian.PutUint16(buf[50:52], 1)

	innerObjectLength := innerHeaderLength + 16

	blockHdr := make([]byte, blockHeaderSize)
	copy(blockHdr[0:4], "LOBJ")
	binary.LittleEndian.PutUint16(blockHdr[4:6], blockHeaderSize)
	binary.LittleEndian.PutUint16(blockHdr[6:8], 1)
	binary.LittleEndian.PutUint32(blockHdr[8:12], uint32(blockHeaderSize+containerHeaderSize+innerObjectLength))
	binary.LittleEndian.PutUint32(blockHdr[12:16], uint32(objTypeLogContainer))

	containerHdr := make([]byte, containerHeaderSize)
	binary.LittleEndian.PutUint16(containerHdr[0:2], uint16(CompressionNone))
	binary.LittleEndian.PutUint32(containerHdr[8:12], uint32(innerObjectLength))

	innerBlockHdr := make([]byte, blockHeaderSize)
	copy(innerBlockHdr[0:4], "LOBJ")
	binary.LittleEndian.PutUint16(innerBlockHdr[4:6], uint16(innerHeaderLength))
	binary.LittleEndian.PutUint16(innerBlockHdr[6:8], 1)
	binary.LittleEndian.PutUint32(innerBlockHdr[8:12], uint32(innerObjectLength))
	binary.LittleEndian.PutUint32(innerBlockHdr[12:16], uint32(objTypeCANMessage))

	objHdrV1 := make([]byte, logObjectHeaderV1Size)
	binary.LittleEndian.PutUint32(objHdrV1[0:4], uint32(tsResolution10us))
	binary.LittleEndian.PutUint64(objHdrV1[8:16], 100)

	pad := bytes.Repeat([]byte{0xFF}, padding)

	canHdr := make([]byte, 16)
	binary.LittleEndian.PutUint16(canHdr[0:2], 3)
	canHdr[2] = 0
	canHdr[3] = 4
	binary.LittleEndian.PutUint32(canHdr[4:8], 0x123)
	copy(canHdr[8:16], []byte{0xAA, 0xBB, 0xCC, 0xDD, 0, 0, 0, 0})

	var out bytes.Buffer
	out.Write(buf)
	out.Write(blockHdr)
	out.Write(containerHdr)
	out.Write(innerBlockHdr)
	out.Write(objHdrV1)
	out.Write(pad)
	out.Write(canHdr)

	s, err := OpenReader(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer s.Close()

	rec, err := s.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	wantFrame := []byte{0x00, 0x00, 0x01, 0x23, 0x04, 0, 0, 0, 0xAA, 0xBB, 0xCC, 0xDD}
	if !bytes.Equal(rec.Payload, wantFrame) {
		t.Errorf("Payload = % x, want % x (dataStart must skip declared header_length padding)", rec.Payload, wantFrame)
	}
}

// TestSessionRejectsHeaderLengthTooSmall builds an object whose header_length
// doesn't leave room for its own declared object-header variant, which
// spec.md §4.6 step 3 requires rejecting as BadFile.
func TestSessionRejectsHeaderLengthTooSmall(t *testing.T) {
	data := buildSyntheticFile(t)

	// The inner block header starts right after the file header, top-level
	// block header, and container header.
	innerBlockOff := fileHeaderFixedSize + blockHeaderSize + containerHeaderSize
	// HeaderLength field is at offset 4 within the block header; set it
	// smaller than blockHeaderSize+logObjectHeaderV1Size.
	binary.LittleEndian.PutUint16(data[innerBlockOff+4:innerBlockOff+6], blockHeaderSize+4)

	s, err := OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Next(); !IsKind(err, BadFile) {
		t.Errorf("Next() with undersized header_length: err = %v, want ErrorKind BadFile", err)
	}
}

func TestOpenReaderRejectsBadMagic(t *testing.T) {
	data := buildSyntheticFile(t)
	copy(data[0:4], "XXXX")
	if _, err := OpenReader(bytes.NewReader(data)); !IsKind(err, NotMine) {
		t.Errorf("OpenReader with bad magic: err = %v, want ErrorKind NotMine", err)
	}
}

func TestOpenReaderRejectsTruncatedFile(t *testing.T) {
	if _, err := OpenReader(bytes.NewReader(make([]byte, 10))); !IsKind(err, NotMine) {
		t.Errorf("OpenReader on a too-short file: err = %v, want ErrorKind NotMine", err)
	}
}
