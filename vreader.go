package blf

import "io"

// virtualReader satisfies reads against the two-level virtual address space
// built by buildContainerIndex, pulling and inflating containers through
// cache as needed.
type virtualReader struct {
	src   io.ReaderAt
	idx   *containerIndex
	cache *containerCache
}

// readAt copies n bytes starting at virtual offset virtOff into dst.
// len(dst) must be >= n. A read that spans more than one container walks the
// index in virtual order, copying each container's contribution in turn.
func (v *virtualReader) readAt(virtOff int64, n int, dst []byte) error {
	if n == 0 {
		return nil
	}
	startIdx := v.idx.find(virtOff)
	if startIdx < 0 {
		return newError(ShortRead, "virtual offset out of range", nil)
	}
	if v.idx.find(virtOff+int64(n)-1) < 0 {
		return newError(ShortRead, "virtual range extends past end of file", nil)
	}

	remaining := n
	off := virtOff
	written := 0

	for i := startIdx; remaining > 0; i++ {
		if i >= len(v.idx.descriptors) {
			return newError(Internal, "virtual read ran out of containers before satisfying length", nil)
		}
		d := &v.idx.descriptors[i]

		localOff := off - d.virtStart
		avail := d.virtLength - localOff
		if avail <= 0 {
			return newError(Internal, "virtual read container bookkeeping is inconsistent", nil)
		}
		chunk := remaining
		if int64(chunk) > avail {
			chunk = int(avail)
		}

		switch d.compression {
		case CompressionNone:
			fileOff := d.fileDataStart + localOff
			got, err := v.src.ReadAt(dst[written:written+chunk], fileOff)
			if got < chunk {
				if err == nil {
					err = io.ErrUnexpectedEOF
				}
				return newError(ShortRead, "reading uncompressed container segment", err)
			}

		case CompressionZlib:
			raw, err := v.cache.bytes(d)
			if err != nil {
				return err
			}
			copy(dst[written:written+chunk], raw[localOff:localOff+int64(chunk)])

		default:
			return newErrorf(Unsupported, nil, "unknown container compression method %d", d.compression)
		}

		written += chunk
		remaining -= chunk
		off += int64(chunk)
	}

	return nil
}
