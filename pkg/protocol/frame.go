package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	frameHeaderSize = 25
	frameMagic      = 0xA7
	frameReserved   = 0x00

	flagCompressed = 1 << 0
	flagChunked    = 1 << 1
	flagFinalChunk = 1 << 2
)

// PayloadType is the closed set of binary-channel payload kinds.
type PayloadType byte

const (
	PayloadScreenshotPNG  PayloadType = 0x01
	PayloadScreenshotJPEG PayloadType = 0x02
	PayloadVideoH264      PayloadType = 0x03
	PayloadFileData       PayloadType = 0x04
	PayloadHierarchyXML   PayloadType = 0x05
)

// Frame is a single binary-channel message: a 25-byte header plus payload.
type Frame struct {
	CorrelationID string // originating request id; first 16 bytes embedded on the wire
	PayloadType   PayloadType
	Compressed    bool
	Chunked       bool
	FinalChunk    bool
	Data          []byte
}

// EncodeFrame produces the 25-byte header followed by the (optionally
// deflate-compressed) payload. Header encoding is pure: the only
// allocation is the output buffer itself.
func EncodeFrame(f *Frame) ([]byte, error) {
	payload := f.Data
	if f.Compressed {
		compressed, err := deflateCompress(f.Data)
		if err != nil {
			return nil, fmt.Errorf("compressing frame payload: %w", err)
		}
		payload = compressed
	}

	buf := make([]byte, frameHeaderSize+len(payload))
	buf[0] = frameMagic
	buf[1] = frameReserved

	var flags byte
	if f.Compressed {
		flags |= flagCompressed
	}
	if f.Chunked {
		flags |= flagChunked
	}
	if f.FinalChunk {
		flags |= flagFinalChunk
	}
	buf[2] = flags

	copy(buf[3:19], correlationIDBytes(f.CorrelationID))

	buf[19] = 0x00
	buf[20] = byte(f.PayloadType)

	binary.BigEndian.PutUint32(buf[21:25], uint32(len(payload)))

	copy(buf[frameHeaderSize:], payload)

	return buf, nil
}

// DecodeFrame validates and parses a binary frame. Mismatches (bad magic,
// bad reserved byte, truncated buffer, length mismatch) fail with a
// TRANSPORT protocol error.
func DecodeFrame(buf []byte) (*Frame, error) {
	if len(buf) < frameHeaderSize {
		return nil, NewError(CodeProtocolError, "frame shorter than header", nil)
	}
	if buf[0] != frameMagic {
		return nil, NewError(CodeProtocolError, "bad frame magic byte", nil)
	}
	if buf[1] != frameReserved {
		return nil, NewError(CodeProtocolError, "bad frame reserved byte", nil)
	}

	flags := buf[2]
	correlationID := string(bytes.TrimRight(buf[3:19], "\x00"))
	payloadType := PayloadType(buf[20])
	length := binary.BigEndian.Uint32(buf[21:25])

	body := buf[frameHeaderSize:]
	if uint32(len(body)) != length {
		return nil, NewError(CodeProtocolError, "payload length does not match header", nil)
	}

	data := body
	compressed := flags&flagCompressed != 0
	if compressed && len(body) > 0 {
		decompressed, err := deflateDecompress(body)
		if err != nil {
			return nil, fmt.Errorf("decompressing frame payload: %w", err)
		}
		data = decompressed
	}

	return &Frame{
		CorrelationID: correlationID,
		PayloadType:   payloadType,
		Compressed:    compressed,
		Chunked:       flags&flagChunked != 0,
		FinalChunk:    flags&flagFinalChunk != 0,
		Data:          data,
	}, nil
}

// correlationIDBytes embeds the first 16 UTF-8 bytes of the request id,
// zero-padding shorter ids. Per spec's open question, this is an
// intentionally lossy ASCII excerpt, not a reinterpreted binary UUID —
// preserved for wire compatibility with the reference byte sequence.
func correlationIDBytes(id string) []byte {
	out := make([]byte, 16)
	copy(out, id)
	return out
}

func deflateCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deflateDecompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}
