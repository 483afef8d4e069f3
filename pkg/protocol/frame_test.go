package protocol

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrameMatchesReferenceByteSequence(t *testing.T) {
	f := &Frame{
		CorrelationID: "abcdefghijklmnop",
		PayloadType:   PayloadScreenshotPNG,
		Compressed:    false,
		Chunked:       false,
		FinalChunk:    true,
		Data:          []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}

	buf, err := EncodeFrame(f)
	require.NoError(t, err)

	expected, err := hex.DecodeString("A70004616263646566676869" + "6A6B6C6D6E6F" + "700001000000080102030405060708")
	require.NoError(t, err)
	assert.Equal(t, expected, buf)
}

func TestFrameRoundTrip(t *testing.T) {
	f := &Frame{
		CorrelationID: "req-1",
		PayloadType:   PayloadHierarchyXML,
		Data:          []byte("<hierarchy/>"),
	}
	buf, err := EncodeFrame(f)
	require.NoError(t, err)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, f.CorrelationID, decoded.CorrelationID)
	assert.Equal(t, f.PayloadType, decoded.PayloadType)
	assert.Equal(t, f.Data, decoded.Data)
}

func TestFrameRoundTripCompressed(t *testing.T) {
	f := &Frame{
		CorrelationID: "req-2",
		PayloadType:   PayloadFileData,
		Compressed:    true,
		Data:          []byte("some reasonably compressible payload payload payload"),
	}
	buf, err := EncodeFrame(f)
	require.NoError(t, err)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, f.Data, decoded.Data)
}

func TestDecodeFrameZeroLengthIsValid(t *testing.T) {
	f := &Frame{CorrelationID: "req-3", PayloadType: PayloadFileData}
	buf, err := EncodeFrame(f)
	require.NoError(t, err)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	assert.Empty(t, decoded.Data)
}

func TestDecodeFrameRejectsBadMagic(t *testing.T) {
	f := &Frame{CorrelationID: "req-4", PayloadType: PayloadFileData}
	buf, err := EncodeFrame(f)
	require.NoError(t, err)
	buf[0] = 0x00

	_, err = DecodeFrame(buf)
	require.Error(t, err)
	var agentErr *Error
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, CodeProtocolError, agentErr.Code)
	assert.Equal(t, CategoryTransport, agentErr.Category)
}

func TestDecodeFrameRejectsLengthMismatch(t *testing.T) {
	f := &Frame{CorrelationID: "req-5", PayloadType: PayloadFileData, Data: []byte{1, 2, 3}}
	buf, err := EncodeFrame(f)
	require.NoError(t, err)

	_, err = DecodeFrame(buf[:len(buf)-1])
	require.Error(t, err)
	var agentErr *Error
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, CodeProtocolError, agentErr.Code)
}
