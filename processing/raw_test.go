package processing

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ifdEntry struct {
	id, typ uint16
	value   uint32
}

const (
	typeShort = 3
	typeLong  = 4
)

func writeIFD(buf *bytes.Buffer, entries []ifdEntry) {
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(buf, binary.LittleEndian, e.id)
		_ = binary.Write(buf, binary.LittleEndian, e.typ)
		_ = binary.Write(buf, binary.LittleEndian, uint32(1))
		_ = binary.Write(buf, binary.LittleEndian, e.value)
	}
	_ = binary.Write(buf, binary.LittleEndian, uint32(0))
}

// rawFile lays out a little endian TIFF whose only image is a JPEG preview,
// either referenced from IFD0 like a thumbnail or from a sub-IFD like DNG does
func rawFile(preview []byte, inSubIFD bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, binary.LittleEndian, uint16(42))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8))
	if inSubIFD {
		const subIFD, previewAt = 8 + 18, 8 + 18 + 42
		writeIFD(&buf, []ifdEntry{{tagSubIFDs, typeLong, subIFD}})
		writeIFD(&buf, []ifdEntry{
			{tagCompression, typeShort, compressionJPEG},
			{tagStripOffsets, typeLong, previewAt},
			{tagStripByteCounts, typeLong, uint32(len(preview))},
		})
	} else {
		const previewAt = 8 + 30
		writeIFD(&buf, []ifdEntry{
			{tagJPEGOffset, typeLong, previewAt},
			{tagJPEGLength, typeLong, uint32(len(preview))},
		})
	}
	buf.Write(preview)
	return buf.Bytes()
}

func TestEmbeddedPreview(t *testing.T) {
	preview := jpegBytes(t, 64, 48)
	for _, inSubIFD := range []bool{false, true} {
		got, area, ok := embeddedPreview(rawFile(preview, inSubIFD))
		require.True(t, ok, "sub-IFD %v", inSubIFD)
		assert.Equal(t, preview, got)
		assert.Equal(t, 64*48, area)
	}

	_, _, ok := embeddedPreview(jpegBytes(t, 10, 10))
	assert.False(t, ok, "not a TIFF")
	_, _, ok = embeddedPreview(rawFile([]byte("not a jpeg at all"), false))
	assert.False(t, ok, "undecodable preview")
}

func TestRenderRawUsesPreview(t *testing.T) {
	ctx := context.Background()
	backend := backendWith(t, map[string][]byte{
		"trips/1-raw.dng": rawFile(jpegBytes(t, 640, 480), true),
	})
	w, h := decodedSize(t, Render(ctx, backend, "trips/1-raw.dng", 0, true))
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	w, _ = decodedSize(t, Render(ctx, backend, "trips/1-raw.dng", 0, false))
	assert.Equal(t, DefaultWidth, w)
}

func TestRenderHEICFallsBack(t *testing.T) {
	heic := append([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic"), make([]byte, 64)...)
	backend := backendWith(t, map[string][]byte{"x/IMG_1.HEIC": heic})
	_, _, err := image.DecodeConfig(bytes.NewReader(heic))
	require.Error(t, err)
	assert.Equal(t, Fallback(), Render(context.Background(), backend, "x/IMG_1.HEIC", 0, true))
}
