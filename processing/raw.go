package processing

import (
	"bytes"
	"image/jpeg"
	"io"

	"github.com/rwcarlsen/goexif/tiff"
)

// TIFF tags locating the previews of DNG and other TIFF based raw files
const (
	tagCompression     = 0x0103
	tagStripOffsets    = 0x0111
	tagStripByteCounts = 0x0117
	tagSubIFDs         = 0x014A
	tagJPEGOffset      = 0x0201
	tagJPEGLength      = 0x0202

	compressionOldJPEG = 6
	compressionJPEG    = 7

	maxPreviewDirs = 32
)

func isTIFF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))
}

// embeddedPreview returns the largest decodable JPEG stored inside a TIFF
// based raw file and its pixel area. Lossless JPEG sensor data is skipped
// since image/jpeg cannot decode it.
func embeddedPreview(data []byte) (preview []byte, area int, ok bool) {
	if !isTIFF(data) {
		return nil, 0, false
	}
	t, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, false
	}
	r := bytes.NewReader(data)
	dirs := append([]*tiff.Dir(nil), t.Dirs...)
	for i := 0; i < len(dirs) && i < maxPreviewDirs; i++ {
		tags := make(map[uint16]*tiff.Tag, len(dirs[i].Tags))
		for _, tag := range dirs[i].Tags {
			tags[tag.Id] = tag
		}
		if sub := tags[tagSubIFDs]; sub != nil {
			for j := 0; j < int(sub.Count); j++ {
				offset, err := sub.Int64(j)
				if err != nil || offset <= 0 || offset >= int64(len(data)) {
					continue
				}
				if _, err = r.Seek(offset, io.SeekStart); err != nil {
					continue
				}
				if d, _, err := tiff.DecodeDir(r, t.Order); err == nil {
					dirs = append(dirs, d)
				}
			}
		}
		start, length, found := previewRange(tags)
		if !found || start < 0 || length <= 0 || start+length > int64(len(data)) {
			continue
		}
		candidate := data[start : start+length]
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(candidate))
		if err != nil {
			continue
		}
		if a := cfg.Width * cfg.Height; a > area {
			preview, area, ok = candidate, a, true
		}
	}
	return
}

func previewRange(tags map[uint16]*tiff.Tag) (start, length int64, ok bool) {
	if start, ok = firstInt(tags[tagJPEGOffset]); ok {
		length, ok = firstInt(tags[tagJPEGLength])
		return
	}
	compression, _ := firstInt(tags[tagCompression])
	if compression != compressionJPEG && compression != compressionOldJPEG {
		return 0, 0, false
	}
	// A preview is a single strip, tiled or striped sensor data is not
	if offsets := tags[tagStripOffsets]; offsets == nil || offsets.Count != 1 {
		return 0, 0, false
	}
	if start, ok = firstInt(tags[tagStripOffsets]); ok {
		length, ok = firstInt(tags[tagStripByteCounts])
	}
	return
}

func firstInt(tag *tiff.Tag) (int64, bool) {
	if tag == nil || tag.Count < 1 {
		return 0, false
	}
	v, err := tag.Int64(0)
	return v, err == nil
}
