package capture

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/jpeg"
	"strings"
	"sync"
)

const jpegQuality = 80

// chunkBufPool pools encode buffers, same lifecycle as the capture frame
// pool: get, encode, copy out, put back.
var chunkBufPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 64*1024))
	},
}

func getChunkBuf() *bytes.Buffer {
	buf := chunkBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putChunkBuf(buf *bytes.Buffer) {
	if buf.Cap() > 512*1024 {
		return // don't pool oversized buffers
	}
	chunkBufPool.Put(buf)
}

// encodeFrame encodes one video frame as JPEG. Video channels record as a
// motion-JPEG chunk sequence; recording at the native codec of the
// requested content type is outside this module's scope.
func encodeFrame(frame *image.RGBA) ([]byte, error) {
	buf := getChunkBuf()
	defer putChunkBuf(buf)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// wavStreamHeader builds a streaming WAV header (unknown length) for s16le
// PCM. Audio recorders emit it as their first chunk so concatenated chunks
// form a playable payload.
func wavStreamHeader(sampleRate, channels int) []byte {
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := make([]byte, 44)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 0xFFFFFFFF)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], 0xFFFFFFFF)
	return buf
}

func isAudioMime(mime string) bool {
	return strings.HasPrefix(strings.TrimSpace(strings.ToLower(mime)), "audio")
}
