package output

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ----- WAV ----- //

// WAVWriter writes 16-bit PCM WAV data.
type WAVWriter struct {
	writer      io.Writer
	sampleRate  int
	channels    int
	dataWritten int
	buf         []byte
}

func NewWAVWriter(w io.Writer, sampleRate, channels int) *WAVWriter {
	return &WAVWriter{
		writer:     w,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// WriteHeader writes the RIFF header for dataSize bytes of samples.
func (w *WAVWriter) WriteHeader(dataSize int) error {
	header := make([]byte, 0, 44)
	header = append(header, "RIFF"...)
	header = binary.LittleEndian.AppendUint32(header, uint32(dataSize+36))
	header = append(header, "WAVE"...)

	header = append(header, "fmt "...)
	header = binary.LittleEndian.AppendUint32(header, 16) // chunk size
	header = binary.LittleEndian.AppendUint16(header, 1)  // PCM
	header = binary.LittleEndian.AppendUint16(header, uint16(w.channels))
	header = binary.LittleEndian.AppendUint32(header, uint32(w.sampleRate))
	header = binary.LittleEndian.AppendUint32(header, uint32(w.sampleRate*w.channels*bitDepthInBytes))
	header = binary.LittleEndian.AppendUint16(header, uint16(w.channels*bitDepthInBytes))
	header = binary.LittleEndian.AppendUint16(header, 8*bitDepthInBytes)

	header = append(header, "data"...)
	header = binary.LittleEndian.AppendUint32(header, uint32(dataSize))

	_, err := w.writer.Write(header)
	return err
}

// WriteSamples writes interleaved float samples as 16-bit PCM.
func (w *WAVWriter) WriteSamples(samples []float32) error {
	size := len(samples) * bitDepthInBytes
	if cap(w.buf) < size {
		w.buf = make([]byte, size)
	}
	buf := w.buf[:size]
	writeBuffer(samples, buf)
	n, err := w.writer.Write(buf)
	w.dataWritten += n
	return err
}

// RenderWAV renders frames stereo frames of src to w, pulling bufferFrames at
// a time.
func RenderWAV(w io.Writer, src Source, sampleRate, frames, bufferFrames int) error {
	if frames < 0 {
		return fmt.Errorf("negative frame count: %d", frames)
	}
	if bufferFrames < 1 {
		bufferFrames = 1
	}
	wavWriter := NewWAVWriter(w, sampleRate, channelNum)
	if err := wavWriter.WriteHeader(frames * bytesPerFrame); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	buffer := make([]float32, bufferFrames*channelNum)
	for written := 0; written < frames; {
		n := min(frames-written, bufferFrames)
		chunk := buffer[:n*channelNum]
		src.Process(chunk, n)
		if err := wavWriter.WriteSamples(chunk); err != nil {
			return fmt.Errorf("failed to write samples: %w", err)
		}
		written += n
	}
	if want := frames * bytesPerFrame; wavWriter.dataWritten != want {
		return fmt.Errorf("short WAV data: wrote %d of %d bytes", wavWriter.dataWritten, want)
	}
	return nil
}
