package main

import (
	"bufio"
	"encoding/binary"
	"io"
)

const (
	wavFormatPCM     = 1
	wavChannels      = 1
	wavBitsPerSample = 16
	wavHeaderSize    = 44
)

type wavHeader struct {
	RIFF          [4]byte
	FileSize      uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// writeWAV writes mono samples in [-1,1] as 16-bit PCM.
func writeWAV(w io.Writer, samples []float64, sampleRate int) error {
	const bytesPerSample = wavBitsPerSample / 8
	dataSize := uint32(len(samples) * bytesPerSample)
	header := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		FileSize:      wavHeaderSize - 8 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		Format:        wavFormatPCM,
		Channels:      wavChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * wavChannels * bytesPerSample),
		BlockAlign:    wavChannels * bytesPerSample,
		BitsPerSample: wavBitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &header); err != nil {
		return err
	}
	pcm := make([]int16, len(samples))
	for i, value := range samples {
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		pcm[i] = int16(value * 32767)
	}
	if err := binary.Write(bw, binary.LittleEndian, pcm); err != nil {
		return err
	}
	return bw.Flush()
}
