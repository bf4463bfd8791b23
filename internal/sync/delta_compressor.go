package sync

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ErrCorruptBatch - батч не удалось разобрать
var ErrCorruptBatch = errors.New("sync: corrupt batch")

// DeltaCompressor кодирует/декодирует набор изменений (Change) в один payload.
type DeltaCompressor interface {
	Compress(changes []Change) ([]byte, error)
	Decompress(payload []byte) ([]Change, error)
}

type passthroughCompressor struct{}

// NewPassthroughCompressor возвращает компрессор без сжатия
func NewPassthroughCompressor() DeltaCompressor { return &passthroughCompressor{} }

// Формат записи: [len uint32 BE] [data]
func (p *passthroughCompressor) Compress(changes []Change) ([]byte, error) {
	size := 0
	for _, c := range changes {
		size += 4 + len(c.Data)
	}
	buf := make([]byte, 0, size)
	for _, c := range changes {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Data)))
		buf = append(buf, c.Data...)
	}
	return buf, nil
}

func (p *passthroughCompressor) Decompress(payload []byte) ([]Change, error) {
	var res []Change
	for i := 0; i < len(payload); {
		if i+4 > len(payload) {
			return res, fmt.Errorf("%w: обрезанная длина на смещении %d", ErrCorruptBatch, i)
		}
		n := int(binary.BigEndian.Uint32(payload[i:]))
		i += 4
		if i+n > len(payload) {
			return res, fmt.Errorf("%w: запись %d байт выходит за конец", ErrCorruptBatch, n)
		}
		res = append(res, Change{Data: payload[i : i+n], ChangeType: ChangeTypeFieldUpdate})
		i += n
	}
	return res, nil
}

// gzipCompressor сжимает сериализованные изменения gzip'ом
type gzipCompressor struct {
	level int
}

// NewGzipCompressor возвращает компрессор с gzip поверх passthrough формата
func NewGzipCompressor() DeltaCompressor { return &gzipCompressor{level: gzip.BestSpeed} }

func (g *gzipCompressor) Compress(changes []Change) ([]byte, error) {
	raw, err := (&passthroughCompressor{}).Compress(changes)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, err
	}
	if _, err := gz.Write(raw); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *gzipCompressor) Decompress(payload []byte) ([]Change, error) {
	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBatch, err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBatch, err)
	}
	return (&passthroughCompressor{}).Decompress(raw)
}
