package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/bubble-world/internal/world"
)

var (
	// ErrCorruptData - файл карты обрезан или заголовок бессмысленный
	ErrCorruptData = errors.New("storage: corrupt map data")
	// ErrUnknownMap - для id карты нет записи или данных
	ErrUnknownMap = errors.New("storage: unknown map")
	// ErrBadMagic - версия формата не совпала (только при VerifyMagic)
	ErrBadMagic = errors.New("storage: unexpected map version magic")
)

// MaxMapFields ограничивает размер карты при чтении (16M клеток)
const MaxMapFields = 1 << 24

// Размеры записей на диске с учётом выравнивания
const (
	HeaderSize = 28
	FieldSize  = 12
)

// headerRecord повторяет раскладку заголовка на диске
type headerRecord struct {
	MapID               uint32
	SizeX               uint32
	SizeY               uint32
	DefaultFieldType    uint16
	_                   uint16
	DefaultFieldTexture uint32
	DefaultFieldFlags   uint32
	VersionMagic        uint32
}

// fieldRecord повторяет раскладку клетки на диске
type fieldRecord struct {
	Type    uint16
	_       uint16
	Texture uint32
	Flags   uint32
}

// DecodeOptions управляет проверками при чтении
type DecodeOptions struct {
	VerifyMagic bool
}

// readBatch - сколько клеток читается за раз
const readBatch = 4096

// EncodeMap пишет заголовок и клетки по столбцам
func EncodeMap(w io.Writer, h world.Header, grid *world.FieldGrid) error {
	if grid.SizeX() != h.SizeX || grid.SizeY() != h.SizeY {
		return fmt.Errorf("%w: сетка %dx%d, заголовок %dx%d", world.ErrGridMismatch, grid.SizeX(), grid.SizeY(), h.SizeX, h.SizeY)
	}

	bw := bufio.NewWriter(w)
	hdr := headerRecord{
		MapID:               h.MapID,
		SizeX:               h.SizeX,
		SizeY:               h.SizeY,
		DefaultFieldType:    h.DefaultFieldType,
		DefaultFieldTexture: h.DefaultFieldTexture,
		DefaultFieldFlags:   h.DefaultFieldFlags,
		VersionMagic:        h.VersionMagic,
	}
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("ошибка записи заголовка карты: %w", err)
	}

	fields := grid.Fields()
	batch := make([]fieldRecord, 0, readBatch)
	for start := 0; start < len(fields); start += readBatch {
		end := start + readBatch
		if end > len(fields) {
			end = len(fields)
		}
		batch = batch[:0]
		for _, f := range fields[start:end] {
			batch = append(batch, fieldRecord{Type: f.Type, Texture: f.Texture, Flags: f.Flags})
		}
		if err := binary.Write(bw, binary.LittleEndian, batch); err != nil {
			return fmt.Errorf("ошибка записи клеток карты: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("ошибка записи карты: %w", err)
	}
	return nil
}

// DecodeMap читает заголовок и клетки. Обрезанные данные дают ErrCorruptData.
func DecodeMap(r io.Reader, opts DecodeOptions) (world.Header, *world.FieldGrid, error) {
	br := bufio.NewReader(r)

	var hdr headerRecord
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return world.Header{}, nil, wrapReadError("заголовок", err)
	}

	h := world.Header{
		MapID:               hdr.MapID,
		SizeX:               hdr.SizeX,
		SizeY:               hdr.SizeY,
		DefaultFieldType:    hdr.DefaultFieldType,
		DefaultFieldTexture: hdr.DefaultFieldTexture,
		DefaultFieldFlags:   hdr.DefaultFieldFlags,
		VersionMagic:        hdr.VersionMagic,
	}

	if opts.VerifyMagic && !h.HasValidMagic() {
		return h, nil, fmt.Errorf("%w: 0x%08X", ErrBadMagic, h.VersionMagic)
	}

	count := h.FieldCount()
	if count > MaxMapFields {
		return h, nil, fmt.Errorf("%w: карта %dx%d больше допустимой", ErrCorruptData, h.SizeX, h.SizeY)
	}

	fields := make([]world.Field, 0, int(count))
	batch := make([]fieldRecord, readBatch)
	for remaining := int(count); remaining > 0; {
		n := readBatch
		if remaining < n {
			n = remaining
		}
		if err := binary.Read(br, binary.LittleEndian, batch[:n]); err != nil {
			return h, nil, wrapReadError("клетки", err)
		}
		for _, rec := range batch[:n] {
			fields = append(fields, world.Field{Type: rec.Type, Texture: rec.Texture, Flags: rec.Flags})
		}
		remaining -= n
	}

	grid, ok := world.NewFieldGridFrom(h.SizeX, h.SizeY, fields)
	if !ok {
		return h, nil, fmt.Errorf("%w: размер сетки не совпал с заголовком", ErrCorruptData)
	}
	return h, grid, nil
}

// EncodedSize возвращает размер закодированной карты в байтах
func EncodedSize(h world.Header) int64 {
	return HeaderSize + int64(h.FieldCount())*FieldSize
}

func wrapReadError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s обрезан", ErrCorruptData, what)
	}
	return fmt.Errorf("ошибка чтения карты (%s): %w", what, err)
}
