package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mun1z/Imgeneus/internal/persist"
)

const (
	MagicHeader string = `IMJL` // 4 байта
	Version1    uint32 = 1
)

// JournalFileHeader - заголовок файла журнала.
// binary.Write пишет его целиком: только массивы и числа.
type JournalFileHeader struct {
	Magic   [4]byte // 4 байта
	Version uint32  // 4 байта
	Created int64   // 8 байт, unix nano
}

// RecordHeader - заголовок каждой записи.
type RecordHeader struct {
	Seq        uint64 // 8
	Owner      uint64 // 8
	EnqueuedAt int64  // 8
	Kind       uint8  // 1
	PayloadLen uint16 // 2
}

// Journal - файл записей, которые очередь не успела применить.
// Файл создаётся при первой записи.
type Journal struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
}

func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

func (j *Journal) Path() string { return j.path }

// Append дописывает запись и сбрасывает буфер на диск.
func (j *Journal) Append(e persist.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.w == nil {
		if err := j.open(); err != nil {
			return err
		}
	}

	if err := writeRecord(j.w, e); err != nil {
		return err
	}
	if err := j.w.Flush(); err != nil {
		return err
	}
	return j.f.Sync()
}

// Close закрывает файл, если он был открыт.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.f == nil {
		return nil
	}
	err := j.w.Flush()
	if cerr := j.f.Close(); err == nil {
		err = cerr
	}
	j.f, j.w = nil, nil
	return err
}

func (j *Journal) open() error {
	if dir := filepath.Dir(j.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	w := bufio.NewWriter(f)
	if info.Size() == 0 {
		if err := writeHeader(w, time.Now()); err != nil {
			f.Close()
			return err
		}
	}

	j.f, j.w = f, w
	return nil
}

func writeHeader(w io.Writer, created time.Time) error {
	header := JournalFileHeader{
		Version: Version1,
		Created: created.UnixNano(),
	}
	copy(header.Magic[:], MagicHeader)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

func writeRecord(w io.Writer, e persist.Entry) error {
	payload, err := persist.EncodePayload(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if len(payload) > 65535 {
		return fmt.Errorf("payload too long: %d", len(payload))
	}

	rh := RecordHeader{
		Seq:        e.Seq,
		Owner:      uint64(e.Owner),
		EnqueuedAt: e.EnqueuedAt.UnixNano(),
		Kind:       uint8(e.Kind),
		PayloadLen: uint16(len(payload)),
	}

	if err := binary.Write(w, binary.LittleEndian, &rh); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}
