package storage

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/persist"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// ReadJournal читает все записи журнала. Отсутствующий файл - пустой журнал.
// Оборванная последняя запись (падение во время записи) отбрасывается.
func ReadJournal(path string) ([]persist.Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readJournal(bufio.NewReader(f))
}

func readJournal(r io.Reader) ([]persist.Entry, error) {
	// 1. Заголовок
	var header JournalFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicHeader {
		return nil, fmt.Errorf("invalid magic")
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}

	// 2. Записи до конца файла
	var entries []persist.Entry
	for {
		var rh RecordHeader
		err := binary.Read(r, binary.LittleEndian, &rh)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			logger.Component("journal").WithField("read", len(entries)).Warn("Truncated record header at journal tail")
			return entries, nil
		}
		if err != nil {
			return entries, err
		}

		payload := make([]byte, rh.PayloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				logger.Component("journal").WithField("read", len(entries)).Warn("Truncated record payload at journal tail")
				return entries, nil
			}
			return entries, err
		}

		kind := persist.ActionKind(rh.Kind)
		p, err := persist.DecodePayload(kind, payload)
		if err != nil {
			return entries, fmt.Errorf("record %d: %w", rh.Seq, err)
		}

		entries = append(entries, persist.Entry{
			Seq:        rh.Seq,
			Kind:       kind,
			Owner:      types.EntityID(rh.Owner),
			Payload:    p,
			EnqueuedAt: time.Unix(0, rh.EnqueuedAt),
		})
	}
}

// Replay применяет журнал к хранилищу в порядке записи и удаляет файл.
// Применение идемпотентно, поэтому повторный прогон после сбоя безопасен.
func Replay(ctx context.Context, path string, store persist.Store) (int, error) {
	log := logger.Component("journal").WithField("path", path)

	entries, err := ReadJournal(path)
	if err != nil {
		return 0, fmt.Errorf("read journal: %w", err)
	}

	applied := 0
	for _, e := range entries {
		if err := store.Apply(ctx, e); err != nil {
			if errors.Is(err, persist.ErrInvalidEntry) {
				log.WithError(err).WithFields(logrus.Fields{"seq": e.Seq, "action": e.Kind}).Error("Journal entry rejected, skipped")
				continue
			}
			return applied, fmt.Errorf("replay seq %d: %w", e.Seq, err)
		}
		applied++
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return applied, fmt.Errorf("truncate journal: %w", err)
	}

	if len(entries) > 0 {
		log.WithField("applied", applied).Info("Journal replayed")
	}
	return applied, nil
}
