// Package sqlite - хранилище персонажей шарда на SQLite.
// Каждый вид записи очереди - идемпотентный upsert или delete.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/oops"
	_ "modernc.org/sqlite"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/infrastructure/storage/sqlite/migrations"
	"github.com/Mun1z/Imgeneus/internal/persist"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// Store - SQLite-реализация persist.Store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open открывает базу и применяет миграции.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, oops.In("storage").Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.In("storage").With("path", path).Wrapf(err, "open sqlite db")
	}
	// одна запись за раз: потребитель очереди единственный писатель
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, oops.In("storage").With("path", path).Wrapf(err, "ping sqlite db")
	}

	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, oops.In("storage").With("path", path).Wrapf(err, "run migrations")
	}

	logger.Component("storage").WithField("path", path).Info("SQLite store opened")
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Apply применяет одну запись очереди.
func (s *Store) Apply(ctx context.Context, e persist.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	owner := int64(e.Owner)
	now := s.now().UTC().UnixMilli()
	errb := oops.In("storage").With("owner", e.Owner.String(), "action", e.Kind.String(), "seq", e.Seq)

	if e.Owner.IsNil() || persist.KindOf(e.Payload) != e.Kind {
		return errb.Wrapf(persist.ErrInvalidEntry, "apply %s", e.Kind)
	}

	var err error
	switch p := e.Payload.(type) {
	case persist.ItemRecord:
		_, err = s.db.ExecContext(ctx, `
INSERT INTO character_items (owner, bag, slot, type, type_id, count, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (owner, bag, slot) DO UPDATE SET
	type = excluded.type,
	type_id = excluded.type_id,
	count = excluded.count,
	updated_at = excluded.updated_at
`, owner, p.Bag, p.Slot, p.Type, p.TypeID, p.Count, now)

	case persist.ItemKey:
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM character_items WHERE owner = ? AND bag = ? AND slot = ?`,
			owner, p.Bag, p.Slot)

	case persist.BuffRecord:
		_, err = s.db.ExecContext(ctx, `
INSERT INTO character_buffs (owner, skill_id, passive, skill_level, reset_time, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (owner, skill_id, passive) DO UPDATE SET
	skill_level = excluded.skill_level,
	reset_time = excluded.reset_time,
	updated_at = excluded.updated_at
`, owner, p.SkillID, boolInt(p.Passive), p.SkillLevel, p.ResetTime.UTC().UnixMilli(), now)

	case persist.BuffKey:
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM character_buffs WHERE owner = ? AND skill_id = ? AND passive = ?`,
			owner, p.SkillID, boolInt(p.Passive))

	case persist.GoldRecord:
		_, err = s.db.ExecContext(ctx, `
INSERT INTO characters (owner, gold, updated_at) VALUES (?, ?, ?)
ON CONFLICT (owner) DO UPDATE SET
	gold = excluded.gold,
	updated_at = excluded.updated_at
`, owner, p.Gold, now)

	case persist.VitalsRecord:
		_, err = s.db.ExecContext(ctx, `
INSERT INTO characters (owner, hp, sp, mp, vitals_saved, updated_at) VALUES (?, ?, ?, ?, 1, ?)
ON CONFLICT (owner) DO UPDATE SET
	hp = excluded.hp,
	sp = excluded.sp,
	mp = excluded.mp,
	vitals_saved = 1,
	updated_at = excluded.updated_at
`, owner, p.HP, p.SP, p.MP, now)

	default:
		return errb.Wrapf(persist.ErrInvalidEntry, "unsupported payload %T", e.Payload)
	}

	return errb.Wrapf(err, "apply %s", e.Kind)
}

// LoadCharacter читает всё сохранённое о персонаже.
// Неизвестный персонаж - пустая запись без ошибки.
func (s *Store) LoadCharacter(ctx context.Context, owner types.EntityID) (persist.CharacterRecord, error) {
	rec := persist.CharacterRecord{Owner: owner}
	errb := oops.In("storage").With("owner", owner.String())
	id := int64(owner)

	var (
		hp, sp, mp  int
		vitalsSaved int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT gold, hp, sp, mp, vitals_saved FROM characters WHERE owner = ?`, id,
	).Scan(&rec.Gold, &hp, &sp, &mp, &vitalsSaved)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return rec, errb.Wrapf(err, "load character")
	case vitalsSaved != 0:
		rec.Vitals = &persist.VitalsRecord{HP: hp, SP: sp, MP: mp}
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT bag, slot, type, type_id, count
FROM character_items
WHERE owner = ?
ORDER BY bag, slot
`, id)
	if err != nil {
		return rec, errb.Wrapf(err, "load items")
	}
	for rows.Next() {
		var it persist.ItemRecord
		if err := rows.Scan(&it.Bag, &it.Slot, &it.Type, &it.TypeID, &it.Count); err != nil {
			rows.Close()
			return rec, errb.Wrapf(err, "scan item")
		}
		rec.Items = append(rec.Items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return rec, errb.Wrapf(err, "iterate items")
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
SELECT skill_id, passive, skill_level, reset_time
FROM character_buffs
WHERE owner = ?
ORDER BY passive DESC, skill_id
`, id)
	if err != nil {
		return rec, errb.Wrapf(err, "load buffs")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			b       persist.BuffRecord
			passive int
			resetMs int64
		)
		if err := rows.Scan(&b.SkillID, &passive, &b.SkillLevel, &resetMs); err != nil {
			return rec, errb.Wrapf(err, "scan buff")
		}
		b.Passive = passive != 0
		b.ResetTime = time.UnixMilli(resetMs).UTC()
		rec.Buffs = append(rec.Buffs, b)
	}
	if err := rows.Err(); err != nil {
		return rec, errb.Wrapf(err, "iterate buffs")
	}

	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const migrationTable = "schema_migrations"

// applyMigrations выполняет каждый встроенный .sql файл не больше одного раза.
func applyMigrations(db *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var n int
		if err := db.QueryRow(`SELECT COUNT(1) FROM `+migrationTable+` WHERE name = ?`, file).Scan(&n); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if n > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, file, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection возвращает часть после "-- +migrate Up" и до "-- +migrate Down".
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	if i := strings.Index(content, up); i >= 0 {
		content = content[i+len(up):]
	}
	if i := strings.Index(content, down); i >= 0 {
		content = content[:i]
	}
	return content
}
