package localcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var _ repository.MirrorStore = (*SQLiteMirror)(nil)

// mirrorEntry es una fila del espejo local: un blob JSON por clave,
// sobreescrito completo en cada refresco.
type mirrorEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

// SQLiteMirror implementa MirrorStore sobre SQLite (driver puro Go vía glebarez/sqlite),
// para que un reinicio pueda renderizar de inmediato antes del primer evento en vivo.
type SQLiteMirror struct {
	db *gorm.DB
}

// NewSQLiteMirror abre (o crea) el archivo del espejo y migra la tabla.
func NewSQLiteMirror(path string) (*SQLiteMirror, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("abrir espejo local: %w", err)
	}
	if err := db.AutoMigrate(&mirrorEntry{}); err != nil {
		return nil, fmt.Errorf("migrar espejo local: %w", err)
	}
	return &SQLiteMirror{db: db}, nil
}

// Load deserializa el valor de la clave en v. Devuelve domain.ErrNotFound si no existe.
func (m *SQLiteMirror) Load(key string, v any) error {
	var entry mirrorEntry
	if err := m.db.First(&entry, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("leer espejo %q: %w", key, err)
	}
	if err := json.Unmarshal(entry.Value, v); err != nil {
		return fmt.Errorf("deserializar espejo %q: %w", key, err)
	}
	return nil
}

// Save serializa v y sobreescribe el valor de la clave (upsert).
func (m *SQLiteMirror) Save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serializar espejo %q: %w", key, err)
	}
	entry := mirrorEntry{Key: key, Value: raw, UpdatedAt: time.Now()}
	err = m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("guardar espejo %q: %w", key, err)
	}
	return nil
}
