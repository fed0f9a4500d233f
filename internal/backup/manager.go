// Package backup implements the backup manager: it builds, encodes,
// persists, verifies, restores and retires backup records, and owns the
// backup catalog.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/edvin/drengine/internal/crypto"
	"github.com/edvin/drengine/internal/drerrors"
	"github.com/edvin/drengine/internal/metrics"
	"github.com/edvin/drengine/internal/model"
	"github.com/edvin/drengine/internal/platform"
	"github.com/edvin/drengine/internal/schedule"
	"github.com/edvin/drengine/internal/storage"
)

type Options struct {
	Root                  string
	EncryptionEnabled     bool
	EncryptionKeyMaterial string
	CompressionEnabled    bool
	CompressionLevel      int
	RetentionDays         int
	MaxBackups            int
	Schedule              string
}

// Manager owns the backup catalog and every backup record in it. All
// catalog mutation happens through its operations; callers treat the
// catalog as opaque.
type Manager struct {
	logger zerolog.Logger
	// baseLogger is the logger as handed in, before the component tag,
	// so clones do not tag it twice.
	baseLogger zerolog.Logger

	opts    Options
	backend storage.Backend
	reg     *Registry

	key []byte

	mu      sync.Mutex
	catalog []model.Backup

	// decodes coalesces concurrent load+decode of the same locator;
	// restoreLocks serializes restore application per locator.
	decodes      singleflight.Group
	locksMu      sync.Mutex
	restoreLocks map[string]*sync.Mutex

	scheduler *Scheduler
	now       func() time.Time
}

func NewManager(logger zerolog.Logger, opts Options, backend storage.Backend, reg *Registry) *Manager {
	return &Manager{
		logger:       logger.With().Str("component", "backup-manager").Logger(),
		baseLogger:   logger,
		opts:         opts,
		backend:      backend,
		reg:          reg,
		restoreLocks: make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

// Initialize ensures the backup root exists, loads the catalog, loads or
// generates key material, and starts the scheduled-backup timer if a
// schedule is configured.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(m.opts.Root, 0o700); err != nil {
		return &drerrors.BackendError{Op: "initialize", Backend: "local", Err: err}
	}

	catalog, err := loadCatalog(m.opts.Root)
	if err != nil {
		return &drerrors.BackendError{Op: "initialize", Backend: m.backend.Name(), Err: err}
	}
	m.mu.Lock()
	m.catalog = catalog
	m.mu.Unlock()

	if m.opts.EncryptionEnabled && m.key == nil {
		if err := m.loadKey(); err != nil {
			return err
		}
	}

	if m.opts.Schedule != "" {
		interval, recognized := schedule.ParseCadence(m.opts.Schedule)
		if !recognized {
			m.logger.Warn().Str("schedule", m.opts.Schedule).Dur("interval", interval).
				Msg("unrecognized backup schedule, falling back to daily")
		}
		m.scheduler = NewScheduler(m.logger, m, interval)
		m.scheduler.Start()
	}

	m.logger.Info().Int("backups", len(catalog)).Str("backend", m.backend.Name()).Msg("backup manager initialized")
	return nil
}

func (m *Manager) loadKey() error {
	if m.opts.EncryptionKeyMaterial != "" {
		key, err := crypto.ResolveKey(m.opts.EncryptionKeyMaterial)
		if err != nil {
			return fmt.Errorf("load encryption key: %w", err)
		}
		m.key = key
		return nil
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate encryption key: %w", err)
	}
	m.key = key
	// Surfaced exactly once so the operator can capture it. Without it,
	// existing backups are unreadable after a restart.
	m.logger.Warn().Str("encryption_key", crypto.EncodeKey(key)).
		Msg("ENCRYPTION_KEY not set; generated a fresh key, capture it now")
	return nil
}

// Stop halts the scheduled-backup timer. An in-flight backup runs to
// completion.
func (m *Manager) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}

type CreateOptions struct {
	Type            string
	Items           []string
	ContinueOnError bool
	Metadata        map[string]string
}

// CreateBackup collects the requested items, encodes them through the
// compress-then-encrypt pipeline, persists the payload, and appends the
// completed record to the catalog.
func (m *Manager) CreateBackup(ctx context.Context, opts CreateOptions) (*model.Backup, error) {
	start := m.now()
	id := platform.NewTimeOrderedID("bk", start)
	backupType := opts.Type
	if backupType == "" {
		backupType = model.BackupTypeFull
	}

	items := opts.Items
	if len(items) == 0 {
		items = m.reg.Items()
	}

	logger := m.logger.With().Str("backup_id", id).Str("type", backupType).Logger()
	logger.Info().Strs("items", items).Msg("creating backup")

	doc := &payloadDocument{
		Version:   payloadVersion,
		CreatedAt: start,
		Items:     make(map[string][]byte, len(items)),
	}
	checksums := make(map[string]string, len(items))
	var collected []string

	for _, name := range items {
		collector, ok := m.reg.Collector(name)
		if !ok {
			if opts.ContinueOnError {
				logger.Warn().Str("item", name).Msg("no collector registered, skipping item")
				continue
			}
			metrics.RecordBackup(model.BackupStatusFailed, backupType, 0, m.now().Sub(start))
			return nil, fmt.Errorf("%s: no collector registered for item %q", id, name)
		}
		content, err := collector(ctx)
		if err != nil {
			if opts.ContinueOnError {
				logger.Warn().Err(err).Str("item", name).Msg("collector failed, skipping item")
				continue
			}
			metrics.RecordBackup(model.BackupStatusFailed, backupType, 0, m.now().Sub(start))
			return nil, fmt.Errorf("%s: collect item %q: %w", id, name, err)
		}
		doc.Items[name] = content
		checksums[name] = checksum(content)
		collected = append(collected, name)
	}

	if len(collected) == 0 {
		metrics.RecordBackup(model.BackupStatusFailed, backupType, 0, m.now().Sub(start))
		return nil, fmt.Errorf("%s: no items collected", id)
	}

	encoded, ratio, err := encodePayload(doc, m.opts.CompressionEnabled, m.opts.CompressionLevel, m.encryptionKey())
	if err != nil {
		metrics.RecordBackup(model.BackupStatusFailed, backupType, 0, m.now().Sub(start))
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	locator := id + ".bak"
	if err := m.backend.Save(ctx, locator, encoded); err != nil {
		metrics.RecordBackup(model.BackupStatusFailed, backupType, 0, m.now().Sub(start))
		return nil, &drerrors.BackendError{Op: id, Backend: m.backend.Name(), Err: err}
	}

	record := model.Backup{
		ID:               id,
		Type:             backupType,
		Timestamp:        start,
		Status:           model.BackupStatusCompleted,
		Items:            collected,
		SizeBytes:        int64(len(encoded)),
		Duration:         m.now().Sub(start),
		Compressed:       m.opts.CompressionEnabled,
		CompressionRatio: ratio,
		Encrypted:        m.opts.EncryptionEnabled,
		StorageBackend:   m.backend.Name(),
		Locator:          locator,
		Checksums:        checksums,
		Metadata:         opts.Metadata,
	}

	m.mu.Lock()
	m.catalog = append(m.catalog, record)
	err = saveCatalog(m.opts.Root, m.catalog)
	if err != nil {
		// An unpersisted record must not linger in memory, and its payload
		// would be unreachable after a restart anyway.
		m.catalog = m.catalog[:len(m.catalog)-1]
	}
	m.mu.Unlock()
	if err != nil {
		if derr := m.backend.Delete(ctx, locator); derr != nil {
			logger.Warn().Err(derr).Str("locator", locator).Msg("failed to delete payload of unpersisted record")
		}
		metrics.RecordBackup(model.BackupStatusFailed, backupType, 0, m.now().Sub(start))
		return nil, &drerrors.BackendError{Op: id, Backend: m.backend.Name(), Err: err}
	}

	metrics.RecordBackup(model.BackupStatusCompleted, backupType, record.SizeBytes, record.Duration)
	logger.Info().Int64("size_bytes", record.SizeBytes).Dur("duration", record.Duration).Msg("backup completed")

	// Restore points are exempt from retention, so creating one never
	// triggers cleanup either.
	if !record.IsRestorePoint() {
		if _, err := m.CleanOldBackups(ctx); err != nil {
			logger.Warn().Err(err).Msg("retention cleanup failed")
		}
	}

	return &record, nil
}

type RestoreOptions struct {
	Items              []string
	SkipVerification   bool
	CreateRestorePoint bool
	ExecutionID        string
}

// RestoreBackup loads and decodes a backup payload, verifies item checksums
// against the catalog record, optionally snapshots current state as a
// restore point, and hands each requested item to its restorer.
func (m *Manager) RestoreBackup(ctx context.Context, id string, opts RestoreOptions) error {
	rec, err := m.GetBackup(id)
	if err != nil {
		return err
	}

	// Concurrent restores of the same locator are serialized.
	lock := m.restoreLock(rec.Locator)
	lock.Lock()
	defer lock.Unlock()

	logger := m.logger.With().Str("backup_id", id).Logger()
	logger.Info().Bool("skip_verification", opts.SkipVerification).Msg("restoring backup")

	doc, err := m.loadPayload(ctx, rec)
	if err != nil {
		return err
	}

	if !opts.SkipVerification {
		if err := m.verifyChecksums(rec, doc); err != nil {
			return err
		}
	}

	if opts.CreateRestorePoint {
		meta := map[string]string{}
		if opts.ExecutionID != "" {
			meta[model.MetadataKeyExecutionID] = opts.ExecutionID
		}
		rp, err := m.CreateBackup(ctx, CreateOptions{
			Type:            model.BackupTypeRestorePoint,
			ContinueOnError: true,
			Metadata:        meta,
		})
		if err != nil {
			return fmt.Errorf("%s: create restore point: %w", id, err)
		}
		logger.Info().Str("restore_point_id", rp.ID).Msg("restore point created")
	}

	items := opts.Items
	if len(items) == 0 {
		items = rec.Items
	}

	for _, name := range items {
		content, ok := doc.Items[name]
		if !ok {
			return fmt.Errorf("%s: item %q not present in backup", id, name)
		}
		restorer, ok := m.reg.Restorer(name)
		if !ok {
			return fmt.Errorf("%s: no restorer registered for item %q", id, name)
		}
		if err := restorer(ctx, content); err != nil {
			return fmt.Errorf("%s: restore item %q: %w", id, name, err)
		}
	}

	logger.Info().Strs("items", items).Msg("backup restored")
	return nil
}

// VerifyResult is the outcome of a non-mutating backup verification.
type VerifyResult struct {
	Valid  bool
	Reason string
}

// VerifyBackup loads, decodes and checksum-verifies a backup without
// restoring anything.
func (m *Manager) VerifyBackup(ctx context.Context, id string) (*VerifyResult, error) {
	rec, err := m.GetBackup(id)
	if err != nil {
		return nil, err
	}

	doc, err := m.loadPayload(ctx, rec)
	if err != nil {
		return &VerifyResult{Valid: false, Reason: err.Error()}, nil
	}

	if err := m.verifyChecksums(rec, doc); err != nil {
		return &VerifyResult{Valid: false, Reason: err.Error()}, nil
	}

	return &VerifyResult{Valid: true}, nil
}

// CleanOldBackups removes regular backups older than the retention window.
// The newest MaxBackups regular backups survive regardless of age, and
// restore points are never removed.
func (m *Manager) CleanOldBackups(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().AddDate(0, 0, -m.opts.RetentionDays)

	var regular []model.Backup
	for _, rec := range m.catalog {
		if !rec.IsRestorePoint() {
			regular = append(regular, rec)
		}
	}
	sort.Slice(regular, func(i, j int) bool {
		return regular[i].Timestamp.After(regular[j].Timestamp)
	})

	protected := make(map[string]bool, m.opts.MaxBackups)
	for i, rec := range regular {
		if i < m.opts.MaxBackups {
			protected[rec.ID] = true
		}
	}

	var kept []model.Backup
	removed := 0
	for _, rec := range m.catalog {
		if rec.IsRestorePoint() || protected[rec.ID] || !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
			continue
		}
		if err := m.backend.Delete(ctx, rec.Locator); err != nil {
			m.logger.Warn().Err(err).Str("backup_id", rec.ID).Msg("failed to delete expired payload, keeping record")
			kept = append(kept, rec)
			continue
		}
		m.logger.Info().Str("backup_id", rec.ID).Time("timestamp", rec.Timestamp).Msg("removed expired backup")
		removed++
	}

	if removed > 0 {
		m.catalog = kept
		if err := saveCatalog(m.opts.Root, m.catalog); err != nil {
			return removed, &drerrors.BackendError{Op: "clean", Backend: m.backend.Name(), Err: err}
		}
	}
	return removed, nil
}

// ListBackups returns a copy of the catalog, newest first.
func (m *Manager) ListBackups() []model.Backup {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Backup, len(m.catalog))
	copy(out, m.catalog)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// GetBackup looks up a catalog record by id.
func (m *Manager) GetBackup(id string) (*model.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.catalog {
		if m.catalog[i].ID == id {
			rec := m.catalog[i]
			return &rec, nil
		}
	}
	return nil, &drerrors.BackendError{Op: id, Backend: m.backend.Name(), Err: fmt.Errorf("backup %s not found in catalog", id)}
}

// FindRestorePoint returns the restore-point backup tagged with the given
// recovery execution id, if any.
func (m *Manager) FindRestorePoint(executionID string) (*model.Backup, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.catalog) - 1; i >= 0; i-- {
		rec := m.catalog[i]
		if rec.IsRestorePoint() && rec.Metadata[model.MetadataKeyExecutionID] == executionID {
			return &rec, true
		}
	}
	return nil, false
}

// DrillClone builds an isolated manager for recovery drills: its own root,
// its own local backend, its own catalog. Drill artifacts never touch the
// production catalog. A non-nil registry scopes the drill to test-only
// items; nil shares the production registry.
func (m *Manager) DrillClone(name string, reg *Registry) (*Manager, error) {
	root := filepath.Join(m.opts.Root, "drills", name)
	backend, err := storage.NewLocalBackend(filepath.Join(root, "payloads"))
	if err != nil {
		return nil, &drerrors.BackendError{Op: "drill-clone", Backend: "local", Err: err}
	}

	opts := m.opts
	opts.Root = root
	opts.Schedule = ""

	if reg == nil {
		reg = m.reg
	}
	clone := NewManager(m.baseLogger, opts, backend, reg)
	clone.key = m.key
	clone.now = m.now
	if err := clone.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return clone, nil
}

// Root returns the directory holding the catalog and related ledgers.
func (m *Manager) Root() string {
	return m.opts.Root
}

func (m *Manager) encryptionKey() []byte {
	if !m.opts.EncryptionEnabled {
		return nil
	}
	return m.key
}

// loadPayload loads and decodes a backup payload. Concurrent decodes of the
// same locator are coalesced.
func (m *Manager) loadPayload(ctx context.Context, rec *model.Backup) (*payloadDocument, error) {
	v, err, _ := m.decodes.Do(rec.Locator, func() (any, error) {
		data, err := m.backend.Load(ctx, rec.Locator)
		if err != nil {
			return nil, &drerrors.BackendError{Op: rec.ID, Backend: m.backend.Name(), Err: err}
		}
		doc, err := decodePayload(data, rec.Encrypted, rec.Compressed, m.encryptionKey())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rec.ID, err)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*payloadDocument), nil
}

func (m *Manager) verifyChecksums(rec *model.Backup, doc *payloadDocument) error {
	for name, content := range doc.Items {
		expected, ok := rec.Checksums[name]
		if !ok {
			return &drerrors.IntegrityError{Op: rec.ID, Item: name, Expected: "<missing>", Actual: checksum(content)}
		}
		if actual := checksum(content); actual != expected {
			return &drerrors.IntegrityError{Op: rec.ID, Item: name, Expected: expected, Actual: actual}
		}
	}
	return nil
}

func (m *Manager) restoreLock(locator string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock, ok := m.restoreLocks[locator]
	if !ok {
		lock = &sync.Mutex{}
		m.restoreLocks[locator] = lock
	}
	return lock
}
