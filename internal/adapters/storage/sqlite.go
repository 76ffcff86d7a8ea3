package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/ports"
)

const (
	busyRetries = 5
	busyBackoff = 20 * time.Millisecond
)

// SQLiteAdapter implements ports.Storage using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// NewSQLiteAdapter initializes the database, migrates the schema and seeds
// the builtin rules.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&DeviceModel{}, &PortModel{}, &LatencyModel{},
		&AlertModel{}, &BuiltinRuleModel{}, &CustomRuleModel{},
		&ScanModel{}, &SettingModel{},
	); err != nil {
		return nil, err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_devices_last_seen ON device_models(last_seen)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alert_models(created_at)")

	a := &SQLiteAdapter{db: db}
	if err := a.seedBuiltinRules(); err != nil {
		return nil, err
	}
	return a, nil
}

// seedBuiltinRules inserts the four fixed rules on first run. Existing rows,
// including user edits to severity or the enabled flag, are left untouched.
func (a *SQLiteAdapter) seedBuiltinRules() error {
	seeds := []BuiltinRuleModel{
		{RuleType: string(domain.RuleNewDevice), IsEnabled: true, Severity: string(domain.SeverityInfo), NotifyDesktop: true},
		{RuleType: string(domain.RuleDeviceDeparted), IsEnabled: true, Severity: string(domain.SeverityInfo), NotifyDesktop: false},
		{RuleType: string(domain.RulePortChanged), IsEnabled: true, Severity: string(domain.SeverityWarning), NotifyDesktop: true},
		{RuleType: string(domain.RuleUntrustedDevice), IsEnabled: true, Severity: string(domain.SeverityWarning), NotifyDesktop: true},
	}
	for _, seed := range seeds {
		var existing BuiltinRuleModel
		err := a.db.Where("rule_type = ?", seed.RuleType).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		seed.ID = uuid.NewString()
		if err := a.db.Create(&seed).Error; err != nil {
			return err
		}
	}
	return nil
}

// withBusyRetry retries fn a bounded number of times when SQLite reports the
// database is busy or locked, backing off between attempts. Any other error
// fails immediately.
func withBusyRetry(ctx context.Context, fn func() error) error {
	var err error
	backoff := busyBackoff
	for attempt := 0; attempt < busyRetries; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return err
		}
		backoff *= 2
	}
	return err
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// --- DeviceStore ---

// UpsertDevice writes a device snapshot. Identity is resolved by MAC first so
// an IP change never creates a second row; the port list is replaced
// wholesale when the snapshot carries one.
func (a *SQLiteAdapter) UpsertDevice(ctx context.Context, d domain.Device) (domain.Device, error) {
	model := toDeviceModel(d)

	err := withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing DeviceModel
			var lookupErr error
			if d.MAC != "" {
				lookupErr = tx.Where("mac = ?", d.MAC).First(&existing).Error
			} else {
				lookupErr = tx.Where("id = ?", d.ID).First(&existing).Error
			}
			switch {
			case lookupErr == nil:
				model.ID = existing.ID
				if model.FirstSeen.IsZero() {
					model.FirstSeen = existing.FirstSeen
				}
			case errors.Is(lookupErr, gorm.ErrRecordNotFound):
				if model.ID == "" {
					model.ID = uuid.NewString()
				}
			default:
				return lookupErr
			}

			if err := tx.Save(&model).Error; err != nil {
				return err
			}

			if err := tx.Where("device_id = ?", model.ID).Delete(&PortModel{}).Error; err != nil {
				return err
			}
			if len(d.OpenPorts) > 0 {
				if err := tx.Create(toPortModels(model.ID, d.OpenPorts)).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return domain.Device{}, domain.PersistenceError("upsert device", err)
	}

	stored, err := a.GetDevice(ctx, model.ID)
	if err != nil {
		return domain.Device{}, err
	}
	return *stored, nil
}

func (a *SQLiteAdapter) GetDevice(ctx context.Context, id string) (*domain.Device, error) {
	var model DeviceModel
	err := a.db.WithContext(ctx).Preload("OpenPorts").First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError("device", id)
	}
	if err != nil {
		return nil, domain.PersistenceError("get device", err)
	}
	return toDeviceDomain(model), nil
}

func (a *SQLiteAdapter) GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error) {
	var model DeviceModel
	err := a.db.WithContext(ctx).Preload("OpenPorts").First(&model, "mac = ?", mac).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError("device", mac)
	}
	if err != nil {
		return nil, domain.PersistenceError("get device by mac", err)
	}
	return toDeviceDomain(model), nil
}

func (a *SQLiteAdapter) ListDevices(ctx context.Context) ([]domain.Device, error) {
	var models []DeviceModel
	if err := a.db.WithContext(ctx).Preload("OpenPorts").Order("last_seen DESC").Find(&models).Error; err != nil {
		return nil, domain.PersistenceError("list devices", err)
	}
	devices := make([]domain.Device, len(models))
	for i, m := range models {
		devices[i] = *toDeviceDomain(m)
	}
	return devices, nil
}

func (a *SQLiteAdapter) DeleteDevice(ctx context.Context, id string) error {
	err := withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Delete(&DeviceModel{}, "id = ?", id)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			if err := tx.Where("device_id = ?", id).Delete(&PortModel{}).Error; err != nil {
				return err
			}
			return tx.Where("device_id = ?", id).Delete(&LatencyModel{}).Error
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundError("device", id)
	}
	if err != nil {
		return domain.PersistenceError("delete device", err)
	}
	return nil
}

func (a *SQLiteAdapter) RecordLatency(ctx context.Context, deviceID string, latencyMs float64) error {
	sample := LatencyModel{DeviceID: deviceID, LatencyMs: latencyMs, MeasuredAt: time.Now().UTC()}
	err := withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Create(&sample).Error
	})
	if err != nil {
		return domain.PersistenceError("record latency", err)
	}
	return nil
}

func (a *SQLiteAdapter) LatencyHistory(ctx context.Context, deviceID string, window time.Duration) ([]domain.LatencyPoint, error) {
	since := time.Now().UTC().Add(-window)
	var models []LatencyModel
	err := a.db.WithContext(ctx).
		Where("device_id = ? AND measured_at >= ?", deviceID, since).
		Order("measured_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, domain.PersistenceError("latency history", err)
	}
	points := make([]domain.LatencyPoint, len(models))
	for i, m := range models {
		points[i] = domain.LatencyPoint{LatencyMs: m.LatencyMs, MeasuredAt: m.MeasuredAt}
	}
	return points, nil
}

// --- AlertStore ---

func (a *SQLiteAdapter) RecordAlert(ctx context.Context, alert domain.Alert) error {
	model := toAlertModel(alert)
	err := withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Create(&model).Error
	})
	if err != nil {
		return domain.PersistenceError("record alert", err)
	}
	return nil
}

func (a *SQLiteAdapter) ListAlerts(ctx context.Context, unreadOnly bool) ([]domain.Alert, error) {
	query := a.db.WithContext(ctx).Order("created_at DESC")
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var models []AlertModel
	if err := query.Find(&models).Error; err != nil {
		return nil, domain.PersistenceError("list alerts", err)
	}
	alerts := make([]domain.Alert, len(models))
	for i, m := range models {
		alerts[i] = toAlertDomain(m)
	}
	return alerts, nil
}

func (a *SQLiteAdapter) MarkAlertRead(ctx context.Context, id string) error {
	res := a.db.WithContext(ctx).Model(&AlertModel{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return domain.PersistenceError("mark alert read", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError("alert", id)
	}
	return nil
}

func (a *SQLiteAdapter) MarkAllAlertsRead(ctx context.Context) error {
	err := a.db.WithContext(ctx).Model(&AlertModel{}).Where("is_read = ?", false).Update("is_read", true).Error
	if err != nil {
		return domain.PersistenceError("mark all alerts read", err)
	}
	return nil
}

// --- RuleStore ---

func (a *SQLiteAdapter) CreateRule(ctx context.Context, r domain.CustomAlertRule) (domain.CustomAlertRule, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	model, err := toCustomRuleModel(r)
	if err != nil {
		return domain.CustomAlertRule{}, domain.ValidationError("conditions are not serializable")
	}
	err = withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Create(&model).Error
	})
	if err != nil {
		return domain.CustomAlertRule{}, domain.PersistenceError("create rule", err)
	}
	return r, nil
}

func (a *SQLiteAdapter) GetRule(ctx context.Context, id string) (*domain.CustomAlertRule, error) {
	var model CustomRuleModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError("rule", id)
	}
	if err != nil {
		return nil, domain.PersistenceError("get rule", err)
	}
	rule, err := toCustomRuleDomain(model)
	if err != nil {
		return nil, domain.PersistenceError("decode rule conditions", err)
	}
	return &rule, nil
}

func (a *SQLiteAdapter) ListRules(ctx context.Context, enabledOnly bool) ([]domain.CustomAlertRule, error) {
	query := a.db.WithContext(ctx).Order("created_at ASC")
	if enabledOnly {
		query = query.Where("is_enabled = ?", true)
	}
	var models []CustomRuleModel
	if err := query.Find(&models).Error; err != nil {
		return nil, domain.PersistenceError("list rules", err)
	}
	rules := make([]domain.CustomAlertRule, 0, len(models))
	for _, m := range models {
		rule, err := toCustomRuleDomain(m)
		if err != nil {
			return nil, domain.PersistenceError("decode rule conditions", err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// UpdateRule applies a partial update atomically: the row is re-read inside
// the transaction, patched and written back.
func (a *SQLiteAdapter) UpdateRule(ctx context.Context, id string, upd domain.CustomRuleUpdate) (domain.CustomAlertRule, error) {
	var updated domain.CustomAlertRule
	err := withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var model CustomRuleModel
			if err := tx.First(&model, "id = ?", id).Error; err != nil {
				return err
			}
			rule, err := toCustomRuleDomain(model)
			if err != nil {
				return err
			}

			if upd.Name != nil {
				rule.Name = *upd.Name
			}
			if upd.Description != nil {
				rule.Description = *upd.Description
			}
			if upd.IsEnabled != nil {
				rule.IsEnabled = *upd.IsEnabled
			}
			if upd.Conditions != nil {
				rule.Conditions = *upd.Conditions
			}
			if upd.Severity != nil {
				rule.Severity = *upd.Severity
			}
			if upd.NotifyDesktop != nil {
				rule.NotifyDesktop = *upd.NotifyDesktop
			}
			if upd.WebhookURL != nil {
				rule.WebhookURL = *upd.WebhookURL
			}
			rule.UpdatedAt = time.Now().UTC()

			next, err := toCustomRuleModel(rule)
			if err != nil {
				return err
			}
			if err := tx.Save(&next).Error; err != nil {
				return err
			}
			updated = rule
			return nil
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.CustomAlertRule{}, domain.NotFoundError("rule", id)
	}
	if err != nil {
		return domain.CustomAlertRule{}, domain.PersistenceError("update rule", err)
	}
	return updated, nil
}

func (a *SQLiteAdapter) DeleteRule(ctx context.Context, id string) error {
	res := a.db.WithContext(ctx).Delete(&CustomRuleModel{}, "id = ?", id)
	if res.Error != nil {
		return domain.PersistenceError("delete rule", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError("rule", id)
	}
	return nil
}

func (a *SQLiteAdapter) ListBuiltinRules(ctx context.Context, enabledOnly bool) ([]domain.BuiltinRule, error) {
	query := a.db.WithContext(ctx).Order("rule_type ASC")
	if enabledOnly {
		query = query.Where("is_enabled = ?", true)
	}
	var models []BuiltinRuleModel
	if err := query.Find(&models).Error; err != nil {
		return nil, domain.PersistenceError("list builtin rules", err)
	}
	rules := make([]domain.BuiltinRule, len(models))
	for i, m := range models {
		rules[i] = toBuiltinDomain(m)
	}
	return rules, nil
}

func (a *SQLiteAdapter) UpdateBuiltinRule(ctx context.Context, id string, upd domain.BuiltinRuleUpdate) (domain.BuiltinRule, error) {
	var updated domain.BuiltinRule
	err := withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var model BuiltinRuleModel
			if err := tx.First(&model, "id = ?", id).Error; err != nil {
				return err
			}
			if upd.IsEnabled != nil {
				model.IsEnabled = *upd.IsEnabled
			}
			if upd.Severity != nil {
				model.Severity = string(*upd.Severity)
			}
			if upd.NotifyDesktop != nil {
				model.NotifyDesktop = *upd.NotifyDesktop
			}
			if err := tx.Save(&model).Error; err != nil {
				return err
			}
			updated = toBuiltinDomain(model)
			return nil
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.BuiltinRule{}, domain.NotFoundError("builtin rule", id)
	}
	if err != nil {
		return domain.BuiltinRule{}, domain.PersistenceError("update builtin rule", err)
	}
	return updated, nil
}

// --- ScanStore ---

func (a *SQLiteAdapter) CreateScan(ctx context.Context, s domain.Scan) error {
	model := toScanModel(s)
	err := withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Create(&model).Error
	})
	if err != nil {
		return domain.PersistenceError("create scan", err)
	}
	return nil
}

func (a *SQLiteAdapter) UpdateScan(ctx context.Context, s domain.Scan) error {
	model := toScanModel(s)
	err := withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Save(&model).Error
	})
	if err != nil {
		return domain.PersistenceError("update scan", err)
	}
	return nil
}

func (a *SQLiteAdapter) ListScans(ctx context.Context, limit int) ([]domain.Scan, error) {
	query := a.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []ScanModel
	if err := query.Find(&models).Error; err != nil {
		return nil, domain.PersistenceError("list scans", err)
	}
	scans := make([]domain.Scan, len(models))
	for i, m := range models {
		scans[i] = toScanDomain(m)
	}
	return scans, nil
}

// --- SettingsStore ---

const (
	settingInterface    = "default_interface_id"
	settingScanInterval = "scan_interval_secs"
	settingPortRange    = "port_range"
)

// GetSettings reads the settings bag; missing keys fall back to defaults so a
// fresh database behaves sensibly without a seed step.
func (a *SQLiteAdapter) GetSettings(ctx context.Context) (domain.Settings, error) {
	var rows []SettingModel
	if err := a.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return domain.Settings{}, domain.PersistenceError("get settings", err)
	}

	settings := domain.DefaultSettings()
	for _, row := range rows {
		switch row.Key {
		case settingInterface:
			settings.DefaultInterfaceID = row.Value
		case settingScanInterval:
			if secs, err := strconv.Atoi(row.Value); err == nil && secs > 0 {
				settings.ScanIntervalSecs = secs
			}
		case settingPortRange:
			if row.Value != "" {
				settings.PortRange = row.Value
			}
		}
	}
	return settings, nil
}

func (a *SQLiteAdapter) UpdateSettings(ctx context.Context, s domain.Settings) error {
	rows := []SettingModel{
		{Key: settingInterface, Value: s.DefaultInterfaceID},
		{Key: settingScanInterval, Value: strconv.Itoa(s.ScanIntervalSecs)},
		{Key: settingPortRange, Value: s.PortRange},
	}
	err := withBusyRetry(ctx, func() error {
		return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, row := range rows {
				if err := tx.Save(&row).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return domain.PersistenceError("update settings", err)
	}
	return nil
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.Storage = (*SQLiteAdapter)(nil)
