package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const remindersEnabledKey = "reminders_enabled"

// CustomerReminderSettings controls how the reminder scheduler treats one customer.
type CustomerReminderSettings struct {
	CustomerExternalID string    `json:"customer_external_id"`
	Enabled            bool      `json:"enabled"`
	DaysBeforeDue      int       `json:"days_before_due"`
	DaysAfterDue       int       `json:"days_after_due"`
	MaxReminders       int       `json:"max_reminders"`
	CCAgent            bool      `json:"cc_agent"`
	CustomMessage      string    `json:"custom_message"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SettingsService is the injected configuration accessor for the reminder
// subsystem: a keyed global toggle plus per-customer settings. There is no
// process-wide mutable state; everything reads and writes the settings tables.
type SettingsService interface {
	RemindersEnabled(ctx context.Context) (bool, error)
	SetRemindersEnabled(ctx context.Context, enabled bool) error
	GetCustomerReminderSettings(ctx context.Context, customerExternalID string) (*CustomerReminderSettings, error)
	UpsertCustomerReminderSettings(ctx context.Context, s CustomerReminderSettings) (*CustomerReminderSettings, error)
}

type settingsService struct {
	pool *pgxpool.Pool
}

func NewSettingsService(pool *pgxpool.Pool) SettingsService {
	return &settingsService{pool: pool}
}

// RemindersEnabled defaults to true when the key has never been written.
func (s *settingsService) RemindersEnabled(ctx context.Context) (bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		"SELECT value FROM app_settings WHERE key = $1", remindersEnabledKey,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("read %s setting: %w", remindersEnabledKey, err)
	}
	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		return false, fmt.Errorf("decode %s setting: %w", remindersEnabledKey, err)
	}
	return enabled, nil
}

func (s *settingsService) SetRemindersEnabled(ctx context.Context, enabled bool) error {
	value, _ := json.Marshal(enabled)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, remindersEnabledKey, value)
	if err != nil {
		return fmt.Errorf("write %s setting: %w", remindersEnabledKey, err)
	}
	return nil
}

// GetCustomerReminderSettings returns stored settings, or the defaults when the
// customer has never been configured.
func (s *settingsService) GetCustomerReminderSettings(ctx context.Context, customerExternalID string) (*CustomerReminderSettings, error) {
	var crs CustomerReminderSettings
	err := s.pool.QueryRow(ctx, `
		SELECT customer_external_id, enabled, days_before_due, days_after_due,
		       max_reminders, cc_agent, custom_message, updated_at
		FROM customer_reminder_settings
		WHERE customer_external_id = $1
	`, customerExternalID).Scan(
		&crs.CustomerExternalID, &crs.Enabled, &crs.DaysBeforeDue, &crs.DaysAfterDue,
		&crs.MaxReminders, &crs.CCAgent, &crs.CustomMessage, &crs.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &CustomerReminderSettings{
				CustomerExternalID: customerExternalID,
				Enabled:            true,
				DaysBeforeDue:      3,
				DaysAfterDue:       7,
				MaxReminders:       3,
			}, nil
		}
		return nil, fmt.Errorf("read reminder settings for %s: %w", customerExternalID, err)
	}
	return &crs, nil
}

func (s *settingsService) UpsertCustomerReminderSettings(ctx context.Context, in CustomerReminderSettings) (*CustomerReminderSettings, error) {
	var crs CustomerReminderSettings
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customer_reminder_settings
			(customer_external_id, enabled, days_before_due, days_after_due, max_reminders, cc_agent, custom_message, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (customer_external_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			days_before_due = EXCLUDED.days_before_due,
			days_after_due = EXCLUDED.days_after_due,
			max_reminders = EXCLUDED.max_reminders,
			cc_agent = EXCLUDED.cc_agent,
			custom_message = EXCLUDED.custom_message,
			updated_at = NOW()
		RETURNING customer_external_id, enabled, days_before_due, days_after_due,
		          max_reminders, cc_agent, custom_message, updated_at
	`, in.CustomerExternalID, in.Enabled, in.DaysBeforeDue, in.DaysAfterDue,
		in.MaxReminders, in.CCAgent, in.CustomMessage,
	).Scan(
		&crs.CustomerExternalID, &crs.Enabled, &crs.DaysBeforeDue, &crs.DaysAfterDue,
		&crs.MaxReminders, &crs.CCAgent, &crs.CustomMessage, &crs.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert reminder settings for %s: %w", in.CustomerExternalID, err)
	}
	return &crs, nil
}
