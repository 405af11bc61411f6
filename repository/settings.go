package repository

import "context"

// Well-known settings keys consumed by the policy resolver.
const (
	SettingSlaHours      = "sla_hours"
	SettingSlaThresholds = "sla_thresholds"
)

// SettingsRepository is a plain key-value store for operator-tunable
// configuration. Get returns ("", nil) for missing keys; absence is an
// ordinary condition for the resolver, not an error.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
