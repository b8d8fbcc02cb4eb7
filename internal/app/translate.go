package app

import (
	"fmt"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/model"
	"github.com/specialistvlad/flowgridgo/internal/resilience"
	"github.com/specialistvlad/flowgridgo/internal/schedule"
)

// buildAssets translates the decoded model assets into fully resolved
// runtime assets: operator bound through the registry, materialization tag
// parsed, durations parsed, resilience blocks mapped onto their configs.
func buildAssets(registry *asset.Registry, modelAssets []*model.Asset) ([]*asset.Asset, error) {
	out := make([]*asset.Asset, 0, len(modelAssets))
	for _, m := range modelAssets {
		a, err := buildAsset(registry, m)
		if err != nil {
			return nil, fmt.Errorf("asset %q: %w", m.Name, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func buildAsset(registry *asset.Registry, m *model.Asset) (*asset.Asset, error) {
	op, err := registry.NewOperator(m.Operator, m.Config)
	if err != nil {
		return nil, err
	}

	mat, err := asset.ParseMaterialization(m.Materialization)
	if err != nil {
		return nil, err
	}

	var timeout time.Duration
	if m.Timeout != "" {
		timeout, err = time.ParseDuration(m.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", m.Timeout, err)
		}
	}

	retry, err := translateRetry(m.Retry)
	if err != nil {
		return nil, err
	}
	breaker, err := translateBreaker(m.CircuitBreaker)
	if err != nil {
		return nil, err
	}

	a := &asset.Asset{
		Name:            m.Name,
		Operator:        op,
		DependsOn:       m.DependsOn,
		Materialization: mat,
		IOManager:       m.IOManager,
		Schema:          m.Schema,
		Timeout:         timeout,
		Retry:           retry,
		Breaker:         breaker,
	}
	return a, a.Validate()
}

// translateRetry maps a decoded retry block onto a retry config. Omitted
// fields inherit the default policy's values.
func translateRetry(m *model.Retry) (*resilience.RetryConfig, error) {
	if m == nil {
		return nil, nil
	}

	cfg := resilience.DefaultRetryConfig
	cfg.MaxAttempts = m.MaxAttempts

	var err error
	if m.Backoff != "" {
		if cfg.Backoff, err = resilience.ParseBackoffKind(m.Backoff); err != nil {
			return nil, err
		}
	}
	if m.BaseDelay != "" {
		if cfg.BaseDelay, err = time.ParseDuration(m.BaseDelay); err != nil {
			return nil, fmt.Errorf("invalid base_delay %q: %w", m.BaseDelay, err)
		}
	}
	if m.MaxDelay != "" {
		if cfg.MaxDelay, err = time.ParseDuration(m.MaxDelay); err != nil {
			return nil, fmt.Errorf("invalid max_delay %q: %w", m.MaxDelay, err)
		}
	}
	if m.Jitter != "" {
		if cfg.Jitter, err = resilience.ParseJitterKind(m.Jitter); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// translateBreaker maps a decoded circuit_breaker block onto a breaker
// config.
func translateBreaker(m *model.CircuitBreaker) (*resilience.BreakerConfig, error) {
	if m == nil {
		return nil, nil
	}
	cooldown, err := time.ParseDuration(m.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("invalid cooldown %q: %w", m.Cooldown, err)
	}
	return &resilience.BreakerConfig{
		FailureThreshold: m.FailureThreshold,
		Cooldown:         cooldown,
	}, nil
}

// translateSchedule parses a decoded schedule block into its trigger
// definition. A malformed (type, spec) pair fails here, at load time.
func translateSchedule(m *model.Schedule) (schedule.Definition, error) {
	kind, err := schedule.ParseKind(m.Type)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", m.Name, err)
	}
	def, err := schedule.ParseDefinition(kind, m.Spec)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", m.Name, err)
	}
	return def, nil
}
