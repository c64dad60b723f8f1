package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ConfigValidator struct {
	validate *validator.Validate
}

// NewValidator builds a fresh validator instance.
func NewValidator() *ConfigValidator {
	return &ConfigValidator{
		validate: validator.New(),
	}
}

// Validate runs structural checks (struct tags) followed by semantic ones
// (rules that span fields).
func (cv *ConfigValidator) Validate(cfg *ServiceConfig) error {
	if err := cv.validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMsgs []string
			for _, e := range validationErrors {
				errMsgs = append(errMsgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Field(), e.Tag()))
			}
			return fmt.Errorf("structural validation errors:\n- %s", strings.Join(errMsgs, "\n- "))
		}
		return fmt.Errorf("structural validation error: %w", err)
	}

	if err := cv.validateSemantics(cfg); err != nil {
		return fmt.Errorf("semantic validation error: %w", err)
	}
	return nil
}

func (cv *ConfigValidator) validateSemantics(cfg *ServiceConfig) error {
	// The partition and sort field address different halves of the key;
	// pointing both at one attribute breaks every lookup.
	if cfg.Table.PartitionField != "" && cfg.Table.PartitionField == cfg.Table.SortField {
		return fmt.Errorf("table: partition_field and sort_field are both '%s'", cfg.Table.PartitionField)
	}

	// The in-memory backend and an endpoint override are two different
	// local setups; asking for both means the intent is unclear.
	if cfg.Table.Memory && cfg.Table.Endpoint != "" {
		return fmt.Errorf("table: memory and endpoint cannot be combined")
	}

	if cfg.Table.SeedFile != "" && !cfg.Table.Memory {
		return fmt.Errorf("table: seed_file requires memory: true")
	}

	// The poller only runs inside the local runtime. Lambda deployments
	// receive queue messages through the event source mapping instead.
	if cfg.Ingest != nil && cfg.Service.Runtime != "local" {
		return fmt.Errorf("ingest: queue polling requires the local runtime, got '%s'", cfg.Service.Runtime)
	}

	return nil
}
