package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/localnerve/layersdb/internal/catalog"
	"github.com/localnerve/layersdb/internal/config"
	"github.com/localnerve/layersdb/internal/utils"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Authorizer   string            `json:"authorizer"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

func (r *HealthCheckResult) fail(component, message string, err error) {
	r.Status = "unhealthy"
	r.Details[component+"_error"] = err.Error()
	msg := fmt.Sprintf("%s: %v", message, err)
	if r.ErrorMessage == "" {
		r.ErrorMessage = msg
	} else {
		r.ErrorMessage += "; " + msg
	}
	log.Warn().Err(err).Str("component", component).Msg("health check failed")
}

// HealthCheck checks the database, the catalog tables and, when configured,
// the Authorizer.
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	var pingErr error
	if err == nil {
		pingErr = sqlDB.PingContext(ctx)
	}
	switch {
	case err != nil:
		result.Database = "error"
		result.fail("database", "Database connection error", err)
	case pingErr != nil:
		result.Database = "unreachable"
		result.fail("database", "Database ping failed", pingErr)
	default:
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase

		var missing []string
		for _, m := range catalog.Models {
			if !db.WithContext(ctx).Migrator().HasTable(m) {
				missing = append(missing, fmt.Sprintf("%T", m))
			}
		}
		if len(missing) > 0 {
			result.Database = "unmigrated"
			result.fail("catalog", "Catalog tables missing", errors.New(strings.Join(missing, ", ")))
		}
	}

	// Check Authorizer connectivity
	if cfg.AuthzURL == "" {
		result.Authorizer = "disabled"
	} else if err := utils.PingAuthorizer(ctx, cfg.AuthzURL); err != nil {
		result.Authorizer = "unreachable"
		result.fail("authorizer", "Authorizer ping failed", err)
	} else {
		result.Authorizer = "ok"
		result.Details["authorizer_url"] = cfg.AuthzURL
	}

	if result.Status == "healthy" {
		log.Debug().Msg("health check passed")
	}
	return result
}
