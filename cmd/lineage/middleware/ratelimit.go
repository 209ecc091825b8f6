package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/common/config"
	"github.com/qefaraki/lineage/common/ratelimit"
)

type checkFn func(ctx context.Context, actorID string, limit int64) (*ratelimit.Result, error)

// LimitWrites applies the per-actor fixed-window write limit to
// mutating requests. Read methods pass through untouched. A Redis
// failure fails open: losing the limiter must not take writes down
// with it.
func LimitWrites(limiter *ratelimit.Limiter, cfg config.RateLimitConfig) echo.MiddlewareFunc {
	var check checkFn
	if limiter != nil {
		check = limiter.CheckActorWrites
	}
	return limit(check, cfg.Enabled, cfg.WritesPerMin)
}

// LimitSuggestions applies the tighter per-actor suggestion-creation limit.
func LimitSuggestions(limiter *ratelimit.Limiter, cfg config.RateLimitConfig) echo.MiddlewareFunc {
	var check checkFn
	if limiter != nil {
		check = limiter.CheckActorSuggestions
	}
	return limit(check, cfg.Enabled, cfg.SuggestPerMin)
}

func limit(check checkFn, enabled bool, perMin int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if check == nil || !enabled {
				return next(c)
			}
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			actorID := GetActorID(c)
			if actorID == uuid.Nil {
				return next(c)
			}
			res, err := check(c.Request().Context(), actorID.String(), perMin)
			if err != nil {
				return next(c)
			}
			if !res.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(res.RetryAfterSeconds, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "rate limit exceeded",
					"limit":       res.Limit,
					"retry_after": res.RetryAfterSeconds,
				})
			}
			return next(c)
		}
	}
}
