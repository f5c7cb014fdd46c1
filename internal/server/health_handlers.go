package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	checkHealthy   = "healthy"
	checkUnhealthy = "unhealthy"
	checkDisabled  = "disabled"
)

// LivenessCheck answers as long as the process serves requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now()})
}

// ReadinessCheck pings the database and, when configured, Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": s.pingDatabase(ctx),
		"redis":    s.pingRedis(ctx),
	}

	code, overall := fiber.StatusOK, checkHealthy
	for _, v := range checks {
		if v == checkUnhealthy {
			code, overall = fiber.StatusServiceUnavailable, checkUnhealthy
		}
	}
	return c.Status(code).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now(),
	})
}

func (s *Server) pingDatabase(ctx context.Context) string {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		return checkUnhealthy
	}
	return checkHealthy
}

// Redis is optional: without it events stay in-process.
func (s *Server) pingRedis(ctx context.Context) string {
	if s.redis == nil {
		return checkDisabled
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return checkUnhealthy
	}
	return checkHealthy
}
