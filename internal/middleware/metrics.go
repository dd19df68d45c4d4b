package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts failed Redis commands by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "postline_redis_errors_total",
	Help: "Total number of failed Redis commands",
}, []string{"command"})

var promInstance *fiberprometheus.FiberPrometheus

// InitMetrics returns the process-wide HTTP metrics collector for service.
// Collectors register once; later calls reuse the first instance.
func InitMetrics(service string) *fiberprometheus.FiberPrometheus {
	if promInstance == nil {
		promInstance = fiberprometheus.New(service)
	}
	return promInstance
}

// MetricsMiddleware records request count and latency, skipping the scrape endpoint itself.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return p.Middleware(c)
	}
}
