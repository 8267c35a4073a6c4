package hxrt

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewInspectRouter builds the HTTP routes that expose a runtime's threads and
// metrics:
//
//	GET /health       liveness and uptime
//	GET /threads      every live thread
//	GET /threads/:id  one thread, 404 once it has exited
//	GET /metrics      Prometheus exposition of the runtime registry
func NewInspectRouter(rt *Runtime) *gin.Engine {
	startedAt := time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(rt.logger))
	if origins := rt.config.Inspect.CorsOrigins; len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).String(),
			"threads": rt.ThreadCount(),
		})
	})

	r.GET("/threads", func(c *gin.Context) {
		c.JSON(http.StatusOK, rt.Threads())
	})

	r.GET("/threads/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "thread id must be an integer"})
			return
		}
		t, ok := rt.Thread(ThreadID(id))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": ThreadNotAlive.String()})
			return
		}
		c.JSON(http.StatusOK, t.Info())
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rt.metrics.Registry, promhttp.HandlerOpts{})))

	return r
}

func requestLogger(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		level := LevelDebug
		if status >= 500 {
			level = LevelError
		} else if status >= 400 {
			level = LevelWarn
		}
		logger.Log(level, CatInspect, c.Request.Method+" "+path+" "+strconv.Itoa(status)+" "+time.Since(start).String())
	}
}
