package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	intconfig "dispatch/internal/config"
	intdb "dispatch/internal/db"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ok", "message": "dispatch service berjalan"})
}

func DBCheck(c *gin.Context) {
	db := intconfig.DB
	if db == nil {
		RespondError(c, http.StatusServiceUnavailable, "TransientStoreError", "database belum terhubung")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	missing, err := intdb.MissingTables(ctx, db)
	if err != nil {
		RespondError(c, http.StatusServiceUnavailable, "TransientStoreError", "gagal query ke database")
		return
	}
	if len(missing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "Internal", "message": "schema belum lengkap, jalankan migrate", "missing_tables": missing})
		return
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trips").Scan(&count); err != nil {
		RespondError(c, http.StatusServiceUnavailable, "TransientStoreError", "gagal query ke database")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "koneksi database OK", "driver": db.Dialect().Name(), "trips_in_db": count})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		RespondError(c, http.StatusServiceUnavailable, "Internal", "router belum siap")
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
