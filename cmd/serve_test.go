package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRunServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := appConfig{Addr: "127.0.0.1:0", FetchTimeout: time.Second, CORSOrigin: "*"}
	assert.NoError(t, runServe(ctx, cfg, zap.NewNop()))
}

func TestRunServe_BadTargetsFile(t *testing.T) {
	cfg := appConfig{Addr: "127.0.0.1:0", FetchTimeout: time.Second, TargetsFile: "/does/not/exist.yaml"}
	assert.ErrorContains(t, runServe(context.Background(), cfg, zap.NewNop()), "read file")
}

func TestRunServe_GinAlwaysInReleaseMode(t *testing.T) {
	prev := gin.Mode()
	gin.SetMode(gin.DebugMode)
	t.Cleanup(func() { gin.SetMode(prev) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := appConfig{Addr: "127.0.0.1:0", FetchTimeout: time.Second, CORSOrigin: "*", Verbose: true}
	assert.NoError(t, runServe(ctx, cfg, zap.NewNop()))
	assert.Equal(t, gin.ReleaseMode, gin.Mode())
}
