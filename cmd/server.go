/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/api"
	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
	"github.com/awdoty/GlucoseUploader-sub002/internal/container"
	"github.com/awdoty/GlucoseUploader-sub002/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Glucose Uploader API server.
The server will listen on the configured host and port,
and provide REST API interfaces for CSV import, reading queries,
permission management and sync control.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// 配置热加载:变更时动态调整日志级别
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath)
			watcher.OnConfigChange(func(newCfg *config.Config) {
				if level, err := logrus.ParseLevel(newCfg.Log.Level); err == nil {
					logger.SetLevel(level)
				}
				logger.WithField("log_level", newCfg.Log.Level).Info("config reloaded")
			})
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("failed to start config watcher")
			} else {
				defer watcher.Stop()
			}
		}

		// 2. 初始化容器
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 3. 启动后台组件
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go ctr.Hub().Run()

		if err := ctr.SyncScheduler().Start(ctx); err != nil {
			return fmt.Errorf("failed to start sync scheduler: %w", err)
		}

		if ctr.Watcher() != nil {
			if err := ctr.Watcher().Start(ctx); err != nil {
				return fmt.Errorf("failed to start import watcher: %w", err)
			}
		}

		collector := metrics.NewCollector(ctr.DB(), 30*time.Second)
		collector.Start()
		defer collector.Stop()

		// 4. 设置路由
		router := api.SetupRoutes(cfg, ctr.DB(), ctr.HealthStore(), ctr.Gate(), api.Controllers{
			Import:  api.NewImportController(ctr.ImportService(), ctr.ImportBatchRepository()),
			Reading: api.NewReadingController(ctr.ReadingRepository()),
			Sync:    api.NewSyncController(ctr.UploadService(), ctr.UploadLogRepository()),
		}, ctr.Hub(), ctr.TokenValidator())

		// 自定义 NoRoute 处理器,返回 JSON 格式的 404
		router.NoRoute(func(c *gin.Context) {
			api.Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
		})

		// 5. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		// 启动服务器（在 goroutine 中）
		go func() {
			log.Printf("Server starting on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		// 优雅关闭
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		log.Println("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
