package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/bubble-world/internal/app"
	"github.com/annel0/bubble-world/internal/config"
	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/observability"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $BW_CONFIG)")
	flag.Parse()

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	logging.SetLogDirectory(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger(); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	consoleLevel, err := logging.ParseLevel(cfg.Logging.ConsoleLevel)
	if err != nil {
		logging.Warn("%v", err)
	}
	fileLevel, err := logging.ParseLevel(cfg.Logging.FileLevel)
	if err != nil {
		logging.Warn("%v", err)
	}
	logger := logging.Default()
	logger.SetLevels(consoleLevel, fileLevel)

	logging.Info("🎮 Запуск сервера карт (регион %s)...", cfg.Sync.RegionID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		logging.Warn("⚠️  Телеметрия недоступна: %v", err)
	}

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	node, err := app.NewNode(ctx, app.NodeConfig{Config: cfg, Logger: logger})
	if err != nil {
		logging.Error("❌ Ошибка создания узла: %v", err)
		os.Exit(1)
	}

	if err := node.Start(ctx); err != nil {
		logging.Error("❌ Ошибка запуска узла: %v", err)
		os.Exit(1)
	}

	restPort := cfg.Server.GetRESTPort()
	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost:%d", restPort)
	logging.Info("   ❤️  Health check: http://localhost:%d/health", restPort)
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", restPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := node.ServeREST(); err != nil {
			return fmt.Errorf("REST API: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Ждем сигнала для завершения
		<-gctx.Done()
		logging.Info("📡 Завершение работы...")

		// === GRACEFUL SHUTDOWN ===
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return node.Stop(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logging.Error("❌ %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownTelemetry != nil {
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logging.Warn("Ошибка остановки телеметрии: %v", err)
		}
	}

	fmt.Println("👋 Сервер успешно остановлен")
}
