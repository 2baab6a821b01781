package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	appcart "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/cart"
	appinventory "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/inventory"
	apporder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/order"
	apppayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/payment"
	appwallet "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/wallet"
	dominventory "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/inventory"
	dommenu "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/menu"
	domwallet "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/wallet"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/id"
	inventoryworker "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/inventory/worker"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/memory"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/notify"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/observability/oteltrace"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/observability/prometrics"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/observability/telemetry"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/observability/zaplogger"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/outbox"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/provider"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/pkg/logging"
	httppresentation "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "canteen-core")
	env := getenvDefault("ENV", "dev")

	baseZap := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseZap.Sync() }()
	zap.ReplaceGlobals(baseZap)

	logger := zaplogger.Wrap(baseZap)

	registry := prometrics.New("canteen", "core")
	counters := map[string]observability.Counter{
		observability.MUsecaseRequests: registry.Counter(observability.MUsecaseRequests,
			"Total number of use case invocations.", "use_case", "outcome"),
		observability.MHTTPRequests: registry.Counter(observability.MHTTPRequests,
			"Total number of HTTP requests.", "method", "route", "status"),
	}
	histograms := map[string]observability.Histogram{
		observability.MUsecaseDuration: registry.Histogram(observability.MUsecaseDuration,
			"Duration of use case execution in seconds.", nil, "use_case"),
		observability.MHTTPRequestDuration: registry.Histogram(observability.MHTTPRequestDuration,
			"Duration of HTTP requests in seconds.", nil, "method", "route"),
	}
	tel := telemetry.New(oteltrace.New(serviceName), logger, counters, histograms)

	orderRepo := memory.NewOrderRepository()
	walletRepo := memory.NewWalletRepository()
	inventoryRepo := memory.NewInventoryRepository()
	menuRepo := memory.NewMenuRepository()
	idGenerator := id.NewUUIDGenerator()

	seed(menuRepo, inventoryRepo, walletRepo, logger)

	bus := outbox.NewBus(logger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	confirmDeadline := time.Duration(getenvInt("PAYMENT_CONFIRM_DEADLINE_SECONDS", 120)) * time.Second
	providerClient := provider.NewSimulatedClient(
		idGenerator,
		time.Duration(getenvInt("PROVIDER_CONFIRM_DELAY_MS", 1500))*time.Millisecond,
		getenvDefault("PROVIDER_AUTO_CONFIRM", "true") == "true",
		logger,
	)

	gateway := apppayment.NewGateway(walletRepo, providerClient, idGenerator,
		apppayment.ExternalOptions{ConfirmDeadline: confirmDeadline}, logger)

	orderService := apporder.NewService(orderRepo, walletRepo, gateway, idGenerator, bus, tel)
	providerClient.SetSink(orderService)

	cartService := appcart.NewService(menuRepo, logger)
	walletService := appwallet.NewService(walletRepo, idGenerator, logger)
	inventoryService := appinventory.NewService(inventoryRepo, orderRepo, bus, logger)

	inventoryworker.New(bus, inventoryService, logger).Start()
	notify.NewWorker(bus, notify.NewLogNotifier(logger)).Start()

	handler := httppresentation.NewHandler(cartService, orderService, walletService, inventoryService, menuRepo, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    getenvDefault("HTTP_ADDR", ":8080"),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		logger.Info("http_server_stopped")
	}
}

// seed loads the demo catalog, stock and wallets so a fresh process is
// immediately usable.
func seed(
	menuRepo dommenu.Repository,
	inventoryRepo dominventory.Repository,
	walletRepo domwallet.Repository,
	logger observability.Logger,
) {
	ctx := context.Background()

	menuItems := []struct {
		id, name, category string
		price              int64
		stock, threshold   int
	}{
		{"1", "Veg Thali", "Main Course", 80, 50, 10},
		{"2", "Chicken Biryani", "Main Course", 120, 40, 8},
		{"3", "Masala Dosa", "South Indian", 60, 60, 10},
		{"4", "Fresh Lime Soda", "Beverages", 25, 100, 20},
	}
	for _, m := range menuItems {
		item, err := dommenu.NewItem(m.id, m.name, m.price, m.category)
		if err != nil {
			logger.Error("seed_menu_failed", observability.F("error", err.Error()))
			continue
		}
		_ = menuRepo.Save(ctx, item)

		stock, err := dominventory.NewItem(m.id, m.stock, m.threshold)
		if err != nil {
			logger.Error("seed_inventory_failed", observability.F("error", err.Error()))
			continue
		}
		_ = inventoryRepo.Save(ctx, stock)
	}

	wallets := []struct {
		owner   string
		balance int64
	}{
		{"john@university.edu", 250},
		{"jane@university.edu", 180},
		{"sarah@university.edu", 50},
	}
	for _, w := range wallets {
		account, err := domwallet.NewAccount(w.owner, w.balance)
		if err != nil {
			logger.Error("seed_wallet_failed", observability.F("error", err.Error()))
			continue
		}
		_ = walletRepo.Create(ctx, account)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
