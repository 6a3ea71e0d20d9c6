package main

import (
	"context"
	"dbconsole/internal/api"
	"dbconsole/internal/config"
	"dbconsole/internal/core"
	"dbconsole/internal/data"
	"dbconsole/internal/logger"
	"dbconsole/internal/service"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"
)

const envFile = ".env"

func main() {
	if isRunningAsService() {
		runAsService()
		return
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "reset-password":
			handleResetPassword(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		default:
			if serviceCommand(os.Args[1]) {
				return
			}
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	startServer(ctx)
}

func printHelp() {
	fmt.Println("dbconsole - MySQL administration console")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dbconsole                          Start the server")
	fmt.Println("  dbconsole reset-password -u <user> Reset user password (interactive)")
	fmt.Println("  dbconsole help                     Show this help")
	printServiceHelp()
}

func readPassword(prompt string) string {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // newline after hidden input
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		os.Exit(1)
	}
	return string(b)
}

func handleResetPassword(args []string) {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	username := fs.String("u", "", "Username to reset")
	_ = fs.Parse(args)

	if *username == "" {
		fmt.Println("Usage: dbconsole reset-password -u <username>")
		os.Exit(1)
	}

	password := readPassword("New password: ")
	if password != readPassword("Confirm password: ") {
		fmt.Println("Passwords do not match.")
		os.Exit(1)
	}
	if password == "" {
		fmt.Println("Password cannot be empty.")
		os.Exit(1)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := data.InitDB(cfg.DataPath)
	if err != nil {
		fmt.Printf("Failed to init database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	authSvc := service.NewAuthService(data.NewUserRepo(db), data.NewApiKeyRepo(db))
	if err := authSvc.ResetPassword(*username, password); err != nil {
		fmt.Printf("Failed to reset password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Password for user '%s' has been reset successfully.\n", *username)
}

// startServer serves until ctx is cancelled.
func startServer(ctx context.Context) {
	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Printf("Failed to load config: %v\nCheck .env file or DBCONSOLE_KEY environment variable.\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogDir); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info.Println("Starting dbconsole...")

	db, err := data.InitDB(cfg.DataPath)
	if err != nil {
		logger.Error.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	cryptoSvc, err := service.NewEncryptionService(cfg.Key)
	if err != nil {
		logger.Error.Fatalf("Failed to init crypto service: %v", err)
	}

	serverRepo := data.NewServerRepo(db)
	auditRepo := data.NewAuditRepo(db)
	authSvc := service.NewAuthService(data.NewUserRepo(db), data.NewApiKeyRepo(db))

	executor := service.NewQueryExecutor(auditRepo, cfg.QueryTimeout)
	bookmarks := service.NewBookmarkService(serverRepo, executor, func(q core.Querier) core.BookmarkRepository {
		return data.NewBookmarkRepo(q)
	})

	loginLimiter := api.NewRateLimiter(5, 3) // brute force protection
	apiLimiter := api.NewRateLimiter(120, 20)
	defer loginLimiter.Stop()
	defer apiLimiter.Stop()

	handler := api.NewHandler(
		api.NewAuthHandler(authSvc, cfg.Key, cfg.SecureCookie),
		api.NewAdminHandler(serverRepo, auditRepo, authSvc, cryptoSvc),
		api.NewConsoleHandler(executor, bookmarks, service.NewTableInspector()),
		service.NewSessionOpener(serverRepo, cryptoSvc, nil),
		service.NewDatabaseGuard(),
		loginLimiter,
		apiLimiter,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info.Printf("Server listening on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error.Printf("Server shutdown error: %v", err)
	}
	logger.Info.Println("Server stopped")
}
