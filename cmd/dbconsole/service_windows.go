//go:build windows

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	serviceName        = "dbconsole"
	serviceDisplayName = "dbconsole MySQL Console"
	serviceDescription = "Web administration console for MySQL servers"
)

type consoleService struct{}

// Execute is called by the Windows Service Control Manager.
func (consoleService) Execute(args []string, changeReq <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown
	status <- svc.Status{State: svc.StartPending}

	// .env and the SQLite store are resolved relative to the executable
	if exePath, err := os.Executable(); err == nil {
		_ = os.Chdir(filepath.Dir(exePath))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		startServer(ctx)
	}()

	status <- svc.Status{State: svc.Running, Accepts: accepted}

	for {
		select {
		case <-done:
			cancel()
			return false, 1
		case c := <-changeReq:
			switch c.Cmd {
			case svc.Interrogate:
				status <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				status <- svc.Status{State: svc.StopPending}
				cancel()
				select {
				case <-done:
				case <-time.After(10 * time.Second):
				}
				return false, 0
			}
		}
	}
}

func isRunningAsService() bool {
	isService, err := svc.IsWindowsService()
	return err == nil && isService
}

func runAsService() {
	if err := svc.Run(serviceName, consoleService{}); err != nil {
		fmt.Printf("Failed to run as service: %v\n", err)
		os.Exit(1)
	}
}

func printServiceHelp() {
	fmt.Println("  dbconsole install                  Install as Windows service")
	fmt.Println("  dbconsole uninstall                Remove the Windows service")
	fmt.Println("  dbconsole start | stop             Start or stop the Windows service")
}

// serviceCommand runs a service management subcommand and reports whether
// name was one.
func serviceCommand(name string) bool {
	var err error
	switch name {
	case "install":
		err = installService()
	case "uninstall":
		err = withService(func(s *mgr.Service) error { return s.Delete() })
	case "start":
		err = withService(func(s *mgr.Service) error { return s.Start() })
	case "stop":
		err = withService(func(s *mgr.Service) error {
			_, err := s.Control(svc.Stop)
			return err
		})
	default:
		return false
	}

	if err != nil {
		fmt.Printf("%s failed: %v\n", name, err)
		os.Exit(1)
	}
	fmt.Printf("Service '%s': %s done.\n", serviceName, name)
	return true
}

func installService() error {
	exePath, err := os.Executable()
	if err != nil {
		return err
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager (run as Administrator): %w", err)
	}
	defer m.Disconnect()

	if s, err := m.OpenService(serviceName); err == nil {
		s.Close()
		return fmt.Errorf("service %s is already installed", serviceName)
	}

	s, err := m.CreateService(serviceName, exePath, mgr.Config{
		DisplayName: serviceDisplayName,
		Description: serviceDescription,
		StartType:   mgr.StartAutomatic,
	})
	if err != nil {
		return err
	}
	return s.Close()
}

func withService(fn func(s *mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager (run as Administrator): %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("service %s is not installed: %w", serviceName, err)
	}
	defer s.Close()

	return fn(s)
}
