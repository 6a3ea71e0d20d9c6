//go:build !windows

package main

// Service management exists only on Windows; elsewhere the console runs
// under the host's process supervisor.

func isRunningAsService() bool { return false }

func runAsService() {}

func printServiceHelp() {}

func serviceCommand(string) bool { return false }
