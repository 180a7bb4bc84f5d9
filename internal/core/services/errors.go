package services

import "errors"

// Dependency errors
var (
	ErrPackageNameRequired = errors.New("dependency: package name is required")
	ErrPackageProtected    = errors.New("dependency: package is a protected system or app dependency")
	ErrPackageNotInstalled = errors.New("dependency: package is not installed")
	ErrUninstallFailed     = errors.New("dependency: uninstall failed")
	ErrListFailed          = errors.New("dependency: failed to enumerate installed packages")
)

// Environment errors
var (
	ErrEnvNotFound      = errors.New("environment: not found")
	ErrEnvInvalidPath   = errors.New("environment: interpreter path does not exist")
	ErrEnvProbeFailed   = errors.New("environment: interpreter version probe failed")
	ErrEnvDeleteCurrent = errors.New("environment: cannot delete the active environment")
	ErrEnvIDRequired    = errors.New("environment: id is required")
)
