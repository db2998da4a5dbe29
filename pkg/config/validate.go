package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "client.address"
	Message string // e.g., "must not be empty"
	Hint    string // e.g., "expected host:port"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate performs comprehensive validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateClient()...)
	errs = append(errs, c.validateBroker()...)
	errs = append(errs, c.validateGateway()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateClient() []error {
	var errs []error
	cc := c.Client

	if cc.Address == "" {
		errs = append(errs, ValidationError{
			Path:    "client.address",
			Message: "must not be empty",
			Hint:    "expected host:port",
		})
	} else if err := validateHostPort(cc.Address); err != nil {
		errs = append(errs, ValidationError{
			Path:    "client.address",
			Message: err.Error(),
			Hint:    "expected host:port",
		})
	}

	if cc.DialTimeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "client.dial_timeout",
			Message: "must not be negative",
		})
	}
	if cc.WriteTimeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "client.write_timeout",
			Message: "must not be negative",
			Hint:    "use 0 to disable the write deadline",
		})
	}

	if cc.MaxPendingCommands < 1 {
		errs = append(errs, ValidationError{
			Path:    "client.max_pending_commands",
			Message: fmt.Sprintf("must be >= 1; got %d", cc.MaxPendingCommands),
			Hint:    "bounds the outbound queue; 1024 is a good default",
		})
	}

	if cc.ReadBufferSize < 16 {
		errs = append(errs, ValidationError{
			Path:    "client.read_buffer_size",
			Message: fmt.Sprintf("must be >= 16; got %d", cc.ReadBufferSize),
		})
	}
	if cc.MaxFrameSize < cc.ReadBufferSize {
		errs = append(errs, ValidationError{
			Path:    "client.max_frame_size",
			Message: fmt.Sprintf("must be >= read_buffer_size (%d); got %d", cc.ReadBufferSize, cc.MaxFrameSize),
		})
	}

	return errs
}

func (c *Config) validateBroker() []error {
	var errs []error
	if err := validateListenAddr(c.Broker.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Path:    "broker.listen_addr",
			Message: err.Error(),
			Hint:    "expected [host]:port",
		})
	}
	if c.Broker.IdleTimeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "broker.idle_timeout",
			Message: "must not be negative",
		})
	}
	return errs
}

func (c *Config) validateGateway() []error {
	var errs []error
	gc := c.Gateway

	if err := validateListenAddr(gc.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Path:    "gateway.listen_addr",
			Message: err.Error(),
			Hint:    "expected [host]:port",
		})
	}
	if gc.WriteTimeout <= 0 {
		errs = append(errs, ValidationError{
			Path:    "gateway.write_timeout",
			Message: "must be positive",
		})
	}
	if gc.ClientBuffer < 1 {
		errs = append(errs, ValidationError{
			Path:    "gateway.client_buffer",
			Message: fmt.Sprintf("must be >= 1; got %d", gc.ClientBuffer),
		})
	}
	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	logCfg := c.Logging

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[logCfg.Level] {
		errs = append(errs, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("invalid value %q", logCfg.Level),
			Hint:    "allowed values: debug, info, warn, error",
		})
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[logCfg.Format] {
		errs = append(errs, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("invalid value %q", logCfg.Format),
			Hint:    "allowed values: json, console",
		})
	}

	if logCfg.OutputFile != "" {
		dir := filepath.Dir(logCfg.OutputFile)
		if dir != "" && dir != "." {
			if err := validateDirWritable(dir); err != nil {
				errs = append(errs, ValidationError{
					Path:    "logging.output_file",
					Message: fmt.Sprintf("parent directory not writable: %v", err),
				})
			}
		}
	}

	return errs
}

// Helper validation functions

func validateDirWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access directory: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory")
	}

	// Try to write a test file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte(""), 0644); err != nil {
		return fmt.Errorf("directory not writable: %v", err)
	}
	os.Remove(testFile)

	return nil
}

func validateHostPort(hostPort string) error {
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return fmt.Errorf("expected format host:port")
	}
	if host == "" {
		return fmt.Errorf("host must not be empty")
	}
	return validatePort(port)
}

// validateListenAddr accepts an empty host (all interfaces).
func validateListenAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("must not be empty")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("expected format [host]:port")
	}
	return validatePort(port)
}

func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("port must be a number between 0 and 65535; got %q", port)
	}
	return nil
}
