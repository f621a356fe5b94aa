package config

import (
	"errors"
	"fmt"
	"runtime"
)

const (
	DefaultDirectory = "."
	DefaultQuality   = 85
	DefaultJobs      = 1

	MinQuality = 1
	MaxQuality = 100
)

var (
	ErrInvalidQuality = errors.New("invalid quality")
	ErrInvalidJobs    = errors.New("invalid jobs")
)

// Config carries everything a batch run needs. It is built once from the
// command line and passed down explicitly.
type Config struct {
	Directory    string
	Quality      int
	Lossless     bool
	KeepOriginal bool
	Jobs         int
	Verbose      bool
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		Directory:    DefaultDirectory,
		Quality:      DefaultQuality,
		KeepOriginal: true,
		Jobs:         DefaultJobs,
	}
}

// Validate checks ranges. Quality is validated even in lossless mode.
func (c Config) Validate() error {
	if c.Quality < MinQuality || c.Quality > MaxQuality {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidQuality, c.Quality, MinQuality, MaxQuality)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("%w: %d (must be >= 0)", ErrInvalidJobs, c.Jobs)
	}
	return nil
}

// Workers resolves Jobs into the number of concurrent conversions.
// Zero means one per CPU, and no value exceeds the CPU count.
func (c Config) Workers() int {
	cpus := runtime.NumCPU()
	if c.Jobs == 0 || c.Jobs > cpus {
		return cpus
	}
	return c.Jobs
}
