package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"specred/internal/catalog"
	"specred/internal/config"
	"specred/internal/exposure"
	"specred/internal/instrument"
)

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK)
}

// CheckReadableDirectory verifies that the directory exists and can be
// listed; write access is not required.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK)
}

func checkDirectory(name, path string, mode uint32) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	detail := "read ok"
	if mode&unix.W_OK != 0 {
		detail = "read/write ok"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, detail)}
}

// CheckCatalog verifies the workspace catalog opens, carries the expected
// schema, and answers queries. A reduction already holding the workspace
// lock reports as a failure here, which is exactly what a user about to
// start another run needs to know.
func CheckCatalog(ctx context.Context, cfg *config.Config) Result {
	const name = "Catalog"

	store, err := catalog.Open(cfg)
	if err != nil {
		if errors.Is(err, catalog.ErrWorkspaceLocked) {
			return Result{Name: name, Detail: "workspace locked by another process"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()

	records, err := store.ListMasters(ctx, "")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("query failed: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d masters indexed)", cfg.DatabasePath(), len(records))}
}

// CheckInstrument verifies the configured instrument has a registered
// profile.
func CheckInstrument(name string) Result {
	const check = "Instrument"

	if strings.TrimSpace(name) == "" {
		return Result{Name: check, Detail: "no instrument configured"}
	}
	if _, err := instrument.New(name); err != nil {
		return Result{Name: check, Detail: err.Error()}
	}
	return Result{Name: check, Passed: true, Detail: name}
}

// CheckPlan verifies the reduction plan parses and names a science frame.
func CheckPlan(path string) Result {
	const name = "Reduction plan"

	plan, err := exposure.LoadPlan(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	calibrations := len(plan.Frames.Bias) + len(plan.Frames.Dark) +
		len(plan.Frames.Arc) + len(plan.Frames.Trace) +
		len(plan.Frames.PixFlat) + len(plan.Frames.BlzFlat)
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d calibration frames)", filepath.Base(path), calibrations)}
}
