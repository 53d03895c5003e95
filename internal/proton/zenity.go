package proton

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/openwinecomponents/umu-launcher/internal/logger"
)

// errHelperUnavailable is returned when the download helper or zenity
// itself is not installed.
var errHelperUnavailable = errors.New("download helper unavailable")

// helperTimeout bounds the external download helper. A helper stuck past
// it is killed and the caller retries with the built-in downloader.
const helperTimeout = 300 * time.Second

// runZenity executes command with opts and pipes its combined output into a
// zenity progress popup. Intended for long running operations such as large
// downloads.
func runZenity(ctx context.Context, command string, opts []string, msg string) error {
	zenityBin, err := exec.LookPath("zenity")
	if err != nil {
		logger.Warn(ctx, "zenity was not found in system")
		return fmt.Errorf("%w: zenity", errHelperUnavailable)
	}

	commandBin, err := exec.LookPath(command)
	if err != nil {
		logger.Warnf(ctx, "%s was not found in system", command)
		return fmt.Errorf("%w: %s", errHelperUnavailable, command)
	}

	helperCtx, cancel := context.WithTimeout(ctx, helperTimeout)
	defer cancel()

	helper := exec.CommandContext(helperCtx, commandBin, opts...)

	pipe, err := helper.StdoutPipe()
	if err != nil {
		return fmt.Errorf("helper stdout pipe: %w", err)
	}

	helper.Stderr = helper.Stdout

	// The popup carries no cancel button; interruption arrives through the
	// caller's context, not through the UI.
	popup := exec.CommandContext(ctx, zenityBin,
		"--progress",
		"--auto-close",
		"--no-cancel",
		"--text="+msg,
		"--percentage=0",
		"--pulsate",
	)
	popup.Stdin = pipe

	if err = helper.Start(); err != nil {
		return fmt.Errorf("start %s: %w", command, err)
	}

	if err = popup.Start(); err != nil {
		_ = helper.Process.Kill()
		_ = helper.Wait()

		return fmt.Errorf("start zenity: %w", err)
	}

	helperErr := helper.Wait()
	popupErr := popup.Wait()

	if helperErr != nil {
		// A process killed by context cancellation reports a plain exit
		// error; classify it so the caller aborts instead of retrying.
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}

		if errors.Is(helperCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %s", command, helperTimeout)
		}

		return fmt.Errorf("%s exited: %w", command, helperErr)
	}

	if popupErr != nil {
		logger.Warnf(ctx, "zenity exited with an error: %v", popupErr)
		return fmt.Errorf("zenity exited: %w", popupErr)
	}

	return nil
}
