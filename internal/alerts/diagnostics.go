package alerts

import (
	"context"
	"math/bits"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Diagnostics configures synthetic load applied on every filtered request.
// Both knobs are fixed at startup; zero disables them.
type Diagnostics struct {
	// DriveMemory is the number of bytes allocated and scanned per request
	DriveMemory int
	// DriveLatency is the pause per request, in milliseconds
	DriveLatency int
}

func (d Diagnostics) latency() time.Duration {
	return time.Duration(d.DriveLatency) * time.Millisecond
}

// warn logs what each enabled knob will do to every request.
func (d Diagnostics) warn(logger *zap.Logger) {
	if d.DriveMemory > 0 {
		logger.Warn("DRIVE_MEMORY is set; every request will allocate that many bytes",
			zap.Int("drive_memory", d.DriveMemory))
	}
	if d.DriveLatency > 0 {
		logger.Warn("DRIVE_LATENCY is set; every request will sleep that many milliseconds",
			zap.Int("drive_latency", d.DriveLatency))
	}
}

// driveMemory allocates and scans a DriveMemory-sized buffer so the
// allocation cannot be elided. It returns the number of set bits, always 0.
func (d Diagnostics) driveMemory(logger *zap.Logger) int {
	if d.DriveMemory <= 0 {
		return 0
	}

	memory := make([]byte, d.DriveMemory)
	count := 0
	for _, b := range memory {
		count += bits.OnesCount8(b)
	}
	runtime.KeepAlive(memory)

	if count > 0 {
		logger.Error("Freshly allocated diagnostic buffer is not zeroed", zap.Int("set_bits", count))
	}
	return count
}

// driveLatency pauses for DriveLatency. A cancelled ctx ends the pause early;
// the cancellation is logged and otherwise ignored.
func (d Diagnostics) driveLatency(ctx context.Context, logger *zap.Logger) time.Duration {
	pause := d.latency()
	if pause <= 0 {
		return 0
	}

	start := time.Now()
	timer := time.NewTimer(pause)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		logger.Debug("Diagnostic latency pause interrupted",
			zap.Duration("requested", pause),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(ctx.Err()))
	}

	elapsed := time.Since(start)
	diagnosticPause.Observe(elapsed.Seconds())
	return elapsed
}
