package debug

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (calibration, faults)
	LevelLive    = 2 // Live info (inputs, target changes)
	LevelVerbose = 3 // Verbose (control-law details, cycle timing)
	LevelTrace   = 4 // Trace (CAN frames, very low level)
)

var (
	level  int
	logger *log.Logger
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (calibration, motor faults)
// 2 = live info (operator/vision inputs, commands)
// 3 = verbose (errors, outputs, feedforward, cycle timing)
// 4 = trace (CAN frames, register access)
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = log.New(os.Stdout, "[gimbal] ", log.LstdFlags|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output, e.g. to multiplex into the web
// telemetry stream.
func SetOutput(w io.Writer) {
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] "+format, args...)
	}
}

// Fault prints a motor health transition (level 1).
func Fault(motor string, online bool) {
	if level >= LevelInfo && logger != nil {
		state := "OFFLINE"
		if online {
			state = "online"
		}
		logger.Printf("[INFO] Motor %s is %s", motor, state)
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO]   %s = %v", name, value)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] "+format, args...)
	}
}

// Input prints an arbitration event (level 2).
func Input(source string, yaw, pitch float64) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Input %s: yaw=%.4f pitch=%.4f", source, yaw, pitch)
	}
}

// Command prints a motor speed command (level 2).
func Command(motor string, output float64) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Motor %s: output=%.1f", motor, output)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] "+format, args...)
	}
}

// Printf is an alias for Verbose for compatibility.
func Printf(format string, args ...interface{}) {
	Verbose(format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] %s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("----------------------------------------")
		logger.Printf("  %s", name)
		logger.Printf("----------------------------------------")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] Step %d: %s", num, description)
	}
}

// Cycle prints per-cycle control details (level 3).
func Cycle(axis string, err, output float64, dtMs int64) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] %s: err=%.4f out=%.1f dt=%dms", axis, err, output, dtMs)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace, CAN).
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[TRACE] "+format, args...)
	}
}

// Frame prints a CAN frame (level 4).
func Frame(dir string, id uint32, data []byte) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[CAN] %s id=%#x data=%x", dir, id, data)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[ERROR] %v", err)
	}
}

// Fmt is a helper function that returns a formatted string
// only if debug is enabled (to avoid unnecessary allocations).
func Fmt(format string, args ...interface{}) string {
	if level > 0 {
		return fmt.Sprintf(format, args...)
	}
	return ""
}
