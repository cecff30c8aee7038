// Package logging provides categorized file-based logging for foresight.
// Logs are written to <workspace>/.foresight/logs/ with a separate file per
// category. Logging is a silent no-op unless debug mode is enabled through
// configuration or the FORESIGHT_DEBUG environment variable.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category, one per pipeline stage.
type Category string

const (
	CategoryBoot        Category = "boot"        // Startup and CLI wiring
	CategoryIngest      Category = "ingest"      // Event batch loading
	CategorySession     Category = "session"     // Sessionization
	CategoryCatalog     Category = "catalog"     // Vulnerability catalog access
	CategoryPathing     Category = "pathing"     // Path analysis
	CategoryForecast    Category = "forecast"    // Trajectory forecasting
	CategoryDecision    Category = "decision"    // Response decisions
	CategoryGovernance  Category = "governance"  // Ledger and learning
	CategoryScripting   Category = "scripting"   // Remediation script generation
	CategoryPipeline    Category = "pipeline"    // Orchestration and artifacts
	CategoryWatch       Category = "watch"       // Filesystem watch mode
	CategoryPerformance Category = "performance" // Timings and slow operations
)

// Settings controls what gets written. The zero value is production mode:
// nothing is written anywhere.
type Settings struct {
	DebugMode  bool
	Level      string
	Categories map[string]bool
	JSONFormat bool
}

// StructuredLogEntry is the JSON line format used when json output is on.
type StructuredLogEntry struct {
	Timestamp int64          `json:"ts"`
	Category  string         `json:"cat"`
	Level     string         `json:"lvl"`
	Message   string         `json:"msg"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	settings  Settings
	settingsMu sync.RWMutex
	logLevel  int
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and applies settings. Call once
// at startup with the workspace path. FORESIGHT_DEBUG=1 forces debug mode
// on, FORESIGHT_LOG_JSON=1 forces structured output.
func Initialize(workspace string, cfg Settings) error {
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	if os.Getenv("FORESIGHT_DEBUG") == "1" {
		cfg.DebugMode = true
	}
	if os.Getenv("FORESIGHT_LOG_JSON") == "1" {
		cfg.JSONFormat = true
	}
	if lvl := os.Getenv("FORESIGHT_LOG_LEVEL"); lvl != "" {
		cfg.Level = lvl
	}

	settingsMu.Lock()
	settings = cfg
	logLevel = parseLevel(cfg.Level)
	settingsMu.Unlock()

	if !cfg.DebugMode {
		return nil
	}

	logsDir = filepath.Join(workspace, ".foresight", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== foresight logging initialized ===")
	boot.Info("Workspace: %s", workspace)
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", cfg.Level)
	return nil
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// IsDebugMode reports whether debug logging is enabled.
func IsDebugMode() bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled reports whether a specific category is enabled.
// Categories default to enabled when debug mode is on.
func IsCategoryEnabled(category Category) bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()

	if !settings.DebugMode {
		return false
	}
	if settings.Categories == nil {
		return true
	}
	enabled, exists := settings.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a
// no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}
	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation a plain file-delete job.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

func (l *Logger) jsonFormat() bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings.JSONFormat
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.jsonFormat() {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.jsonFormat() {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.jsonFormat() {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

// Error logs an error message. Always written when the logger exists.
func (l *Logger) Error(format string, args ...any) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.jsonFormat() {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// StructuredLog writes a structured entry with custom fields.
func (l *Logger) StructuredLog(level, msg string, fields map[string]any) {
	if l.logger == nil {
		return
	}
	if l.jsonFormat() {
		entry := StructuredLogEntry{
			Timestamp: time.Now().UnixMilli(),
			Category:  string(l.category),
			Level:     level,
			Message:   msg,
			Fields:    fields,
		}
		if data, err := json.Marshal(entry); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...any) { Get(CategoryBoot).Info(format, args...) }

// Ingest logs to the ingest category
func Ingest(format string, args ...any) { Get(CategoryIngest).Info(format, args...) }

// IngestDebug logs debug to the ingest category
func IngestDebug(format string, args ...any) { Get(CategoryIngest).Debug(format, args...) }

// Session logs to the session category
func Session(format string, args ...any) { Get(CategorySession).Info(format, args...) }

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...any) { Get(CategorySession).Debug(format, args...) }

// Catalog logs to the catalog category
func Catalog(format string, args ...any) { Get(CategoryCatalog).Info(format, args...) }

// CatalogDebug logs debug to the catalog category
func CatalogDebug(format string, args ...any) { Get(CategoryCatalog).Debug(format, args...) }

// CatalogWarn logs warning to the catalog category
func CatalogWarn(format string, args ...any) { Get(CategoryCatalog).Warn(format, args...) }

// Pathing logs to the pathing category
func Pathing(format string, args ...any) { Get(CategoryPathing).Info(format, args...) }

// PathingDebug logs debug to the pathing category
func PathingDebug(format string, args ...any) { Get(CategoryPathing).Debug(format, args...) }

// Forecast logs to the forecast category
func Forecast(format string, args ...any) { Get(CategoryForecast).Info(format, args...) }

// ForecastDebug logs debug to the forecast category
func ForecastDebug(format string, args ...any) { Get(CategoryForecast).Debug(format, args...) }

// Decision logs to the decision category
func Decision(format string, args ...any) { Get(CategoryDecision).Info(format, args...) }

// DecisionDebug logs debug to the decision category
func DecisionDebug(format string, args ...any) { Get(CategoryDecision).Debug(format, args...) }

// Governance logs to the governance category
func Governance(format string, args ...any) { Get(CategoryGovernance).Info(format, args...) }

// GovernanceDebug logs debug to the governance category
func GovernanceDebug(format string, args ...any) { Get(CategoryGovernance).Debug(format, args...) }

// GovernanceWarn logs warning to the governance category
func GovernanceWarn(format string, args ...any) { Get(CategoryGovernance).Warn(format, args...) }

// GovernanceError logs error to the governance category
func GovernanceError(format string, args ...any) { Get(CategoryGovernance).Error(format, args...) }

// Scripting logs to the scripting category
func Scripting(format string, args ...any) { Get(CategoryScripting).Info(format, args...) }

// ScriptingDebug logs debug to the scripting category
func ScriptingDebug(format string, args ...any) { Get(CategoryScripting).Debug(format, args...) }

// Pipeline logs to the pipeline category
func Pipeline(format string, args ...any) { Get(CategoryPipeline).Info(format, args...) }

// PipelineDebug logs debug to the pipeline category
func PipelineDebug(format string, args ...any) { Get(CategoryPipeline).Debug(format, args...) }

// PipelineWarn logs warning to the pipeline category
func PipelineWarn(format string, args ...any) { Get(CategoryPipeline).Warn(format, args...) }

// PipelineError logs error to the pipeline category
func PipelineError(format string, args ...any) { Get(CategoryPipeline).Error(format, args...) }

// Watch logs to the watch category
func Watch(format string, args ...any) { Get(CategoryWatch).Info(format, args...) }

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...any) { Get(CategoryWatch).Debug(format, args...) }

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level.
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds the threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
