package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client when querying remote time sources.
var UserAgent = "Go-Coursebox/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Coursebox"
	AppID             = "com.github.tartampluch.go-coursebox"
	KeyringService    = "com.github.tartampluch.go-coursebox"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	AuditDBFileName   = "audit.db"
	RegistryFileName  = "registry.toml"
	ManifestFileName  = "manifest.toml"
	ScheduleFileName  = "schedule.ics"
	IconFile          = "Icon.png"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for the registry, manifests, and logs.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating secure cache and export directories.
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1

	// SessionChannelBuffer sizes the per-session transition channel so the gate
	// never blocks on a slow UI consumer.
	SessionChannelBuffer = 8
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagRegistry     = "registry"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescRegistry = "Override the registry file path (teacher builds only)"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Registry Modes
// -----------------------------------------------------------------------------

const (
	// ModeUnrestricted is the teacher build: no gating, admin surface enabled.
	ModeUnrestricted = "unrestricted"

	// ModeGated is the student build: the registry is frozen and every launch
	// is validated against trusted network time.
	ModeGated = "gated"
)

// -----------------------------------------------------------------------------
// Time Formats
// -----------------------------------------------------------------------------

const (
	// TimeLayoutMinute is the minute-granular layout used in the registry,
	// the admin panel, and the exported manifest. Always interpreted as UTC.
	TimeLayoutMinute = "2006-01-02 15:04"

	// TimeLayoutSysTime matches second-granular "sysTime2"-style API responses.
	TimeLayoutSysTime = "2006-01-02 15:04:05"
)

// -----------------------------------------------------------------------------
// Oracle Tunables
// -----------------------------------------------------------------------------
// Policy values, not load-bearing for correctness. The per-source timeout
// mirrors the 3s budget the hosted time APIs answer comfortably within.

const (
	OracleSourceTimeout = 3 * time.Second
	OracleAttempts      = 3
	OracleBackoffBase   = 1 * time.Second
	OracleBackoffCap    = 8 * time.Second

	// MaxTimeResponseSize caps a time API response. These payloads are a few
	// hundred bytes; anything larger is garbage.
	MaxTimeResponseSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Gate Tunables
// -----------------------------------------------------------------------------

const (
	// GateRecheckInterval is how often an open session is re-validated.
	GateRecheckInterval = 1 * time.Minute

	// GateRegressionEpsilon tolerates network jitter between consecutive
	// oracle readings. A regression beyond this is treated as tampering.
	GateRegressionEpsilon = 2 * time.Minute
)

// -----------------------------------------------------------------------------
// UI Constants & Preferences
// -----------------------------------------------------------------------------

const (
	MainWindowWidth     = 520
	MainWindowHeight    = 640
	SettingsWindowWidth = 600
	AdminWindowWidth    = 700
	AdminWindowHeight   = 560
	FileWindowWidth     = 560
	FileWindowHeight    = 420

	// Preference Keys
	PrefLanguage       = "language"
	PrefServerPort     = "schedule_server_port"
	PrefRecheckMinutes = "gate_recheck_min"
	PrefLastRun        = "last_run_version"
)

// SupportedLanguages defines the list of available UI languages (ISO 639-1).
var SupportedLanguages = []string{"en", "zh"}

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyWinTitle       = "win_title"
	TKeyWinTitleGated  = "win_title_gated"
	TKeyWinSettings    = "win_settings_title"
	TKeyWinAdmin       = "win_admin_title"
	TKeyWinFiles       = "win_files_title"
	TKeyBtnLaunch      = "btn_launch"
	TKeyBtnFiles       = "btn_files"
	TKeyBtnExport      = "btn_export"
	TKeyBtnSave        = "btn_save"
	TKeyBtnCancel      = "btn_cancel"
	TKeyBtnImport      = "btn_import"
	TKeyBtnRemove      = "btn_remove"
	TKeyLblLanguage    = "lbl_language"
	TKeyHelpLanguage   = "help_language"
	TKeyLblPort        = "lbl_server_port"
	TKeyHelpPort       = "help_port"
	TKeyLblRecheck     = "lbl_recheck_interval"
	TKeyHelpRecheck    = "help_recheck"
	TKeyLblMinutes     = "lbl_minutes_suffix"
	TKeyLblGeneral     = "lbl_general"
	TKeyLblFooter      = "lbl_footer"
	TKeyLblWindowStart = "lbl_window_start"
	TKeyLblWindowEnd   = "lbl_window_end"
	TKeyLblAdminHint   = "lbl_admin_hint"
	TKeyLblNoWindow    = "lbl_no_window"

	// Availability status lines rendered on the launcher cards.
	TKeyStatusOpen       = "status_open"        // Requires End
	TKeyStatusUnlimited  = "status_unlimited"   // Teacher build
	TKeyStatusNotYetOpen = "status_not_started" // Requires Start
	TKeyStatusExpired    = "status_expired"     // Requires End
	TKeyStatusNetwork    = "status_network"
	TKeyStatusSuspicious = "status_suspicious"
	TKeyStatusChecking   = "status_checking"

	// Dialogs & notifications.
	TKeyDlgDeniedTitle  = "dlg_denied_title"
	TKeyDlgNetworkTitle = "dlg_network_title"
	TKeyDlgExportOK     = "dlg_export_ok" // Requires Path
	TKeyDlgExportFail   = "dlg_export_fail"
	TKeyDlgTerminated   = "dlg_terminated"
	TKeyDlgLaunchFail   = "dlg_launch_fail"

	// App titles (one per descriptor).
	TKeyAppValveHoles  = "app_valve_holes"
	TKeyAppTheoretical = "app_theoretical_plates"
	TKeyAppTrayLoad    = "app_tray_load"
	TKeyAppSchematic   = "app_column_schematic"

	// Validation Errors (UI)
	TKeyErrPortReq    = "err_port_required"
	TKeyErrPortNum    = "err_port_number"
	TKeyErrPortRange  = "err_port_range"
	TKeyErrBadTime    = "err_bad_time"   // Requires App
	TKeyErrBadWindow  = "err_bad_window" // Requires App
	TKeyErrExportMode = "err_export_mode"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort       = "18090"
	DefaultLanguage   = "en"
	DefaultRecheckMin = 1

	ExportDirName = "student-build"
	ExportAppsDir = "apps"

	// ManifestVersion guards against loading manifests produced by an
	// incompatible build.
	ManifestVersion = 1
)

// -----------------------------------------------------------------------------
// Standards: iCalendar (schedule feed)
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go Coursebox//Schedule//EN"
	ICalCalName = "Tool Availability"
	ICalScale   = "GREGORIAN"
	ICalMethod  = "PUBLISH"
	ICalDomain  = "gocoursebox"

	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTEnd      = "DTEND"
	PropDTStamp    = "DTSTAMP"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropMethod     = "METHOD"

	FormatUID = "%s@%s"

	// StubVCalendar is served when no window is registered, so feed
	// consumers always receive a valid (if empty) VCALENDAR.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Go Coursebox//Schedule//EN\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout        = 10 * time.Second
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	RetryAfterSeconds  = "10"
	AllowedMethods     = "GET, HEAD"
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
	RouteRoot          = "/"
	AddrSeparator      = ":"

	MinPort = 1
	MaxPort = 65535
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrUnknownApp        = "unknown application identifier"
	ErrInvalidWindow     = "invalid time window"
	ErrModeViolation     = "mutation rejected: registry is gated"
	ErrInvalidSourceMode = "export rejected: source registry is not unrestricted"
	ErrTimeout           = "time source timed out"
	ErrSourceUnreachable = "time source unreachable"
	ErrAllExhausted      = "all time sources exhausted"
	ErrNoSources         = "no time sources configured"
	ErrClockTamper       = "clock tampering suspected: oracle time regressed"
	ErrSessionClosed     = "session already terminated"
	ErrRegistryDecode    = "failed to decode registry"
	ErrRegistryEncode    = "failed to encode registry"
	ErrManifestDecode    = "failed to decode build manifest"
	ErrManifestEncode    = "failed to encode build manifest"
	ErrTimeParse         = "unable to parse time response"
	ErrInvalidURL        = "invalid time source URL"
	ErrProtocol          = "unsupported protocol scheme (http/https only)"
	ErrServerStartup     = "schedule server startup failed"
	ErrServerShutdown    = "schedule server shutdown failed"
	ErrPortRequired      = "server port is required"
	ErrICalEncode        = "failed to encode schedule feed"
	ErrLogFile           = "failed to open log file"
	ErrCacheDir          = "could not determine user cache dir"
	ErrConfigDir         = "could not determine user config dir"
	ErrCreateDir         = "could not create app directory"
	ErrAppFailed         = "application failed unexpectedly"
	ErrWriteResp         = "failed to write response body"
	ErrLocalesAccess     = "failed to access embedded locales"
	ErrLocaleLoad        = "failed to load locale file"
	ErrLocNotInit        = "localizer not initialized"
	ErrLaunchFailed      = "sub-application launch failed"
	ErrAuditOpen         = "audit log unavailable"
	ErrCopyResource      = "failed to copy application resource"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Schedule initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackStatusOpen    = "Available until %s"
	FallbackStatusClosed  = "Not available"
	FallbackDlgDenied     = "Access restricted"
	FallbackExportSuccess = "Student build written to %s"

	TitleStartupError = "Startup Error"
	TitleExportError  = "Export Error"

	MsgPortBusy       = "Port %s is busy or unavailable."
	MsgAppStop        = "Application stopped gracefully"
	MsgCtxCancel      = "Context cancelled, shutting down UI"
	MsgAppStarting    = "Starting application"
	MsgServerListen   = "Schedule server listening"
	MsgServerStop     = "Shutting down schedule server..."
	MsgFeedUpdated    = "Schedule feed updated"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgSourceQuery    = "Querying time source"
	MsgSourceFailed   = "Time source failed, advancing"
	MsgSourceAnswered = "Time source answered"
	MsgSourceDiverged = "Remote time diverges from host clock"
	MsgOracleRetry    = "All sources failed, backing off before retry"
	MsgOracleGiveUp   = "Time fetch attempt budget exhausted"
	MsgPassFail       = "Source credential retrieval failed (might be empty)"
	MsgSessionStart   = "Session created"
	MsgSessionCheck   = "Re-validating session window"
	MsgSessionAllowed = "Session allowed"
	MsgSessionDenied  = "Session denied"
	MsgSessionEnd     = "Session closed"
	MsgSessionKill    = "Terminating session outside its window"
	MsgUnrestricted   = "Unrestricted registry, gate bypassed"
	MsgRegistryLoaded = "Registry loaded"
	MsgRegistrySaved  = "Registry saved"
	MsgManifestLoaded = "Student manifest loaded"
	MsgExportStart    = "Export requested"
	MsgExportDone     = "Student build exported"
	MsgProcLaunched   = "Sub-application launched"
	MsgProcExited     = "Sub-application exited"
	MsgProcKilled     = "Sub-application terminated"
	MsgProcShutdown   = "Terminating all sub-applications"
	MsgAuditDegraded  = "Audit log disabled, decisions will only be logged"
	MsgRecheckUpdated = "Updating re-check interval"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyMode      = "mode"
	LogKeyApp       = "app"
	LogKeyAppID     = "app_id"
	LogKeySource    = "source"
	LogKeyState     = "state"
	LogKeyReason    = "reason"
	LogKeyWindow    = "window"
	LogKeyStart     = "start"
	LogKeyEnd       = "end"
	LogKeyTimestamp = "timestamp"
	LogKeyDelta     = "delta"
	LogKeyAttempt   = "attempt"
	LogKeyBackoff   = "backoff"
	LogKeyPath      = "path"
	LogKeyPID       = "pid"
	LogKeyCount     = "count"
	LogKeyOld       = "old"
	LogKeyNew       = "new"
	LogKeyUser      = "user"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompUI       = "ui"
	CompUISet    = "ui_settings"
	CompAdmin    = "ui_admin"
	CompRegistry = "registry"
	CompOracle   = "oracle"
	CompGate     = "gate"
	CompExport   = "export"
	CompSchedule = "schedule"
	CompLauncher = "launcher"
	CompAudit    = "audit"
	CompMain     = "main"
	CompI18n     = "i18n"
)

// -----------------------------------------------------------------------------
// UI Layout Constants
// -----------------------------------------------------------------------------

const (
	LayoutColumnsDouble = 2
)
