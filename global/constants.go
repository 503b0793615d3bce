/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package global

const (
	// Configuration constants
	ConfigEnvVar          = "PARALEGAL_CONFIG"
	DefaultBaseDir        = "~/.paralegal"
	DefaultConfigFileName = "config.json"
	DefaultSessionsDir    = "sessions"
	DefaultReportsDir     = "reports"

	// Task statuses
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
	TaskStatusFailed     = "failed"

	// Session modes
	ModePlan    = "plan"
	ModeExecute = "execute"
	ModeDone    = "done"

	// Prompt template names
	PromptGeneratePlan    = "legal-research/generate-plan"
	PromptRefineQuery     = "legal-research/refine-query"
	PromptCompressResults = "legal-research/compress-results"
	PromptReflect         = "legal-research/reflect"
	PromptGenerateReport  = "legal-research/generate-report"

	// Tool identifiers recorded on tasks
	ToolSearchWeb = "search_web"

	// Plan size bounds enforced on the generated plan
	MinPlanTasks = 3
	MaxPlanTasks = 6

	// Search limits
	MaxSearchResults = 5
	SnippetMaxChars  = 500

	// Context blob budgets for the task executor (read-time view, trailing-preference)
	ExecutorContextMaxChars  = 8000
	ExecutorContextKeepChars = 7500

	// Context blob budgets for the report generator
	ReportContextMaxChars  = 12000
	ReportContextKeepChars = 11000

	// TruncationMarker prefixes a context blob that was cut to its trailing portion
	TruncationMarker = "[...earlier notes truncated...]\n"

	// Per-field length budgets for sanitization
	MaxGoalChars          = 500
	MaxTaskTitleChars     = 500
	MaxTaskDescChars      = 1000
	MaxContextNoteChars   = 2000
	MaxResultTitleChars   = 500
	MaxResultContentChars = 5000
	MaxFindingsChars      = 2000
	MaxTaskSummariesChars = 5000

	// Environment variable names for provider credentials
	EnvOpenAIKey          = "OPENAI_API_KEY"
	EnvOpenAIModel        = "OPENAI_MODEL"
	EnvTavilyKey          = "TAVILY_API_KEY"
	EnvPromptStorePublic  = "PROMPTSTORE_PUBLIC_KEY"
	EnvPromptStoreSecret  = "PROMPTSTORE_SECRET_KEY"
	EnvPromptStoreBaseURL = "PROMPTSTORE_BASE_URL"

	// MCP Tool Names - Agent lifecycle
	ToolAgentStart  = "agent_start"
	ToolAgentGet    = "agent_get"
	ToolAgentStep   = "agent_step"
	ToolAgentReport = "agent_report"

	// MCP Tool Names - Session management
	ToolSessionList   = "session_list"
	ToolSessionDelete = "session_delete"

	// Log levels
	LogLevelDebug = "DEBUG"
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
	LogLevelFatal = "FATAL"
)
