package cursor

// HooksFile represents the hooks.json structure.
// Cursor uses a flat JSON file with version and hooks sections.
type HooksFile struct {
	Version int   `json:"version"`
	Hooks   Hooks `json:"hooks"`
}

// Hooks contains the hook types recursor manages, using Cursor's camelCase keys.
type Hooks struct {
	BeforeSubmitPrompt   []HookEntry `json:"beforeSubmitPrompt,omitempty"`
	Stop                 []HookEntry `json:"stop,omitempty"`
	BeforeShellExecution []HookEntry `json:"beforeShellExecution,omitempty"`
	AfterShellExecution  []HookEntry `json:"afterShellExecution,omitempty"`
}

// HookEntry represents a single hook command.
type HookEntry struct {
	Command string `json:"command"`
	Matcher string `json:"matcher,omitempty"`
}

// HookInput holds the fields Cursor sends with every hook event. All of
// them may be missing.
type HookInput struct {
	ConversationID string   `json:"conversation_id"`
	SessionID      string   `json:"session_id"`
	GenerationID   string   `json:"generation_id"`
	Model          string   `json:"model"`
	HookEventName  string   `json:"hook_event_name"`
	CursorVersion  string   `json:"cursor_version"`
	WorkspaceRoots []string `json:"workspace_roots"`
	UserEmail      string   `json:"user_email"`
}

// DefaultConversationID keys state when Cursor sends no id at all.
const DefaultConversationID = "default"

// GetConversationID returns conversation_id, falling back to session_id and
// then to DefaultConversationID.
func (h HookInput) GetConversationID() string {
	if h.ConversationID != "" {
		return h.ConversationID
	}
	if h.SessionID != "" {
		return h.SessionID
	}
	return DefaultConversationID
}

// BeforeSubmitPromptInput is sent when the user submits a prompt.
type BeforeSubmitPromptInput struct {
	HookInput
	Prompt string `json:"prompt"`
}

// StopInput is sent when the agent loop ends.
type StopInput struct {
	HookInput
	Status    string `json:"status"`
	LoopCount int    `json:"loop_count"`
}

// BeforeShellInput is sent before the agent runs a shell command.
type BeforeShellInput struct {
	HookInput
	Command string `json:"command"`
	Cwd     string `json:"cwd"`
}

// AfterShellInput is sent after a shell command finished.
type AfterShellInput struct {
	HookInput
	Command  string  `json:"command"`
	Output   string  `json:"output"`
	Duration float64 `json:"duration"`
}

// BeforeSubmitPromptOutput lets the prompt through or blocks it.
type BeforeSubmitPromptOutput struct {
	Continue    bool   `json:"continue"`
	UserMessage string `json:"user_message,omitempty"`
}

// StopOutput may ask Cursor to send a follow-up prompt.
type StopOutput struct {
	FollowupMessage string `json:"followup_message,omitempty"`
}

// Shell permission decisions.
const (
	PermissionAllow = "allow"
	PermissionDeny  = "deny"
	PermissionAsk   = "ask"
)

// ShellPermissionOutput answers beforeShellExecution.
type ShellPermissionOutput struct {
	Permission   string `json:"permission"`
	UserMessage  string `json:"user_message,omitempty"`
	AgentMessage string `json:"agent_message,omitempty"`
}

// EmptyOutput is the response for hooks that return nothing.
type EmptyOutput struct{}
