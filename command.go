package shortener

// Command represents an intent to change the state of one short link.
type Command interface {
	// CommandType returns the type identifier for this command.
	CommandType() string

	// AggregateID returns the slug the command targets, or "" when the
	// slug is to be generated.
	AggregateID() string
}

// Command type identifiers.
const (
	CreateShortLinkType = "CreateShortLink"
	RedirectLinkType    = "RedirectLink"
)

// CommandBase carries the tracing identifiers shared by all commands.
type CommandBase struct {
	// CommandID is an optional unique identifier for this command instance.
	// It becomes the causation ID of the events the command produces.
	CommandID string `json:"commandId,omitempty"`

	// CorrelationID links the command to the request that issued it.
	CorrelationID string `json:"correlationId,omitempty"`
}

// GetCommandID returns the command ID.
func (c CommandBase) GetCommandID() string {
	return c.CommandID
}

// GetCorrelationID returns the correlation ID.
func (c CommandBase) GetCorrelationID() string {
	return c.CorrelationID
}

// CreateShortLink asks to bind a slug to a URL. An empty Slug asks for a
// generated one.
type CreateShortLink struct {
	CommandBase
	URL  URL  `json:"url"`
	Slug Slug `json:"slug,omitempty"`
}

// CommandType returns "CreateShortLink".
func (c CreateShortLink) CommandType() string { return CreateShortLinkType }

// AggregateID returns the requested slug.
func (c CreateShortLink) AggregateID() string { return string(c.Slug) }

// RedirectLink asks to resolve a slug and count the visit.
type RedirectLink struct {
	CommandBase
	Slug Slug `json:"slug"`
}

// CommandType returns "RedirectLink".
func (c RedirectLink) CommandType() string { return RedirectLinkType }

// AggregateID returns the slug to resolve.
func (c RedirectLink) AggregateID() string { return string(c.Slug) }

// CommandResult represents the result of command execution.
type CommandResult struct {
	// Success indicates whether the command executed successfully.
	Success bool

	// AggregateID is the slug of the link affected by the command.
	// For a generated slug this is the slug that was assigned.
	AggregateID string

	// Version is the stream version after command execution.
	Version int64

	// Link is the link snapshot after command execution.
	Link ShortLink

	// Error contains the error if the command failed.
	Error error
}

// NewSuccessResult creates a successful CommandResult.
func NewSuccessResult(link ShortLink, version int64) CommandResult {
	return CommandResult{
		Success:     true,
		AggregateID: string(link.Slug),
		Version:     version,
		Link:        link,
	}
}

// NewErrorResult creates a failed CommandResult.
func NewErrorResult(err error) CommandResult {
	return CommandResult{
		Success: false,
		Error:   err,
	}
}

// IsSuccess returns true if the command executed successfully.
func (r CommandResult) IsSuccess() bool {
	return r.Success && r.Error == nil
}

// IsError returns true if the command failed.
func (r CommandResult) IsError() bool {
	return !r.Success || r.Error != nil
}
