package rtc

// Client bundles the orchestration components for one client instance:
// session state, action gateway, conversation log, resource intake, and
// feature toggles, wired over a single transport.
type Client struct {
	Session *Session
	Gateway *Gateway
	Log     *Log
	Intake  *Intake
	Toggles *Toggles
}

// NewClient assembles a client from a config and transport.
func NewClient(cfg Config, transport Transport, logger *Logger) *Client {
	if logger == nil {
		logger = GetLogger()
	}

	session := NewSession(transport, WithSessionLogger(logger))
	gateway := NewGateway(session, transport,
		WithDispatchTimeout(cfg.ActionTimeout()),
		WithGatewayLogger(logger),
	)
	convlog := NewLog()
	intake := NewIntake(gateway, convlog,
		WithMaxResourceSize(cfg.MaxResourceSize),
		WithAllowedMimePatterns(cfg.AllowedMimePatterns),
		WithIntakeLogger(logger),
	)
	toggles := NewToggles(gateway, convlog, WithTogglesLogger(logger))

	return &Client{
		Session: session,
		Gateway: gateway,
		Log:     convlog,
		Intake:  intake,
		Toggles: toggles,
	}
}

// Analytics returns the current usage snapshot.
func (c *Client) Analytics() Analytics {
	return Snapshot(c.Log, c.Intake)
}

// Close tears down the session and transport. The conversation log and the
// resource list die with the client.
func (c *Client) Close() error {
	return c.Session.Close()
}
