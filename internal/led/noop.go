package led

import "log/slog"

// noop implements Controller for systems without usable LEDs.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

// Set logs the request and changes nothing.
func (n *noop) Set(role string, pattern Pattern) error {
	n.logger.Debug("LED control not available", "role", role, "pattern", pattern)
	return nil
}

// Available returns an empty list.
func (n *noop) Available() []string {
	return []string{}
}
