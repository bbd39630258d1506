package services

// Notifier broadcasts workflow state transitions to interested listeners
// (the SSE hub in production, a no-op in tests).
type Notifier interface {
	PublishState(designID, state string, payload map[string]any)
}

type nopNotifier struct{}

func (nopNotifier) PublishState(string, string, map[string]any) {}

// NopNotifier is used when no realtime transport is configured.
func NopNotifier() Notifier { return nopNotifier{} }
