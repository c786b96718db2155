package call

// LoopbackDialer establishes no real media; it stands in for the media stack
// in headless clients and smoke tests.
type LoopbackDialer struct{}

type loopbackSession struct{}

func (loopbackSession) Close() error { return nil }

func (LoopbackDialer) Dial(string) (MediaSession, error) {
	return loopbackSession{}, nil
}
