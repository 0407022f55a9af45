package rediscache

// Hooks are callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking: they run inline on the
// operation that triggered them.
type Hooks interface {
	// A client was dialed and answered PING. reconnect is false for the
	// first connection of a cache instance.
	Connected(db int, reconnect bool)

	// Dialing or the initial PING failed; the operation returned ErrConnection.
	ConnectFailed(db int, err error)

	// A command failed at the transport level and the connection will be
	// rebuilt on next use.
	ConnectionBroken(op string, err error)

	// A read succeeded but pushing out the sliding TTL did not.
	SlidingRefreshFailed(key string, err error)

	// Stored bytes could not be decoded (corrupt frame or codec failure).
	DecodeFailed(key string, err error)

	// Close ran and released the connection.
	Disposed(db int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Connected(int, bool)                {}
func (NopHooks) ConnectFailed(int, error)           {}
func (NopHooks) ConnectionBroken(string, error)     {}
func (NopHooks) SlidingRefreshFailed(string, error) {}
func (NopHooks) DecodeFailed(string, error)         {}
func (NopHooks) Disposed(int)                       {}
