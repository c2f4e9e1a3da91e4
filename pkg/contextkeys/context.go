package contextkeys

type contextKey string

// SessionContextKey holds the resolved *session.Live on the request context.
const SessionContextKey = contextKey("session")
