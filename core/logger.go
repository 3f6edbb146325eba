package core

// Logger logs messages. args may hold errors, maps of extra data and the member the message is about.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies who a log entry is about.
type Person interface {
	LogIdentity() (id, username, email string)
}
