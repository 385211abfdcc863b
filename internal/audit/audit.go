package audit

import (
	"fmt"
	"sync"
)

var (
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex
	enabled      bool
)

// Init installs w as the global audit writer. A nil writer disables auditing.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		enabled = false
		return nil
	}

	globalWriter = w
	enabled = true
	return nil
}

// InitFile installs a FileWriter for path. An empty path disables auditing.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}

	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	return Init(w)
}

// Close closes the global writer and disables auditing.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter = NopWriter{}
	enabled = false
	return err
}

// Enabled returns whether audit logging is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Log writes an audit event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	return w.Write(event)
}

// MustLog writes an audit event and wraps any failure so the caller can
// fail the parent operation.
//
//	if err := audit.MustLog(event); err != nil {
//	    return nil, err
//	}
func MustLog(event *Event) error {
	if err := Log(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// outcome returns the result for opErr and records its message as the reason.
func outcome(ctx *Context, opErr error) Result {
	if opErr == nil {
		return ResultSuccess
	}
	if ctx.Reason == "" {
		ctx.Reason = opErr.Error()
	}
	return ResultFailure
}

// ServiceActorID identifies the HTTP server in events it records.
const ServiceActorID = "qsig-api"

// operationEvent builds a sign or verify event. Events recorded by the HTTP
// server name the service rather than the OS user running it.
func operationEvent(eventType EventType, result Result, obj Object, ctx Context) *Event {
	event := NewEvent(eventType, result).WithObject(obj).WithContext(ctx)
	if ctx.Source == "api" {
		event.WithActor(Actor{Type: "service", ID: ServiceActorID, Host: event.Actor.Host})
	}
	return event
}

// LogSign logs a signing operation. opErr is the error returned by the
// signer, if any.
func LogSign(obj Object, ctx Context, opErr error) error {
	if obj.Type == "" {
		obj.Type = "key"
	}
	result := outcome(&ctx, opErr)
	return MustLog(operationEvent(EventSign, result, obj, ctx))
}

// LogVerify logs a verification. A nil opErr is logged as VERIFY, anything
// else as VERIFY_FAILED.
func LogVerify(obj Object, ctx Context, opErr error) error {
	if obj.Type == "" {
		obj.Type = "signature"
	}
	eventType := EventVerify
	if opErr != nil {
		eventType = EventVerifyFailed
	}
	result := outcome(&ctx, opErr)
	return MustLog(operationEvent(eventType, result, obj, ctx))
}

// LogKeyImported logs the import of a signing or verification key.
func LogKeyImported(path, family string, opErr error) error {
	ctx := Context{}
	result := outcome(&ctx, opErr)
	event := NewEvent(EventKeyImported, result).
		WithObject(Object{Type: "key", Path: path, Family: family}).
		WithContext(ctx)
	return MustLog(event)
}

// LogCertImported logs the import of a certificate.
func LogCertImported(path, subject string, opErr error) error {
	ctx := Context{}
	result := outcome(&ctx, opErr)
	event := NewEvent(EventCertImported, result).
		WithObject(Object{Type: "certificate", Path: path, Subject: subject}).
		WithContext(ctx)
	return MustLog(event)
}

// LogAuthFailed logs an authentication failure, such as a wrong key
// passphrase or HSM PIN.
func LogAuthFailed(path, reason string) error {
	event := NewEvent(EventAuthFailed, ResultFailure).
		WithObject(Object{Type: "key", Path: path}).
		WithContext(Context{Reason: reason})
	return MustLog(event)
}
