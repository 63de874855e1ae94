package event

import (
	"net/http"

	"github.com/zineproject/zine/internal/platform/httpx"
)

// Core event names. Each name pairs with exactly one payload type below;
// plugins define their own types for plugin-specific events.
const (
	NameApplicationSetupDone    = "application-setup-done"
	NameAfterRequestSetup       = "after-request-setup"
	NameBeforeResponseProcessed = "before-response-processed"
	NameBeforeMetadataAssembled = "before-metadata-assembled"
	NameAfterUserLogin          = "after-user-login"
	NameAfterUserLogout         = "after-user-logout"
	NameCloakInsecureConfigVar  = "cloak-insecure-configuration-var"
)

// ApplicationSetupDone fires once per application instance, after the bus
// is sealed and before the first request. Listener results are ignored.
type ApplicationSetupDone struct {
	InstancePath string
}

// EventName implements Event.
func (ApplicationSetupDone) EventName() string { return NameApplicationSetupDone }

// AfterRequestSetup fires once per request before routing. A listener
// returning an http.Handler short-circuits dispatch: the handler renders
// the response instead of the routed one.
type AfterRequestSetup struct {
	Request *http.Request
}

// EventName implements Event.
func (AfterRequestSetup) EventName() string { return NameAfterRequestSetup }

// BeforeResponseProcessed fires after a response is rendered and before
// it is written to the client. Listeners may mutate the buffer in place
// or return a replacement *httpx.Buffer.
type BeforeResponseProcessed struct {
	Request  *http.Request
	Response *httpx.Buffer
}

// EventName implements Event.
func (BeforeResponseProcessed) EventName() string { return NameBeforeResponseProcessed }

// BeforeMetadataAssembled fires while the page head is built. A listener
// returning a string or template-safe HTML fragment contributes one head
// line.
type BeforeMetadataAssembled struct {
	Request *http.Request
}

// EventName implements Event.
func (BeforeMetadataAssembled) EventName() string { return NameBeforeMetadataAssembled }

// AfterUserLogin fires when an administrator signs in.
type AfterUserLogin struct {
	UserID   int64
	Username string
}

// EventName implements Event.
func (AfterUserLogin) EventName() string { return NameAfterUserLogin }

// AfterUserLogout fires when an administrator signs out.
type AfterUserLogout struct {
	Username string
}

// EventName implements Event.
func (AfterUserLogout) EventName() string { return NameAfterUserLogout }

// CloakInsecureConfigVar fires per key when configuration is listed on a
// public surface. A listener returning true hides the value.
type CloakInsecureConfigVar struct {
	Key string
}

// EventName implements Event.
func (CloakInsecureConfigVar) EventName() string { return NameCloakInsecureConfigVar }
