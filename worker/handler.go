package worker

import "fmt"

// Handler processes one INVOKE'd session. A goroutine's return is
// itself the observable completion point the session manager's trap
// runs after, so no separate future or promise type is needed.
type Handler interface {
	Handle(request Request, response Response)
}

// HandlerFunc adapts a plain func to Handler.
type HandlerFunc func(Request, Response)

// Handle calls f(request, response).
func (f HandlerFunc) Handle(request Request, response Response) { f(request, response) }

// FallbackHandler handles an INVOKE for an event with no bound
// Handler.
type FallbackHandler interface {
	HandleFallback(event string, request Request, response Response)
}

// FallbackHandlerFunc adapts a plain func to FallbackHandler.
type FallbackHandlerFunc func(string, Request, Response)

// HandleFallback calls f(event, request, response).
func (f FallbackHandlerFunc) HandleFallback(event string, request Request, response Response) {
	f(event, request, response)
}

// DefaultFallbackHandler reports that no handler exists for event.
func DefaultFallbackHandler(event string, _ Request, response Response) {
	response.ErrorMsg(ErrorNoEventHandler, fmt.Sprintf("there is no handler for event %s", event))
}
