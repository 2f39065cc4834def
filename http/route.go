package http

type Route struct {
	Method  string
	Handler Handler
}
