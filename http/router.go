package http

// Handler produces the complete response for a request. It must send exactly
// one response through ctx.Send, which also closes the connection.
type Handler func(ctx *RequestCtx)

// Router dispatches on the request method. Only the methods listed in
// AllowedMethods can be registered.
type Router struct {
	Routes     []Route
	Middleware []Middleware
}

func NewRouter() Router {
	return Router{
		Routes: make([]Route, 0, 5),
	}
}

func (router *Router) GET(handler Handler, middleware ...Middleware) {
	router.add(MethodGet, handler, middleware...)
}

func (router *Router) POST(handler Handler, middleware ...Middleware) {
	router.add(MethodPost, handler, middleware...)
}

func (router *Router) PUT(handler Handler, middleware ...Middleware) {
	router.add(MethodPut, handler, middleware...)
}

func (router *Router) PATCH(handler Handler, middleware ...Middleware) {
	router.add(MethodPatch, handler, middleware...)
}

func (router *Router) DELETE(handler Handler, middleware ...Middleware) {
	router.add(MethodDelete, handler, middleware...)
}

// Use adds middleware applied to every route, outermost last.
func (router *Router) Use(middleware ...Middleware) {
	router.Middleware = append(router.Middleware, middleware...)
}

func (router *Router) add(method string, handler Handler, middleware ...Middleware) {
	for _, middleware := range middleware {
		handler = middleware(handler)
	}

	for i := range router.Routes {
		if router.Routes[i].Method == method {
			router.Routes[i].Handler = handler
			return
		}
	}

	router.Routes = append(router.Routes, Route{
		Method:  method,
		Handler: handler,
	})
}

// Lookup returns the handler for method, wrapped in the router middleware.
func (router *Router) Lookup(method string) (Handler, bool) {
	for _, route := range router.Routes {
		if route.Method != method {
			continue
		}

		handler := route.Handler
		for _, middleware := range router.Middleware {
			handler = middleware(handler)
		}
		return handler, true
	}

	return nil, false
}
