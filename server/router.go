package server

import "net/http"

// pathHandler serves handlers by exact path for method, falls through to next otherwise
func pathHandler(method string, handlers map[string]http.HandlerFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler, ok := handlers[r.URL.Path]
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if r.Method != method && !(method == http.MethodGet && r.Method == http.MethodHead) {
				w.Header().Set("Allow", method)
				resJSONStatus(w, http.StatusMethodNotAllowed, errorBody{
					Message: "method not allowed", Status: http.StatusMethodNotAllowed,
				})
				return
			}
			handler(w, r)
		})
	}
}
