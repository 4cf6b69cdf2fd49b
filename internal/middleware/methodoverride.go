package middleware

import (
	"net/http"
)

const overrideField = "_method"

// MethodOverride rewrites POST requests carrying a _method form field into
// the verb it names, so HTML forms can express PUT and DELETE. It must wrap
// the router itself: the verb has to change before route matching happens.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err == nil {
				switch r.PostFormValue(overrideField) {
				case http.MethodPut:
					r.Method = http.MethodPut
				case http.MethodDelete:
					r.Method = http.MethodDelete
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
