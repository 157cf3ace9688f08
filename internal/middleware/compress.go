package middleware

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
)

// Compress gzips or deflates responses for clients that accept it
func Compress(next http.Handler) http.Handler {
	return gorillahandlers.CompressHandler(next)
}
