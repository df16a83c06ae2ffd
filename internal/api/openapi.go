// SPDX-License-Identifier: MIT

package api

import (
	_ "embed"
	"net/http"
)

// OpenAPISpec is the contract of the HTTP surface served by Server.
//
//go:embed openapi.yaml
var OpenAPISpec []byte

func handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(OpenAPISpec)
}
