// Package handler exposes the HTTP surface of the engine: clients, loans,
// installment payments and principal prepayments, plus health probes.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fintecol/prestamos-engine/pkg/response"
)

// pathUUID reads a UUID path variable. The false return means the response
// was already written.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(w, "identificador inválido: "+raw, err)
		return uuid.Nil, false
	}
	return id, true
}

// decode parses the JSON body into dst. The false return means the response
// was already written.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "cuerpo JSON inválido", err)
		return false
	}
	return true
}

func queryInt(r *http.Request, name, fallback string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		raw = fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
