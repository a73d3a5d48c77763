package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/sakif/forgenotes/internal/apperror"
	"github.com/sakif/forgenotes/internal/passgen"
)

// PasswordResponse is a generated password with its score.
type PasswordResponse struct {
	Password string        `json:"password"`
	Strength passgen.Score `json:"strength"`
}

// StrengthRequest is the body of POST /api/password/strength.
type StrengthRequest struct {
	Password string `json:"password"`
}

// HandleGeneratePassword returns a random password. Every class is on unless
// turned off with e.g. symbols=false.
//
// HTTP: GET /api/password[?length=20&lower=true&upper=true&digits=true&symbols=false]
func HandleGeneratePassword(w http.ResponseWriter, r *http.Request) {
	opts, err := passwordOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	pw, err := passgen.Generate(opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PasswordResponse{Password: pw, Strength: passgen.Strength(pw)})
}

// HTTP: POST /api/password/strength
func HandlePasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req StrengthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, passgen.Strength(req.Password))
}

func passwordOptions(r *http.Request) (passgen.Options, error) {
	q := r.URL.Query()
	opts := passgen.DefaultOptions()

	if raw := q.Get("length"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, apperror.ValidationFailed("length", fmt.Sprintf("invalid length %q", raw))
		}
		opts.Length = n
	}

	for name, dst := range map[string]*bool{
		"lower":   &opts.Lower,
		"upper":   &opts.Upper,
		"digits":  &opts.Digits,
		"symbols": &opts.Symbols,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, apperror.ValidationFailed(name, fmt.Sprintf("invalid %s %q", name, raw))
		}
		*dst = v
	}

	return opts, nil
}

// HandleHealth reports liveness.
//
// HTTP: GET /healthz
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
