package main

import (
	"errors"
	"fmt"
	"net/http"

	"finanquest/internal/api"
	"finanquest/internal/securestore"
	"finanquest/internal/session"
)

var errUsage = errors.New("usage error")

// describe turns an error into the message shown to the user.
func describe(err error) string {
	var remote *api.RemoteError
	var storage *securestore.StorageError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return "not signed in, run 'finanquest login' first"
	case errors.Is(err, session.ErrOperationInProgress):
		return "another session operation is in progress, try again"
	case api.IsNetwork(err):
		return "server unreachable, check your connection"
	case api.IsUnauthorized(err):
		return "invalid credentials"
	case api.IsForbidden(err):
		return "access denied"
	case errors.As(err, &remote) && remote.Malformed:
		return "unexpected response from server"
	case errors.As(err, &remote) && remote.StatusCode == http.StatusBadRequest:
		if fe, ok := remote.FirstFieldError(); ok {
			return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
		}
		if msg := remote.Message(); msg != "" {
			return msg
		}
		return "request rejected by server"
	case errors.As(err, &remote):
		if msg := remote.Message(); msg != "" {
			return msg
		}
		return fmt.Sprintf("server error (%d)", remote.StatusCode)
	case errors.As(err, &storage):
		return fmt.Sprintf("could not access the local session store: %v", storage.Err)
	}
	return err.Error()
}
