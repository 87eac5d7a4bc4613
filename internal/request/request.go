/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package request

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tschaefer/wren/internal/filename"
)

// Server variable keys populated by FromHTTP.
const (
	ScriptName = "SCRIPT_NAME"
	HttpHost   = "HTTP_HOST"
	RequestURI = "REQUEST_URI"
	UniqueID   = "UNIQUE_ID"
)

// Context is a read-only snapshot of the variables of a single request.
// One Context exists per request; it is never shared across requests.
type Context struct {
	Server map[string]string
	Cookie map[string]string
	Get    map[string]string
	Post   map[string]string

	// Nested marks execution inside an already instrumented request,
	// e.g. an internal sub-request issued by application code.
	Nested bool
}

// New returns an empty Context with all variable maps allocated.
func New() *Context {
	return &Context{
		Server: map[string]string{},
		Cookie: map[string]string{},
		Get:    map[string]string{},
		Post:   map[string]string{},
	}
}

// FromHTTP builds a Context from an incoming request. A missing unique
// request id is backfilled with a fresh UUID so that every request has one.
func FromHTTP(r *http.Request) *Context {
	ctx := New()

	ctx.Server[ScriptName] = r.URL.Path
	ctx.Server[HttpHost] = r.Host
	ctx.Server[RequestURI] = r.RequestURI

	id := r.Header.Get("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}
	ctx.Server[UniqueID] = id

	for _, cookie := range r.Cookies() {
		ctx.Cookie[cookie.Name] = cookie.Value
	}

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			ctx.Get[key] = values[0]
		} else {
			ctx.Get[key] = ""
		}
	}

	_ = r.ParseForm()
	for key, values := range r.PostForm {
		if len(values) > 0 {
			ctx.Post[key] = values[0]
		} else {
			ctx.Post[key] = ""
		}
	}

	return ctx
}

// UniqueID returns the unique request id.
func (c *Context) UniqueID() string {
	return c.Server[UniqueID]
}

// TriggerSet reports whether name is present as a key in the cookie, GET
// or POST variables. The value is irrelevant, presence is enough. The maps
// are consulted fresh on every call since application code may mutate them
// while the request runs.
func (c *Context) TriggerSet(name string) bool {
	if _, ok := c.Cookie[name]; ok {
		return true
	}
	if _, ok := c.Get[name]; ok {
		return true
	}
	_, ok := c.Post[name]
	return ok
}

// FilenameValues derives the template context for the filename engine.
// sessionName is the configured session cookie name; when unset the
// session id stays empty.
func (c *Context) FilenameValues(sessionName string) filename.Values {
	vals := filename.Values{
		ScriptName: c.Server[ScriptName],
		Host:       c.Server[HttpHost],
		RequestURI: c.Server[RequestURI],
		UniqueID:   c.Server[UniqueID],
	}
	if sessionName != "" {
		vals.SessionID = c.Cookie[sessionName]
	}
	return vals
}
