// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil provides an in-memory tunnel API server for tests.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/toeirei/tunnelmaster/internal/model"
	"github.com/toeirei/tunnelmaster/internal/security"
)

// Call records one request received by a FakeAPI.
type Call struct {
	Method string
	Path   string
}

func (c Call) String() string { return c.Method + " " + c.Path }

type fault struct {
	key    string
	status int // HTTP status; 0 means answer with an envelope
	code   int
	msg    string
}

type envelope struct {
	Code int    `json:"code"`
	Data any    `json:"data,omitempty"`
	Msg  string `json:"msg"`
}

// FakeAPI implements the tunnel REST surface in memory. Ids and tokens are
// assigned server side, as the real server does.
type FakeAPI struct {
	Server *httptest.Server

	// LeakTokens makes list endpoints include tunnel tokens, imitating a
	// misbehaving server.
	LeakTokens bool
	// User and Password, when set, are required as basic credentials.
	User, Password string

	mu      sync.Mutex
	nextID  int
	tunnels []model.Tunnel
	routes  []model.Route
	calls   []Call
	faults  []fault
	holds   map[string][]hold
}

type hold struct {
	gate    chan struct{}
	arrived chan struct{}
}

// NewFakeAPI starts a FakeAPI that is shut down when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{holds: map[string][]hold{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tunnels", f.listTunnels)
	mux.HandleFunc("POST /api/tunnels", f.createTunnel)
	mux.HandleFunc("PUT /api/tunnels/{id}", f.updateTunnel)
	mux.HandleFunc("DELETE /api/tunnels/{id}", f.deleteTunnel)
	mux.HandleFunc("POST /api/tunnels/{id}/refreshtoken", f.rotateToken)
	mux.HandleFunc("GET /api/token/{id}", f.revealToken)
	mux.HandleFunc("GET /api/routes", f.listRoutes)
	mux.HandleFunc("GET /api/routes/{id}", f.listRoutesByTunnel)
	mux.HandleFunc("POST /api/routes", f.createRoute)
	mux.HandleFunc("PUT /api/routes/{id}", f.updateRoute)
	mux.HandleFunc("DELETE /api/routes/{id}", f.deleteRoute)
	f.Server = httptest.NewServer(f.middleware(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL of the fake server.
func (f *FakeAPI) URL() string { return f.Server.URL }

// Calls returns a copy of all requests received so far.
func (f *FakeAPI) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many requests were received.
func (f *FakeAPI) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// FailNext makes the next "METHOD /path" request answer with an envelope
// carrying code and msg.
func (f *FakeAPI) FailNext(method, path string, code int, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, fault{key: method + " " + path, code: code, msg: msg})
}

// FailStatus makes the next "METHOD /path" request answer with a bare HTTP
// status and no envelope.
func (f *FakeAPI) FailStatus(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, fault{key: method + " " + path, status: status})
}

// Hold delays the response to the next "METHOD /path" request until the
// returned release func is called. The response body is computed when the
// request arrives, so a held list reflects the state at that moment.
// arrived is closed once the held request has reached the server.
func (f *FakeAPI) Hold(method, path string) (release func(), arrived <-chan struct{}) {
	h := hold{gate: make(chan struct{}), arrived: make(chan struct{})}
	f.mu.Lock()
	f.holds[method+" "+path] = append(f.holds[method+" "+path], h)
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(h.gate) }) }, h.arrived
}

// SeedTunnel inserts a tunnel directly, bypassing the API.
func (f *FakeAPI) SeedTunnel(name string, status model.Status, uptime int64) model.Tunnel {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.Tunnel{ID: f.newID("tun"), Name: name, Token: newToken(), Status: status, Uptime: uptime}
	f.tunnels = append(f.tunnels, t)
	return t
}

// SeedRoute inserts a route directly, bypassing the API.
func (f *FakeAPI) SeedRoute(r model.Route) model.Route {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.newID("rt")
	f.routes = append(f.routes, r)
	return r
}

// Token returns the raw credential currently held for a tunnel.
func (f *FakeAPI) Token(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tunnels {
		if t.ID == id {
			return t.Token
		}
	}
	return ""
}

// RemoveTunnel deletes a tunnel behind the client's back.
func (f *FakeAPI) RemoveTunnel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tunnels = removeTunnel(f.tunnels, id)
}

func (f *FakeAPI) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		f.mu.Lock()
		f.calls = append(f.calls, Call{Method: r.Method, Path: r.URL.Path})
		if f.User != "" || f.Password != "" {
			u, p, ok := r.BasicAuth()
			if !ok || u != f.User || p != f.Password {
				f.mu.Unlock()
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		for i, ft := range f.faults {
			if ft.key == key {
				f.faults = append(f.faults[:i], f.faults[i+1:]...)
				f.mu.Unlock()
				if ft.status != 0 {
					http.Error(w, http.StatusText(ft.status), ft.status)
					return
				}
				writeEnvelope(w, envelope{Code: ft.code, Msg: ft.msg})
				return
			}
		}
		// a faulted request leaves the hold for the next one
		var held *hold
		if hs := f.holds[key]; len(hs) > 0 {
			held = &hs[0]
			f.holds[key] = hs[1:]
		}
		f.mu.Unlock()

		if held == nil {
			next.ServeHTTP(w, r)
			return
		}
		rec := httptest.NewRecorder()
		next.ServeHTTP(rec, r)
		close(held.arrived)
		<-held.gate
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	})
}

func (f *FakeAPI) listTunnels(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	out := make([]model.Tunnel, len(f.tunnels))
	copy(out, f.tunnels)
	f.mu.Unlock()
	if !f.LeakTokens {
		for i := range out {
			out[i].Token = ""
		}
	}
	ok(w, out)
}

func (f *FakeAPI) createTunnel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, -1, err.Error())
		return
	}
	if req.ID != "" || req.Token != "" {
		fail(w, -1, "id and token are assigned by the server")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tunnels {
		if t.Name == req.Name {
			fail(w, -1, "UNIQUE constraint failed: tunnels.name")
			return
		}
	}
	f.tunnels = append(f.tunnels, model.Tunnel{ID: f.newID("tun"), Name: req.Name, Token: newToken(), Status: model.StatusOffline})
	ok(w, nil)
}

func (f *FakeAPI) updateTunnel(w http.ResponseWriter, r *http.Request) {
	var req model.Tunnel
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, -1, err.Error())
		return
	}
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tunnels {
		if f.tunnels[i].ID == id {
			// the whole record is saved; only id and token stay server-owned
			req.ID, req.Token = id, f.tunnels[i].Token
			f.tunnels[i] = req
			ok(w, nil)
			return
		}
	}
	fail(w, -1, "record not found")
}

func (f *FakeAPI) deleteTunnel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	before := len(f.tunnels)
	f.tunnels = removeTunnel(f.tunnels, id)
	if len(f.tunnels) == before {
		fail(w, -1, "record not found")
		return
	}
	kept := f.routes[:0]
	for _, rt := range f.routes {
		if rt.TunnelID != id {
			kept = append(kept, rt)
		}
	}
	f.routes = kept
	ok(w, nil)
}

func (f *FakeAPI) rotateToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tunnels {
		if f.tunnels[i].ID == id {
			f.tunnels[i].Token = newToken()
			// The upstream server echoes the new token; clients must ignore it.
			ok(w, f.tunnels[i].Token)
			return
		}
	}
	fail(w, -1, "record not found")
}

func (f *FakeAPI) revealToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tunnels {
		if t.ID == id {
			enc, err := security.InstallToken{TunnelID: t.ID, Credential: security.FromString(t.Token), Server: "tunnel.example.com:5429"}.Encode()
			if err != nil {
				fail(w, -1, err.Error())
				return
			}
			ok(w, enc.Expose())
			return
		}
	}
	fail(w, -1, "record not found")
}

func (f *FakeAPI) listRoutes(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	out := append([]model.Route{}, f.routes...)
	f.mu.Unlock()
	ok(w, out)
}

func (f *FakeAPI) listRoutesByTunnel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	out := []model.Route{}
	for _, rt := range f.routes {
		if rt.TunnelID == id {
			out = append(out, rt)
		}
	}
	f.mu.Unlock()
	ok(w, out)
}

func (f *FakeAPI) createRoute(w http.ResponseWriter, r *http.Request) {
	var req model.Route
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, -1, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasTunnel(req.TunnelID) {
		fail(w, -1, "tunnel not found")
		return
	}
	req.ID = f.newID("rt")
	f.routes = append(f.routes, req)
	ok(w, nil)
}

func (f *FakeAPI) updateRoute(w http.ResponseWriter, r *http.Request) {
	var req model.Route
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, -1, err.Error())
		return
	}
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasTunnel(req.TunnelID) {
		fail(w, -1, "tunnel not found")
		return
	}
	for i := range f.routes {
		if f.routes[i].ID == id {
			req.ID = id
			f.routes[i] = req
			ok(w, nil)
			return
		}
	}
	fail(w, -1, "record not found")
}

func (f *FakeAPI) deleteRoute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.routes {
		if f.routes[i].ID == id {
			f.routes = append(f.routes[:i], f.routes[i+1:]...)
			ok(w, nil)
			return
		}
	}
	fail(w, -1, "record not found")
}

func (f *FakeAPI) hasTunnel(id string) bool {
	for _, t := range f.tunnels {
		if t.ID == id {
			return true
		}
	}
	return false
}

// newID must be called with f.mu held.
func (f *FakeAPI) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func removeTunnel(ts []model.Tunnel, id string) []model.Tunnel {
	out := ts[:0]
	for _, t := range ts {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func newToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func ok(w http.ResponseWriter, data any) {
	writeEnvelope(w, envelope{Code: 0, Msg: "OK", Data: data})
}

func fail(w http.ResponseWriter, code int, msg string) {
	writeEnvelope(w, envelope{Code: code, Msg: strings.TrimSpace(msg)})
}

func writeEnvelope(w http.ResponseWriter, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(env)
}
