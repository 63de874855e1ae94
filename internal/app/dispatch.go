package app

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/zineproject/zine/internal/appctx"
	"github.com/zineproject/zine/internal/event"
	"github.com/zineproject/zine/internal/platform/httpx"
)

// NotFoundHandler tries to answer a request no route claimed. It reports
// whether it produced a response; the chain stops at the first true.
type NotFoundHandler func(w http.ResponseWriter, r *http.Request) bool

// ServeHTTP runs the full dispatch pipeline: decode the session into a
// request envelope, bind application and envelope to the context, render
// into a buffer, run response post-processing, and flush once.
func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	env := a.newEnvelope(r)
	ctx, err := appctx.BindApplication(r.Context(), a)
	if err != nil {
		a.Errorf("bind application error=%q", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	ctx = appctx.BindRequest(ctx, env)
	r = r.WithContext(ctx)
	env.HTTP = r

	buf := httpx.NewBuffer()
	a.render(buf, r, env)
	buf = a.postProcess(buf, r)
	if err := buf.CopyTo(w); err != nil {
		a.Debugf("write response error=%q", err)
	}
}

// render produces the response into the buffer. Handler panics become a
// themed error page unless passthrough_errors hands them to the hosting
// layer.
func (a *Application) render(buf *httpx.Buffer, r *http.Request, env *Request) {
	defer func() {
		if a.cfg.Bool("passthrough_errors") {
			return
		}
		if recovered := recover(); recovered != nil {
			a.Errorf("panic while handling path=%s error=%v", r.URL.Path, recovered)
			a.renderServerError(buf, r)
		}
	}()
	a.dispatch(buf, r, env)
}

// dispatch runs the routing stage. Listeners on after-request-setup may
// take over the request; maintenance mode short-circuits everything
// outside the admin area for non-admins.
func (a *Application) dispatch(buf *httpx.Buffer, r *http.Request, env *Request) {
	for _, result := range a.bus.Emit(event.AfterRequestSetup{Request: r}) {
		if handler, ok := result.(http.Handler); ok && handler != nil {
			handler.ServeHTTP(buf, r)
			return
		}
	}

	if a.cfg.Bool("maintenance_mode") && !env.Admin() &&
		!strings.HasPrefix(r.URL.Path, a.adminPrefix) {
		a.renderMaintenance(buf, r)
		return
	}

	handler, _ := a.mux.Handler(r)
	handler.ServeHTTP(buf, r)
}

// postProcess gives before-response-processed listeners a chance to
// mutate the buffered response or replace it wholesale. All listeners
// see the original buffer; replacements apply in listener order, last
// one wins.
func (a *Application) postProcess(buf *httpx.Buffer, r *http.Request) *httpx.Buffer {
	for _, result := range a.bus.Emit(event.BeforeResponseProcessed{Request: r, Response: buf}) {
		if replacement, ok := result.(*httpx.Buffer); ok && replacement != nil {
			buf = replacement
		}
	}
	return buf
}

// handleNotFound walks the not-found chain. The final entry always
// responds, so the walk terminates.
func (a *Application) handleNotFound(w http.ResponseWriter, r *http.Request) {
	for _, try := range a.notFound {
		if try(w, r) {
			return
		}
	}
}

// redirectTrailingSlash redirects /path/ to /path so every page has one
// canonical URL. Reports whether a redirect was written.
func redirectTrailingSlash(w http.ResponseWriter, r *http.Request) bool {
	p := r.URL.Path
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		http.Redirect(w, r, strings.TrimRight(p, "/"), http.StatusMovedPermanently)
		return true
	}
	return false
}

// renderNotFoundPage is the terminal entry of the not-found chain.
func (a *Application) renderNotFoundPage(w http.ResponseWriter, r *http.Request) bool {
	a.renderErrorTo(w, r, http.StatusNotFound, "Page not found",
		"The page you were looking for does not exist.")
	return true
}

// headMetadata assembles the lines themes print into <head>. Listeners
// on before-metadata-assembled contribute one line each; plain string
// results are escaped, template.HTML results pass through.
func (a *Application) headMetadata(r *http.Request) []template.HTML {
	lines := []template.HTML{`<meta name="generator" content="Zine">`}
	for _, result := range a.bus.Emit(event.BeforeMetadataAssembled{Request: r}) {
		switch v := result.(type) {
		case template.HTML:
			if v != "" {
				lines = append(lines, v)
			}
		case string:
			if v != "" {
				lines = append(lines, template.HTML(template.HTMLEscapeString(v)))
			}
		}
	}
	return lines
}

// renderPage renders a themed page into the buffer. Rendering goes
// through an intermediate buffer so a template failure never leaves a
// half-written page behind.
func (a *Application) renderPage(buf *httpx.Buffer, status int, name string, view any) {
	var body bytes.Buffer
	if err := a.active.Render(&body, name, view); err != nil {
		a.Errorf("render template=%s theme=%s error=%q", name, a.active.Name(), err)
		buf.Header().Set("Content-Type", "text/plain; charset=utf-8")
		buf.SetStatus(http.StatusInternalServerError)
		buf.SetBody([]byte("internal server error\n"))
		return
	}
	buf.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.SetStatus(status)
	buf.SetBody(body.Bytes())
}

// renderPageTo is renderPage for plain http.ResponseWriter call sites.
func (a *Application) renderPageTo(w http.ResponseWriter, status int, name string, view any) {
	var body bytes.Buffer
	if err := a.active.Render(&body, name, view); err != nil {
		a.Errorf("render template=%s theme=%s error=%q", name, a.active.Name(), err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body.Bytes()); err != nil {
		a.Debugf("write response error=%q", err)
	}
}

// renderError renders the themed error page into the buffer.
func (a *Application) renderError(buf *httpx.Buffer, r *http.Request, status int, title, message string) {
	view := errorView{pageView: a.newPageView(r, title), Message: message}
	a.renderPage(buf, status, "error.html", view)
}

// renderErrorTo renders the themed error page to a response writer.
func (a *Application) renderErrorTo(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	view := errorView{pageView: a.newPageView(r, title), Message: message}
	a.renderPageTo(w, status, "error.html", view)
}

// renderServerError replaces whatever a panicking handler wrote with the
// themed 500 page.
func (a *Application) renderServerError(buf *httpx.Buffer, r *http.Request) {
	a.renderError(buf, r, http.StatusInternalServerError, "Internal server error",
		"Something went wrong while handling your request.")
}

// renderMaintenance renders the maintenance page.
func (a *Application) renderMaintenance(buf *httpx.Buffer, r *http.Request) {
	view := a.newPageView(r, "Maintenance")
	a.renderPage(buf, http.StatusServiceUnavailable, "maintenance.html", view)
}
