package app

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zineproject/zine/internal/event"
	"github.com/zineproject/zine/internal/platform/httpx"
	"github.com/zineproject/zine/internal/storage"
)

// Blog is the identity block every themed page receives.
type Blog struct {
	Title    string
	Tagline  string
	URL      string
	Language string
}

// pageView is the layout data shared by all themed pages.
type pageView struct {
	Blog  Blog
	Meta  []template.HTML
	Title string
}

type postView struct {
	Slug        string
	Title       string
	Author      string
	PublishedAt time.Time
	HTML        template.HTML
}

type commentView struct {
	Author    string
	CreatedAt time.Time
	HTML      template.HTML
}

type indexView struct {
	pageView
	Posts []postView
	Newer string
	Older string
}

type postPageView struct {
	pageView
	Post     postView
	Comments []commentView
}

type loginView struct {
	pageView
	Error string
	Next  string
}

type errorView struct {
	pageView
	Message string
}

func (a *Application) blogView() Blog {
	u := a.cfg.String("blog_url")
	if u == "" {
		u = "/"
	}
	return Blog{
		Title:    a.cfg.String("blog_title"),
		Tagline:  a.cfg.String("blog_tagline"),
		URL:      u,
		Language: a.locale.String(),
	}
}

func (a *Application) newPageView(r *http.Request, title string) pageView {
	return pageView{Blog: a.blogView(), Meta: a.headMetadata(r), Title: title}
}

func postViewOf(p storage.Post) postView {
	return postView{
		Slug:        p.Slug,
		Title:       p.Title,
		Author:      p.AuthorName,
		PublishedAt: p.PublishedAt,
		HTML:        template.HTML(p.HTML),
	}
}

// registerRoutes installs the core routes. Plugins add theirs through
// AddRoute during setup.
func (a *Application) registerRoutes() {
	a.mux.Handle("/", http.HandlerFunc(a.handleRoot))
	a.mux.Handle("/p/", http.HandlerFunc(a.handlePostPath))
	a.mux.Handle(a.adminPrefix+"/login", http.HandlerFunc(a.handleLogin))
	a.mux.Handle(a.adminPrefix+"/logout",
		httpx.Chain(http.HandlerFunc(a.handleLogout), httpx.RequireMethod(http.MethodPost)))
	a.mux.Handle(a.adminPrefix+"/", http.HandlerFunc(a.handleAdminRoot))
	a.routes = append(a.routes,
		"/", "/p/", a.adminPrefix+"/login", a.adminPrefix+"/logout", a.adminPrefix+"/")
}

// handleRoot serves the front page. The catch-all pattern also receives
// every path no other route claimed, so anything but / runs the
// not-found chain.
func (a *Application) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		a.handleNotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httpx.MethodNotAllowed("GET, HEAD")(w, r)
		return
	}
	a.handleFront(w, r)
}

func (a *Application) handleFront(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.renderNotFoundPage(w, r)
			return
		}
		page = n
	}
	perPage := a.cfg.Int("posts_per_page")
	if perPage < 1 {
		perPage = 10
	}

	// Fetch one extra row to learn whether an older page exists.
	posts, err := a.store.RecentPosts(r.Context(), perPage+1, (page-1)*perPage)
	if err != nil {
		a.Errorf("list posts error=%q", err)
		a.renderErrorTo(w, r, http.StatusInternalServerError, "Internal server error",
			"The post list could not be loaded.")
		return
	}

	view := indexView{pageView: a.newPageView(r, "")}
	if len(posts) > perPage {
		posts = posts[:perPage]
		view.Older = fmt.Sprintf("/?page=%d", page+1)
	}
	switch {
	case page == 2:
		view.Newer = "/"
	case page > 2:
		view.Newer = fmt.Sprintf("/?page=%d", page-1)
	}
	for _, p := range posts {
		view.Posts = append(view.Posts, postViewOf(p))
	}
	a.renderPageTo(w, http.StatusOK, "index.html", view)
}

// handlePostPath fans out /p/{slug} and /p/{slug}/comments.
func (a *Application) handlePostPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/p/")
	if rest == "" {
		a.renderNotFoundPage(w, r)
		return
	}
	if redirectTrailingSlash(w, r) {
		return
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			httpx.MethodNotAllowed("GET, HEAD")(w, r)
			return
		}
		a.handlePostPage(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "comments":
		if r.Method != http.MethodPost {
			httpx.MethodNotAllowed(http.MethodPost)(w, r)
			return
		}
		a.handleCreateComment(w, r, parts[0])
	default:
		a.renderNotFoundPage(w, r)
	}
}

func (a *Application) loadPost(w http.ResponseWriter, r *http.Request, slug string) (storage.Post, bool) {
	post, err := a.store.PostBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.renderNotFoundPage(w, r)
		} else {
			a.Errorf("load post slug=%s error=%q", slug, err)
			a.renderErrorTo(w, r, http.StatusInternalServerError, "Internal server error",
				"The post could not be loaded.")
		}
		return storage.Post{}, false
	}
	return post, true
}

func (a *Application) handlePostPage(w http.ResponseWriter, r *http.Request, slug string) {
	post, ok := a.loadPost(w, r, slug)
	if !ok {
		return
	}
	comments, err := a.store.CommentsForPost(r.Context(), post.ID)
	if err != nil {
		a.Errorf("list comments slug=%s error=%q", slug, err)
		a.renderErrorTo(w, r, http.StatusInternalServerError, "Internal server error",
			"The comments could not be loaded.")
		return
	}
	view := postPageView{
		pageView: a.newPageView(r, post.Title),
		Post:     postViewOf(post),
	}
	for _, c := range comments {
		view.Comments = append(view.Comments, commentView{
			Author:    c.Author,
			CreatedAt: c.CreatedAt,
			HTML:      template.HTML(c.HTML),
		})
	}
	a.renderPageTo(w, http.StatusOK, "post.html", view)
}

func (a *Application) handleCreateComment(w http.ResponseWriter, r *http.Request, slug string) {
	post, ok := a.loadPost(w, r, slug)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		a.renderErrorTo(w, r, http.StatusBadRequest, "Invalid form",
			"The comment form could not be read.")
		return
	}
	author := strings.TrimSpace(r.PostFormValue("author"))
	body := strings.TrimSpace(r.PostFormValue("body"))
	if author == "" || body == "" {
		a.renderErrorTo(w, r, http.StatusBadRequest, "Missing fields",
			"Both name and comment are required.")
		return
	}
	rendered, err := a.parserOr(a.cfg.String("comment_parser")).Parse(body)
	if err != nil {
		a.renderErrorTo(w, r, http.StatusBadRequest, "Invalid comment",
			"The comment could not be processed.")
		return
	}
	_, err = a.store.CreateComment(r.Context(), storage.NewComment{
		PostID: post.ID,
		Author: author,
		Body:   body,
		HTML:   rendered,
	})
	if err != nil {
		a.Errorf("create comment slug=%s error=%q", slug, err)
		a.renderErrorTo(w, r, http.StatusInternalServerError, "Internal server error",
			"The comment could not be saved.")
		return
	}
	http.Redirect(w, r, "/p/"+post.Slug+"#comments", http.StatusSeeOther)
}

func (a *Application) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		view := loginView{
			pageView: a.newPageView(r, "Sign in"),
			Next:     resolveNextPath(r.URL.Query().Get("next")),
		}
		a.renderPageTo(w, http.StatusOK, "login.html", view)
	case http.MethodPost:
		a.handleLoginSubmit(w, r)
	default:
		httpx.MethodNotAllowed("GET, HEAD, POST")(w, r)
	}
}

func (a *Application) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderErrorTo(w, r, http.StatusBadRequest, "Invalid form",
			"The login form could not be read.")
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	next := resolveNextPath(r.PostFormValue("next"))

	user, err := a.store.CheckCredentials(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, storage.ErrBadCredentials) {
			view := loginView{
				pageView: a.newPageView(r, "Sign in"),
				Error:    "Invalid username or password.",
				Next:     next,
			}
			a.renderPageTo(w, http.StatusUnauthorized, "login.html", view)
			return
		}
		a.Errorf("check credentials username=%s error=%q", username, err)
		a.renderErrorTo(w, r, http.StatusInternalServerError, "Internal server error",
			"The login could not be processed.")
		return
	}

	token, err := a.sessions.Issue(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		a.Errorf("issue session username=%s error=%q", user.Username, err)
		a.renderErrorTo(w, r, http.StatusInternalServerError, "Internal server error",
			"The login could not be processed.")
		return
	}
	a.sessions.Write(w, r, token)
	a.bus.Emit(event.AfterUserLogin{UserID: user.ID, Username: user.Username})
	if next == "" {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (a *Application) handleLogout(w http.ResponseWriter, r *http.Request) {
	env, _ := RequestFromContext(r.Context())
	a.sessions.Clear(w, r)
	if env != nil && env.LoggedIn {
		a.bus.Emit(event.AfterUserLogout{Username: env.Session.Username})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAdminRoot covers the admin prefix subtree. The admin area only
// carries the login surface; everything else redirects.
func (a *Application) handleAdminRoot(w http.ResponseWriter, r *http.Request) {
	env, _ := RequestFromContext(r.Context())
	if env != nil && env.LoggedIn {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, a.adminPrefix+"/login", http.StatusFound)
}

// resolveNextPath validates a post-login redirect target. Only local
// absolute paths pass; anything with a scheme or host is discarded.
func resolveNextPath(raw string) string {
	next := strings.TrimSpace(raw)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	parsed, err := url.Parse(next)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}
	return next
}
