// Package websetup serves the browser-based first-run assistant.
//
// The dispatcher routes every request of an uninitialized instance here.
// The wizard walks welcome → database → admin account → finish; the data
// travels between steps in hidden form fields, so the assistant itself
// holds no state. Finishing creates the database schema, the first admin
// account, and commits the initial configuration in one transaction;
// until then the instance stays uninitialized and the wizard can be
// restarted at any point.
package websetup

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/i18n"
	"github.com/zineproject/zine/internal/instance"
	"github.com/zineproject/zine/internal/storage"
	"github.com/zineproject/zine/internal/storage/sqlite"
)

// Path is the wizard's entry URL. Every other path redirects here while
// the instance is uninitialized.
const Path = "/setup"

// defaultDatabaseURI is offered on the database step.
const defaultDatabaseURI = sqlite.URIScheme + instance.DatabaseFileName

// minPasswordLength guards the first admin account.
const minPasswordLength = 8

// Assistant serves the setup wizard for one instance.
type Assistant struct {
	inst   *instance.Instance
	logger *log.Logger

	newIID    func() string
	newSecret func() (string, error)
}

// New returns the assistant for an instance.
func New(inst *instance.Instance, logger *log.Logger) *Assistant {
	if logger == nil {
		logger = log.Default()
	}
	return &Assistant{
		inst:      inst,
		logger:    logger,
		newIID:    uuid.NewString,
		newSecret: func() (string, error) { return generateSecret(32) },
	}
}

func generateSecret(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *Assistant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.inst.Initialized() {
		// wizard already finished, likely a stale tab
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	switch {
	case r.URL.Path == Path && (r.Method == http.MethodGet || r.Method == http.MethodHead):
		s.handleWelcome(w, r)
	case r.URL.Path == Path+"/database" && r.Method == http.MethodPost:
		s.handleDatabase(w, r)
	case r.URL.Path == Path+"/account" && r.Method == http.MethodPost:
		s.handleAccount(w, r)
	case r.URL.Path == Path+"/finish" && r.Method == http.MethodPost:
		s.handleFinish(w, r)
	default:
		http.Redirect(w, r, Path, http.StatusFound)
	}
}

type stepView struct {
	Title string
	Error string
}

type languageOption struct {
	Tag  string
	Name string
}

type welcomeView struct {
	stepView
	Languages []languageOption
	Suggested string
}

type databaseView struct {
	stepView
	Language    string
	DatabaseURI string
}

type accountView struct {
	stepView
	Language    string
	DatabaseURI string
	Username    string
	Email       string
}

type summaryView struct {
	stepView
	LoginURL string
}

type failureView struct {
	stepView
	Message string
}

// handleWelcome renders the language step, suggesting a language from
// the administrator's browser.
func (s *Assistant) handleWelcome(w http.ResponseWriter, r *http.Request) {
	suggested := i18n.MatchAccept(r.Header.Get("Accept-Language"))
	view := welcomeView{
		stepView:  stepView{Title: "Welcome"},
		Suggested: suggested.String(),
	}
	for _, tag := range i18n.Supported() {
		view.Languages = append(view.Languages, languageOption{
			Tag:  tag.String(),
			Name: i18n.NativeName(tag),
		})
	}
	s.render(w, http.StatusOK, "welcome.html", view)
}

// handleDatabase renders the database step with the language carried
// along.
func (s *Assistant) handleDatabase(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseForm(w, r)
	if !ok {
		return
	}
	s.renderDatabase(w, databaseView{
		stepView:    stepView{Title: "Database"},
		Language:    form.language,
		DatabaseURI: defaultDatabaseURI,
	})
}

func (s *Assistant) renderDatabase(w http.ResponseWriter, view databaseView) {
	if view.DatabaseURI == "" {
		view.DatabaseURI = defaultDatabaseURI
	}
	s.render(w, http.StatusOK, "database.html", view)
}

// handleAccount validates the database choice and renders the admin
// account step.
func (s *Assistant) handleAccount(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseForm(w, r)
	if !ok {
		return
	}
	if _, err := sqlite.ResolveURI(form.databaseURI, s.inst.Root()); err != nil {
		s.renderDatabase(w, databaseView{
			stepView:    stepView{Title: "Database", Error: fmt.Sprintf("That database location does not work: %v.", err)},
			Language:    form.language,
			DatabaseURI: form.databaseURI,
		})
		return
	}
	s.render(w, http.StatusOK, "account.html", accountView{
		stepView:    stepView{Title: "Administrator account"},
		Language:    form.language,
		DatabaseURI: form.databaseURI,
	})
}

// handleFinish validates everything, creates the database and the first
// admin, and commits the initial configuration.
func (s *Assistant) handleFinish(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseForm(w, r)
	if !ok {
		return
	}

	accountStep := func(message string) {
		s.render(w, http.StatusOK, "account.html", accountView{
			stepView:    stepView{Title: "Administrator account", Error: message},
			Language:    form.language,
			DatabaseURI: form.databaseURI,
			Username:    form.username,
			Email:       form.email,
		})
	}
	switch {
	case form.username == "":
		accountStep("A username is required.")
		return
	case len(form.password) < minPasswordLength:
		accountStep(fmt.Sprintf("The password needs at least %d characters.", minPasswordLength))
		return
	case form.password != form.confirm:
		accountStep("The passwords do not match.")
		return
	}

	lang := i18n.Normalize(form.language)
	if _, err := sqlite.ResolveURI(form.databaseURI, s.inst.Root()); err != nil {
		s.renderDatabase(w, databaseView{
			stepView:    stepView{Title: "Database", Error: fmt.Sprintf("That database location does not work: %v.", err)},
			Language:    form.language,
			DatabaseURI: form.databaseURI,
		})
		return
	}

	// Opening the store creates the database file and applies the schema.
	store, err := sqlite.OpenURI(form.databaseURI, s.inst.Root())
	if err != nil {
		s.renderFailure(w, fmt.Sprintf("The database could not be created: %v.", err))
		return
	}
	defer store.Close()
	if _, err := store.CreateUser(r.Context(), storage.NewUser{
		Username: form.username,
		Email:    form.email,
		Password: form.password,
		IsAdmin:  true,
	}); err != nil {
		if errors.Is(err, storage.ErrExists) {
			accountStep("That username is already taken in this database.")
			return
		}
		s.renderFailure(w, fmt.Sprintf("The administrator account could not be created: %v.", err))
		return
	}

	secret, err := s.newSecret()
	if err != nil {
		s.renderFailure(w, "No secret key could be generated.")
		return
	}
	cfg, err := config.Open(s.inst.ConfigPath(), config.DefaultVars())
	if err != nil {
		s.renderFailure(w, fmt.Sprintf("The configuration could not be read: %v.", err))
		return
	}
	tx := cfg.Edit()
	err = tx.Update(map[string]any{
		"database_uri":     form.databaseURI,
		"secret_key":       secret,
		"iid":              s.newIID(),
		"language":         lang.String(),
		"blog_url":         requestBaseURL(r),
		"maintenance_mode": true,
	})
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		tx.Rollback()
		s.renderFailure(w, fmt.Sprintf("The configuration could not be committed, nothing was changed: %v.", err))
		return
	}

	s.logger.Printf("info instance initialized instance=%s admin=%s language=%s",
		s.inst.Root(), form.username, lang)
	s.render(w, http.StatusOK, "summary.html", summaryView{
		stepView: stepView{Title: "All done"},
		LoginURL: "/admin/login",
	})
}

// wizardForm is the union of fields the steps pass along.
type wizardForm struct {
	language    string
	databaseURI string
	username    string
	email       string
	password    string
	confirm     string
}

func (s *Assistant) parseForm(w http.ResponseWriter, r *http.Request) (wizardForm, bool) {
	if err := r.ParseForm(); err != nil {
		s.renderFailure(w, "The form could not be read.")
		return wizardForm{}, false
	}
	form := wizardForm{
		language:    strings.TrimSpace(r.PostFormValue("language")),
		databaseURI: strings.TrimSpace(r.PostFormValue("database_uri")),
		username:    strings.TrimSpace(r.PostFormValue("username")),
		email:       strings.TrimSpace(r.PostFormValue("email")),
		password:    r.PostFormValue("password"),
		confirm:     r.PostFormValue("password_confirm"),
	}
	if form.databaseURI == "" {
		form.databaseURI = defaultDatabaseURI
	}
	return form, true
}

// requestBaseURL guesses the public blog URL from the wizard request.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}

func (s *Assistant) renderFailure(w http.ResponseWriter, message string) {
	s.render(w, http.StatusInternalServerError, "failure.html", failureView{
		stepView: stepView{Title: "Setup failed"},
		Message:  message,
	})
}

func (s *Assistant) render(w http.ResponseWriter, status int, name string, view any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		s.logger.Printf("error render setup template=%s error=%q", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
