package builtin

import (
	"fmt"
	"html/template"
	"math/rand"
	"net/http"

	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/event"
	"github.com/zineproject/zine/internal/platform/httpx"
	"github.com/zineproject/zine/internal/plugin"
)

func init() {
	plugin.Register("eric_the_fish", func() plugin.Plugin {
		return &ericTheFish{pick: rand.Intn}
	})
}

// fishColors is the palette fish_color accepts. Unknown values fall back
// to blue instead of leaking raw configuration into the page.
var fishColors = map[string]bool{
	"blue":   true,
	"green":  true,
	"orange": true,
	"pink":   true,
	"purple": true,
	"red":    true,
}

var fortunes = []string{
	"A bug fixed before breakfast saves an afternoon of sorrow.",
	"A draft left overnight returns wiser in the morning.",
	"A slow page loads faster than an apology.",
	"Ask not what your readers comment; ask why they stopped.",
	"Backups are the only promises a disk ever keeps.",
	"Every long post began as a note nobody planned to publish.",
	"He who renames a slug breaks a thousand bookmarks.",
	"It is always maintenance mode somewhere.",
	"Publish on Friday and the typos will keep you company all weekend.",
	"The best tagline is the one you stop rewriting.",
	"The fish sees the whole pond but says little.",
	"The theme you seek is one setting away.",
	"Write drunk on ideas; edit sober on caffeine.",
	"Your next reader is one honest sentence away.",
}

// ericTheFish is the classic sample plugin: it colors a fish into every
// page header and answers fortune requests on a service endpoint.
type ericTheFish struct {
	cfg  *config.Config
	pick func(n int) int
}

func (p *ericTheFish) Setup(host plugin.Host) error {
	p.cfg = host.Config()
	if err := host.AddConfigVar(config.StringVar("eric_the_fish/fish_color", "blue")); err != nil {
		return err
	}
	if err := host.ConnectEvent(event.NameBeforeMetadataAssembled, p.headerSnippet); err != nil {
		return err
	}
	return host.AddServiceEndpoint("eric_the_fish.get_fortune",
		httpx.Chain(http.HandlerFunc(p.getFortune), httpx.RequireMethod(http.MethodGet)))
}

// headerSnippet contributes the fish style line to every page head.
func (p *ericTheFish) headerSnippet(event.Event) any {
	return template.HTML(fmt.Sprintf("<style>.eric-the-fish { color: %s; }</style>", p.color()))
}

func (p *ericTheFish) color() string {
	color := p.cfg.String("eric_the_fish/fish_color")
	if !fishColors[color] {
		return "blue"
	}
	return color
}

type fortuneResponse struct {
	Fortune string `json:"fortune"`
}

// getFortune serves one random fortune as JSON.
func (p *ericTheFish) getFortune(w http.ResponseWriter, _ *http.Request) {
	fortune := fortunes[p.pick(len(fortunes))]
	_ = httpx.WriteJSON(w, http.StatusOK, fortuneResponse{Fortune: fortune})
}
