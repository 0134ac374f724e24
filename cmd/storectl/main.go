// Command storectl is a terminal client for the CuzRadio store admin
// backend: signup/login, route-guarded screens, cached paginated listings,
// and item create/edit/delete per resource tier.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cuzradio/storectl/internal/api"
	"github.com/cuzradio/storectl/internal/cache"
	"github.com/cuzradio/storectl/internal/config"
	"github.com/cuzradio/storectl/internal/model"
	"github.com/cuzradio/storectl/internal/nav"
	"github.com/cuzradio/storectl/internal/service"
	"github.com/cuzradio/storectl/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app bundles the wired components behind the subcommands.
type app struct {
	sessions session.Store
	guard    *nav.Guard
	coord    *cache.Coordinator
	cmds     *service.Commands
	log      *zap.Logger
}

func newApp(apiURL, cfgDir string, verbose bool) *app {
	log := zap.NewNop()
	if verbose {
		log, _ = zap.NewDevelopment()
	}
	sessions := session.NewFileStore(cfgDir)
	client := api.New(apiURL, sessions, log, nil)
	coord := cache.New(client, log)
	return &app{
		sessions: sessions,
		guard:    nav.New(sessions),
		coord:    coord,
		cmds:     service.NewCommands(client, coord, sessions, log),
		log:      log,
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `storectl
Usage:
  storectl [-api URL] [-config DIR] [-v] <cmd> [args]

Commands:
  version
  signup  -u <username> -e <email> -role <ADMIN|PRIMARY|SECONDARY> -p <password> -confirm <password>
  login   -e <email> -p <password>
  logout
  whoami
  open    <path>                                  (route-guard verdict)
  list    -tier <admin|primary|secondary> [-page N]
  create  -tier <t> -name <s> -desc <s> -qty <n> -price <cents> -category <c> [-page N]
  edit    -tier <t> -id <n> -name <s> -desc <s> -qty <n> -price <cents> -category <c> [-page N]
  rm      -tier <t> -id <n> [-page N]
`)
	os.Exit(2)
}

// screenFor maps a tier to the screen that lists it, so commands pass
// through the route guard the way the browser screens did.
func screenFor(tier model.Tier) string {
	switch tier {
	case model.TierAdmin:
		return nav.ScreenAdmin
	case model.TierPrimary:
		return nav.ScreenPrimary
	default:
		return nav.ScreenSecondary
	}
}

// enter resolves the tier's screen; a redirect means the command cannot
// run (anonymous users are sent to login).
func (a *app) enter(tier model.Tier) error {
	v := a.guard.Resolve(screenFor(tier))
	if !v.Render {
		return fmt.Errorf("redirected to %s (login required to view %s)", v.RedirectTo, v.From)
	}
	return nil
}

// listPage fetches a page, clamping the request into [1, totalPages] once
// the server reports the total.
func (a *app) listPage(ctx context.Context, tier model.Tier, page int) (cache.Entry, error) {
	page = model.ClampPage(page, 0)
	entry, err := a.coord.List(ctx, tier, page)
	if err != nil {
		return cache.Entry{}, err
	}
	if clamped := model.ClampPage(page, entry.Pagination.TotalPages); clamped != page {
		return a.coord.List(ctx, tier, clamped)
	}
	return entry, nil
}

func main() {
	cfg := config.Load()
	apiURL := flag.String("api", cfg.APIURL, "backend base URL")
	cfgDir := flag.String("config", cfg.ConfigDir, "config directory (session storage)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := newApp(*apiURL, *cfgDir, *verbose)
	defer func() { _ = a.log.Sync() }()

	switch cmd {

	case "version":
		fmt.Printf("storectl %s (%s)\n", version, buildDate)

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ExitOnError)
		u := fs.String("u", "", "username")
		e := fs.String("e", "", "email")
		role := fs.String("role", string(model.RolePrimary), "role")
		p := fs.String("p", "", "password")
		confirm := fs.String("confirm", "", "password confirmation")
		_ = fs.Parse(args)
		if v := a.guard.Resolve(nav.ScreenSignup); !v.Render {
			fail(fmt.Errorf("already logged in (redirected to %s)", v.RedirectTo))
		}
		s, err := a.cmds.Signup(ctx, *u, *e, *role, *p, *confirm)
		if err != nil {
			fail(err)
		}
		fmt.Printf("signed up as %s (%s)\n", s.Identity.Username, s.Identity.Role)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if v := a.guard.Resolve(nav.ScreenLogin); !v.Render {
			fail(fmt.Errorf("already logged in (redirected to %s)", v.RedirectTo))
		}
		s, err := a.cmds.Login(ctx, *e, *p)
		if err != nil {
			fail(err)
		}
		fmt.Printf("logged in as %s (%s)\n", s.Identity.Username, s.Identity.Role)

	case "logout":
		if err := a.cmds.Logout(); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "whoami":
		id, ok := a.cmds.Whoami()
		if !ok {
			fmt.Println("anonymous")
			return
		}
		printJSON(id)

	case "open":
		if len(args) < 1 {
			usage()
		}
		printJSON(a.guard.Resolve(args[0]))

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		tier := fs.String("tier", "", "resource tier")
		page := fs.Int("page", 1, "page number")
		_ = fs.Parse(args)
		t := model.Tier(*tier)
		if err := a.enter(t); err != nil {
			fail(err)
		}
		entry, err := a.listPage(ctx, t, *page)
		if err != nil {
			fail(err)
		}
		printJSON(struct {
			Items      []model.Item `json:"data"`
			Pagination model.Page   `json:"pagination"`
		}{entry.Items, entry.Pagination})

	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		tier := fs.String("tier", "", "resource tier")
		draft := draftFlags(fs)
		page := fs.Int("page", 1, "page currently viewed")
		_ = fs.Parse(args)
		t := model.Tier(*tier)
		if err := a.enter(t); err != nil {
			fail(err)
		}
		item, err := a.cmds.Create(ctx, t, draft(), *page)
		if err != nil {
			fail(err)
		}
		printJSON(item)

	case "edit":
		fs := flag.NewFlagSet("edit", flag.ExitOnError)
		tier := fs.String("tier", "", "resource tier")
		id := fs.Int64("id", 0, "item id")
		draft := draftFlags(fs)
		page := fs.Int("page", 1, "page currently viewed")
		_ = fs.Parse(args)
		t := model.Tier(*tier)
		if err := a.enter(t); err != nil {
			fail(err)
		}
		item, err := a.cmds.Update(ctx, t, *id, draft(), *page)
		if err != nil {
			fail(err)
		}
		printJSON(item)

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		tier := fs.String("tier", "", "resource tier")
		id := fs.Int64("id", 0, "item id")
		page := fs.Int("page", 1, "page currently viewed")
		_ = fs.Parse(args)
		t := model.Tier(*tier)
		if err := a.enter(t); err != nil {
			fail(err)
		}
		if err := a.cmds.Delete(ctx, t, *id, *page); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	default:
		usage()
	}
}

// draftFlags registers the item-draft flags and returns a closure that
// assembles the draft after parsing.
func draftFlags(fs *flag.FlagSet) func() model.ItemDraft {
	name := fs.String("name", "", "item name")
	desc := fs.String("desc", "", "description")
	qty := fs.Int("qty", 0, "quantity")
	price := fs.Int64("price", 0, "price in cents")
	category := fs.String("category", "", "category (Books|Electronics|Clothing|Others)")
	return func() model.ItemDraft {
		return model.ItemDraft{
			Name:        *name,
			Description: *desc,
			Quantity:    *qty,
			Price:       *price,
			Category:    model.Category(*category),
		}
	}
}
